package ai

import (
	"math/rand"

	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
)

// optimalBrain plays the greedy expected-value line: bank a strong hand,
// otherwise reroll around the strongest pattern.
type optimalBrain struct{}

// scoreNowThreshold approximates the continue value of a reroll; anything
// at or above it is worth banking immediately.
const scoreNowThreshold = 25

func (b *optimalBrain) Decide(ctx Context) (Decision, error) {
	category, score := bestImmediate(ctx)
	if ctx.RollsRemaining == 0 {
		return Decision{Action: ActionScore, Category: category, Confidence: 1}, nil
	}
	if score >= scoreNowThreshold || scoring.IsDicee(ctx.Dice) {
		return Decision{Action: ActionScore, Category: category, Confidence: 0.9}, nil
	}
	return Decision{Action: ActionRoll, Keep: keepStrongest(ctx.Dice), Confidence: 0.7}, nil
}

// probabilisticBrain perturbs the optimal line: the banking threshold
// floats, so it sometimes presses a decent hand.
type probabilisticBrain struct {
	rng *rand.Rand
}

func (b *probabilisticBrain) Decide(ctx Context) (Decision, error) {
	category, score := bestImmediate(ctx)
	if ctx.RollsRemaining == 0 {
		return Decision{Action: ActionScore, Category: category, Confidence: 1}, nil
	}
	threshold := scoreNowThreshold + b.rng.Intn(11) - 5
	if score >= threshold {
		return Decision{Action: ActionScore, Category: category, Confidence: 0.75}, nil
	}
	return Decision{Action: ActionRoll, Keep: keepStrongest(ctx.Dice), Confidence: 0.6}, nil
}

// personalityBrain weighs the same signals through its traits: aggression
// chases the dicee, caution banks early.
type personalityBrain struct {
	traits Traits
	rng    *rand.Rand
}

func (b *personalityBrain) Decide(ctx Context) (Decision, error) {
	category, score := bestImmediate(ctx)
	if ctx.RollsRemaining == 0 {
		return Decision{Action: ActionScore, Category: category, Confidence: 1}, nil
	}

	threshold := float64(scoreNowThreshold)
	threshold += b.traits.Aggression * 15 // presses on
	threshold -= b.traits.Caution * 15    // banks early

	if float64(score) >= threshold {
		return Decision{Action: ActionScore, Category: category, Confidence: 0.8}, nil
	}
	keep := keepStrongest(ctx.Dice)
	if b.traits.Aggression > 0.8 && b.rng.Float64() < 0.2 {
		// All in on a fresh hand.
		keep = [5]bool{}
	}
	return Decision{Action: ActionRoll, Keep: keep, Confidence: 0.5}, nil
}

// randomBrain is the chaos baseline used for filler seats.
type randomBrain struct {
	rng *rand.Rand
}

func (b *randomBrain) Decide(ctx Context) (Decision, error) {
	if ctx.RollsRemaining > 0 && b.rng.Intn(2) == 0 {
		var keep [5]bool
		for i := range keep {
			keep[i] = b.rng.Intn(2) == 0
		}
		return Decision{Action: ActionRoll, Keep: keep, Confidence: 0.1}, nil
	}

	var open []scoring.Category
	for _, c := range scoring.AllCategories {
		if _, done := ctx.Scorecard[c]; !done {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		category, _ := bestImmediate(ctx)
		return Decision{Action: ActionScore, Category: category, Confidence: 0}, nil
	}
	return Decision{Action: ActionScore, Category: open[b.rng.Intn(len(open))], Confidence: 0.1}, nil
}
