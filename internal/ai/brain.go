// Package ai drives AI-occupied seats. The controller produces commands
// through the same validated engine path as human input; the pluggable
// brain only ever answers "what would you do here".
package ai

import (
	"math/rand"
	"time"

	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
)

type Action string

const (
	ActionRoll  Action = "roll"
	ActionKeep  Action = "keep"
	ActionScore Action = "score"
)

// Decision is one brain answer.
type Decision struct {
	Action     Action
	Keep       [5]bool
	Category   scoring.Category
	Confidence float64
}

// Context is the snapshot a brain decides on. The dice have always been
// rolled at least once before a brain is consulted.
type Context struct {
	Dice           [5]int
	Keep           [5]bool
	RollsRemaining int
	Scorecard      map[scoring.Category]int
	UpperSubtotal  int
}

// Brain is the single capability an AI strategy exposes. The variant is
// chosen at player creation and never changes afterward.
type Brain interface {
	Decide(ctx Context) (Decision, error)
}

type BrainType string

const (
	BrainOptimal       BrainType = "optimal"
	BrainProbabilistic BrainType = "probabilistic"
	BrainPersonality   BrainType = "personality"
	BrainRandom        BrainType = "random"
)

// Traits shape the personality brain.
type Traits struct {
	Aggression float64 `json:"aggression"` // 0..1, chases big patterns
	Caution    float64 `json:"caution"`    // 0..1, banks points early
}

// Profile configures one AI player.
type Profile struct {
	Brain    BrainType     `json:"brain"`
	Traits   Traits        `json:"traits"`
	MinThink time.Duration `json:"minThink"`
	MaxThink time.Duration `json:"maxThink"`
}

// NewBrain builds the strategy for a profile. Unknown types fall back to
// the random brain rather than failing player creation.
func NewBrain(p Profile, rng *rand.Rand) Brain {
	switch p.Brain {
	case BrainOptimal:
		return &optimalBrain{}
	case BrainProbabilistic:
		return &probabilisticBrain{rng: rng}
	case BrainPersonality:
		return &personalityBrain{traits: p.Traits, rng: rng}
	default:
		return &randomBrain{rng: rng}
	}
}

// bestImmediate returns the unscored category worth the most right now.
func bestImmediate(ctx Context) (scoring.Category, int) {
	best := scoring.Category("")
	bestScore := -1
	for _, c := range scoring.AllCategories {
		if _, done := ctx.Scorecard[c]; done {
			continue
		}
		if s := scoring.Score(ctx.Dice, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

// keepStrongest keeps the largest matching face group, or a straight draw
// when it is longer than the best group.
func keepStrongest(dice [5]int) [5]bool {
	counts := map[int]int{}
	for _, d := range dice {
		counts[d]++
	}
	bestFace, bestCount := 0, 0
	for face := 6; face >= 1; face-- {
		if counts[face] > bestCount {
			bestFace, bestCount = face, counts[face]
		}
	}

	var keep [5]bool
	run := straightDraw(dice)
	if len(run) > bestCount {
		seen := map[int]bool{}
		for i, d := range dice {
			if run[d] && !seen[d] {
				keep[i] = true
				seen[d] = true
			}
		}
		return keep
	}
	for i, d := range dice {
		if d == bestFace {
			keep[i] = true
		}
	}
	return keep
}

// straightDraw returns the faces of the longest run present, as a set.
func straightDraw(dice [5]int) map[int]bool {
	present := map[int]bool{}
	for _, d := range dice {
		present[d] = true
	}
	bestStart, bestLen := 0, 0
	for start := 1; start <= 6; start++ {
		n := 0
		for f := start; f <= 6 && present[f]; f++ {
			n++
		}
		if n > bestLen {
			bestStart, bestLen = start, n
		}
	}
	run := map[int]bool{}
	for f := bestStart; f < bestStart+bestLen; f++ {
		run[f] = true
	}
	return run
}
