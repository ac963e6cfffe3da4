// Package gallery scores the spectator audience: predictions on the
// active player's turn, a points ledger with capped social categories,
// and threshold achievements.
package gallery

import (
	"errors"
	"time"
)

var (
	ErrTurnCapReached   = errors.New("prediction cap reached for this turn")
	ErrDuplicateType    = errors.New("already predicted this type for this turn")
	ErrExactOutOfRange  = errors.New("exact score must be between 0 and 50")
	ErrUnknownType      = errors.New("unknown prediction type")
)

type PredictionType string

const (
	PredictDicee    PredictionType = "dicee"
	PredictImproves PredictionType = "improves"
	PredictBricks   PredictionType = "bricks"
	PredictExact    PredictionType = "exact"
)

// Canonical reward table. The exact-score prediction is the long shot and
// pays accordingly.
var baseReward = map[PredictionType]int{
	PredictDicee:    50,
	PredictImproves: 10,
	PredictBricks:   15,
	PredictExact:    100,
}

const (
	maxPredictionsPerTurn = 3
	streakBonusStep       = 5
	streakBonusCap        = 25
)

// Prediction is one spectator call on one turn.
type Prediction struct {
	ID            string         `json:"id"`
	SpectatorID   string         `json:"spectatorId"`
	PlayerID      string         `json:"playerId"`
	TurnNumber    int            `json:"turnNumber"`
	Type          PredictionType `json:"type"`
	ExactScore    int            `json:"exactScore,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Evaluated     bool           `json:"evaluated"`
	Correct       bool           `json:"correct"`
	PointsAwarded int            `json:"pointsAwarded"`
}

// TurnOutcome is what actually happened, fed in by the room when a turn
// completes.
type TurnOutcome struct {
	PlayerID   string
	TurnNumber int
	Score      int
	WasDicee   bool
	Improved   bool // final score beat the first roll's best immediate score
	Bricked    bool // scratched, or scored under 10
}

// Stats accumulates one spectator's career numbers. Persisted across games.
type Stats struct {
	SpectatorID        string    `json:"spectatorId" gorm:"primaryKey"`
	TotalPredictions   int       `json:"totalPredictions"`
	CorrectPredictions int       `json:"correctPredictions"`
	Accuracy           float64   `json:"accuracy"`
	TotalPoints        int       `json:"totalPoints"`
	Streak             int       `json:"streak"`
	BestStreak         int       `json:"bestStreak"`
	CorrectExact       int       `json:"correctExact"`
	CorrectDicee       int       `json:"correctDicee"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Result is the evaluation outcome for one prediction.
type Result struct {
	Prediction Prediction `json:"prediction"`
	Points     int        `json:"points"`
	Streak     int        `json:"streak"`
}

// Ledger owns all gallery state for one room. The room actor is its only
// caller, so no locking.
type Ledger struct {
	newID   func() string
	pending []*Prediction
	stats   map[string]*Stats
	points  map[string]*Points
	earned  map[string]map[AchievementID]time.Time
	unlocks map[string][]Achievement
}

// NewLedger builds a ledger. newID supplies prediction ids; seeded stats,
// if any, come from the persistent store on room wake.
func NewLedger(newID func() string, seed []Stats) *Ledger {
	l := &Ledger{
		newID:   newID,
		stats:   map[string]*Stats{},
		points:  map[string]*Points{},
		earned:  map[string]map[AchievementID]time.Time{},
		unlocks: map[string][]Achievement{},
	}
	for i := range seed {
		s := seed[i]
		l.stats[s.SpectatorID] = &s
	}
	return l
}

// SeedStats merges persisted career stats for spectators the ledger is
// not yet tracking. Already-tracked spectators keep their live stats.
func (l *Ledger) SeedStats(stats []Stats) {
	for i := range stats {
		s := stats[i]
		if _, ok := l.stats[s.SpectatorID]; !ok {
			l.stats[s.SpectatorID] = &s
		}
	}
}

// Submit validates and records a prediction against the current turn.
func (l *Ledger) Submit(spectatorID, playerID string, turnNumber int, pt PredictionType, exactScore int, now time.Time) (Prediction, error) {
	if _, ok := baseReward[pt]; !ok {
		return Prediction{}, ErrUnknownType
	}
	if pt == PredictExact && (exactScore < 0 || exactScore > 50) {
		return Prediction{}, ErrExactOutOfRange
	}

	count := 0
	for _, p := range l.pending {
		if p.SpectatorID != spectatorID || p.TurnNumber != turnNumber || p.Evaluated {
			continue
		}
		if p.Type == pt {
			return Prediction{}, ErrDuplicateType
		}
		count++
	}
	if count >= maxPredictionsPerTurn {
		return Prediction{}, ErrTurnCapReached
	}

	p := &Prediction{
		ID:          l.newID(),
		SpectatorID: spectatorID,
		PlayerID:    playerID,
		TurnNumber:  turnNumber,
		Type:        pt,
		ExactScore:  exactScore,
		Timestamp:   now,
	}
	l.pending = append(l.pending, p)
	return *p, nil
}

// Pending returns the unevaluated predictions for one turn.
func (l *Ledger) Pending(playerID string, turnNumber int) []Prediction {
	var out []Prediction
	for _, p := range l.pending {
		if !p.Evaluated && p.PlayerID == playerID && p.TurnNumber == turnNumber {
			out = append(out, *p)
		}
	}
	return out
}

// Evaluate settles every open prediction for the completed turn. Each
// prediction is marked evaluated, so a second call for the same turn is a
// no-op and never double-awards.
func (l *Ledger) Evaluate(outcome TurnOutcome, now time.Time) []Result {
	var results []Result
	for _, p := range l.pending {
		if p.Evaluated || p.PlayerID != outcome.PlayerID || p.TurnNumber != outcome.TurnNumber {
			continue
		}
		p.Evaluated = true
		p.Correct = correct(p, outcome)

		st := l.statsFor(p.SpectatorID)
		st.TotalPredictions++

		points := 0
		if p.Correct {
			st.Streak++
			if st.Streak > st.BestStreak {
				st.BestStreak = st.Streak
			}
			st.CorrectPredictions++
			if p.Type == PredictExact {
				st.CorrectExact++
			}
			if p.Type == PredictDicee {
				st.CorrectDicee++
			}

			points = baseReward[p.Type]
			bonus := streakBonus(st.Streak)
			pts := l.pointsFor(p.SpectatorID)
			pts.Predictions.Correct += points
			pts.Predictions.StreakBonus += bonus
			if p.Type == PredictExact {
				pts.Predictions.ExactScore += points
			}
			points += bonus
			st.TotalPoints += points
		} else {
			st.Streak = 0
		}
		st.Accuracy = float64(st.CorrectPredictions) / float64(st.TotalPredictions)
		st.UpdatedAt = now
		p.PointsAwarded = points
		l.checkAchievements(p.SpectatorID, now)

		results = append(results, Result{Prediction: *p, Points: points, Streak: st.Streak})
	}

	l.compactPending()
	return results
}

// Unlocked drains newly unlocked achievements recorded since the last call.
func (l *Ledger) Unlocked(spectatorID string) []Achievement {
	out := l.unlocks[spectatorID]
	delete(l.unlocks, spectatorID)
	return out
}

// Stats returns a copy of the spectator's career stats.
func (l *Ledger) Stats(spectatorID string) Stats {
	return *l.statsFor(spectatorID)
}

// AllStats snapshots every tracked spectator, for persistence.
func (l *Ledger) AllStats() []Stats {
	out := make([]Stats, 0, len(l.stats))
	for _, s := range l.stats {
		out = append(out, *s)
	}
	return out
}

func (l *Ledger) statsFor(spectatorID string) *Stats {
	s := l.stats[spectatorID]
	if s == nil {
		s = &Stats{SpectatorID: spectatorID}
		l.stats[spectatorID] = s
	}
	return s
}

func correct(p *Prediction, o TurnOutcome) bool {
	switch p.Type {
	case PredictDicee:
		return o.WasDicee
	case PredictImproves:
		return o.Improved
	case PredictBricks:
		return o.Bricked
	case PredictExact:
		return p.ExactScore == o.Score
	}
	return false
}

// streakBonus grows by 5 per consecutive correct prediction past the
// first, capped at 25.
func streakBonus(streak int) int {
	if streak <= 1 {
		return 0
	}
	bonus := streakBonusStep * (streak - 1)
	if bonus > streakBonusCap {
		bonus = streakBonusCap
	}
	return bonus
}

func (l *Ledger) compactPending() {
	kept := l.pending[:0]
	for _, p := range l.pending {
		if !p.Evaluated {
			kept = append(kept, p)
		}
	}
	l.pending = kept
}
