package gallery

// Per-game social point values and caps.
const (
	reactionPoints   = 1
	reactionCap      = 20
	kibitzVotePoints = 2
	chatPoints       = 1
	chatCap          = 10

	backedWinnerPoints = 25
	loyaltyBonusPoints = 10
)

// Points is the per-game gallery points breakdown for one spectator.
type Points struct {
	Predictions struct {
		Correct     int `json:"correct"`
		StreakBonus int `json:"streakBonus"`
		ExactScore  int `json:"exactScore"`
	} `json:"predictions"`
	Social struct {
		ReactionsGiven int `json:"reactionsGiven"`
		KibitzVotes    int `json:"kibitzVotes"`
		ChatMessages   int `json:"chatMessages"`
	} `json:"social"`
	Backing struct {
		BackedWinner int `json:"backedWinner"`
		LoyaltyBonus int `json:"loyaltyBonus"`
	} `json:"backing"`
}

// Total sums every category.
func (p Points) Total() int {
	return p.Predictions.Correct + p.Predictions.StreakBonus + p.Predictions.ExactScore +
		p.Social.ReactionsGiven + p.Social.KibitzVotes + p.Social.ChatMessages +
		p.Backing.BackedWinner + p.Backing.LoyaltyBonus
}

func (l *Ledger) pointsFor(spectatorID string) *Points {
	p := l.points[spectatorID]
	if p == nil {
		p = &Points{}
		l.points[spectatorID] = p
	}
	return p
}

// RecordKibitzVote credits a cast vote. Uncapped; kibitzing is the point.
func (l *Ledger) RecordKibitzVote(spectatorID string) {
	l.pointsFor(spectatorID).Social.KibitzVotes += kibitzVotePoints
	l.statsFor(spectatorID).TotalPoints += kibitzVotePoints
}

// RecordReaction credits a reaction, up to the per-game cap.
func (l *Ledger) RecordReaction(spectatorID string) {
	p := l.pointsFor(spectatorID)
	if p.Social.ReactionsGiven >= reactionCap {
		return
	}
	p.Social.ReactionsGiven += reactionPoints
	l.statsFor(spectatorID).TotalPoints += reactionPoints
}

// RecordChatMessage credits a chat message, up to the per-game cap.
func (l *Ledger) RecordChatMessage(spectatorID string) {
	p := l.pointsFor(spectatorID)
	if p.Social.ChatMessages >= chatCap {
		return
	}
	p.Social.ChatMessages += chatPoints
	l.statsFor(spectatorID).TotalPoints += chatPoints
}

// RecordBackedWinner credits spectators whose backed player won, plus a
// loyalty bonus for having backed them the whole game.
func (l *Ledger) RecordBackedWinner(spectatorID string, loyal bool) {
	p := l.pointsFor(spectatorID)
	p.Backing.BackedWinner += backedWinnerPoints
	award := backedWinnerPoints
	if loyal {
		p.Backing.LoyaltyBonus += loyaltyBonusPoints
		award += loyaltyBonusPoints
	}
	l.statsFor(spectatorID).TotalPoints += award
}

// Summary is the end-of-turn / end-of-game gallery digest for one
// spectator.
type Summary struct {
	SpectatorID     string        `json:"spectatorId"`
	PointsThisGame  int           `json:"pointsThisGame"`
	Breakdown       Points        `json:"breakdown"`
	NewAchievements []Achievement `json:"newAchievements,omitempty"`
	Accuracy        float64       `json:"accuracy"`
	Stats           Stats         `json:"stats"`
}

// Summarize builds the digest and drains pending achievement
// notifications for the spectator.
func (l *Ledger) Summarize(spectatorID string) Summary {
	pts := *l.pointsFor(spectatorID)
	st := *l.statsFor(spectatorID)
	return Summary{
		SpectatorID:     spectatorID,
		PointsThisGame:  pts.Total(),
		Breakdown:       pts,
		NewAchievements: l.Unlocked(spectatorID),
		Accuracy:        st.Accuracy,
		Stats:           st,
	}
}

// ResetGame clears per-game point tallies, keeping career stats.
func (l *Ledger) ResetGame() {
	l.points = map[string]*Points{}
	l.pending = nil
}
