// Package kibitz tallies ephemeral spectator votes on the active player's
// next move. State is scoped to exactly one (playerId, turnNumber) and is
// reset whenever the turn owner or number changes.
package kibitz

import "errors"

var (
	ErrVotingClosed = errors.New("voting is closed for this turn")
	ErrWrongTurn    = errors.New("vote targets a stale turn")
	ErrNoVote       = errors.New("no active vote for spectator")
)

// VoteType partitions the option space.
type VoteType string

const (
	VoteCategory VoteType = "category"
	VoteKeep     VoteType = "keep"
	VoteAction   VoteType = "action"
)

const previewNames = 3

type vote struct {
	voteType    VoteType
	optionID    string
	label       string
	displayName string
}

// Option is one tallied choice.
type Option struct {
	OptionID     string   `json:"optionId"`
	Label        string   `json:"label"`
	VoteCount    int      `json:"voteCount"`
	Percentage   float64  `json:"percentage"`
	VoterPreview []string `json:"voterPreview"`
}

// State is a tally snapshot.
type State struct {
	PlayerID        string   `json:"playerId"`
	TurnNumber      int      `json:"turnNumber"`
	TotalVotes      int      `json:"totalVotes"`
	ActiveVoteType  VoteType `json:"activeVoteType,omitempty"`
	CategoryOptions []Option `json:"categoryOptions"`
	KeepOptions     []Option `json:"keepOptions"`
	ActionOptions   []Option `json:"actionOptions"`
	VotingOpen      bool     `json:"votingOpen"`
}

// Aggregator holds the votes for the current turn.
type Aggregator struct {
	playerID   string
	turnNumber int
	open       bool
	votes      map[string]vote // spectatorId -> latest vote
	order      []string        // spectator insertion order, for stable previews
}

func New() *Aggregator {
	return &Aggregator{votes: map[string]vote{}}
}

// Reset rebinds the aggregator to a new (playerId, turnNumber) scope and
// discards all votes. Voting opens if the player is non-empty.
func (a *Aggregator) Reset(playerID string, turnNumber int) {
	a.playerID = playerID
	a.turnNumber = turnNumber
	a.open = playerID != ""
	a.votes = map[string]vote{}
	a.order = a.order[:0]
}

// Close stops accepting votes without discarding the tally.
func (a *Aggregator) Close() { a.open = false }

// Vote records the spectator's choice. A spectator holds at most one
// active vote; a new submission overwrites any prior vote of any type.
func (a *Aggregator) Vote(spectatorID, displayName string, turnNumber int, vt VoteType, optionID, label string) error {
	if !a.open {
		return ErrVotingClosed
	}
	if turnNumber != a.turnNumber {
		return ErrWrongTurn
	}
	if _, exists := a.votes[spectatorID]; !exists {
		a.order = append(a.order, spectatorID)
	}
	a.votes[spectatorID] = vote{voteType: vt, optionID: optionID, label: label, displayName: displayName}
	return nil
}

// Clear removes one spectator's vote.
func (a *Aggregator) Clear(spectatorID string) error {
	if _, ok := a.votes[spectatorID]; !ok {
		return ErrNoVote
	}
	delete(a.votes, spectatorID)
	for i, id := range a.order {
		if id == spectatorID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return nil
}

// Snapshot recomputes the tally: per-option counts, percentages of the
// grand total, and up to three voter display names per option.
func (a *Aggregator) Snapshot() State {
	s := State{
		PlayerID:   a.playerID,
		TurnNumber: a.turnNumber,
		TotalVotes: len(a.votes),
		VotingOpen: a.open,
	}

	byType := map[VoteType]map[string]*Option{}
	typeCounts := map[VoteType]int{}
	for _, id := range a.order {
		v, ok := a.votes[id]
		if !ok {
			continue
		}
		opts := byType[v.voteType]
		if opts == nil {
			opts = map[string]*Option{}
			byType[v.voteType] = opts
		}
		opt := opts[v.optionID]
		if opt == nil {
			label := v.label
			if label == "" {
				label = v.optionID
			}
			opt = &Option{OptionID: v.optionID, Label: label}
			opts[v.optionID] = opt
		}
		opt.VoteCount++
		if len(opt.VoterPreview) < previewNames {
			opt.VoterPreview = append(opt.VoterPreview, v.displayName)
		}
		typeCounts[v.voteType]++
	}

	dominant := VoteType("")
	for vt, n := range typeCounts {
		if n > typeCounts[dominant] {
			dominant = vt
		}
	}
	s.ActiveVoteType = dominant

	s.CategoryOptions = collect(byType[VoteCategory], s.TotalVotes)
	s.KeepOptions = collect(byType[VoteKeep], s.TotalVotes)
	s.ActionOptions = collect(byType[VoteAction], s.TotalVotes)
	return s
}

func collect(opts map[string]*Option, total int) []Option {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if total > 0 {
			o.Percentage = float64(o.VoteCount) / float64(total) * 100
		}
		out = append(out, *o)
	}
	// Stable order: highest count first, option id as tiebreak.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if b.VoteCount > a.VoteCount || (b.VoteCount == a.VoteCount && b.OptionID < a.OptionID) {
				out[j-1], out[j] = b, a
			}
		}
	}
	return out
}
