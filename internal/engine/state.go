package engine

import "github.com/DoyleJ11/dicee-room-backend/internal/scoring"

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusStarting  Status = "starting"
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

type TurnPhase string

const (
	PhasePreRoll  TurnPhase = "pre_roll"
	PhaseDeciding TurnPhase = "deciding"
	PhaseScored   TurnPhase = "scored"
)

// MaxRolls per turn, counting the initial roll.
const MaxRolls = 3

// CategoriesPerGame is the number of turns each seat plays.
const CategoriesPerGame = 13

type Config struct {
	MaxPlayers         int  `json:"maxPlayers"`
	IsPublic           bool `json:"isPublic"`
	AllowSpectators    bool `json:"allowSpectators"`
	TurnTimeoutSeconds int  `json:"turnTimeoutSeconds"`
}

// Seat is a player slot. An empty UserID means vacant. Seats are created
// once at room creation and mutated in place by the room actor.
type Seat struct {
	Index       int                          `json:"index"`
	UserID      string                       `json:"userId,omitempty"`
	DisplayName string                       `json:"displayName,omitempty"`
	IsAI        bool                         `json:"isAI,omitempty"`
	IsHost      bool                         `json:"isHost,omitempty"`
	IsConnected bool                         `json:"isConnected,omitempty"`
	Scorecard   map[scoring.Category]int     `json:"scorecard,omitempty"`
}

// Occupied reports whether the seat has an owner.
func (s Seat) Occupied() bool { return s.UserID != "" }

// Turn is the state of the seat currently acting.
type Turn struct {
	SeatIndex      int       `json:"seatIndex"`
	Number         int       `json:"number"` // monotonic across the whole game
	Phase          TurnPhase `json:"phase"`
	Dice           [5]int    `json:"dice"`
	Keep           [5]bool   `json:"keep"`
	RollsRemaining int       `json:"rollsRemaining"`
}

type State struct {
	Code            string  `json:"code"`
	Config          Config  `json:"config"`
	Status          Status  `json:"status"`
	Seats           []Seat  `json:"seats"`
	HostID          string  `json:"hostId"`
	Turn            Turn    `json:"turn"`
	RoundsRemaining int     `json:"roundsRemaining"`
	WinnerID        string  `json:"winnerId,omitempty"`
}

// NewState builds a waiting room with cfg.MaxPlayers vacant seats.
func NewState(code string, cfg Config) State {
	seats := make([]Seat, cfg.MaxPlayers)
	for i := range seats {
		seats[i] = Seat{Index: i}
	}
	return State{
		Code:   code,
		Config: cfg,
		Status: StatusWaiting,
		Seats:  seats,
	}
}

// CurrentSeat returns the acting seat, or false when no game is running.
func (s State) CurrentSeat() (Seat, bool) {
	if s.Status != StatusPlaying {
		return Seat{}, false
	}
	if s.Turn.SeatIndex < 0 || s.Turn.SeatIndex >= len(s.Seats) {
		return Seat{}, false
	}
	return s.Seats[s.Turn.SeatIndex], true
}

// OccupiedSeats counts seats with an owner.
func (s State) OccupiedSeats() int {
	n := 0
	for _, seat := range s.Seats {
		if seat.Occupied() {
			n++
		}
	}
	return n
}

// SeatOf returns the seat owned by userID.
func (s State) SeatOf(userID string) (Seat, bool) {
	for _, seat := range s.Seats {
		if seat.Occupied() && seat.UserID == userID {
			return seat, true
		}
	}
	return Seat{}, false
}

// Totals computes the section totals for one seat's scorecard.
func (s State) Totals(seatIndex int) scoring.Totals {
	return scoring.ComputeTotals(s.Seats[seatIndex].Scorecard)
}

func cloneSeats(seats []Seat) []Seat {
	out := make([]Seat, len(seats))
	copy(out, seats)
	return out
}

func cloneScorecard(card map[scoring.Category]int) map[scoring.Category]int {
	out := make(map[scoring.Category]int, len(card)+1)
	for k, v := range card {
		out[k] = v
	}
	return out
}
