package engine

import (
	"errors"

	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
)

var (
	ErrNotHost            = errors.New("only the host may start the game")
	ErrNotEnoughPlayers   = errors.New("need at least two occupied seats")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrGameNotInProgress  = errors.New("game not in progress")
	ErrWrongTurn          = errors.New("not your turn")
	ErrWrongPhase         = errors.New("command not valid in this phase")
	ErrNoRollsLeft        = errors.New("no rolls remaining")
	ErrMustRollFirst      = errors.New("must roll before scoring")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrCategoryScored     = errors.New("category already scored")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

type CommandType string

const (
	CmdStartGame CommandType = "StartGame"
	CmdBeginPlay CommandType = "BeginPlay" // internal: fired when the start countdown elapses
	CmdRoll      CommandType = "Roll"
	CmdKeep      CommandType = "Keep"
	CmdScore     CommandType = "Score"
	CmdTimeout   CommandType = "TimeoutAdvance" // internal: turn timer elapsed
)

// Command is a validated mutation request. ActorID is the userId the room
// resolved for the issuing connection (or the AI seat the controller acts
// for); it is never taken from the wire payload.
type Command struct {
	Type     CommandType
	ActorID  string
	Keep     [5]bool
	Category scoring.Category
}

// RollFunc yields one die face in 1..6. The room passes its seeded roller;
// tests pass a deterministic sequence.
type RollFunc func() int

type EventType string

const (
	EvtGameStarting  EventType = "GameStarting"
	EvtGameStarted   EventType = "GameStarted"
	EvtDiceRolled    EventType = "DiceRolled"
	EvtKeepChanged   EventType = "KeepChanged"
	EvtTurnScored    EventType = "TurnScored"
	EvtTurnAdvanced  EventType = "TurnAdvanced"
	EvtTurnTimedOut  EventType = "TurnTimedOut"
	EvtGameCompleted EventType = "GameCompleted"
)

type Event struct {
	Type      EventType
	SeatIndex int
	UserID    string
	Dice      [5]int
	Category  scoring.Category
	Score     int
	WinnerID  string
}

// Apply validates cmd against s and returns the events, the successor
// state and nil, or the unchanged state and a validation error. It never
// mutates s.
func Apply(s State, cmd Command, roll RollFunc) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartGame:
		return applyStartGame(s, cmd)
	case CmdBeginPlay:
		return applyBeginPlay(s)
	case CmdRoll:
		return applyRoll(s, cmd, roll)
	case CmdKeep:
		return applyKeep(s, cmd)
	case CmdScore:
		return applyScore(s, cmd)
	case CmdTimeout:
		return applyTimeout(s, roll)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyStartGame(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusWaiting {
		return nil, s, ErrGameAlreadyStarted
	}
	if cmd.ActorID != s.HostID {
		return nil, s, ErrNotHost
	}
	if s.OccupiedSeats() < 2 {
		return nil, s, ErrNotEnoughPlayers
	}

	next := s
	next.Status = StatusStarting
	return []Event{{Type: EvtGameStarting}}, next, nil
}

func applyBeginPlay(s State) ([]Event, State, error) {
	if s.Status != StatusStarting {
		return nil, s, ErrGameNotInProgress
	}

	next := s
	next.Status = StatusPlaying
	next.RoundsRemaining = CategoriesPerGame * s.OccupiedSeats()
	first, ok := nextOccupied(s.Seats, -1)
	if !ok {
		return nil, s, ErrNotEnoughPlayers
	}
	next.Turn = Turn{
		SeatIndex:      first,
		Number:         1,
		Phase:          PhasePreRoll,
		RollsRemaining: MaxRolls,
	}

	events := []Event{
		{Type: EvtGameStarted},
		{Type: EvtTurnAdvanced, SeatIndex: first, UserID: s.Seats[first].UserID},
	}
	return events, next, nil
}

func applyRoll(s State, cmd Command, roll RollFunc) ([]Event, State, error) {
	if err := checkTurn(s, cmd.ActorID); err != nil {
		return nil, s, err
	}
	if s.Turn.Phase != PhasePreRoll && s.Turn.Phase != PhaseDeciding {
		return nil, s, ErrWrongPhase
	}
	if s.Turn.RollsRemaining <= 0 {
		return nil, s, ErrNoRollsLeft
	}

	next := s
	for i := range next.Turn.Dice {
		if next.Turn.Phase == PhasePreRoll || !next.Turn.Keep[i] {
			next.Turn.Dice[i] = roll()
		}
	}
	next.Turn.Phase = PhaseDeciding
	next.Turn.RollsRemaining--

	seat := s.Seats[s.Turn.SeatIndex]
	return []Event{{
		Type:      EvtDiceRolled,
		SeatIndex: seat.Index,
		UserID:    seat.UserID,
		Dice:      next.Turn.Dice,
	}}, next, nil
}

func applyKeep(s State, cmd Command) ([]Event, State, error) {
	if err := checkTurn(s, cmd.ActorID); err != nil {
		return nil, s, err
	}
	if s.Turn.Phase != PhaseDeciding {
		return nil, s, ErrWrongPhase
	}

	next := s
	next.Turn.Keep = cmd.Keep

	seat := s.Seats[s.Turn.SeatIndex]
	return []Event{{
		Type:      EvtKeepChanged,
		SeatIndex: seat.Index,
		UserID:    seat.UserID,
	}}, next, nil
}

func applyScore(s State, cmd Command) ([]Event, State, error) {
	if err := checkTurn(s, cmd.ActorID); err != nil {
		return nil, s, err
	}
	if s.Turn.Phase != PhaseDeciding {
		if s.Turn.Phase == PhasePreRoll {
			return nil, s, ErrMustRollFirst
		}
		return nil, s, ErrWrongPhase
	}
	if !scoring.Valid(cmd.Category) {
		return nil, s, ErrUnknownCategory
	}
	seat := s.Seats[s.Turn.SeatIndex]
	if _, scored := seat.Scorecard[cmd.Category]; scored {
		return nil, s, ErrCategoryScored
	}

	return commitScore(s, cmd.Category, nil)
}

// applyTimeout resolves an expired human turn: roll once if the seat never
// rolled, then commit the best immediately-available category.
func applyTimeout(s State, roll RollFunc) ([]Event, State, error) {
	if s.Status != StatusPlaying {
		return nil, s, ErrGameNotInProgress
	}

	next := s
	var events []Event
	seat := s.Seats[s.Turn.SeatIndex]

	if next.Turn.Phase == PhasePreRoll {
		for i := range next.Turn.Dice {
			next.Turn.Dice[i] = roll()
		}
		next.Turn.Phase = PhaseDeciding
		next.Turn.RollsRemaining--
		events = append(events, Event{
			Type: EvtDiceRolled, SeatIndex: seat.Index, UserID: seat.UserID, Dice: next.Turn.Dice,
		})
	}

	category, ok := BestAvailableCategory(next.Turn.Dice, seat.Scorecard)
	if !ok {
		return nil, s, ErrCategoryScored
	}

	events = append(events, Event{Type: EvtTurnTimedOut, SeatIndex: seat.Index, UserID: seat.UserID})
	return commitScore(next, category, events)
}

// commitScore writes the category, advances the turn and handles game
// completion. prior events, if any, lead the returned slice.
func commitScore(s State, category scoring.Category, prior []Event) ([]Event, State, error) {
	next := s
	next.Seats = cloneSeats(s.Seats)

	idx := s.Turn.SeatIndex
	seat := &next.Seats[idx]
	seat.Scorecard = cloneScorecard(seat.Scorecard)
	value := scoring.Score(s.Turn.Dice, category)
	seat.Scorecard[category] = value

	events := append(prior, Event{
		Type:      EvtTurnScored,
		SeatIndex: idx,
		UserID:    seat.UserID,
		Dice:      s.Turn.Dice,
		Category:  category,
		Score:     value,
	})

	next.RoundsRemaining--
	if next.RoundsRemaining <= 0 {
		next.Status = StatusCompleted
		next.Turn.Phase = PhaseScored
		next.WinnerID = computeWinner(next)
		events = append(events, Event{Type: EvtGameCompleted, WinnerID: next.WinnerID})
		return events, next, nil
	}

	after, ok := nextOccupied(next.Seats, idx)
	if !ok {
		return nil, s, ErrGameNotInProgress
	}
	next.Turn = Turn{
		SeatIndex:      after,
		Number:         s.Turn.Number + 1,
		Phase:          PhasePreRoll,
		RollsRemaining: MaxRolls,
	}
	events = append(events, Event{
		Type:      EvtTurnAdvanced,
		SeatIndex: after,
		UserID:    next.Seats[after].UserID,
	})
	return events, next, nil
}

// VacateSeat releases a seat. During play the seat's unplayed rounds are
// written off, and the game completes once the remaining seats have no
// rounds left to fill.
func VacateSeat(s State, seatIndex int) ([]Event, State) {
	if seatIndex < 0 || seatIndex >= len(s.Seats) {
		return nil, s
	}
	next := s
	next.Seats = cloneSeats(s.Seats)
	seat := next.Seats[seatIndex]
	next.Seats[seatIndex] = Seat{Index: seatIndex}

	if next.Status != StatusPlaying || !seat.Occupied() {
		return nil, next
	}

	next.RoundsRemaining -= CategoriesPerGame - len(seat.Scorecard)
	if next.RoundsRemaining <= 0 {
		next.Status = StatusCompleted
		next.Turn.Phase = PhaseScored
		next.WinnerID = computeWinner(next)
		return []Event{{Type: EvtGameCompleted, WinnerID: next.WinnerID}}, next
	}
	return nil, next
}

func checkTurn(s State, actorID string) error {
	if s.Status != StatusPlaying {
		return ErrGameNotInProgress
	}
	seat, ok := s.CurrentSeat()
	if !ok || seat.UserID != actorID {
		return ErrWrongTurn
	}
	return nil
}
