package engine

import (
	"errors"
	"testing"

	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
)

func rollSeq(faces ...int) RollFunc {
	i := 0
	return func() int {
		f := faces[i%len(faces)]
		i++
		return f
	}
}

func playingState(t *testing.T) State {
	t.Helper()
	s := NewState("TEST01", Config{MaxPlayers: 4, TurnTimeoutSeconds: 30})
	s.Seats[0].UserID = "alice"
	s.Seats[0].IsHost = true
	s.Seats[2].UserID = "bob"
	s.HostID = "alice"
	s.Status = StatusStarting

	_, s, err := Apply(s, Command{Type: CmdBeginPlay}, nil)
	if err != nil {
		t.Fatalf("begin play: %v", err)
	}
	return s
}

func TestStartGame_Validation(t *testing.T) {
	base := NewState("TEST01", Config{MaxPlayers: 4})
	base.Seats[0].UserID = "alice"
	base.HostID = "alice"

	cases := []struct {
		name    string
		mutate  func(*State)
		actor   string
		wantErr error
	}{
		{"non-host rejected", func(s *State) { s.Seats[1].UserID = "bob" }, "bob", ErrNotHost},
		{"single seat rejected", func(s *State) {}, "alice", ErrNotEnoughPlayers},
		{"already started", func(s *State) { s.Seats[1].UserID = "bob"; s.Status = StatusPlaying }, "alice", ErrGameAlreadyStarted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := base
			s.Seats = cloneSeats(base.Seats)
			tc.mutate(&s)
			_, _, err := Apply(s, Command{Type: CmdStartGame, ActorID: tc.actor}, nil)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStartGame_TwoSeatsMovesToStarting(t *testing.T) {
	s := NewState("TEST01", Config{MaxPlayers: 4})
	s.Seats[0].UserID = "alice"
	s.Seats[3].UserID = "bob"
	s.HostID = "alice"

	events, next, err := Apply(s, Command{Type: CmdStartGame, ActorID: "alice"}, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Status != StatusStarting {
		t.Fatalf("status = %s, want starting", next.Status)
	}
	if !ContainsEvent(events, EvtGameStarting) {
		t.Fatalf("expected GameStarting event")
	}
}

func TestBeginPlay_FirstOccupiedSeatActs(t *testing.T) {
	s := playingState(t)
	if s.Turn.SeatIndex != 0 || s.Turn.Number != 1 {
		t.Fatalf("turn = %+v, want seat 0 number 1", s.Turn)
	}
	if s.RoundsRemaining != CategoriesPerGame*2 {
		t.Fatalf("rounds = %d, want %d", s.RoundsRemaining, CategoriesPerGame*2)
	}
}

func TestRoll_OutOfTurnRejected(t *testing.T) {
	s := playingState(t)
	_, _, err := Apply(s, Command{Type: CmdRoll, ActorID: "bob"}, rollSeq(1))
	if !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("want ErrWrongTurn, got %v", err)
	}
}

func TestRoll_ConsumesRollsAndRespectsKeep(t *testing.T) {
	s := playingState(t)

	_, s, err := Apply(s, Command{Type: CmdRoll, ActorID: "alice"}, rollSeq(1, 2, 3, 4, 5))
	if err != nil {
		t.Fatalf("first roll: %v", err)
	}
	if s.Turn.RollsRemaining != 2 || s.Turn.Phase != PhaseDeciding {
		t.Fatalf("turn after roll = %+v", s.Turn)
	}

	_, s, err = Apply(s, Command{Type: CmdKeep, ActorID: "alice", Keep: [5]bool{true, true, false, false, false}}, nil)
	if err != nil {
		t.Fatalf("keep: %v", err)
	}

	_, s, err = Apply(s, Command{Type: CmdRoll, ActorID: "alice"}, rollSeq(6))
	if err != nil {
		t.Fatalf("reroll: %v", err)
	}
	if s.Turn.Dice != [5]int{1, 2, 6, 6, 6} {
		t.Fatalf("kept dice not preserved: %v", s.Turn.Dice)
	}

	_, s, err = Apply(s, Command{Type: CmdRoll, ActorID: "alice"}, rollSeq(6))
	if err != nil {
		t.Fatalf("third roll: %v", err)
	}
	_, _, err = Apply(s, Command{Type: CmdRoll, ActorID: "alice"}, rollSeq(6))
	if !errors.Is(err, ErrNoRollsLeft) {
		t.Fatalf("want ErrNoRollsLeft, got %v", err)
	}
}

func TestScore_BeforeRollRejected(t *testing.T) {
	s := playingState(t)
	_, _, err := Apply(s, Command{Type: CmdScore, ActorID: "alice", Category: scoring.Chance}, nil)
	if !errors.Is(err, ErrMustRollFirst) {
		t.Fatalf("want ErrMustRollFirst, got %v", err)
	}
}

func TestScore_AdvancesToNextOccupiedSeat(t *testing.T) {
	s := playingState(t)
	_, s, _ = Apply(s, Command{Type: CmdRoll, ActorID: "alice"}, rollSeq(5))

	events, s, err := Apply(s, Command{Type: CmdScore, ActorID: "alice", Category: scoring.Fives}, nil)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if s.Seats[0].Scorecard[scoring.Fives] != 25 {
		t.Fatalf("scorecard = %v", s.Seats[0].Scorecard)
	}
	if s.Turn.SeatIndex != 2 || s.Turn.Number != 2 || s.Turn.Phase != PhasePreRoll {
		t.Fatalf("turn after score = %+v, want seat 2", s.Turn)
	}
	if !ContainsEvent(events, EvtTurnScored) || !ContainsEvent(events, EvtTurnAdvanced) {
		t.Fatalf("missing events: %+v", events)
	}
}

func TestScore_DuplicateCategoryRejected(t *testing.T) {
	s := playingState(t)
	_, s, _ = Apply(s, Command{Type: CmdRoll, ActorID: "alice"}, rollSeq(5))
	s.Seats[0].Scorecard = map[scoring.Category]int{scoring.Fives: 25}

	_, _, err := Apply(s, Command{Type: CmdScore, ActorID: "alice", Category: scoring.Fives}, nil)
	if !errors.Is(err, ErrCategoryScored) {
		t.Fatalf("want ErrCategoryScored, got %v", err)
	}
}

func TestTimeout_RollsIfNeededAndScoresBest(t *testing.T) {
	s := playingState(t)

	events, s, err := Apply(s, Command{Type: CmdTimeout}, rollSeq(6))
	if err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if !ContainsEvent(events, EvtTurnTimedOut) || !ContainsEvent(events, EvtTurnScored) {
		t.Fatalf("missing events: %+v", events)
	}
	// All sixes: dicee (50) beats sixes (30).
	if got := s.Seats[0].Scorecard[scoring.Dicee]; got != 50 {
		t.Fatalf("forced score = %v", s.Seats[0].Scorecard)
	}
	if s.Turn.SeatIndex != 2 {
		t.Fatalf("turn did not advance: %+v", s.Turn)
	}
}

// Grand-total identity: upper subtotal + bonus + lower total, independent
// of dice outcomes, after a full game of valid commands.
func TestFullGame_TotalIdentityAndCompletion(t *testing.T) {
	s := playingState(t)
	roll := rollSeq(1, 2, 3, 4, 5, 6)

	for s.Status == StatusPlaying {
		actor := s.Seats[s.Turn.SeatIndex].UserID
		var err error
		_, s, err = Apply(s, Command{Type: CmdRoll, ActorID: actor}, roll)
		if err != nil {
			t.Fatalf("roll: %v", err)
		}
		category, ok := BestAvailableCategory(s.Turn.Dice, s.Seats[s.Turn.SeatIndex].Scorecard)
		if !ok {
			t.Fatalf("no category available with rounds remaining")
		}
		_, s, err = Apply(s, Command{Type: CmdScore, ActorID: actor, Category: category}, nil)
		if err != nil {
			t.Fatalf("score: %v", err)
		}
	}

	if s.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", s.Status)
	}
	for _, i := range []int{0, 2} {
		if len(s.Seats[i].Scorecard) != CategoriesPerGame {
			t.Fatalf("seat %d scored %d categories", i, len(s.Seats[i].Scorecard))
		}
		tt := s.Totals(i)
		want := tt.UpperSubtotal + tt.LowerTotal
		if tt.UpperSubtotal >= scoring.UpperBonusThreshold {
			want += scoring.UpperBonus
		}
		if tt.GrandTotal != want {
			t.Fatalf("seat %d total identity broken: %+v", i, tt)
		}
	}
	if s.WinnerID == "" {
		t.Fatalf("no winner computed")
	}
}

func TestVacateSeat_WritesOffUnplayedRounds(t *testing.T) {
	s := NewState("TEST01", Config{MaxPlayers: 3})
	s.Seats[0].UserID = "alice"
	s.Seats[0].IsHost = true
	s.Seats[1].UserID = "bob"
	s.Seats[2].UserID = "carol"
	s.HostID = "alice"
	s.Status = StatusStarting

	_, s, err := Apply(s, Command{Type: CmdBeginPlay}, nil)
	if err != nil {
		t.Fatalf("begin play: %v", err)
	}
	if s.RoundsRemaining != CategoriesPerGame*3 {
		t.Fatalf("rounds = %d, want %d", s.RoundsRemaining, CategoriesPerGame*3)
	}

	// carol has banked one category; her other 12 rounds are written off
	s.Seats[2].Scorecard = map[scoring.Category]int{scoring.Chance: 20}
	events, s := VacateSeat(s, 2)
	if len(events) != 0 {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Seats[2].Occupied() {
		t.Fatalf("seat 2 still occupied: %+v", s.Seats[2])
	}
	if s.RoundsRemaining != CategoriesPerGame*2+1 {
		t.Fatalf("rounds = %d, want %d", s.RoundsRemaining, CategoriesPerGame*2+1)
	}
	if s.Status != StatusPlaying {
		t.Fatalf("status = %s, want playing", s.Status)
	}
}

func TestVacateSeat_CompletesWhenRemainingCardsAreFull(t *testing.T) {
	s := playingState(t)
	s.Seats[3].UserID = "carol"

	// alice and bob have full cards; carol's 13 rounds are all that remain
	full := map[scoring.Category]int{}
	for _, c := range scoring.AllCategories {
		full[c] = 5
	}
	s.Seats[0].Scorecard = cloneScorecard(full)
	s.Seats[0].Scorecard[scoring.Dicee] = 50
	s.Seats[2].Scorecard = cloneScorecard(full)
	s.RoundsRemaining = CategoriesPerGame

	events, s := VacateSeat(s, 3)
	if s.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", s.Status)
	}
	if s.RoundsRemaining != 0 {
		t.Fatalf("rounds = %d, want 0", s.RoundsRemaining)
	}
	if !ContainsEvent(events, EvtGameCompleted) {
		t.Fatalf("missing GameCompleted: %+v", events)
	}
	if s.WinnerID != "alice" {
		t.Fatalf("winner = %q, want alice", s.WinnerID)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := playingState(t)
	_, s, _ = Apply(s, Command{Type: CmdRoll, ActorID: "alice"}, rollSeq(5))

	before := len(s.Seats[0].Scorecard)
	_, _, err := Apply(s, Command{Type: CmdScore, ActorID: "alice", Category: scoring.Fives}, nil)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(s.Seats[0].Scorecard) != before {
		t.Fatalf("input state mutated")
	}
}
