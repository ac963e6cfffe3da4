package room

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/kibitz"
	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
	"github.com/DoyleJ11/dicee-room-backend/pkg/types"
)

// helper: receive messages until one of the wanted type arrives, with a
// timeout so tests never hang
func recvType(t *testing.T, ch <-chan types.ServerMessage, msgType string, within time.Duration) types.ServerMessage {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", msgType)
			return types.ServerMessage{} // unreachable
		}
	}
}

func recvNoType(t *testing.T, ch <-chan types.ServerMessage, msgType string, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Type == msgType {
				t.Fatalf("expected no %s within %v, but got one", msgType, within)
			}
		case <-deadline:
			return
		}
	}
}

func getView(t *testing.T, r *Room) View {
	t.Helper()
	reply := make(chan View, 1)
	r.Inbox() <- GetView{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func rawJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func testOptions(code string, cfg engine.Config) Options {
	return Options{
		Code:              code,
		Config:            cfg,
		ReclaimWindow:     50 * time.Millisecond,
		StartCountdown:    10 * time.Millisecond,
		WarmSeatCountdown: 20 * time.Millisecond,
		Seed:              42,
	}
}

func joinPlayer(r *Room, connID, userID, name string) chan types.ServerMessage {
	out := make(chan types.ServerMessage, 64)
	r.Inbox() <- Join{ConnID: connID, UserID: userID, DisplayName: name, Role: RolePlayer, Outbox: out}
	return out
}

func joinSpectator(r *Room, connID, userID, name string) chan types.ServerMessage {
	out := make(chan types.ServerMessage, 64)
	r.Inbox() <- Join{ConnID: connID, UserID: userID, DisplayName: name, Role: RoleSpectator, Outbox: out}
	return out
}

// startGame seats alice (host) and bob, starts, and waits out the
// countdown. Returns their outboxes.
func startGame(t *testing.T, r *Room) (alice, bob chan types.ServerMessage) {
	t.Helper()
	alice = joinPlayer(r, "c-alice", "alice", "Alice")
	bob = joinPlayer(r, "c-bob", "bob", "Bob")
	recvType(t, alice, types.MsgConnected, time.Second)
	recvType(t, bob, types.MsgConnected, time.Second)

	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{Type: types.MsgStartGame}}
	recvType(t, alice, types.MsgGameStarted, time.Second)
	recvType(t, bob, types.MsgGameStarted, time.Second)
	return alice, bob
}

func TestRoom_JoinAssignsSeatsAndHost(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("SEAT01", engine.Config{MaxPlayers: 4}))

	alice := joinPlayer(r, "c1", "alice", "Alice")
	msg := recvType(t, alice, types.MsgConnected, time.Second)
	payload := msg.Payload.(map[string]interface{})
	if payload["seatIndex"] != 0 {
		t.Fatalf("first joiner: want seat 0, got %v", payload["seatIndex"])
	}

	bob := joinPlayer(r, "c2", "bob", "Bob")
	recvType(t, bob, types.MsgConnected, time.Second)

	v := getView(t, r)
	if v.State.HostID != "alice" {
		t.Fatalf("want host alice, got %q", v.State.HostID)
	}
	if !v.State.Seats[0].Occupied() || !v.State.Seats[1].Occupied() {
		t.Fatalf("expected seats 0 and 1 occupied: %+v", v.State.Seats)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_StartGameCountdownThenPlaying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("START1", engine.Config{MaxPlayers: 2}))

	alice := joinPlayer(r, "c1", "alice", "Alice")
	bob := joinPlayer(r, "c2", "bob", "Bob")
	recvType(t, alice, types.MsgConnected, time.Second)
	recvType(t, bob, types.MsgConnected, time.Second)

	// non-host cannot start
	r.Inbox() <- FromClient{ConnID: "c2", Msg: types.ClientMessage{Type: types.MsgStartGame}}
	errMsg := recvType(t, bob, types.MsgError, time.Second)
	if errMsg.Payload.(types.ErrorPayload).Code != types.ErrCodeNotHost {
		t.Fatalf("want NOT_HOST, got %+v", errMsg.Payload)
	}

	r.Inbox() <- FromClient{ConnID: "c1", Msg: types.ClientMessage{Type: types.MsgStartGame}}
	recvType(t, alice, types.MsgGameStarting, time.Second)
	recvType(t, alice, types.MsgGameStarted, time.Second)

	v := getView(t, r)
	if v.State.Status != engine.StatusPlaying {
		t.Fatalf("want playing after countdown, got %s", v.State.Status)
	}
	if v.State.Turn.Number != 1 || v.State.Turn.SeatIndex != 0 {
		t.Fatalf("want turn 1 at seat 0, got %+v", v.State.Turn)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_RollScoreAdvancesTurnAndVersion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("PLAY01", engine.Config{MaxPlayers: 2}))

	alice, bob := startGame(t, r)
	before := getView(t, r)

	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{Type: types.MsgRoll}}
	recvType(t, alice, types.MsgStateSnapshot, time.Second)

	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{
		Type:    types.MsgScore,
		Payload: rawJSON(t, types.ScorePayload{Category: string(scoring.Chance)}),
	}}
	recvType(t, alice, types.MsgStateSnapshot, time.Second)

	v := getView(t, r)
	if v.Version <= before.Version {
		t.Fatalf("version did not advance: %d -> %d", before.Version, v.Version)
	}
	if v.State.Turn.SeatIndex != 1 || v.State.Turn.Number != 2 {
		t.Fatalf("want bob's turn 2, got %+v", v.State.Turn)
	}
	if _, ok := v.State.Seats[0].Scorecard[scoring.Chance]; !ok {
		t.Fatalf("alice's chance not scored: %+v", v.State.Seats[0].Scorecard)
	}

	// out-of-turn roll goes back to the sender only
	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{Type: types.MsgRoll}}
	errMsg := recvType(t, alice, types.MsgError, time.Second)
	if errMsg.Payload.(types.ErrorPayload).Code != types.ErrCodeNotYourTurn {
		t.Fatalf("want NOT_YOUR_TURN, got %+v", errMsg.Payload)
	}
	recvNoType(t, bob, types.MsgError, 50*time.Millisecond)

	r.Inbox() <- Shutdown{}
}

func TestRoom_ReconnectWithinWindowRestoresSeat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := testOptions("RECL01", engine.Config{MaxPlayers: 2})
	opts.ReclaimWindow = time.Second
	r := New(ctx, opts)

	alice, _ := startGame(t, r)

	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{Type: types.MsgRoll}}
	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{
		Type:    types.MsgScore,
		Payload: rawJSON(t, types.ScorePayload{Category: string(scoring.Chance)}),
	}}
	recvType(t, alice, types.MsgStateSnapshot, time.Second)

	r.Inbox() <- Leave{ConnID: "c-alice"}
	v := getView(t, r)
	if !v.State.Seats[0].Occupied() {
		t.Fatalf("seat should stay occupied during the reclaim window")
	}
	if len(v.Reserved) != 1 || v.Reserved[0] != "alice" {
		t.Fatalf("want alice reserved, got %v", v.Reserved)
	}

	alice2 := make(chan types.ServerMessage, 64)
	r.Inbox() <- Join{ConnID: "c-alice2", UserID: "alice", DisplayName: "Alice", Role: RolePlayer, Outbox: alice2}
	msg := recvType(t, alice2, types.MsgReconnected, time.Second)
	if msg.Payload.(map[string]interface{})["seatIndex"] != 0 {
		t.Fatalf("want seat 0 back, got %+v", msg.Payload)
	}

	v = getView(t, r)
	if len(v.Reserved) != 0 {
		t.Fatalf("reservation should be cancelled, got %v", v.Reserved)
	}
	if _, ok := v.State.Seats[0].Scorecard[scoring.Chance]; !ok {
		t.Fatalf("scorecard lost across reconnect: %+v", v.State.Seats[0].Scorecard)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_ReclaimExpiryFreesSeat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := testOptions("RECL02", engine.Config{MaxPlayers: 4, AllowSpectators: true})
	opts.ReclaimWindow = 30 * time.Millisecond
	r := New(ctx, opts)

	alice := joinPlayer(r, "c1", "alice", "Alice")
	bob := joinPlayer(r, "c2", "bob", "Bob")
	recvType(t, alice, types.MsgConnected, time.Second)
	recvType(t, bob, types.MsgConnected, time.Second)

	r.Inbox() <- Leave{ConnID: "c1"}

	deadline := time.Now().Add(time.Second)
	for {
		v := getView(t, r)
		if !v.State.Seats[0].Occupied() && len(v.Reserved) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("seat not released after window: %+v", v.State.Seats[0])
		}
		time.Sleep(5 * time.Millisecond)
	}

	// reconnecting after the window downgrades to spectator even though
	// seats are free
	alice2 := make(chan types.ServerMessage, 64)
	r.Inbox() <- Join{ConnID: "c1b", UserID: "alice", DisplayName: "Alice", Role: RolePlayer, Outbox: alice2}
	msg := recvType(t, alice2, types.MsgConnected, time.Second)
	if msg.Payload.(map[string]interface{})["role"] != RoleSpectator {
		t.Fatalf("want spectator after expired reclaim, got %+v", msg.Payload)
	}

	// host moved to the remaining player
	v := getView(t, r)
	if v.State.HostID != "bob" {
		t.Fatalf("want host bob after alice's seat lapsed, got %q", v.State.HostID)
	}

	r.Inbox() <- Shutdown{}
}

// A seat lost mid-game writes off its unplayed rounds, so the remaining
// players can finish their scorecards and the game still completes.
func TestRoom_SeatLapseMidGameWritesOffRounds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := testOptions("RECL03", engine.Config{MaxPlayers: 3, AllowSpectators: true})
	opts.ReclaimWindow = 30 * time.Millisecond
	r := New(ctx, opts)

	alice := joinPlayer(r, "c1", "alice", "Alice")
	bob := joinPlayer(r, "c2", "bob", "Bob")
	carol := joinPlayer(r, "c3", "carol", "Carol")
	recvType(t, alice, types.MsgConnected, time.Second)
	recvType(t, bob, types.MsgConnected, time.Second)
	recvType(t, carol, types.MsgConnected, time.Second)

	r.Inbox() <- FromClient{ConnID: "c1", Msg: types.ClientMessage{Type: types.MsgStartGame}}
	recvType(t, alice, types.MsgGameStarted, time.Second)

	// carol drops before her first turn and never comes back
	r.Inbox() <- Leave{ConnID: "c3"}
	deadline := time.Now().Add(time.Second)
	for {
		v := getView(t, r)
		if !v.State.Seats[2].Occupied() {
			if v.State.RoundsRemaining != 2*engine.CategoriesPerGame {
				t.Fatalf("rounds = %d after write-off, want %d",
					v.State.RoundsRemaining, 2*engine.CategoriesPerGame)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("carol's seat never released")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// the two remaining players can play out every category
	for _, cat := range scoring.AllCategories {
		for _, connID := range []string{"c1", "c2"} {
			r.Inbox() <- FromClient{ConnID: connID, Msg: types.ClientMessage{Type: types.MsgRoll}}
			r.Inbox() <- FromClient{ConnID: connID, Msg: types.ClientMessage{
				Type:    types.MsgScore,
				Payload: rawJSON(t, types.ScorePayload{Category: string(cat)}),
			}}
		}
	}

	deadline = time.Now().Add(2 * time.Second)
	for {
		v := getView(t, r)
		if v.State.Status == engine.StatusCompleted {
			if v.State.RoundsRemaining != 0 {
				t.Fatalf("rounds = %d at completion, want 0", v.State.RoundsRemaining)
			}
			if v.State.WinnerID != "alice" && v.State.WinnerID != "bob" {
				t.Fatalf("winner = %q", v.State.WinnerID)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("game did not complete: %+v", v.State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.Inbox() <- Shutdown{}
}

// A close on a superseded socket must not start a reclaim window for a
// player who is live on a newer one.
func TestRoom_StaleSocketLeaveKeepsSeat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := testOptions("RECL04", engine.Config{MaxPlayers: 2})
	opts.ReclaimWindow = 30 * time.Millisecond
	r := New(ctx, opts)

	alice := joinPlayer(r, "c1", "alice", "Alice")
	recvType(t, alice, types.MsgConnected, time.Second)

	// fresh socket for the same user keeps the seat
	alice2 := make(chan types.ServerMessage, 64)
	r.Inbox() <- Join{ConnID: "c1b", UserID: "alice", DisplayName: "Alice", Role: RolePlayer, Outbox: alice2}
	recvType(t, alice2, types.MsgConnected, time.Second)

	// the old socket's close arrives late
	r.Inbox() <- Leave{ConnID: "c1"}
	time.Sleep(3 * opts.ReclaimWindow)

	v := getView(t, r)
	if len(v.Reserved) != 0 {
		t.Fatalf("stale close started a reclaim: %v", v.Reserved)
	}
	if !v.State.Seats[0].Occupied() || !v.State.Seats[0].IsConnected {
		t.Fatalf("seat lost to a stale close: %+v", v.State.Seats[0])
	}
	if v.NumConns != 1 {
		t.Fatalf("want 1 connection, got %d", v.NumConns)
	}

	// closing the live socket still starts the window
	r.Inbox() <- Leave{ConnID: "c1b"}
	v = getView(t, r)
	if len(v.Reserved) != 1 || v.Reserved[0] != "alice" {
		t.Fatalf("want alice reserved after real close, got %v", v.Reserved)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_SpectatorsDisabledRejectsJoin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("NOSPEC", engine.Config{MaxPlayers: 2}))

	alice := joinPlayer(r, "c1", "alice", "Alice")
	bob := joinPlayer(r, "c2", "bob", "Bob")
	recvType(t, alice, types.MsgConnected, time.Second)
	recvType(t, bob, types.MsgConnected, time.Second)

	spec := joinSpectator(r, "cs1", "spec1", "Watcher")
	errMsg := recvType(t, spec, types.MsgError, time.Second)
	if errMsg.Payload.(types.ErrorPayload).Code != types.ErrCodeNoSpectators {
		t.Fatalf("want SPECTATORS_DISABLED, got %+v", errMsg.Payload)
	}
	if _, ok := <-spec; ok {
		t.Fatalf("outbox should be closed after rejection")
	}

	// a would-be player with no free seat is a spectator too
	carol := joinPlayer(r, "c3", "carol", "Carol")
	errMsg = recvType(t, carol, types.MsgError, time.Second)
	if errMsg.Payload.(types.ErrorPayload).Code != types.ErrCodeNoSpectators {
		t.Fatalf("want SPECTATORS_DISABLED for overflow player, got %+v", errMsg.Payload)
	}

	v := getView(t, r)
	if v.NumConns != 2 {
		t.Fatalf("want 2 connections, got %d", v.NumConns)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_PostAfterShutdownDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("DEAD01", engine.Config{MaxPlayers: 2}))

	r.Inbox() <- Shutdown{}

	// far more messages than the inbox buffers; every one must return
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			r.Post(Leave{ConnID: "ghost"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Post blocked after shutdown")
	}
}

func TestRoom_QueuePromotionFillsFreeSeats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("QUEUE1", engine.Config{MaxPlayers: 4, AllowSpectators: true}))

	alice := joinPlayer(r, "c1", "alice", "Alice")
	bob := joinPlayer(r, "c2", "bob", "Bob")
	recvType(t, alice, types.MsgConnected, time.Second)
	recvType(t, bob, types.MsgConnected, time.Second)

	specs := make([]chan types.ServerMessage, 3)
	ids := []string{"s1", "s2", "s3"}
	for i, id := range ids {
		specs[i] = joinSpectator(r, "cs-"+id, id, "Spec "+id)
		recvType(t, specs[i], types.MsgConnected, time.Second)
		r.Inbox() <- FromClient{ConnID: "cs-" + id, Msg: types.ClientMessage{
			Type:    types.MsgJoinQueue,
			Payload: rawJSON(t, types.JoinQueuePayload{DisplayName: "Spec " + id}),
		}}
		recvType(t, specs[i], types.MsgQueueJoined, time.Second)
	}

	// two free seats, three queued: the first two get promoted through
	// warm-seat countdowns, the third stays queued at position 1
	recvType(t, specs[0], types.MsgTransitionComplete, 2*time.Second)
	recvType(t, specs[1], types.MsgTransitionComplete, 2*time.Second)

	v := getView(t, r)
	if got := v.State.OccupiedSeats(); got != 4 {
		t.Fatalf("want 4 occupied seats, got %d", got)
	}
	if v.QueueLen != 1 {
		t.Fatalf("want one spectator still queued, got %d", v.QueueLen)
	}
	if v.QueueEntries[0].UserID != "s3" || v.QueueEntries[0].Position != 1 {
		t.Fatalf("want s3 at position 1, got %+v", v.QueueEntries[0])
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_KibitzSpectatorOnlyAndResetsOnTurnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("KIB001", engine.Config{MaxPlayers: 2, AllowSpectators: true}))

	alice, _ := startGame(t, r)
	spec := joinSpectator(r, "cs1", "spec1", "Watcher")
	recvType(t, spec, types.MsgConnected, time.Second)

	// a seated player cannot kibitz
	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{
		Type:    types.MsgKibitz,
		Payload: rawJSON(t, types.KibitzPayload{TurnNumber: 1, VoteType: "category", OptionID: "chance"}),
	}}
	errMsg := recvType(t, alice, types.MsgError, time.Second)
	if errMsg.Payload.(types.ErrorPayload).Code != types.ErrCodeNotSpectator {
		t.Fatalf("want NOT_SPECTATOR, got %+v", errMsg.Payload)
	}

	r.Inbox() <- FromClient{ConnID: "cs1", Msg: types.ClientMessage{
		Type:    types.MsgKibitz,
		Payload: rawJSON(t, types.KibitzPayload{TurnNumber: 1, VoteType: "category", OptionID: "chance"}),
	}}
	recvType(t, spec, types.MsgKibitzConfirmed, time.Second)

	// alice plays out the turn; votes must not survive into bob's turn
	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{Type: types.MsgRoll}}
	r.Inbox() <- FromClient{ConnID: "c-alice", Msg: types.ClientMessage{
		Type:    types.MsgScore,
		Payload: rawJSON(t, types.ScorePayload{Category: string(scoring.Chance)}),
	}}
	recvType(t, alice, types.MsgStateSnapshot, time.Second)

	r.Inbox() <- FromClient{ConnID: "cs1", Msg: types.ClientMessage{Type: types.MsgGetKibitz}}
	state := recvType(t, spec, types.MsgKibitzState, time.Second)
	ks := state.Payload.(kibitz.State)
	if ks.TurnNumber != 2 || ks.PlayerID != "bob" {
		t.Fatalf("kibitz not rescoped to bob's turn 2: %+v", ks)
	}
	if ks.TotalVotes != 0 {
		t.Fatalf("votes leaked across turns: %+v", ks)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_FourthPredictionRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("PRED01", engine.Config{MaxPlayers: 2, AllowSpectators: true}))

	_, _ = startGame(t, r)
	spec := joinSpectator(r, "cs1", "spec1", "Watcher")
	recvType(t, spec, types.MsgConnected, time.Second)

	for _, pt := range []string{"dicee", "improves", "bricks"} {
		r.Inbox() <- FromClient{ConnID: "cs1", Msg: types.ClientMessage{
			Type:    types.MsgPredict,
			Payload: rawJSON(t, types.PredictPayload{Type: pt}),
		}}
		recvType(t, spec, types.MsgPredictionConfirmed, time.Second)
	}

	r.Inbox() <- FromClient{ConnID: "cs1", Msg: types.ClientMessage{
		Type:    types.MsgPredict,
		Payload: rawJSON(t, types.PredictPayload{Type: "exact", ExactScore: 18}),
	}}
	errMsg := recvType(t, spec, types.MsgError, time.Second)
	if errMsg.Payload.(types.ErrorPayload).Code != types.ErrCodePredictionCap {
		t.Fatalf("want PREDICTION_CAP on fourth prediction, got %+v", errMsg.Payload)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_SlowClientDoesNotBlockLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("SLOW01", engine.Config{MaxPlayers: 2}))

	// outbox with no reader and a tiny buffer
	stuck := make(chan types.ServerMessage, 1)
	r.Inbox() <- Join{ConnID: "c1", UserID: "alice", DisplayName: "Alice", Role: RolePlayer, Outbox: stuck}

	bob := joinPlayer(r, "c2", "bob", "Bob")
	recvType(t, bob, types.MsgConnected, time.Second)

	// the loop keeps answering even though alice's outbox is full
	for i := 0; i < 5; i++ {
		r.Inbox() <- FromClient{ConnID: "c2", Msg: types.ClientMessage{Type: types.MsgRoll}}
	}
	v := getView(t, r)
	if v.NumConns != 2 {
		t.Fatalf("want 2 connections, got %d", v.NumConns)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_AddAIPlayerHostOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, testOptions("AISEAT", engine.Config{MaxPlayers: 3}))

	alice := joinPlayer(r, "c1", "alice", "Alice")
	bob := joinPlayer(r, "c2", "bob", "Bob")
	recvType(t, alice, types.MsgConnected, time.Second)
	recvType(t, bob, types.MsgConnected, time.Second)

	r.Inbox() <- FromClient{ConnID: "c2", Msg: types.ClientMessage{
		Type:    types.MsgAddAIPlayer,
		Payload: rawJSON(t, types.AddAIPlayerPayload{Brain: "optimal"}),
	}}
	errMsg := recvType(t, bob, types.MsgError, time.Second)
	if errMsg.Payload.(types.ErrorPayload).Code != types.ErrCodeNotHost {
		t.Fatalf("want NOT_HOST, got %+v", errMsg.Payload)
	}

	r.Inbox() <- FromClient{ConnID: "c1", Msg: types.ClientMessage{
		Type:    types.MsgAddAIPlayer,
		Payload: rawJSON(t, types.AddAIPlayerPayload{DisplayName: "Robo", Brain: "optimal"}),
	}}
	recvType(t, alice, types.MsgStateSnapshot, time.Second)

	v := getView(t, r)
	if !v.State.Seats[2].IsAI || v.State.Seats[2].DisplayName != "Robo" {
		t.Fatalf("want AI in seat 2, got %+v", v.State.Seats[2])
	}

	r.Inbox() <- Shutdown{}
}
