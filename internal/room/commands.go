package room

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/gallery"
	"github.com/DoyleJ11/dicee-room-backend/internal/kibitz"
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
	"github.com/DoyleJ11/dicee-room-backend/internal/queue"
	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
	"github.com/DoyleJ11/dicee-room-backend/pkg/types"
)

// handleClient dispatches one decoded wire message. The actor identity
// always comes from the connection, never from the payload.
func (r *Room) handleClient(msg FromClient) {
	c, ok := r.conns[msg.ConnID]
	if !ok {
		return
	}

	switch msg.Msg.Type {
	case types.MsgRoll:
		r.applyFrom(c, engine.Command{Type: engine.CmdRoll, ActorID: c.userID})

	case types.MsgKeep:
		var p types.KeepPayload
		if !r.decode(c, msg.Msg.Payload, &p) {
			return
		}
		r.applyFrom(c, engine.Command{Type: engine.CmdKeep, ActorID: c.userID, Keep: p.Keep})

	case types.MsgScore:
		var p types.ScorePayload
		if !r.decode(c, msg.Msg.Payload, &p) {
			return
		}
		r.applyFrom(c, engine.Command{
			Type: engine.CmdScore, ActorID: c.userID, Category: scoring.Category(p.Category),
		})

	case types.MsgStartGame:
		r.applyFrom(c, engine.Command{Type: engine.CmdStartGame, ActorID: c.userID})

	case types.MsgAddAIPlayer:
		var p types.AddAIPlayerPayload
		if !r.decode(c, msg.Msg.Payload, &p) {
			return
		}
		r.addAIPlayer(c, p)

	case types.MsgRemoveAIPlayer:
		var p types.RemoveAIPlayerPayload
		if !r.decode(c, msg.Msg.Payload, &p) {
			return
		}
		r.removeAIPlayer(c, p.PlayerID)

	case types.MsgJoinQueue:
		var p types.JoinQueuePayload
		if !r.decode(c, msg.Msg.Payload, &p) {
			return
		}
		r.joinQueue(c, p)

	case types.MsgLeaveQueue:
		r.leaveQueue(c)

	case types.MsgGetQueue:
		r.sendQueueState(c)

	case types.MsgKibitz:
		var p types.KibitzPayload
		if !r.decode(c, msg.Msg.Payload, &p) {
			return
		}
		r.castKibitz(c, p)

	case types.MsgClearKibitz:
		r.clearKibitz(c)

	case types.MsgGetKibitz:
		r.send(c, types.ServerMessage{Type: types.MsgKibitzState, Payload: r.kib.Snapshot()})

	case types.MsgPredict:
		var p types.PredictPayload
		if !r.decode(c, msg.Msg.Payload, &p) {
			return
		}
		r.submitPrediction(c, p)

	case types.MsgReact:
		r.recordReaction(c)

	case types.MsgChat:
		r.recordChat(c)

	default:
		r.sendError(c, types.ErrCodeUnknownType, "unknown message type: "+msg.Msg.Type)
	}
}

func (r *Room) decode(c *conn, raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		r.sendError(c, types.ErrCodeBadPayload, "missing payload")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		r.sendError(c, types.ErrCodeBadPayload, "malformed payload")
		return false
	}
	return true
}

// roll is the room's seeded die.
func (r *Room) roll() int { return r.rng.Intn(6) + 1 }

// applyFrom runs a client-issued command. Validation failures go back to
// the sender only; nobody else hears about them.
func (r *Room) applyFrom(c *conn, cmd engine.Command) {
	events, next, err := engine.Apply(r.state, cmd, r.roll)
	if err != nil {
		r.sendError(c, errCode(err), err.Error())
		return
	}
	r.commit(next, events)
}

// applyInternal runs a room-issued command (countdown elapsed, turn
// timer, forfeits). Failures are logged, not sent.
func (r *Room) applyInternal(cmd engine.Command) {
	events, next, err := engine.Apply(r.state, cmd, r.roll)
	if err != nil {
		r.emit.Warn("command.internal_rejected",
			obs.F("command", string(cmd.Type)), obs.F("error", err.Error()))
		return
	}
	r.commit(next, events)
}

// commit installs the successor state, persists it, reacts to the
// events, then broadcasts the new snapshot exactly once.
func (r *Room) commit(next engine.State, events []engine.Event) {
	scoredTurn := r.state.Turn.Number
	r.state = next
	r.version++
	r.persist()
	r.onEvents(events, scoredTurn)
	r.broadcastSnapshot()
}

// persist writes the snapshot with a single retry. Storage failure
// degrades durability, not availability; the room plays on.
func (r *Room) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.snapshots.Save(ctx, r.code, r.state); err != nil {
		r.emit.Warn("storage.retry", obs.F("error", err.Error()))
		if err := r.snapshots.Save(ctx, r.code, r.state); err != nil {
			r.emit.Error("error.storage.failed", err)
		}
	}
}

// onEvents drives the side effects each engine event demands. scoredTurn
// is the turn number that was in play when the command applied.
func (r *Room) onEvents(events []engine.Event, scoredTurn int) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtGameStarting:
			secs := int(r.opts.StartCountdown / time.Second)
			r.emit.Emit("state.transition", obs.F("to", "starting"))
			r.broadcast(types.ServerMessage{
				Type:    types.MsgGameStarting,
				Payload: map[string]interface{}{"countdownSeconds": secs},
			})
			r.timers.after(r.opts.StartCountdown, timerStartCountdown)

		case engine.EvtGameStarted:
			r.ledger.ResetGame()
			r.backedBy = map[string]map[string]int{}
			r.emit.Emit("state.transition", obs.F("to", "playing"))
			r.broadcast(types.ServerMessage{Type: types.MsgGameStarted})

		case engine.EvtDiceRolled:
			if r.firstRollBest < 0 {
				seat := r.state.Seats[ev.SeatIndex]
				if cat, ok := engine.BestAvailableCategory(ev.Dice, seat.Scorecard); ok {
					r.firstRollBest = scoring.Score(ev.Dice, cat)
				}
			}

		case engine.EvtTurnScored:
			r.settleTurn(ev, scoredTurn)

		case engine.EvtTurnAdvanced:
			r.beginTurn(ev)

		case engine.EvtGameCompleted:
			r.finishGame(ev.WinnerID)
		}
	}
}

// settleTurn closes voting and evaluates predictions for the turn that
// just scored.
func (r *Room) settleTurn(ev engine.Event, scoredTurn int) {
	r.kib.Close()

	if r.firstRollBest < 0 {
		// The scoring batch included the only roll; nothing to improve on.
		r.firstRollBest = ev.Score
	}
	outcome := gallery.TurnOutcome{
		PlayerID:   ev.UserID,
		TurnNumber: scoredTurn,
		Score:      ev.Score,
		WasDicee:   scoring.IsDicee(ev.Dice),
		Improved:   ev.Score > r.firstRollBest,
		Bricked:    ev.Score < 10,
	}
	results := r.ledger.Evaluate(outcome, r.clock())
	r.emit.Emit("turn.scored",
		obs.F("userId", ev.UserID), obs.F("category", string(ev.Category)),
		obs.F("score", ev.Score), obs.F("predictions", len(results)))

	for _, res := range results {
		c := r.connOf(res.Prediction.SpectatorID)
		if c == nil {
			continue
		}
		r.send(c, types.ServerMessage{Type: types.MsgPredictionResults, Payload: res})
		for _, ach := range r.ledger.Unlocked(res.Prediction.SpectatorID) {
			r.send(c, types.ServerMessage{Type: types.MsgAchievementUnlocked, Payload: ach})
		}
	}
}

// beginTurn arms the new turn: kibitz rescope, turn timer for humans,
// think timer for AI seats.
func (r *Room) beginTurn(ev engine.Event) {
	r.firstRollBest = -1
	r.kib.Reset(ev.UserID, r.state.Turn.Number)
	r.timers.cancel(timerTurnTimeout)
	r.timers.cancel(timerAIThink)

	seat := r.state.Seats[ev.SeatIndex]
	if seat.IsAI {
		r.aictl.BeginTurn(seat.UserID)
		r.scheduleAIThink(seat.UserID)
		return
	}
	if r.state.Config.TurnTimeoutSeconds > 0 {
		r.timers.after(time.Duration(r.state.Config.TurnTimeoutSeconds)*time.Second, timerTurnTimeout)
	}
}

func (r *Room) scheduleAIThink(playerID string) {
	d := r.aictl.ThinkDelay(playerID)
	r.aictl.NoteThinking(playerID, true, 0)
	r.broadcast(types.ServerMessage{
		Type:    types.MsgAIThinking,
		Payload: map[string]interface{}{"playerId": playerID, "thinking": true},
	})
	r.timers.after(d, timerAIThink)
}

// stepAI runs one think-act cycle for the AI seat holding the turn.
func (r *Room) stepAI() {
	cur, ok := r.state.CurrentSeat()
	if !ok || !cur.IsAI {
		return
	}
	playerID := cur.UserID
	r.aictl.NoteThinking(playerID, false, 0)
	r.broadcast(types.ServerMessage{
		Type:    types.MsgAIThinking,
		Payload: map[string]interface{}{"playerId": playerID, "thinking": false},
	})

	cmds, err := r.aictl.NextCommands(playerID, r.state)
	if err != nil {
		r.emit.Error("error.ai.step", err, obs.F("playerId", playerID))
		r.applyInternal(engine.Command{Type: engine.CmdTimeout})
		return
	}
	for _, cmd := range cmds {
		events, next, err := engine.Apply(r.state, cmd, r.roll)
		if err != nil {
			r.emit.Error("error.ai.command", err,
				obs.F("playerId", playerID), obs.F("command", string(cmd.Type)))
			r.applyInternal(engine.Command{Type: engine.CmdTimeout})
			return
		}
		r.commit(next, events)
	}

	// Turn still ours means the brain chose to reroll or rearrange keeps.
	if cur, ok := r.state.CurrentSeat(); ok && cur.UserID == playerID {
		r.scheduleAIThink(playerID)
	}
}

// errCode maps validation errors to wire codes. Unknown errors get the
// generic invalid-move code rather than leaking internals.
func errCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotHost):
		return types.ErrCodeNotHost
	case errors.Is(err, engine.ErrWrongTurn):
		return types.ErrCodeNotYourTurn
	case errors.Is(err, engine.ErrWrongPhase),
		errors.Is(err, engine.ErrMustRollFirst),
		errors.Is(err, engine.ErrNoRollsLeft):
		return types.ErrCodeWrongPhase
	case errors.Is(err, queue.ErrAlreadyQueued), errors.Is(err, queue.ErrAlreadySeated):
		return types.ErrCodeAlreadyQueued
	case errors.Is(err, queue.ErrQueueFull):
		return types.ErrCodeQueueFull
	case errors.Is(err, queue.ErrNotQueued):
		return types.ErrCodeNotInQueue
	case errors.Is(err, kibitz.ErrVotingClosed), errors.Is(err, kibitz.ErrWrongTurn):
		return types.ErrCodeVotingClosed
	case errors.Is(err, gallery.ErrTurnCapReached), errors.Is(err, gallery.ErrDuplicateType):
		return types.ErrCodePredictionCap
	case errors.Is(err, gallery.ErrExactOutOfRange), errors.Is(err, gallery.ErrUnknownType):
		return types.ErrCodeBadPayload
	default:
		return types.ErrCodeInvalidMove
	}
}

func (r *Room) connOf(userID string) *conn {
	if id, ok := r.connByUser[userID]; ok {
		return r.conns[id]
	}
	return nil
}
