package room

import (
	"context"
	"time"

	"github.com/DoyleJ11/dicee-room-backend/internal/ai"
	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/gallery"
	"github.com/DoyleJ11/dicee-room-backend/internal/kibitz"
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
	"github.com/DoyleJ11/dicee-room-backend/pkg/types"
)

// --- join queue ---

func (r *Room) joinQueue(c *conn, p types.JoinQueuePayload) {
	if !r.state.Config.AllowSpectators {
		r.sendError(c, types.ErrCodeNoSpectators, "this room does not admit spectators")
		return
	}
	_, seated := r.state.SeatOf(c.userID)
	name := p.DisplayName
	if name == "" {
		name = c.displayName
	}
	entry, err := r.queue.Join(c.userID, name, p.AvatarSeed, seated, r.clock())
	if err != nil {
		r.sendError(c, errCode(err), err.Error())
		return
	}
	r.emit.Emit("queue.joined", obs.F("userId", c.userID), obs.F("position", entry.Position))
	r.send(c, types.ServerMessage{
		Type:    types.MsgQueueJoined,
		Payload: map[string]interface{}{"position": entry.Position},
	})
	r.broadcastQueueUpdate()
	r.checkPromotion()
}

func (r *Room) leaveQueue(c *conn) {
	if err := r.queue.Leave(c.userID); err != nil {
		r.sendError(c, errCode(err), err.Error())
		return
	}
	r.emit.Emit("queue.left", obs.F("userId", c.userID))
	r.send(c, types.ServerMessage{Type: types.MsgQueueLeft})
	r.broadcastQueueUpdate()
}

func (r *Room) sendQueueState(c *conn) {
	r.send(c, types.ServerMessage{Type: types.MsgQueueState, Payload: r.queuePayload()})
}

// checkPromotion starts a warm-seat transition when free seats and
// queued spectators coexist outside active play. Promotees are popped
// now; a promotee who is gone when the countdown completes forfeits.
func (r *Room) checkPromotion() {
	if r.transition != nil {
		return
	}
	if r.state.Status != engine.StatusWaiting {
		return
	}
	free := r.availableSeats()
	if free == 0 || r.queue.Len() == 0 {
		return
	}

	n := free
	if r.queue.Len() < n {
		n = r.queue.Len()
	}
	popped := r.queue.PopFront(n)

	secs := int(r.opts.WarmSeatCountdown / time.Second)
	tr := &WarmSeatTransition{
		CountdownSeconds: secs,
		StartedAt:        r.clock(),
	}
	for _, e := range popped {
		tr.TransitioningUsers = append(tr.TransitioningUsers, TransitioningUser{
			UserID:       e.UserID,
			DisplayName:  e.DisplayName,
			AvatarSeed:   e.AvatarSeed,
			FromPosition: e.Position,
		})
	}
	for _, s := range r.state.Seats {
		if s.Occupied() {
			tr.StayingPlayers = append(tr.StayingPlayers, s.UserID)
		}
	}
	r.transition = tr

	r.emit.Emit("queue.transition_started", obs.F("promotees", len(popped)))
	r.broadcast(types.ServerMessage{Type: types.MsgWarmSeatTransition, Payload: tr})
	for _, u := range tr.TransitioningUsers {
		if c := r.connOf(u.UserID); c != nil {
			r.send(c, types.ServerMessage{
				Type:    types.MsgYouAreTransitioning,
				Payload: map[string]interface{}{"countdownSeconds": secs},
			})
		}
	}
	r.broadcastQueueUpdate()
	r.timers.after(r.opts.WarmSeatCountdown, timerWarmSeat)
}

// completeWarmSeat seats every promotee still connected. A promotee who
// disconnected mid-countdown forfeits the spot; the follow-up promotion
// check offers it to the next in line.
func (r *Room) completeWarmSeat() {
	tr := r.transition
	if tr == nil {
		return
	}
	r.transition = nil

	for _, u := range tr.TransitioningUsers {
		c := r.connOf(u.UserID)
		if c == nil {
			r.emit.Emit("queue.promotion_forfeited", obs.F("userId", u.UserID))
			continue
		}
		idx, ok := r.freeSeat()
		if !ok {
			r.sendError(c, types.ErrCodeRoomFull, "seat no longer available")
			continue
		}
		r.assignSeat(idx, u.UserID, u.DisplayName, false)
		c.role = RolePlayer
		r.send(c, types.ServerMessage{
			Type:    types.MsgTransitionComplete,
			Payload: map[string]interface{}{"seatIndex": idx},
		})
	}

	r.broadcast(types.ServerMessage{Type: types.MsgWarmSeatComplete})
	r.broadcastSnapshot()
	r.broadcastQueueUpdate()
	r.checkPromotion()
}

// --- AI seats ---

func (r *Room) addAIPlayer(c *conn, p types.AddAIPlayerPayload) {
	if c.userID != r.state.HostID || r.state.HostID == "" {
		r.sendError(c, types.ErrCodeNotHost, "only the host may add AI players")
		return
	}
	if r.state.Status != engine.StatusWaiting {
		r.sendError(c, types.ErrCodeInvalidMove, "cannot add AI players mid-game")
		return
	}
	idx, ok := r.freeSeat()
	if !ok {
		r.sendError(c, types.ErrCodeRoomFull, "no free seats")
		return
	}

	playerID := "ai-" + newID()[:8]
	name := p.DisplayName
	if name == "" {
		name = "Bot " + playerID[3:]
	}
	profile := ai.Profile{
		Brain:  ai.BrainType(p.Brain),
		Traits: ai.Traits{Aggression: p.Aggression, Caution: p.Caution},
	}
	if err := r.aictl.AddPlayer(playerID, profile); err != nil {
		r.sendError(c, types.ErrCodeInvalidMove, err.Error())
		return
	}
	r.assignSeat(idx, playerID, name, true)
	r.broadcastSnapshot()
}

func (r *Room) removeAIPlayer(c *conn, playerID string) {
	if c.userID != r.state.HostID || r.state.HostID == "" {
		r.sendError(c, types.ErrCodeNotHost, "only the host may remove AI players")
		return
	}
	if r.state.Status != engine.StatusWaiting {
		r.sendError(c, types.ErrCodeInvalidMove, "cannot remove AI players mid-game")
		return
	}
	seat, ok := r.state.SeatOf(playerID)
	if !ok || !seat.IsAI {
		r.sendError(c, types.ErrCodeInvalidMove, "no such AI player")
		return
	}
	if err := r.aictl.RemovePlayer(playerID); err != nil {
		r.sendError(c, types.ErrCodeInvalidMove, err.Error())
		return
	}
	r.state.Seats[seat.Index] = engine.Seat{Index: seat.Index}
	r.persist()
	r.broadcastSnapshot()
	r.checkPromotion()
}

// --- kibitz ---

func (r *Room) castKibitz(c *conn, p types.KibitzPayload) {
	if _, seated := r.state.SeatOf(c.userID); seated {
		r.sendError(c, types.ErrCodeNotSpectator, "players cannot kibitz")
		return
	}
	vt := kibitz.VoteType(p.VoteType)
	switch vt {
	case kibitz.VoteCategory, kibitz.VoteKeep, kibitz.VoteAction:
	default:
		r.sendError(c, types.ErrCodeBadPayload, "unknown vote type")
		return
	}
	if p.OptionID == "" {
		r.sendError(c, types.ErrCodeBadPayload, "missing option")
		return
	}

	if err := r.kib.Vote(c.userID, c.displayName, p.TurnNumber, vt, p.OptionID, p.Label); err != nil {
		r.sendError(c, errCode(err), err.Error())
		return
	}
	r.ledger.RecordKibitzVote(c.userID)
	r.send(c, types.ServerMessage{Type: types.MsgKibitzConfirmed})
	r.broadcastSpectators(types.ServerMessage{Type: types.MsgKibitzUpdate, Payload: r.kib.Snapshot()})
}

func (r *Room) clearKibitz(c *conn) {
	if err := r.kib.Clear(c.userID); err != nil {
		r.sendError(c, errCode(err), err.Error())
		return
	}
	r.send(c, types.ServerMessage{Type: types.MsgKibitzCleared})
	r.broadcastSpectators(types.ServerMessage{Type: types.MsgKibitzUpdate, Payload: r.kib.Snapshot()})
}

// --- gallery ---

func (r *Room) submitPrediction(c *conn, p types.PredictPayload) {
	if _, seated := r.state.SeatOf(c.userID); seated {
		r.sendError(c, types.ErrCodeNotSpectator, "players cannot predict")
		return
	}
	cur, ok := r.state.CurrentSeat()
	if !ok {
		r.sendError(c, types.ErrCodeWrongPhase, "no turn in progress")
		return
	}

	pred, err := r.ledger.Submit(
		c.userID, cur.UserID, r.state.Turn.Number,
		gallery.PredictionType(p.Type), p.ExactScore, r.clock(),
	)
	if err != nil {
		r.sendError(c, errCode(err), err.Error())
		return
	}

	backed := r.backedBy[c.userID]
	if backed == nil {
		backed = map[string]int{}
		r.backedBy[c.userID] = backed
	}
	backed[cur.UserID]++

	r.send(c, types.ServerMessage{Type: types.MsgPredictionConfirmed, Payload: pred})
}

func (r *Room) recordReaction(c *conn) {
	if _, seated := r.state.SeatOf(c.userID); seated {
		return
	}
	r.ledger.RecordReaction(c.userID)
}

func (r *Room) recordChat(c *conn) {
	if _, seated := r.state.SeatOf(c.userID); seated {
		return
	}
	r.ledger.RecordChatMessage(c.userID)
}

// finishGame settles backing credit, sends each spectator their gallery
// digest and persists career stats.
func (r *Room) finishGame(winnerID string) {
	r.timers.cancel(timerTurnTimeout)
	r.timers.cancel(timerAIThink)
	r.kib.Close()
	r.emit.Emit("state.transition", obs.F("to", "completed"), obs.F("winnerId", winnerID))

	for spectatorID, backed := range r.backedBy {
		onWinner := backed[winnerID]
		if onWinner == 0 {
			continue
		}
		total := 0
		for _, n := range backed {
			total += n
		}
		r.ledger.RecordBackedWinner(spectatorID, onWinner == total)
	}

	for _, c := range r.conns {
		if _, seated := r.state.SeatOf(c.userID); seated {
			continue
		}
		r.send(c, types.ServerMessage{
			Type:    types.MsgGallerySummary,
			Payload: r.ledger.Summarize(c.userID),
		})
	}

	stats := r.ledger.AllStats()
	if len(stats) > 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.stats.SaveStats(ctx, stats); err != nil {
				r.emit.Error("error.storage.stats", err)
			}
		}()
	}

	r.timers.after(r.opts.NextGameDelay, timerNextGame)
}

// resetForNextGame reopens the room after a completed game: scorecards
// clear, seats and career stats stay, queued spectators get their shot.
func (r *Room) resetForNextGame() {
	if r.state.Status != engine.StatusCompleted {
		return
	}
	for i := range r.state.Seats {
		r.state.Seats[i].Scorecard = nil
	}
	r.state.Status = engine.StatusWaiting
	r.state.WinnerID = ""
	r.state.Turn = engine.Turn{}
	r.state.RoundsRemaining = 0
	r.version++
	r.kib.Reset("", 0)
	r.ledger.ResetGame()
	r.backedBy = map[string]map[string]int{}
	r.persist()
	r.emit.Emit("state.transition", obs.F("to", "waiting"))
	r.broadcastSnapshot()
	r.checkPromotion()
}
