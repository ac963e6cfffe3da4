package room

import (
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
	"github.com/DoyleJ11/dicee-room-backend/internal/queue"
	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
	"github.com/DoyleJ11/dicee-room-backend/pkg/types"
)

// send delivers one message to one connection without blocking the room
// loop. A full outbox drops the message; the client resyncs from the
// next snapshot.
func (r *Room) send(c *conn, msg types.ServerMessage) {
	select {
	case c.outbox <- msg:
	default:
		r.emit.Warn("broadcast.client_slow",
			obs.F("connectionId", c.id), obs.F("type", msg.Type))
	}
}

// sendError reports a rejected request to the sender only.
func (r *Room) sendError(c *conn, code, message string) {
	r.send(c, types.ServerMessage{
		Type:    types.MsgError,
		Payload: types.ErrorPayload{Code: code, Message: message},
	})
}

// broadcast fans a message out to every connection.
func (r *Room) broadcast(msg types.ServerMessage) {
	for _, c := range r.conns {
		r.send(c, msg)
	}
}

// broadcastSpectators fans a message out to non-seated connections only.
func (r *Room) broadcastSpectators(msg types.ServerMessage) {
	for _, c := range r.conns {
		if _, seated := r.state.SeatOf(c.userID); seated {
			continue
		}
		r.send(c, msg)
	}
}

// snapshot is the full-room view every client renders from.
type snapshot struct {
	Version    int                 `json:"version"`
	State      stateView           `json:"state"`
	Kibitz     interface{}         `json:"kibitz,omitempty"`
	Transition *WarmSeatTransition `json:"transition,omitempty"`
}

type stateView struct {
	Code            string     `json:"code"`
	Status          string     `json:"status"`
	Seats           []seatView `json:"seats"`
	HostID          string     `json:"hostId"`
	Turn            turnView   `json:"turn"`
	RoundsRemaining int        `json:"roundsRemaining"`
	WinnerID        string     `json:"winnerId,omitempty"`
}

type seatView struct {
	Index       int                      `json:"index"`
	UserID      string                   `json:"userId,omitempty"`
	DisplayName string                   `json:"displayName,omitempty"`
	IsAI        bool                     `json:"isAI,omitempty"`
	IsHost      bool                     `json:"isHost,omitempty"`
	IsConnected bool                     `json:"isConnected,omitempty"`
	IsThinking  bool                     `json:"isThinking,omitempty"`
	Scorecard   map[scoring.Category]int `json:"scorecard,omitempty"`
	Totals      scoring.Totals           `json:"totals"`
}

type turnView struct {
	SeatIndex      int     `json:"seatIndex"`
	Number         int     `json:"number"`
	Phase          string  `json:"phase"`
	Dice           [5]int  `json:"dice"`
	Keep           [5]bool `json:"keep"`
	RollsRemaining int     `json:"rollsRemaining"`
}

func (r *Room) buildSnapshot() snapshot {
	seats := make([]seatView, len(r.state.Seats))
	for i, s := range r.state.Seats {
		sv := seatView{
			Index:       s.Index,
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			IsAI:        s.IsAI,
			IsHost:      s.IsHost,
			IsConnected: s.IsConnected,
			Scorecard:   s.Scorecard,
			Totals:      scoring.ComputeTotals(s.Scorecard),
		}
		if s.IsAI {
			if p, ok := r.aictl.Player(s.UserID); ok {
				sv.IsThinking = p.IsThinking
			}
		}
		seats[i] = sv
	}

	snap := snapshot{
		Version: r.version,
		State: stateView{
			Code:            r.state.Code,
			Status:          string(r.state.Status),
			Seats:           seats,
			HostID:          r.state.HostID,
			Turn: turnView{
				SeatIndex:      r.state.Turn.SeatIndex,
				Number:         r.state.Turn.Number,
				Phase:          string(r.state.Turn.Phase),
				Dice:           r.state.Turn.Dice,
				Keep:           r.state.Turn.Keep,
				RollsRemaining: r.state.Turn.RollsRemaining,
			},
			RoundsRemaining: r.state.RoundsRemaining,
			WinnerID:        r.state.WinnerID,
		},
		Transition: r.transition,
	}
	if kib := r.kib.Snapshot(); kib.VotingOpen || kib.TotalVotes > 0 {
		snap.Kibitz = kib
	}
	return snap
}

// broadcastSnapshot pushes the current snapshot to every connection.
func (r *Room) broadcastSnapshot() {
	r.broadcast(types.ServerMessage{Type: types.MsgStateSnapshot, Payload: r.buildSnapshot()})
}

// sendSnapshot pushes the current snapshot to one connection.
func (r *Room) sendSnapshot(c *conn) {
	r.send(c, types.ServerMessage{Type: types.MsgStateSnapshot, Payload: r.buildSnapshot()})
}

// queuePayload renders the waitlist, annotating each entry with whether
// the next promotion reaches it.
func (r *Room) queuePayload() map[string]interface{} {
	entries := r.queue.Entries()
	free := r.availableSeats()
	views := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		views[i] = map[string]interface{}{
			"userId":      e.UserID,
			"displayName": e.DisplayName,
			"avatarSeed":  e.AvatarSeed,
			"position":    e.Position,
			"willGetSpot": queue.WillGetSpot(e, free),
		}
	}
	return map[string]interface{}{
		"entries": views,
		"length":  len(entries),
	}
}

// broadcastQueueUpdate pushes the waitlist state to everyone.
func (r *Room) broadcastQueueUpdate() {
	r.broadcast(types.ServerMessage{Type: types.MsgQueueUpdate, Payload: r.queuePayload()})
}

// availableSeats counts vacant, unreserved seats.
func (r *Room) availableSeats() int {
	reserved := map[int]bool{}
	for _, res := range r.reservations {
		reserved[res.seatIndex] = true
	}
	n := 0
	for i, s := range r.state.Seats {
		if !s.Occupied() && !reserved[i] {
			n++
		}
	}
	return n
}
