package room

import (
	"time"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
)

// timerKind names the scheduled work a fired timer triggers.
type timerKind string

const (
	timerStartCountdown timerKind = "startCountdown"
	timerTurnTimeout    timerKind = "turnTimeout"
	timerAIThink        timerKind = "aiThink"
	timerWarmSeat       timerKind = "warmSeat"
	timerReclaim        timerKind = "reclaim"
	timerNextGame       timerKind = "nextGame"
)

// scheduler arms timers that post timerFired back into the room inbox.
// Each kind carries a generation counter; scheduling or cancelling bumps
// the generation, so a timer that already fired into the inbox is
// recognized as stale and dropped. Per-user timers (seat reclaim) use a
// per-user counter instead.
type scheduler struct {
	room     *Room
	gens     map[timerKind]int
	userGens map[string]int
	active   []*time.Timer
}

func newScheduler(r *Room) *scheduler {
	return &scheduler{
		room:     r,
		gens:     map[timerKind]int{},
		userGens: map[string]int{},
	}
}

// after arms a kind-scoped timer, invalidating any earlier one of the
// same kind.
func (s *scheduler) after(d time.Duration, kind timerKind) {
	s.gens[kind]++
	gen := s.gens[kind]
	t := time.AfterFunc(d, func() {
		s.room.Post(timerFired{kind: kind, gen: gen})
	})
	s.active = append(s.active, t)
}

// cancel invalidates the pending timer of the given kind, if any.
func (s *scheduler) cancel(kind timerKind) {
	s.gens[kind]++
}

// stale reports whether a fired timer was superseded.
func (s *scheduler) stale(kind timerKind, gen int) bool {
	return gen != s.gens[kind]
}

// nextUserGen bumps and returns the per-user generation, invalidating
// any pending per-user timer.
func (s *scheduler) nextUserGen(userID string) int {
	s.userGens[userID]++
	return s.userGens[userID]
}

// afterUser arms a per-user timer bound to an already-claimed generation.
func (s *scheduler) afterUser(d time.Duration, kind timerKind, gen int, userID string) *time.Timer {
	t := time.AfterFunc(d, func() {
		s.room.Post(timerFired{kind: kind, gen: gen, userID: userID})
	})
	s.active = append(s.active, t)
	return t
}

func (s *scheduler) stopAll() {
	for _, t := range s.active {
		t.Stop()
	}
	s.active = nil
}

func (r *Room) handleTimer(t timerFired) {
	if t.kind == timerReclaim {
		r.reclaimExpired(t.userID, t.gen)
		return
	}
	if r.timers.stale(t.kind, t.gen) {
		return
	}

	switch t.kind {
	case timerStartCountdown:
		r.applyInternal(engine.Command{Type: engine.CmdBeginPlay})
	case timerTurnTimeout:
		r.emit.Emit("turn.timeout", obs.F("seatIndex", r.state.Turn.SeatIndex))
		r.applyInternal(engine.Command{Type: engine.CmdTimeout})
	case timerAIThink:
		r.stepAI()
	case timerWarmSeat:
		r.completeWarmSeat()
	case timerNextGame:
		r.resetForNextGame()
	}
}
