// Package room is the authoritative coordinator for one game room. A
// single goroutine owns all room state and processes inbox messages one
// at a time, so seat, turn, queue, kibitz and prediction mutations never
// interleave. Timers post back into the same inbox.
package room

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/dicee-room-backend/internal/ai"
	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/gallery"
	"github.com/DoyleJ11/dicee-room-backend/internal/kibitz"
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
	"github.com/DoyleJ11/dicee-room-backend/internal/queue"
	"github.com/DoyleJ11/dicee-room-backend/internal/storage"
	"github.com/DoyleJ11/dicee-room-backend/pkg/types"
)

// Options wires a room's collaborators and timing policy.
type Options struct {
	Code      string
	Config    engine.Config
	Snapshots storage.SnapshotStore
	Stats     storage.StatsStore
	Emitter   *obs.Emitter

	ReclaimWindow     time.Duration
	StartCountdown    time.Duration
	WarmSeatCountdown time.Duration
	NextGameDelay     time.Duration

	// Seed pins the dice roller for tests; zero means time-seeded.
	Seed int64
}

type Room struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int

	conns        map[string]*conn  // connectionId -> conn
	connByUser   map[string]string // userId -> connectionId
	reservations map[string]*reservation

	// expiredReclaims marks users whose reservation lapsed, so their next
	// connect downgrades to spectator instead of silently re-seating.
	expiredReclaims map[string]time.Time

	queue      *queue.Queue
	kib        *kibitz.Aggregator
	ledger     *gallery.Ledger
	aictl      *ai.Controller
	transition *WarmSeatTransition

	// firstRollBest remembers the best immediate score after the turn's
	// first roll, for the "improves" prediction outcome.
	firstRollBest int

	// backedBy counts this game's predictions per spectator per player,
	// for the backing points at game end.
	backedBy map[string]map[string]int

	snapshots storage.SnapshotStore
	stats     storage.StatsStore
	emit      *obs.Emitter

	rng    *rand.Rand
	clock  func() time.Time
	timers *scheduler

	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds and starts a room. If a snapshot exists for the code, the
// room wakes from it with every seat marked disconnected.
func New(parent context.Context, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)

	if opts.Snapshots == nil {
		opts.Snapshots = storage.NewMemorySnapshotStore()
	}
	if opts.Stats == nil {
		opts.Stats = storage.NewMemoryStatsStore()
	}
	if opts.Emitter == nil {
		opts.Emitter = obs.NewEmitter(nil, "room")
	}
	if opts.ReclaimWindow <= 0 {
		opts.ReclaimWindow = 60 * time.Second
	}
	if opts.StartCountdown <= 0 {
		opts.StartCountdown = 3 * time.Second
	}
	if opts.WarmSeatCountdown <= 0 {
		opts.WarmSeatCountdown = 10 * time.Second
	}
	if opts.NextGameDelay <= 0 {
		opts.NextGameDelay = 15 * time.Second
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	emit := opts.Emitter.WithRoom(opts.Code)
	rng := rand.New(rand.NewSource(seed))

	r := &Room{
		code:            opts.Code,
		inbox:           make(chan Msg, 64),
		conns:           map[string]*conn{},
		connByUser:      map[string]string{},
		reservations:    map[string]*reservation{},
		expiredReclaims: map[string]time.Time{},
		queue:           queue.New(),
		kib:             kibitz.New(),
		ledger:          gallery.NewLedger(newID, nil),
		aictl:           ai.NewController(rng),
		firstRollBest:   -1,
		backedBy:        map[string]map[string]int{},
		snapshots:       opts.Snapshots,
		stats:           opts.Stats,
		emit:            emit,
		rng:             rng,
		clock:           time.Now,
		opts:            opts,
		ctx:             ctx,
		cancel:          cancel,
	}
	r.timers = newScheduler(r)

	if woke, err := opts.Snapshots.Load(ctx, opts.Code); err == nil {
		for i := range woke.Seats {
			woke.Seats[i].IsConnected = false
		}
		r.state = woke
		emit.Emit("lifecycle.room.woke")
	} else {
		if !errors.Is(err, storage.ErrNotFound) {
			emit.Error("error.storage.wake", err)
		}
		r.state = engine.NewState(opts.Code, opts.Config)
		emit.Emit("lifecycle.room.created")
	}

	go r.loop()
	return r
}

// Inbox exposes the message channel to the ws layer and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Code returns the room code.
func (r *Room) Code() string { return r.code }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.handleLeave(msg.ConnID)
			case FromClient:
				r.handleClient(msg)
			case timerFired:
				r.handleTimer(msg)
			case GetView:
				msg.Reply <- r.view()
			case Shutdown:
				r.shutdown()
				return
			case statsLoaded:
				r.ledger.SeedStats(msg.stats)
			}
		}
	}
}

// handleJoin resolves the connect flow: reclaim a reserved seat, take a
// free one, or register as spectator (optionally queued).
func (r *Room) handleJoin(msg Join) {
	c := &conn{
		id:          msg.ConnID,
		userID:      msg.UserID,
		displayName: msg.DisplayName,
		role:        RoleSpectator,
		connectedAt: r.clock(),
		outbox:      msg.Outbox,
	}

	if res, ok := r.reservations[msg.UserID]; ok {
		r.cancelReservation(msg.UserID, res)
		r.state.Seats[res.seatIndex].IsConnected = true
		c.role = RolePlayer
		r.register(c)
		r.emit.Emit("connection.reconnected",
			obs.F("userId", msg.UserID), obs.F("connectionId", msg.ConnID),
			obs.F("seatIndex", res.seatIndex))
		r.send(c, types.ServerMessage{Type: types.MsgReconnected, Payload: map[string]interface{}{
			"seatIndex": res.seatIndex,
		}})
		r.sendSnapshot(c)
		r.broadcastSnapshot()
		return
	}

	if _, expired := r.expiredReclaims[msg.UserID]; expired {
		delete(r.expiredReclaims, msg.UserID)
		if !r.rejectIfNoSpectators(c) {
			return
		}
		r.register(c)
		r.send(c, types.ServerMessage{Type: types.MsgConnected, Payload: map[string]interface{}{
			"role": RoleSpectator,
			"note": "seat reservation expired; rejoin the queue to play",
		}})
		r.sendSnapshot(c)
		r.hydrateStats(msg.UserID)
		return
	}

	if seat, ok := r.state.SeatOf(msg.UserID); ok && !seat.IsAI {
		// Same user on a fresh socket; the seat never lapsed.
		r.state.Seats[seat.Index].IsConnected = true
		c.role = RolePlayer
		r.register(c)
		r.send(c, types.ServerMessage{Type: types.MsgConnected, Payload: map[string]interface{}{
			"role": RolePlayer, "seatIndex": seat.Index,
		}})
		r.sendSnapshot(c)
		r.broadcastSnapshot()
		return
	}

	wantsSeat := msg.Role == RolePlayer || msg.WantSeat
	if wantsSeat && r.queue.Len() == 0 {
		if idx, ok := r.freeSeat(); ok {
			r.assignSeat(idx, msg.UserID, msg.DisplayName, false)
			c.role = RolePlayer
			r.register(c)
			r.send(c, types.ServerMessage{Type: types.MsgConnected, Payload: map[string]interface{}{
				"role": RolePlayer, "seatIndex": idx,
			}})
			r.sendSnapshot(c)
			r.broadcastSnapshot()
			return
		}
	}

	if !r.rejectIfNoSpectators(c) {
		return
	}
	r.register(c)
	payload := map[string]interface{}{"role": RoleSpectator}
	if wantsSeat {
		if entry, err := r.queue.Join(msg.UserID, msg.DisplayName, "", false, r.clock()); err == nil {
			payload["queuePosition"] = entry.Position
			r.broadcastQueueUpdate()
		}
	}
	r.send(c, types.ServerMessage{Type: types.MsgConnected, Payload: payload})
	r.sendSnapshot(c)
	r.hydrateStats(msg.UserID)
	if wantsSeat {
		r.checkPromotion()
	}
}

// rejectIfNoSpectators closes a would-be spectator connection when the
// room was created without a gallery. Returns false when rejected.
func (r *Room) rejectIfNoSpectators(c *conn) bool {
	if r.state.Config.AllowSpectators {
		return true
	}
	r.send(c, types.ServerMessage{Type: types.MsgError, Payload: types.ErrorPayload{
		Code: types.ErrCodeNoSpectators, Message: "this room does not admit spectators",
	}})
	close(c.outbox)
	r.emit.Emit("connection.rejected", obs.F("userId", c.userID), obs.F("connectionId", c.id))
	return false
}

// hydrateStats fetches a spectator's persisted career stats off-loop and
// posts them back into the inbox.
func (r *Room) hydrateStats(userID string) {
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
		defer cancel()
		stats, err := r.stats.LoadStats(ctx, []string{userID})
		if err != nil {
			r.emit.Warn("storage.stats.load_failed", obs.F("userId", userID), obs.F("error", err.Error()))
			return
		}
		if len(stats) > 0 {
			r.Post(statsLoaded{stats: stats})
		}
	}()
}

// Post delivers a message into the inbox. After shutdown (or once the
// inbox backs up on a dead room) the message is dropped instead of
// blocking the caller.
func (r *Room) Post(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

func (r *Room) register(c *conn) {
	r.conns[c.id] = c
	r.connByUser[c.userID] = c.id
	r.emit.Emit("connection.opened",
		obs.F("userId", c.userID), obs.F("connectionId", c.id), obs.F("role", string(c.role)))
}

// handleLeave starts the reclaim window when a seated player drops;
// spectators are simply forgotten.
func (r *Room) handleLeave(connID string) {
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	if r.connByUser[c.userID] == connID {
		delete(r.connByUser, c.userID)
	}
	r.emit.Emit("connection.closed", obs.F("userId", c.userID), obs.F("connectionId", connID))

	if activeID, ok := r.connByUser[c.userID]; ok && activeID != connID {
		// The user already moved to a fresh socket; this close is the
		// stale one and the seat stays live.
		return
	}

	seat, seated := r.state.SeatOf(c.userID)
	if !seated || seat.IsAI {
		// A queued spectator keeps their place; clients resync on return.
		return
	}

	r.state.Seats[seat.Index].IsConnected = false
	r.reserveSeat(c.userID, seat.Index)
	r.broadcastSnapshot()
}

// reserveSeat holds the seat for the reclaim window.
func (r *Room) reserveSeat(userID string, seatIndex int) {
	res := &reservation{seatIndex: seatIndex}
	if old, ok := r.reservations[userID]; ok {
		r.cancelReservation(userID, old)
	}
	res.gen = r.timers.nextUserGen(userID)
	res.timer = r.timers.afterUser(r.opts.ReclaimWindow, timerReclaim, res.gen, userID)
	r.reservations[userID] = res
	r.emit.Emit("seat.reserved", obs.F("userId", userID), obs.F("seatIndex", seatIndex))
}

func (r *Room) cancelReservation(userID string, res *reservation) {
	res.timer.Stop()
	r.timers.nextUserGen(userID)
	delete(r.reservations, userID)
}

// reclaimExpired releases the seat and runs the promotion check. If the
// expired seat holds the current turn, the turn is force-resolved first;
// the seat's unplayed rounds are then written off so the remaining
// players can still finish their scorecards.
func (r *Room) reclaimExpired(userID string, gen int) {
	res, ok := r.reservations[userID]
	if !ok || res.gen != gen {
		return
	}
	delete(r.reservations, userID)
	r.expiredReclaims[userID] = r.clock()

	seatIndex := res.seatIndex
	if cur, ok := r.state.CurrentSeat(); ok && cur.Index == seatIndex {
		r.applyInternal(engine.Command{Type: engine.CmdTimeout})
	}

	r.emit.Emit("seat.released", obs.F("userId", userID), obs.F("seatIndex", seatIndex))
	events, next := engine.VacateSeat(r.state, seatIndex)
	r.state = next
	r.version++
	if r.state.HostID == userID {
		r.reassignHost()
	}

	// A playing room cannot continue below two seats; the queue cannot
	// refill mid-game.
	if r.state.Status == engine.StatusPlaying && r.state.OccupiedSeats() < 2 {
		r.abandon(errors.New("all opponents gone mid-game"))
		return
	}

	r.persist()
	r.onEvents(events, r.state.Turn.Number)
	r.broadcastSnapshot()
	r.checkPromotion()
}

// reassignHost hands the host role to the earliest-seated human, or
// leaves it open for the next human to sit down.
func (r *Room) reassignHost() {
	r.state.HostID = ""
	for i, s := range r.state.Seats {
		if s.Occupied() && !s.IsAI {
			r.state.Seats[i].IsHost = true
			r.state.HostID = s.UserID
			r.emit.Emit("seat.host_changed", obs.F("userId", s.UserID))
			return
		}
	}
}

func (r *Room) freeSeat() (int, bool) {
	for i, s := range r.state.Seats {
		if !s.Occupied() {
			return i, true
		}
	}
	return 0, false
}

func (r *Room) assignSeat(idx int, userID, displayName string, isAI bool) {
	host := r.state.HostID == "" && !isAI
	r.state.Seats[idx] = engine.Seat{
		Index:       idx,
		UserID:      userID,
		DisplayName: displayName,
		IsAI:        isAI,
		IsHost:      host,
		IsConnected: !isAI,
	}
	if host {
		r.state.HostID = userID
	}
	r.emit.Emit("seat.assigned",
		obs.F("userId", userID), obs.F("seatIndex", idx), obs.F("isAI", isAI))
	r.persist()
}

func (r *Room) shutdown() {
	r.timers.stopAll()
	for id, c := range r.conns {
		close(c.outbox)
		delete(r.conns, id)
	}
	r.emit.Emit("lifecycle.room.closed")
	r.cancel()
}

// abandon marks the room unrecoverable and shuts it down.
func (r *Room) abandon(err error) {
	r.emit.Error("error.room.corrupt", err)
	r.state.Status = engine.StatusAbandoned
	r.persist()
	r.broadcastSnapshot()
	r.shutdown()
}

func (r *Room) view() View {
	v := View{
		Version:      r.version,
		State:        r.state,
		NumConns:     len(r.conns),
		QueueLen:     r.queue.Len(),
		QueueEntries: r.queue.Entries(),
		Transition:   r.transition,
	}
	for userID := range r.reservations {
		v.Reserved = append(v.Reserved, userID)
	}
	return v
}

func newID() string { return uuid.New().String() }
