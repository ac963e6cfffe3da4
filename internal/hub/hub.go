// Package hub owns the room map. A single goroutine serializes room
// creation, lookup and removal, so two connections racing to create the
// same code always land in the same room.
package hub

import (
	"context"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
	"github.com/DoyleJ11/dicee-room-backend/internal/room"
	"github.com/DoyleJ11/dicee-room-backend/internal/storage"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code   string
	Config engine.Config
	Reply  chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// EnsureRoom returns the existing room or creates one. Creation here
// picks up any persisted snapshot, so a room wakes transparently when a
// client reconnects after a process restart.
type EnsureRoom struct {
	Code   string
	Config engine.Config // only used if creation happens
	Reply  chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Deps are shared by every room the hub creates.
type Deps struct {
	Snapshots storage.SnapshotStore
	Stats     storage.StatsStore
	Emitter   *obs.Emitter
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, deps Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if r := h.rooms[msg.Code]; r != nil {
					msg.Reply <- r
					break
				}
				msg.Reply <- h.create(msg.Code, msg.Config)

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case EnsureRoom:
				if r := h.rooms[msg.Code]; r != nil {
					msg.Reply <- r
					break
				}
				msg.Reply <- h.create(msg.Code, msg.Config)

			case RemoveRoom:
				if r := h.rooms[msg.Code]; r != nil {
					r.Post(room.Shutdown{})
					delete(h.rooms, msg.Code)
				}

			case ShutdownHub:
				for _, r := range h.rooms {
					r.Post(room.Shutdown{})
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(code string, cfg engine.Config) *room.Room {
	r := room.New(h.ctx, room.Options{
		Code:      code,
		Config:    cfg,
		Snapshots: h.deps.Snapshots,
		Stats:     h.deps.Stats,
		Emitter:   h.deps.Emitter,
	})
	h.rooms[code] = r
	return r
}
