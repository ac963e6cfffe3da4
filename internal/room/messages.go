package room

import (
	"time"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/gallery"
	"github.com/DoyleJ11/dicee-room-backend/internal/queue"
	"github.com/DoyleJ11/dicee-room-backend/pkg/types"
)

// Role of a connection within the room.
type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
	RolePending   Role = "pending"
)

// Msg is the room inbox message. Everything that touches room state
// arrives through one of these; the loop processes them one at a time.
type Msg interface{ isRoomMsg() }

// Join registers a connection. WantSeat requests enqueueing when no seat
// is immediately available.
type Join struct {
	ConnID      string
	UserID      string
	DisplayName string
	Role        Role
	WantSeat    bool
	Outbox      chan types.ServerMessage
}

// Leave unregisters a connection (socket closed).
type Leave struct{ ConnID string }

// FromClient carries one decoded wire message.
type FromClient struct {
	ConnID string
	Msg    types.ClientMessage
}

// GetView reflects internal state for tests without data races.
type GetView struct{ Reply chan View }

// Shutdown stops the loop and closes every outbox.
type Shutdown struct{}

// timerFired is posted back into the inbox by scheduled timers. Stale
// generations are dropped.
type timerFired struct {
	kind   timerKind
	gen    int
	userID string
}

// statsLoaded carries hydrated career stats back from the stats store.
type statsLoaded struct{ stats []gallery.Stats }

func (Join) isRoomMsg()        {}
func (Leave) isRoomMsg()       {}
func (FromClient) isRoomMsg()  {}
func (GetView) isRoomMsg()     {}
func (Shutdown) isRoomMsg()    {}
func (timerFired) isRoomMsg()  {}
func (statsLoaded) isRoomMsg() {}

// View is a test-only reflection of room internals.
type View struct {
	Version      int
	State        engine.State
	NumConns     int
	QueueLen     int
	QueueEntries []queue.Entry
	Transition   *WarmSeatTransition
	Reserved     []string
}

// WarmSeatTransition is the active promotion window, if any.
type WarmSeatTransition struct {
	TransitioningUsers []TransitioningUser `json:"transitioningUsers"`
	StayingPlayers     []string            `json:"stayingPlayers"`
	CountdownSeconds   int                 `json:"countdownSeconds"`
	StartedAt          time.Time           `json:"startedAt"`
}

// TransitioningUser is one promotee.
type TransitioningUser struct {
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
	AvatarSeed   string `json:"avatarSeed"`
	FromPosition int    `json:"fromPosition"`
}

type conn struct {
	id          string
	userID      string
	displayName string
	role        Role
	connectedAt time.Time
	outbox      chan types.ServerMessage
}

// reservation holds a disconnected player's seat open for the reclaim
// window.
type reservation struct {
	seatIndex int
	gen       int
	timer     *time.Timer
}
