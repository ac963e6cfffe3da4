// Package types defines the wire protocol: a {type, payload} envelope in
// both directions.
package types

import "encoding/json"

// ClientMessage is the client->server envelope.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client->server message types.
const (
	MsgRoll           = "ROLL"
	MsgKeep           = "KEEP"
	MsgScore          = "SCORE"
	MsgStartGame      = "START_GAME"
	MsgAddAIPlayer    = "ADD_AI_PLAYER"
	MsgRemoveAIPlayer = "REMOVE_AI_PLAYER"
	MsgJoinQueue      = "JOIN_QUEUE"
	MsgLeaveQueue     = "LEAVE_QUEUE"
	MsgGetQueue       = "GET_QUEUE"
	MsgKibitz         = "KIBITZ"
	MsgClearKibitz    = "CLEAR_KIBITZ"
	MsgGetKibitz      = "GET_KIBITZ"
	MsgPredict        = "PREDICT"
	MsgReact          = "REACT"
	MsgChat           = "CHAT"
)

// ServerMessage is the server->client envelope.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Server->client message types.
const (
	MsgConnected     = "CONNECTED"
	MsgReconnected   = "RECONNECTED"
	MsgStateSnapshot = "STATE_SNAPSHOT"
	MsgError         = "ERROR"

	MsgQueueJoined = "QUEUE_JOINED"
	MsgQueueLeft   = "QUEUE_LEFT"
	MsgQueueState  = "QUEUE_STATE"
	MsgQueueUpdate = "QUEUE_UPDATE"

	MsgWarmSeatTransition  = "WARM_SEAT_TRANSITION"
	MsgYouAreTransitioning = "YOU_ARE_TRANSITIONING"
	MsgTransitionComplete  = "TRANSITION_COMPLETE"
	MsgWarmSeatComplete    = "WARM_SEAT_COMPLETE"

	MsgKibitzConfirmed = "KIBITZ_CONFIRMED"
	MsgKibitzCleared   = "KIBITZ_CLEARED"
	MsgKibitzState     = "KIBITZ_STATE"
	MsgKibitzUpdate    = "KIBITZ_UPDATE"

	MsgGameStarting = "GAME_STARTING"
	MsgGameStarted  = "GAME_STARTED"
	MsgAIThinking   = "AI_THINKING"

	MsgPredictionConfirmed = "PREDICTION_CONFIRMED"
	MsgPredictionResults   = "PREDICTION_RESULTS"
	MsgAchievementUnlocked = "ACHIEVEMENT_UNLOCKED"
	MsgGallerySummary      = "GALLERY_SUMMARY"
)

// Sender-only error codes.
const (
	ErrCodeBadPayload    = "BAD_PAYLOAD"
	ErrCodeUnknownType   = "UNKNOWN_TYPE"
	ErrCodeNotSpectator  = "NOT_SPECTATOR"
	ErrCodeNoSpectators  = "SPECTATORS_DISABLED"
	ErrCodeAlreadyQueued = "ALREADY_IN_QUEUE"
	ErrCodeQueueFull     = "QUEUE_FULL"
	ErrCodeNotInQueue    = "NOT_IN_QUEUE"
	ErrCodeNotYourTurn   = "NOT_YOUR_TURN"
	ErrCodeWrongPhase    = "WRONG_PHASE"
	ErrCodeNotHost       = "NOT_HOST"
	ErrCodeRoomFull      = "ROOM_FULL"
	ErrCodeInvalidMove   = "INVALID_MOVE"
	ErrCodePredictionCap = "PREDICTION_CAP"
	ErrCodeVotingClosed  = "VOTING_CLOSED"
)

// KeepPayload toggles the dice kept across a reroll.
type KeepPayload struct {
	Keep [5]bool `json:"keep"`
}

// ScorePayload commits the turn into a category.
type ScorePayload struct {
	Category string `json:"category"`
}

// AddAIPlayerPayload seats an AI player.
type AddAIPlayerPayload struct {
	DisplayName string  `json:"displayName"`
	Brain       string  `json:"brain"`
	Aggression  float64 `json:"aggression,omitempty"`
	Caution     float64 `json:"caution,omitempty"`
}

// RemoveAIPlayerPayload unseats an AI player.
type RemoveAIPlayerPayload struct {
	PlayerID string `json:"playerId"`
}

// JoinQueuePayload enters the seat waitlist.
type JoinQueuePayload struct {
	DisplayName string `json:"displayName"`
	AvatarSeed  string `json:"avatarSeed"`
}

// KibitzPayload casts or recasts a spectator vote.
type KibitzPayload struct {
	TurnNumber int    `json:"turnNumber"`
	VoteType   string `json:"voteType"`
	OptionID   string `json:"optionId"`
	Label      string `json:"label,omitempty"`
}

// PredictPayload submits a prediction on the current turn.
type PredictPayload struct {
	Type       string `json:"type"`
	ExactScore int    `json:"exactScore,omitempty"`
}

// ErrorPayload is the sender-only error body.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
