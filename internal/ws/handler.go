// Package ws bridges websocket connections to room actors. The handler
// owns exactly one reader loop and one writer goroutine per socket; all
// game logic stays in the room.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/DoyleJ11/dicee-room-backend/internal/hub"
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
	"github.com/DoyleJ11/dicee-room-backend/internal/room"
	"github.com/DoyleJ11/dicee-room-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
	outboxSize   = 32
)

func Handler(h *hub.Hub, emit *obs.Emitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			userID = uuid.New().String()
		}
		displayName := r.URL.Query().Get("name")
		if displayName == "" {
			displayName = "Guest-" + userID[:6]
		}
		role := room.RolePlayer
		if r.URL.Query().Get("spectate") == "true" {
			role = room.RoleSpectator
		}

		connID := uuid.New().String()
		out := make(chan types.ServerMessage, outboxSize)

		rm.Post(room.Join{
			ConnID:      connID,
			UserID:      userID,
			DisplayName: displayName,
			Role:        role,
			WantSeat:    role == room.RolePlayer,
			Outbox:      out,
		})
		defer rm.Post(room.Leave{ConnID: connID})

		// Writer goroutine: drains the room's outbox onto the socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					emit.Error("error.ws.marshal", err, obs.F("type", msg.Type))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop: decode the envelope, forward to the room.
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				reject, _ := json.Marshal(types.ServerMessage{
					Type:    types.MsgError,
					Payload: types.ErrorPayload{Code: types.ErrCodeBadPayload, Message: "bad json"},
				})
				_ = conn.Write(r.Context(), websocket.MessageText, reject)
				continue
			}

			rm.Post(room.FromClient{ConnID: connID, Msg: cm})
		}
	}
}
