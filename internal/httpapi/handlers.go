package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/hub"
	"github.com/DoyleJ11/dicee-room-backend/internal/room"
)

const (
	defaultMaxPlayers    = 4
	maxConfiguredPlayers = 8
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createRoomRequest struct {
	MaxPlayers         int  `json:"maxPlayers"`
	IsPublic           bool `json:"isPublic"`
	AllowSpectators    bool `json:"allowSpectators"`
	TurnTimeoutSeconds int  `json:"turnTimeoutSeconds"`
}

func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := createRoomRequest{MaxPlayers: defaultMaxPlayers, AllowSpectators: true}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request body", http.StatusBadRequest)
				return
			}
		}
		if req.MaxPlayers < 2 || req.MaxPlayers > maxConfiguredPlayers {
			http.Error(w, "maxPlayers must be between 2 and 8", http.StatusBadRequest)
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *room.Room, 1)
			h.Inbox() <- hub.GetRoom{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
		}

		cfg := engine.Config{
			MaxPlayers:         req.MaxPlayers,
			IsPublic:           req.IsPublic,
			AllowSpectators:    req.AllowSpectators,
			TurnTimeoutSeconds: req.TurnTimeoutSeconds,
		}
		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.EnsureRoom{Code: code, Config: cfg, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
