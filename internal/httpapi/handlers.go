package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cardmatch/memory-backend/internal/hub"
)

func CreateGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PlayerCount int `json:"player_count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		reply := make(chan hub.CreateReply, 1)
		h.Inbox() <- hub.CreateGame{PlayerCount: req.PlayerCount, Reply: reply}
		cr := <-reply
		if cr.Err != nil {
			http.Error(w, cr.Err.Error(), http.StatusUnprocessableEntity)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			GameID string `json:"game_id"`
		}{GameID: cr.ID})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
