package types

import "github.com/cardmatch/memory-backend/internal/engine"

type ClientMessage struct {
	Type        string `json:"type"`
	PlayerCount int    `json:"player_count,omitempty"`
	GameID      string `json:"game_id,omitempty"`
	Token       string `json:"token,omitempty"`
	CardID      int    `json:"card_id"`
}

type ServerMessage struct {
	Type    string            `json:"type"` // "GAME_STATE" | "JOINED" | "ERROR"
	Version int               `json:"version,omitempty"`
	GameID  string            `json:"game_id,omitempty"`
	Slot    *int              `json:"slot_index,omitempty"` // pointer: slot 0 must survive marshalling
	Token   string            `json:"token,omitempty"`
	State   *engine.StateView `json:"state,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Error   string            `json:"error,omitempty"`
}
