package types

// Client -> Server
// NEW_GAME:
//   player_count: number (2..8)
//
// JOIN_GAME:
//   game_id: string
//   token: string // optional; a token from an earlier JOINED rebinds the same slot
//
// FLIP_CARD:
//   card_id: number
//
// RESET_GAME: {}

// Server -> Client
// JOINED:
//   game_id: string
//   slot_index: number
//   token: string // keep it; it is the reconnect credential
//
// GAME_STATE:
//   version: number
//   state: see snapshot.go
//
// ERROR:
//   kind: "configuration" | "invalid_move" | "not_found" | "capacity" | "protocol"
//   error: string
