package types

// GAME_STATE state payload:
//   players: [{ slot_index, color, score, connected }]
//   active_player_index: number
//   cards: [{ id, value?, is_face_up, is_matched }]
//   status: "waiting" | "playing" | "resolving" | "won"
//   winners: number[] // only once status is "won"; ties give several slots
//
// value is present iff is_face_up is true. That holds for every recipient, including
// the player who just flipped the card; a face-down value never appears on the wire.
