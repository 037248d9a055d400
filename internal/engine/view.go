package engine

// CardView is the client-facing card. Value is set iff the card is face up; a
// face-down card's value never leaves the server, no matter who is asking.
type CardView struct {
	ID      int     `json:"id"`
	Value   *string `json:"value,omitempty"`
	FaceUp  bool    `json:"is_face_up"`
	Matched bool    `json:"is_matched"`
}

type PlayerView struct {
	Slot      int    `json:"slot_index"`
	Color     string `json:"color"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

type StateView struct {
	Players []PlayerView `json:"players"`
	Active  int          `json:"active_player_index"`
	Cards   []CardView   `json:"cards"`
	Status  Status       `json:"status"`
	Winners []int        `json:"winners,omitempty"`
}

// Snapshot builds the redacted view broadcast to clients. Every recipient gets the
// same view: redaction happens here, at the serialization boundary, not per requester.
func Snapshot(s State) StateView {
	cards := make([]CardView, len(s.Cards))
	for i, c := range s.Cards {
		cv := CardView{ID: c.ID, FaceUp: c.FaceUp, Matched: c.Matched}
		if c.FaceUp {
			v := c.Value
			cv.Value = &v
		}
		cards[i] = cv
	}
	players := make([]PlayerView, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerView{Slot: p.Slot, Color: p.Color, Score: p.Score, Connected: p.Connected}
	}
	return StateView{
		Players: players,
		Active:  s.Active,
		Cards:   cards,
		Status:  s.Status,
		Winners: Winners(s),
	}
}
