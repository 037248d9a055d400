package engine

import "time"

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusResolving Status = "resolving"
	StatusWon       Status = "won"
)

type Card struct {
	ID      int
	Value   string
	FaceUp  bool
	Matched bool
}

// Player is a stable per-game seat. It outlives the connection: Connected flips on
// disconnect/reconnect, Seated and Score never reset except on a board reset.
type Player struct {
	Slot      int
	Color     string
	Score     int
	Seated    bool
	Connected bool
}

type Rules struct {
	RevealDelayMS    int
	SkipDisconnected bool
}

type State struct {
	Cards     []Card
	Players   []Player
	Active    int
	Flipped   []int // card ids face-up but unresolved, at most 2
	Status    Status
	Rules     Rules
	CreatedAt time.Time
}

var slotColors = []string{"crimson", "royalblue", "seagreen", "goldenrod", "orchid", "teal", "coral", "slategray"}

func NewState(cards []Card, playerCount int, rules Rules) State {
	players := make([]Player, playerCount)
	for i := range players {
		players[i] = Player{Slot: i, Color: slotColors[i%len(slotColors)]}
	}
	return State{
		Cards:     cards,
		Players:   players,
		Flipped:   []int{},
		Status:    StatusWaiting,
		Rules:     rules,
		CreatedAt: time.Now(),
	}
}

// clone gives Apply a state it can mutate without touching the caller's copy.
// Card and Player are plain values, so copying the slices is enough.
func (s State) clone() State {
	c := s
	c.Cards = append([]Card(nil), s.Cards...)
	c.Players = append([]Player(nil), s.Players...)
	c.Flipped = append([]int{}, s.Flipped...)
	return c
}

func (s State) cardIndex(id int) int {
	for i := range s.Cards {
		if s.Cards[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) allMatched() bool {
	for _, c := range s.Cards {
		if !c.Matched {
			return false
		}
	}
	return true
}

func (s State) seatedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Seated {
			n++
		}
	}
	return n
}

// Mutation primitives. Only Apply calls these, always on a cloned state.

func (s *State) setFaceUp(i int, up bool) {
	s.Cards[i].FaceUp = up
}

func (s *State) setMatched(i int) {
	s.Cards[i].Matched = true
	s.Cards[i].FaceUp = true
}

func (s *State) addScore(slot, n int) {
	s.Players[slot].Score += n
}

// advanceTurn moves Active to the next slot. With SkipDisconnected on, slots whose
// player is gone are passed over; if every player is gone it falls back to a plain
// rotation so Active stays valid for whoever returns.
func (s *State) advanceTurn() {
	n := len(s.Players)
	next := (s.Active + 1) % n
	if !s.Rules.SkipDisconnected {
		s.Active = next
		return
	}
	for i := 0; i < n; i++ {
		candidate := (next + i) % n
		if s.Players[candidate].Connected {
			s.Active = candidate
			return
		}
	}
	s.Active = next
}

// Winners reports the slots holding the top score. Ties are valid: every slot at the
// maximum is a winner. Meaningful only once the game is won.
func Winners(s State) []int {
	if s.Status != StatusWon {
		return nil
	}
	best := -1
	var winners []int
	for _, p := range s.Players {
		switch {
		case p.Score > best:
			best = p.Score
			winners = []int{p.Slot}
		case p.Score == best:
			winners = append(winners, p.Slot)
		}
	}
	return winners
}
