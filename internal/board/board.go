package board

import (
	"errors"
	"math/rand"

	"github.com/cardmatch/memory-backend/internal/engine"
)

var ErrConfiguration = errors.New("pair count out of range for symbol set")

// DefaultSymbols covers the largest board a default server will hand out.
var DefaultSymbols = []string{
	"anchor", "bell", "bolt", "cactus", "cherry", "clover", "comet", "crown",
	"diamond", "feather", "flame", "key", "leaf", "moon", "mushroom", "rocket",
	"shell", "snowflake", "star", "sun",
}

// Generate builds a shuffled board of pairCount pairs drawn from symbols. Ids are
// assigned sequentially before the shuffle, so they are unique but carry no position
// information. The rng is injected so boards are reproducible in tests.
func Generate(pairCount int, symbols []string, rng *rand.Rand) ([]engine.Card, error) {
	if pairCount < 2 || pairCount > len(symbols) {
		return nil, ErrConfiguration
	}

	cards := make([]engine.Card, 0, pairCount*2)
	for _, i := range rng.Perm(len(symbols))[:pairCount] {
		cards = append(cards, engine.Card{ID: len(cards), Value: symbols[i]})
		cards = append(cards, engine.Card{ID: len(cards), Value: symbols[i]})
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards, nil
}
