package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/cardmatch/memory-backend/internal/engine"
	"github.com/cardmatch/memory-backend/internal/game"
)

const maxPlayers = 8

var ErrBadPlayerCount = errors.New("player count out of range")

type HubMsg interface{ isHubMsg() }

type CreateGame struct {
	PlayerCount int
	Reply       chan CreateReply
}

type CreateReply struct {
	ID   string
	Game *game.Game
	Err  error
}

type GetGame struct {
	ID    string
	Reply chan *game.Game
}

type RemoveGame struct{ ID string }

type ShutdownHub struct{}

func (CreateGame) isHubMsg()  {}
func (GetGame) isHubMsg()     {}
func (RemoveGame) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Options are the per-server defaults every created game inherits.
type Options struct {
	PairCount int
	Symbols   []string
	Rules     engine.Rules
	IdleAfter time.Duration
	Logger    *zap.Logger
}

// Hub owns the registry of running games. It is the only component that creates or
// destroys a Game; everything else borrows the pointer it hands out.
type Hub struct {
	inbox  chan HubMsg
	games  map[string]*game.Game
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		games:  make(map[string]*game.Game),
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateGame:
				msg.Reply <- h.create(msg.PlayerCount)

			case GetGame:
				msg.Reply <- h.games[msg.ID] // may be nil

			case RemoveGame:
				if g := h.games[msg.ID]; g != nil {
					g.Inbox() <- game.Shutdown{}
					delete(h.games, msg.ID)
				}

			case ShutdownHub:
				for _, g := range h.games {
					g.Inbox() <- game.Shutdown{}
				}
				clear(h.games)
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(playerCount int) CreateReply {
	if playerCount < 2 || playerCount > maxPlayers {
		return CreateReply{Err: ErrBadPlayerCount}
	}

	var code string
	for {
		c, err := generateCode()
		if err != nil {
			return CreateReply{Err: err}
		}
		if h.games[c] == nil {
			code = c
			break
		}
		h.log.Info("collision on game code, regenerating", zap.String("code", c))
	}

	g, err := game.NewGame(h.ctx, game.Config{
		ID:          code,
		PlayerCount: playerCount,
		PairCount:   h.opts.PairCount,
		Symbols:     h.opts.Symbols,
		Rules:       h.opts.Rules,
		IdleAfter:   h.opts.IdleAfter,
		OnIdle:      func() { h.inbox <- RemoveGame{ID: code} },
		Rand:        mrand.New(mrand.NewSource(time.Now().UnixNano())),
		Logger:      h.log,
	})
	if err != nil {
		return CreateReply{Err: err}
	}

	h.games[code] = g
	h.log.Info("game created", zap.String("game_id", code), zap.Int("player_count", playerCount))
	return CreateReply{ID: code, Game: g}
}

func generateCode() (string, error) {
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
