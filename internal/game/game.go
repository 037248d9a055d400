package game

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardmatch/memory-backend/internal/board"
	"github.com/cardmatch/memory-backend/internal/engine"
)

var ErrGameFull = errors.New("game is full")

type Config struct {
	ID          string
	PlayerCount int
	PairCount   int
	Symbols     []string
	Rules       engine.Rules
	IdleAfter   time.Duration // teardown delay once the last client disconnects
	OnIdle      func()        // invoked from the game goroutine when IdleAfter elapses
	Rand        *rand.Rand
	Logger      *zap.Logger
}

type client struct {
	slot   int
	outbox chan OutMsg
}

// Game is the single writer for one board. All mutation goes through the inbox, so
// actions for one game are processed strictly in arrival order while independent
// games run on their own goroutines.
type Game struct {
	id      string
	inbox   chan Msg
	state   engine.State
	version int

	clients  map[string]client // clientID -> bound seat + outbox
	sessions map[string]int    // session token -> slot, survives disconnects

	pairCount int
	symbols   []string
	rng       *rand.Rand

	resolveTimer *time.Timer
	resolveGen   int
	idleTimer    *time.Timer
	idleGen      int
	idleAfter    time.Duration
	onIdle       func()

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewGame(parent context.Context, cfg Config) (*Game, error) {
	cards, err := board.Generate(cfg.PairCount, cfg.Symbols, cfg.Rand)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	g := &Game{
		id:        cfg.ID,
		inbox:     make(chan Msg, 64),
		state:     engine.NewState(cards, cfg.PlayerCount, cfg.Rules),
		clients:   make(map[string]client),
		sessions:  make(map[string]int),
		pairCount: cfg.PairCount,
		symbols:   cfg.Symbols,
		rng:       cfg.Rand,
		idleAfter: cfg.IdleAfter,
		onIdle:    cfg.OnIdle,
		log:       cfg.Logger.With(zap.String("game_id", cfg.ID)),
		ctx:       ctx,
		cancel:    cancel,
	}

	go g.loop()
	return g, nil
}

// Inbox exposes the single entry point for mutations; tests and the ws layer send here.
func (g *Game) Inbox() chan<- Msg { return g.inbox }

func (g *Game) ID() string { return g.id }

func (g *Game) loop() {
	for {
		select {
		case <-g.ctx.Done():
			g.shutdown()
			return

		case m := <-g.inbox:
			switch msg := m.(type) {
			case Join:
				g.handleJoin(msg)

			case Leave:
				g.handleLeave(msg)

			case FromClient:
				g.handleCommand(msg)

			case resolveFired:
				if msg.gen != g.resolveGen {
					break // stale fire, the board moved on
				}
				g.resolveTimer = nil
				_, ns, err := engine.Apply(g.state, engine.Command{Type: engine.CmdResolve})
				if err != nil {
					g.log.Warn("resolve fired outside resolving state", zap.Error(err))
					break
				}
				g.state = ns
				g.version++
				g.broadcast()

			case idleFired:
				if msg.gen != g.idleGen || len(g.clients) > 0 {
					break
				}
				g.log.Info("tearing down idle game")
				if g.onIdle != nil {
					g.onIdle()
				}
				g.shutdown()
				return

			case GetState:
				msg.Reply <- View{
					Version:    g.version,
					NumClients: len(g.clients),
					State:      g.state,
				}

			case Shutdown:
				g.shutdown()
				return
			}
		}
	}
}

func (g *Game) handleJoin(msg Join) {
	slot, known := g.sessions[msg.Token]
	if !known {
		slot = g.freeSlot()
		if slot < 0 {
			msg.Reply <- JoinReply{Err: ErrGameFull}
			return
		}
		msg.Token = uuid.NewString()
		g.sessions[msg.Token] = slot
	}

	g.cancelIdle()
	g.clients[msg.ClientID] = client{slot: slot, outbox: msg.Outbox}

	_, ns, err := engine.Apply(g.state, engine.Command{Type: engine.CmdJoin, Slot: slot})
	if err != nil {
		// Seat came from our own bookkeeping; this is a bug, not client input.
		g.log.Error("join rejected by engine", zap.Int("slot", slot), zap.Error(err))
		delete(g.clients, msg.ClientID)
		if len(g.clients) == 0 {
			g.armIdle()
		}
		msg.Reply <- JoinReply{Err: err}
		return
	}
	g.state = ns
	g.version++
	msg.Reply <- JoinReply{Slot: slot, Token: msg.Token}
	g.broadcast()
}

func (g *Game) handleLeave(msg Leave) {
	cl, ok := g.clients[msg.ClientID]
	if !ok {
		return
	}
	delete(g.clients, msg.ClientID)

	// Slot and score survive; only the connection reference goes away.
	_, ns, err := engine.Apply(g.state, engine.Command{Type: engine.CmdLeave, Slot: cl.slot})
	if err == nil {
		g.state = ns
		g.version++
		g.broadcast()
	}
	if len(g.clients) == 0 {
		g.armIdle()
	}
}

func (g *Game) handleCommand(msg FromClient) {
	cl, ok := g.clients[msg.ClientID]
	if !ok {
		g.log.Warn("command from unbound client", zap.String("client_id", msg.ClientID))
		return
	}

	cmd := msg.Cmd
	cmd.Slot = cl.slot // the seat binding is authoritative, never the payload

	if cmd.Type == engine.CmdReset {
		cards, err := board.Generate(g.pairCount, g.symbols, g.rng)
		if err != nil {
			g.sendFault(cl, KindConfiguration, err.Error())
			return
		}
		cmd.Cards = cards
		g.cancelResolve()
	}

	events, ns, err := engine.Apply(g.state, cmd)
	if err != nil {
		// Rejections go to the requester only; the game and everyone else move on.
		g.sendFault(cl, KindInvalidMove, err.Error())
		return
	}

	g.state = ns
	g.version++
	g.broadcast()

	if engine.ContainsEvent(events, engine.EvtPairMismatched) {
		g.armResolve()
	}
}

func (g *Game) freeSlot() int {
	for _, p := range g.state.Players {
		if !p.Seated {
			return p.Slot
		}
	}
	return -1
}

func (g *Game) armResolve() {
	g.resolveGen++
	gen := g.resolveGen
	delay := time.Duration(g.state.Rules.RevealDelayMS) * time.Millisecond
	g.resolveTimer = time.AfterFunc(delay, func() {
		select {
		case g.inbox <- resolveFired{gen: gen}:
		case <-g.ctx.Done():
		}
	})
}

func (g *Game) cancelResolve() {
	if g.resolveTimer != nil {
		g.resolveTimer.Stop()
		g.resolveTimer = nil
	}
	g.resolveGen++
}

func (g *Game) armIdle() {
	if g.idleAfter <= 0 {
		return
	}
	if g.idleTimer != nil {
		g.idleTimer.Stop()
	}
	g.idleGen++
	gen := g.idleGen
	g.idleTimer = time.AfterFunc(g.idleAfter, func() {
		select {
		case g.inbox <- idleFired{gen: gen}:
		case <-g.ctx.Done():
		}
	})
}

func (g *Game) cancelIdle() {
	if g.idleTimer != nil {
		g.idleTimer.Stop()
		g.idleTimer = nil
	}
	g.idleGen++
}

func (g *Game) sendFault(cl client, kind, message string) {
	select {
	case cl.outbox <- Fault{Kind: kind, Message: message}:
	default:
		// Outbox full; the client will catch up from the next snapshot.
	}
}

func (g *Game) broadcast() {
	snap := Snapshot{Version: g.version, GameID: g.id, State: engine.Snapshot(g.state)}
	var dropped []int
	for id, cl := range g.clients {
		select {
		case cl.outbox <- snap:
			// ok
		default:
			// Client is slow/full - drop them.
			close(cl.outbox)
			delete(g.clients, id)
			dropped = append(dropped, cl.slot)
		}
	}

	// A dropped client has no connection left; its seat must read disconnected just
	// like a clean leave, or SkipDisconnected and the snapshot flag go stale.
	if len(dropped) > 0 {
		for _, slot := range dropped {
			if _, ns, err := engine.Apply(g.state, engine.Command{Type: engine.CmdLeave, Slot: slot}); err == nil {
				g.state = ns
			}
		}
		g.version++
		g.broadcast() // terminates: each pass only ever shrinks g.clients
		return
	}

	if len(g.clients) == 0 {
		g.armIdle()
	}
}

func (g *Game) shutdown() {
	g.cancelResolve()
	g.cancelIdle()
	for id, cl := range g.clients {
		close(cl.outbox)
		delete(g.clients, id)
	}
	g.cancel()
}
