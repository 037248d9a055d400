package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardmatch/memory-backend/internal/engine"
	"github.com/cardmatch/memory-backend/internal/game"
	"github.com/cardmatch/memory-backend/internal/hub"
	"github.com/cardmatch/memory-backend/internal/types"
)

// Handler upgrades the connection and runs one session against the hub. A session is
// bound to at most one game; the binding survives on the server side (slot + token)
// even after the socket drops, which is what makes reconnect work.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := &session{
			clientID: uuid.NewString(),
			outbox:   make(chan game.OutMsg, 8),
			direct:   make(chan types.ServerMessage, 8),
			log:      log,
		}

		defer func() {
			if s.game != nil {
				s.game.Inbox() <- game.Leave{ClientID: s.clientID}
				log.Info("client disconnected",
					zap.String("client_id", s.clientID),
					zap.String("game_id", s.gameID),
					zap.Int("slot", s.slot),
				)
			}
		}()

		// Writer goroutine: the only place that writes to the socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writeLoop(writeCtx, conn, s)

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (game.Leave in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				log.Warn("malformed client message", zap.String("client_id", s.clientID), zap.Error(err))
				s.fail(game.KindProtocol, "bad json")
				continue
			}

			s.dispatch(h, cm)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, s *session) {
	for {
		select {
		case om, ok := <-s.outbox:
			if !ok {
				// Game shut down or dropped us as a slow client.
				conn.Close(websocket.StatusGoingAway, "game closed")
				return
			}
			write(ctx, conn, toServerMessage(om))
		case sm := <-s.direct:
			write(ctx, conn, sm)
		case <-ctx.Done():
			return
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, sm types.ServerMessage) {
	payload, _ := json.Marshal(sm)
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	_ = conn.Write(wctx, websocket.MessageText, payload)
	cancel()
}

func toServerMessage(om game.OutMsg) types.ServerMessage {
	switch m := om.(type) {
	case game.Snapshot:
		state := m.State
		return types.ServerMessage{Type: "GAME_STATE", Version: m.Version, GameID: m.GameID, State: &state}
	case game.Fault:
		return types.ServerMessage{Type: "ERROR", Kind: m.Kind, Error: m.Message}
	default:
		return types.ServerMessage{Type: "ERROR", Kind: game.KindProtocol, Error: "unknown server message"}
	}
}

type session struct {
	clientID string
	game     *game.Game
	gameID   string
	slot     int
	outbox   chan game.OutMsg
	direct   chan types.ServerMessage
	log      *zap.Logger
}

func (s *session) dispatch(h *hub.Hub, cm types.ClientMessage) {
	switch cm.Type {
	case "NEW_GAME":
		if s.game != nil {
			s.fail(game.KindProtocol, "already in a game")
			return
		}
		reply := make(chan hub.CreateReply, 1)
		h.Inbox() <- hub.CreateGame{PlayerCount: cm.PlayerCount, Reply: reply}
		cr := <-reply
		if cr.Err != nil {
			s.fail(game.KindConfiguration, cr.Err.Error())
			return
		}
		s.join(cr.Game, cr.ID, "")

	case "JOIN_GAME":
		if s.game != nil {
			s.fail(game.KindProtocol, "already in a game")
			return
		}
		reply := make(chan *game.Game, 1)
		h.Inbox() <- hub.GetGame{ID: cm.GameID, Reply: reply}
		g := <-reply
		if g == nil {
			s.fail(game.KindNotFound, "no such game")
			return
		}
		s.join(g, cm.GameID, cm.Token)

	case "FLIP_CARD", "RESET_GAME":
		if s.game == nil {
			s.fail(game.KindProtocol, "join a game first")
			return
		}
		cmd, ok := toCommand(cm)
		if !ok {
			s.fail(game.KindProtocol, "unknown type")
			return
		}
		s.game.Inbox() <- game.FromClient{ClientID: s.clientID, Cmd: cmd}

	default:
		s.fail(game.KindProtocol, "unknown type")
	}
}

func (s *session) join(g *game.Game, gameID, token string) {
	reply := make(chan game.JoinReply, 1)
	g.Inbox() <- game.Join{ClientID: s.clientID, Token: token, Outbox: s.outbox, Reply: reply}
	jr := <-reply
	if jr.Err != nil {
		if errors.Is(jr.Err, game.ErrGameFull) {
			s.fail(game.KindCapacity, jr.Err.Error())
		} else {
			s.fail(game.KindProtocol, jr.Err.Error())
		}
		return
	}

	s.game = g
	s.gameID = gameID
	s.slot = jr.Slot

	slot := jr.Slot
	s.send(types.ServerMessage{Type: "JOINED", GameID: gameID, Slot: &slot, Token: jr.Token})
	s.log.Info("client joined game",
		zap.String("client_id", s.clientID),
		zap.String("game_id", gameID),
		zap.Int("slot", jr.Slot),
	)
}

// toCommand maps a wire action onto an engine command. The slot is filled in by the
// game from the seat binding, never from the payload.
func toCommand(cm types.ClientMessage) (engine.Command, bool) {
	switch cm.Type {
	case "FLIP_CARD":
		return engine.Command{Type: engine.CmdFlip, CardID: cm.CardID}, true
	case "RESET_GAME":
		return engine.Command{Type: engine.CmdReset}, true
	default:
		return engine.Command{}, false
	}
}

func (s *session) fail(kind, message string) {
	s.send(types.ServerMessage{Type: "ERROR", Kind: kind, Error: message})
}

func (s *session) send(sm types.ServerMessage) {
	select {
	case s.direct <- sm:
	default:
		// Writer is wedged; the read side will notice the dead socket soon enough.
	}
}
