package game

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cardmatch/memory-backend/internal/engine"
)

func testConfig(playerCount int) Config {
	return Config{
		ID:          "TEST01",
		PlayerCount: playerCount,
		PairCount:   2,
		Symbols:     []string{"x", "y", "z"},
		Rules:       engine.Rules{RevealDelayMS: 50},
		Rand:        rand.New(rand.NewSource(1)),
		Logger:      zap.NewNop(),
	}
}

// helper: receive one outbox message with a timeout so tests never hang
func recvOut(t *testing.T, ch <-chan OutMsg, within time.Duration) OutMsg {
	t.Helper()
	select {
	case om, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return om
	case <-time.After(within):
		t.Fatalf("timed out waiting for outbox message")
		return nil // unreachable
	}
}

func recvSnapshot(t *testing.T, ch <-chan OutMsg, within time.Duration) Snapshot {
	t.Helper()
	om := recvOut(t, ch, within)
	snap, ok := om.(Snapshot)
	if !ok {
		t.Fatalf("expected Snapshot, got %T: %+v", om, om)
	}
	return snap
}

func recvFault(t *testing.T, ch <-chan OutMsg, within time.Duration) Fault {
	t.Helper()
	om := recvOut(t, ch, within)
	f, ok := om.(Fault)
	if !ok {
		t.Fatalf("expected Fault, got %T: %+v", om, om)
	}
	return f
}

func recvNothing(t *testing.T, ch <-chan OutMsg, within time.Duration) {
	t.Helper()
	select {
	case om, ok := <-ch:
		if !ok {
			return // closed is fine; nothing further can arrive
		}
		t.Fatalf("expected no message within %v, but got %T: %+v", within, om, om)
	case <-time.After(within):
	}
}

func join(t *testing.T, g *Game, clientID, token string, buf int) (chan OutMsg, JoinReply) {
	t.Helper()
	out := make(chan OutMsg, buf)
	reply := make(chan JoinReply, 1)
	g.Inbox() <- Join{ClientID: clientID, Token: token, Outbox: out, Reply: reply}
	jr := <-reply
	if jr.Err != nil {
		t.Fatalf("join %s: %v", clientID, jr.Err)
	}
	return out, jr
}

func view(t *testing.T, g *Game) View {
	t.Helper()
	reply := make(chan View, 1)
	g.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

// pairOf digs the full state out of the game to find the two card ids sharing a value.
// Boards are shuffled, so tests locate pairs instead of assuming positions.
func pairOf(t *testing.T, v View, match bool) (int, int) {
	t.Helper()
	cards := v.State.Cards
	for i := range cards {
		for j := i + 1; j < len(cards); j++ {
			if (cards[i].Value == cards[j].Value) == match {
				return cards[i].ID, cards[j].ID
			}
		}
	}
	t.Fatalf("no pair with match=%v on board", match)
	return 0, 0
}

func TestGame_JoinBroadcastsSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, err := NewGame(ctx, testConfig(2))
	if err != nil {
		t.Fatalf("new game: %v", err)
	}

	out1, jr1 := join(t, g, "c1", "", 4)
	if jr1.Slot != 0 || jr1.Token == "" {
		t.Fatalf("first join: want slot 0 and a token, got %+v", jr1)
	}
	first := recvSnapshot(t, out1, 100*time.Millisecond)
	if first.State.Status != engine.StatusWaiting {
		t.Fatalf("one player in: want waiting, got %v", first.State.Status)
	}

	out2, jr2 := join(t, g, "c2", "", 4)
	if jr2.Slot != 1 {
		t.Fatalf("second join: want slot 1, got %d", jr2.Slot)
	}
	// Both clients see the started game.
	s1 := recvSnapshot(t, out1, 100*time.Millisecond)
	s2 := recvSnapshot(t, out2, 100*time.Millisecond)
	if s1.State.Status != engine.StatusPlaying || s2.State.Status != engine.StatusPlaying {
		t.Fatalf("want playing for both, got %v / %v", s1.State.Status, s2.State.Status)
	}
	if s1.Version != s2.Version {
		t.Fatalf("diverging versions: %d vs %d", s1.Version, s2.Version)
	}

	g.Inbox() <- Shutdown{}
}

func TestGame_ErrorGoesOnlyToRequester(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := NewGame(ctx, testConfig(2))
	out1, _ := join(t, g, "c1", "", 4)
	out2, _ := join(t, g, "c2", "", 4)
	_ = recvSnapshot(t, out1, 100*time.Millisecond)
	_ = recvSnapshot(t, out1, 100*time.Millisecond)
	_ = recvSnapshot(t, out2, 100*time.Millisecond)

	// Slot 1 is not the active player; the flip must bounce to c2 alone.
	g.Inbox() <- FromClient{ClientID: "c2", Cmd: engine.Command{Type: engine.CmdFlip, CardID: 0}}

	f := recvFault(t, out2, 100*time.Millisecond)
	if f.Kind != KindInvalidMove {
		t.Fatalf("want invalid_move, got %q", f.Kind)
	}
	recvNothing(t, out1, 100*time.Millisecond)
}

func TestGame_MismatchFlipsBackAfterDelayAndRotates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := NewGame(ctx, testConfig(2))
	out, _ := join(t, g, "c1", "", 8)
	_, _ = join(t, g, "c2", "", 8)
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	a, b := pairOf(t, view(t, g), false)
	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdFlip, CardID: a}}
	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdFlip, CardID: b}}

	_ = recvSnapshot(t, out, 100*time.Millisecond) // first card up
	mid := recvSnapshot(t, out, 100*time.Millisecond)
	if mid.State.Status != engine.StatusResolving {
		t.Fatalf("want resolving after mismatch, got %v", mid.State.Status)
	}

	done := recvSnapshot(t, out, 500*time.Millisecond)
	if done.State.Status != engine.StatusPlaying {
		t.Fatalf("want playing after resolve, got %v", done.State.Status)
	}
	if done.State.Active != 1 {
		t.Fatalf("want turn passed to slot 1, got %d", done.State.Active)
	}
	for _, cv := range done.State.Cards {
		if cv.FaceUp || cv.Value != nil {
			t.Fatalf("cards must be face down after resolve: %+v", cv)
		}
	}
}

func TestGame_MatchKeepsTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := NewGame(ctx, testConfig(2))
	out, _ := join(t, g, "c1", "", 8)
	_, _ = join(t, g, "c2", "", 8)
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	a, b := pairOf(t, view(t, g), true)
	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdFlip, CardID: a}}
	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdFlip, CardID: b}}

	_ = recvSnapshot(t, out, 100*time.Millisecond)
	snap := recvSnapshot(t, out, 100*time.Millisecond)
	if snap.State.Active != 0 {
		t.Fatalf("match must keep the turn, active=%d", snap.State.Active)
	}
	if snap.State.Players[0].Score != 1 {
		t.Fatalf("want score 1, got %d", snap.State.Players[0].Score)
	}
}

func TestGame_ResetMidResolutionCancelsTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(2)
	cfg.Rules.RevealDelayMS = 80
	g, _ := NewGame(ctx, cfg)
	out, _ := join(t, g, "c1", "", 16)
	_, _ = join(t, g, "c2", "", 16)
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	a, b := pairOf(t, view(t, g), false)
	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdFlip, CardID: a}}
	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdFlip, CardID: b}}
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	_ = recvSnapshot(t, out, 100*time.Millisecond) // resolving

	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdReset}}
	fresh := recvSnapshot(t, out, 100*time.Millisecond)
	if fresh.State.Status != engine.StatusPlaying {
		t.Fatalf("both seats taken, want playing after reset, got %v", fresh.State.Status)
	}
	for _, cv := range fresh.State.Cards {
		if cv.FaceUp || cv.Matched {
			t.Fatalf("reset board not fresh: %+v", cv)
		}
	}
	for _, pv := range fresh.State.Players {
		if pv.Score != 0 {
			t.Fatalf("reset must clear scores")
		}
	}

	// The pending flip-back must not land on the regenerated board.
	recvNothing(t, out, 200*time.Millisecond)
	v := view(t, g)
	if v.State.Status != engine.StatusPlaying || len(v.State.Flipped) != 0 {
		t.Fatalf("stale timer touched the fresh board: %+v", v.State)
	}
}

func TestGame_ReconnectWithTokenKeepsSlotAndScore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := NewGame(ctx, testConfig(2))
	out, jr := join(t, g, "c1", "", 8)
	_, _ = join(t, g, "c2", "", 8)
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	a, b := pairOf(t, view(t, g), true)
	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdFlip, CardID: a}}
	g.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdFlip, CardID: b}}
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	g.Inbox() <- Leave{ClientID: "c1"}

	out2, jr2 := join(t, g, "c1-again", jr.Token, 8)
	if jr2.Slot != jr.Slot {
		t.Fatalf("reconnect must rebind slot %d, got %d", jr.Slot, jr2.Slot)
	}
	if jr2.Token != jr.Token {
		t.Fatalf("reconnect must keep the session token")
	}

	snap := recvSnapshot(t, out2, 100*time.Millisecond)
	if snap.State.Players[jr.Slot].Score != 1 {
		t.Fatalf("score lost across reconnect: %+v", snap.State.Players)
	}
	if !snap.State.Players[jr.Slot].Connected {
		t.Fatalf("reconnected player not marked connected")
	}
}

func TestGame_FullGameRejectsNewJoin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := NewGame(ctx, testConfig(2))
	_, _ = join(t, g, "c1", "", 8)
	_, _ = join(t, g, "c2", "", 8)

	reply := make(chan JoinReply, 1)
	out := make(chan OutMsg, 1)
	g.Inbox() <- Join{ClientID: "c3", Outbox: out, Reply: reply}
	jr := <-reply
	if jr.Err != ErrGameFull {
		t.Fatalf("want ErrGameFull, got %v", jr.Err)
	}
}

func TestGame_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := NewGame(ctx, testConfig(2))
	_, jr1 := join(t, g, "c1", "", 1) // buffer of one fills on the join broadcast
	_, _ = join(t, g, "c2", "", 8)

	v := view(t, g)
	if v.NumClients != 1 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", v.NumClients)
	}
	if v.State.Players[jr1.Slot].Connected {
		t.Fatalf("dropped client's seat must read disconnected")
	}

	// The ws layer still sends a Leave for the dead connection later; it must be a
	// no-op, not flip the seat back.
	g.Inbox() <- Leave{ClientID: "c1"}
	v = view(t, g)
	if v.State.Players[jr1.Slot].Connected {
		t.Fatalf("stale leave changed a dropped seat")
	}
	if v.NumClients != 1 {
		t.Fatalf("stale leave touched the client map; NumClients=%d", v.NumClients)
	}
}

func TestGame_IdleTeardownFiresOnIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	removed := make(chan struct{}, 1)
	cfg := testConfig(2)
	cfg.IdleAfter = 30 * time.Millisecond
	cfg.OnIdle = func() { removed <- struct{}{} }

	g, _ := NewGame(ctx, cfg)
	out, _ := join(t, g, "c1", "", 8)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	g.Inbox() <- Leave{ClientID: "c1"}

	select {
	case <-removed:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("idle teardown never fired")
	}
}
