package game

import (
	"github.com/cardmatch/memory-backend/internal/engine"
)

type Msg interface{ isGameMsg() }

// Join binds a connection to a seat. A previously issued Token rebinds its original
// slot (reconnect); an empty or unknown token claims the next free seat.
type Join struct {
	ClientID string
	Token    string
	Outbox   chan OutMsg
	Reply    chan JoinReply
}

type JoinReply struct {
	Slot  int
	Token string
	Err   error
}

type Leave struct{ ClientID string }

type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

// GetState is test-only: reflect internal state without data races.
type GetState struct {
	Reply chan View
}

type Shutdown struct{}

// Timer self-messages. The generation guards against a stale fire mutating a board
// that was reset or torn down after the timer was armed.
type resolveFired struct{ gen int }
type idleFired struct{ gen int }

func (Join) isGameMsg()         {}
func (Leave) isGameMsg()        {}
func (FromClient) isGameMsg()   {}
func (GetState) isGameMsg()     {}
func (Shutdown) isGameMsg()     {}
func (resolveFired) isGameMsg() {}
func (idleFired) isGameMsg()    {}

// OutMsg is what a connected client receives on its outbox: either a fresh redacted
// snapshot (broadcast to everyone) or a Fault addressed to that client alone.
type OutMsg interface{ isOutMsg() }

type Snapshot struct {
	Version int
	GameID  string
	State   engine.StateView
}

type Fault struct {
	Kind    string
	Message string
}

func (Snapshot) isOutMsg() {}
func (Fault) isOutMsg()    {}

// Wire error kinds, shared by every layer that reports to a client.
const (
	KindConfiguration = "configuration"
	KindInvalidMove   = "invalid_move"
	KindNotFound      = "not_found"
	KindCapacity      = "capacity"
	KindProtocol      = "protocol"
)

type View struct {
	Version    int
	NumClients int
	State      engine.State
}
