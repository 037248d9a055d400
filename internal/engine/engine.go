package engine

import "errors"

var ErrNotPlaying = errors.New("game is not in play")
var ErrNotYourTurn = errors.New("not your turn")
var ErrUnknownCard = errors.New("unknown card")
var ErrCardMatched = errors.New("card already matched")
var ErrCardFaceUp = errors.New("card already face up")
var ErrBoardLocked = errors.New("board locked while resolving")
var ErrNotResolving = errors.New("nothing to resolve")
var ErrUnknownSlot = errors.New("unknown slot")
var ErrUnsupportedCommand = errors.New("unsupported command")

type CommandType string

const (
	CmdJoin    CommandType = "Join"
	CmdLeave   CommandType = "Leave"
	CmdFlip    CommandType = "Flip"
	CmdResolve CommandType = "Resolve"
	CmdReset   CommandType = "Reset"
)

type Command struct {
	Type   CommandType
	Slot   int
	CardID int
	Cards  []Card // CmdReset only: the freshly generated board
}

type EventType string

const (
	EvtPlayerJoined   EventType = "PlayerJoined"
	EvtPlayerLeft     EventType = "PlayerLeft"
	EvtGameStarted    EventType = "GameStarted"
	EvtCardFlipped    EventType = "CardFlipped"
	EvtPairMatched    EventType = "PairMatched"
	EvtPairMismatched EventType = "PairMismatched"
	EvtTurnAdvanced   EventType = "TurnAdvanced"
	EvtGameWon        EventType = "GameWon"
	EvtBoardReset     EventType = "BoardReset"
)

type Event struct {
	Type   EventType
	Slot   int
	CardID int
}

/*
	CmdFlip    -> EvtCardFlipped, then on a second card either
	              EvtPairMatched (+EvtGameWon when the board is cleared) or
	              EvtPairMismatched (caller schedules CmdResolve after the reveal delay)
	CmdResolve -> EvtTurnAdvanced
	CmdReset   -> EvtBoardReset (cancels any pending resolve at the caller)
	CmdJoin    -> EvtPlayerJoined (+EvtGameStarted once every seat is taken)
	CmdLeave   -> EvtPlayerLeft (never advances or ends the game)
*/

// Apply is the single state-transition function. It never mutates s; on error the
// returned state is s unchanged and no events are emitted.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdFlip:
		return applyFlip(s, cmd)

	case CmdResolve:
		if s.Status != StatusResolving {
			return nil, s, ErrNotResolving
		}
		ns := s.clone()
		for _, id := range ns.Flipped {
			ns.setFaceUp(ns.cardIndex(id), false)
		}
		ns.Flipped = ns.Flipped[:0]
		ns.advanceTurn()
		ns.Status = StatusPlaying
		return []Event{{Type: EvtTurnAdvanced, Slot: ns.Active}}, ns, nil

	case CmdReset:
		ns := s.clone()
		ns.Cards = append([]Card(nil), cmd.Cards...)
		for i := range ns.Players {
			ns.Players[i].Score = 0
		}
		ns.Flipped = ns.Flipped[:0]
		ns.Active = 0
		if ns.seatedCount() < len(ns.Players) {
			ns.Status = StatusWaiting
		} else {
			ns.Status = StatusPlaying
		}
		return []Event{{Type: EvtBoardReset}}, ns, nil

	case CmdJoin:
		if cmd.Slot < 0 || cmd.Slot >= len(s.Players) {
			return nil, s, ErrUnknownSlot
		}
		ns := s.clone()
		ns.Players[cmd.Slot].Connected = true
		events := []Event{{Type: EvtPlayerJoined, Slot: cmd.Slot}}
		if !ns.Players[cmd.Slot].Seated {
			ns.Players[cmd.Slot].Seated = true
			if ns.Status == StatusWaiting && ns.seatedCount() == len(ns.Players) {
				ns.Status = StatusPlaying
				events = append(events, Event{Type: EvtGameStarted})
			}
		}
		return events, ns, nil

	case CmdLeave:
		if cmd.Slot < 0 || cmd.Slot >= len(s.Players) {
			return nil, s, ErrUnknownSlot
		}
		ns := s.clone()
		ns.Players[cmd.Slot].Connected = false
		return []Event{{Type: EvtPlayerLeft, Slot: cmd.Slot}}, ns, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyFlip(s State, cmd Command) ([]Event, State, error) {
	if s.Status == StatusResolving {
		return nil, s, ErrBoardLocked
	}
	if s.Status != StatusPlaying {
		return nil, s, ErrNotPlaying
	}
	if cmd.Slot != s.Active {
		return nil, s, ErrNotYourTurn
	}
	i := s.cardIndex(cmd.CardID)
	if i < 0 {
		return nil, s, ErrUnknownCard
	}
	if s.Cards[i].Matched {
		return nil, s, ErrCardMatched
	}
	if s.Cards[i].FaceUp {
		return nil, s, ErrCardFaceUp
	}
	// Unreachable outside StatusResolving, but cheap to keep the invariant explicit.
	if len(s.Flipped) >= 2 {
		return nil, s, ErrBoardLocked
	}

	ns := s.clone()
	ns.setFaceUp(ns.cardIndex(cmd.CardID), true)
	ns.Flipped = append(ns.Flipped, cmd.CardID)
	events := []Event{{Type: EvtCardFlipped, Slot: cmd.Slot, CardID: cmd.CardID}}

	if len(ns.Flipped) < 2 {
		// First of the pair: same player flips again.
		return events, ns, nil
	}

	a := ns.cardIndex(ns.Flipped[0])
	b := ns.cardIndex(ns.Flipped[1])
	if ns.Cards[a].Value == ns.Cards[b].Value {
		ns.setMatched(a)
		ns.setMatched(b)
		ns.addScore(ns.Active, 1)
		ns.Flipped = ns.Flipped[:0]
		events = append(events, Event{Type: EvtPairMatched, Slot: ns.Active})
		// Match keeps the turn; Active does not move.
		if ns.allMatched() {
			ns.Status = StatusWon
			events = append(events, Event{Type: EvtGameWon})
		}
		return events, ns, nil
	}

	// Both cards stay revealed until the resolve delay fires.
	ns.Status = StatusResolving
	events = append(events, Event{Type: EvtPairMismatched, Slot: ns.Active})
	return events, ns, nil
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
