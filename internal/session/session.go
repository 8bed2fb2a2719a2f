// Package session tracks a single heads-up game's lifecycle client-side.
// The server is authoritative; this mirror exists to reject illegal-looking
// transitions before they are applied and to compute the locally-expected
// legal action set before a request is sent.
package session

import (
	"fmt"

	"github.com/decred/slog"

	"github.com/operatingdev/mintyouragent-skill/internal/fair"
)

type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateShowdown  State = "showdown"
	StateSettled   State = "settled"
	StateCancelled State = "cancelled"
)

type Street string

const (
	StreetPreFlop Street = "preflop"
	StreetFlop    Street = "flop"
	StreetTurn    Street = "turn"
	StreetRiver   Street = "river"
)

type EventType string

const (
	EventJoin           EventType = "join"
	EventFold           EventType = "fold"
	EventCheck          EventType = "check"
	EventCall           EventType = "call"
	EventRaise          EventType = "raise"
	EventStreetAdvance  EventType = "street_advance"
	EventShowdownReveal EventType = "showdown_reveal"
	EventSettle         EventType = "settle"
	EventCancel         EventType = "cancel"
)

// Event is one server-reported game event, already translated into the typed
// contract at the network boundary.
type Event struct {
	Type          EventType
	Seat          int // acting seat for player events; revealed seat for showdown
	Amount        uint64
	Street        Street      // target street for EventStreetAdvance
	Cards         []fair.Card // board cards revealed / hole cards shown
	WinnerSeat    int         // EventSettle; -1 for split
	ServerVersion uint64
}

// ProtocolViolation reports a server event outside the current state's legal
// set, or one whose payload contradicts the tracked betting state. The event
// is never applied; the session is marked desynced.
type ProtocolViolation struct {
	State  State
	Event  EventType
	Detail string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation in state %q: event %q: %s", e.State, e.Event, e.Detail)
}

// Seat is one of the two players.
type Seat struct {
	Address      string
	Stack        uint64
	StreetCommit uint64 // chips committed on the current street
	Folded       bool
	Hole         []fair.Card // empty until showdown reveal
}

// Session is owned by exactly one watch loop; no concurrent mutation.
type Session struct {
	GameID   string
	State    State
	Street   Street
	Seats    [2]Seat
	OurSeat  int
	TurnSeat int

	Pot      uint64
	BetTo    uint64 // street-level bet to match
	MinRaise uint64
	BigBlind uint64
	Board    []fair.Card

	lastVersion uint64
	desynced    bool

	log slog.Logger
}

// New starts a session in Waiting with our seat occupied.
func New(gameID, ourAddress string, stack, bigBlind uint64, log slog.Logger) *Session {
	if log == nil {
		log = slog.Disabled
	}
	s := &Session{
		GameID:   gameID,
		State:    StateWaiting,
		OurSeat:  0,
		TurnSeat: -1,
		BigBlind: bigBlind,
		MinRaise: bigBlind,
		log:      log,
	}
	s.Seats[0] = Seat{Address: ourAddress, Stack: stack}
	return s
}

// Desynced reports whether a protocol violation froze this session. No
// further client actions are auto-sent once set.
func (s *Session) Desynced() bool { return s.desynced }

func (s *Session) violation(ev Event, format string, args ...any) error {
	v := &ProtocolViolation{State: s.State, Event: ev.Type, Detail: fmt.Sprintf(format, args...)}
	s.desynced = true
	s.log.Warnf("game %s: %v", s.GameID, v)
	return v
}

// legalEvents is the per-state legal-event set. An incoming event outside
// this set is a ProtocolViolation regardless of payload.
var legalEvents = map[State]map[EventType]bool{
	StateWaiting: {
		EventJoin:   true,
		EventCancel: true,
	},
	StateActive: {
		EventFold:           true,
		EventCheck:          true,
		EventCall:           true,
		EventRaise:          true,
		EventStreetAdvance:  true,
		EventShowdownReveal: true,
	},
	StateShowdown: {
		EventShowdownReveal: true, // second seat's reveal
		EventSettle:         true,
	},
	StateSettled:   {},
	StateCancelled: {},
}

func (s *Session) toCall(seat int) uint64 {
	if s.BetTo <= s.Seats[seat].StreetCommit {
		return 0
	}
	return s.BetTo - s.Seats[seat].StreetCommit
}

// Apply validates one server event against the current state and applies it.
// Validation happens fully before any mutation, so a rejected event leaves
// the session unchanged (apart from the desynced flag).
func (s *Session) Apply(ev Event) error {
	if s.desynced {
		return &ProtocolViolation{State: s.State, Event: ev.Type, Detail: "session is desynced; no further events accepted"}
	}
	if ev.ServerVersion != 0 {
		if ev.ServerVersion <= s.lastVersion {
			return s.violation(ev, "server version regressed: have %d, got %d", s.lastVersion, ev.ServerVersion)
		}
	}
	if !legalEvents[s.State][ev.Type] {
		return s.violation(ev, "event not in legal set for this state")
	}

	switch ev.Type {
	case EventJoin:
		if ev.Seat != 1 {
			return s.violation(ev, "join must fill seat 1, got seat %d", ev.Seat)
		}
		if s.Seats[1].Address != "" {
			return s.violation(ev, "seat 1 already occupied")
		}
		s.Seats[1] = Seat{Address: "", Stack: ev.Amount}
		s.State = StateActive
		s.Street = StreetPreFlop
		s.TurnSeat = 0
		s.MinRaise = s.BigBlind

	case EventCancel:
		s.State = StateCancelled
		s.TurnSeat = -1

	case EventFold:
		if err := s.checkActor(ev); err != nil {
			return err
		}
		winner := 1 - ev.Seat
		s.Seats[ev.Seat].Folded = true
		s.Seats[winner].Stack += s.Pot + s.Seats[0].StreetCommit + s.Seats[1].StreetCommit
		s.Pot = 0
		s.State = StateSettled
		s.TurnSeat = -1

	case EventCheck:
		if err := s.checkActor(ev); err != nil {
			return err
		}
		if need := s.toCall(ev.Seat); need != 0 {
			return s.violation(ev, "check while facing %d", need)
		}
		s.TurnSeat = 1 - ev.Seat

	case EventCall:
		if err := s.checkActor(ev); err != nil {
			return err
		}
		need := s.toCall(ev.Seat)
		if need == 0 {
			return s.violation(ev, "call while facing 0")
		}
		if need > s.Seats[ev.Seat].Stack {
			need = s.Seats[ev.Seat].Stack // all-in call
		}
		s.Seats[ev.Seat].Stack -= need
		s.Seats[ev.Seat].StreetCommit += need
		s.TurnSeat = 1 - ev.Seat

	case EventRaise:
		if err := s.checkActor(ev); err != nil {
			return err
		}
		seat := &s.Seats[ev.Seat]
		if ev.Amount <= s.BetTo {
			return s.violation(ev, "raise to %d does not exceed bet %d", ev.Amount, s.BetTo)
		}
		delta := ev.Amount - seat.StreetCommit
		if delta > seat.Stack {
			return s.violation(ev, "raise to %d exceeds stack", ev.Amount)
		}
		raiseSize := ev.Amount - s.BetTo
		allIn := delta == seat.Stack
		if raiseSize < s.MinRaise && !allIn {
			return s.violation(ev, "raise size %d below minimum %d", raiseSize, s.MinRaise)
		}
		seat.Stack -= delta
		seat.StreetCommit = ev.Amount
		if raiseSize >= s.MinRaise {
			s.MinRaise = raiseSize
		}
		s.BetTo = ev.Amount
		s.TurnSeat = 1 - ev.Seat

	case EventStreetAdvance:
		next, cards := nextStreet(s.Street)
		if next == "" {
			return s.violation(ev, "no street after %q", s.Street)
		}
		if ev.Street != next {
			return s.violation(ev, "expected advance to %q, got %q", next, ev.Street)
		}
		if len(ev.Cards) != cards {
			return s.violation(ev, "street %q reveals %d cards, got %d", next, cards, len(ev.Cards))
		}
		s.collectStreetBets()
		s.Street = next
		s.Board = append(s.Board, ev.Cards...)
		s.TurnSeat = 0

	case EventShowdownReveal:
		if s.State == StateActive && s.Street != StreetRiver {
			return s.violation(ev, "showdown before river (street %q)", s.Street)
		}
		if ev.Seat < 0 || ev.Seat > 1 {
			return s.violation(ev, "invalid seat %d", ev.Seat)
		}
		if len(ev.Cards) != 2 {
			return s.violation(ev, "showdown reveals 2 hole cards, got %d", len(ev.Cards))
		}
		if len(s.Seats[ev.Seat].Hole) != 0 {
			return s.violation(ev, "seat %d already revealed", ev.Seat)
		}
		if s.State == StateActive {
			s.collectStreetBets()
		}
		s.Seats[ev.Seat].Hole = append([]fair.Card(nil), ev.Cards...)
		s.State = StateShowdown
		s.TurnSeat = -1

	case EventSettle:
		if err := s.checkSettlement(ev); err != nil {
			return err
		}
		if ev.WinnerSeat >= 0 {
			s.Seats[ev.WinnerSeat].Stack += s.Pot
		} else {
			half := s.Pot / 2
			s.Seats[0].Stack += half
			s.Seats[1].Stack += s.Pot - half
		}
		s.Pot = 0
		s.State = StateSettled
		s.TurnSeat = -1
	}

	if ev.ServerVersion != 0 {
		s.lastVersion = ev.ServerVersion
	}
	return nil
}

func (s *Session) checkActor(ev Event) error {
	if ev.Seat != 0 && ev.Seat != 1 {
		return s.violation(ev, "invalid seat %d", ev.Seat)
	}
	if s.TurnSeat != ev.Seat {
		return s.violation(ev, "seat %d acted out of turn (turn is seat %d)", ev.Seat, s.TurnSeat)
	}
	if s.Seats[ev.Seat].Folded {
		return s.violation(ev, "folded seat %d acted", ev.Seat)
	}
	return nil
}

// collectStreetBets sweeps matched street commitments into the pot at a
// street boundary.
func (s *Session) collectStreetBets() {
	s.Pot += s.Seats[0].StreetCommit + s.Seats[1].StreetCommit
	s.Seats[0].StreetCommit = 0
	s.Seats[1].StreetCommit = 0
	s.BetTo = 0
	s.MinRaise = s.BigBlind
}

func nextStreet(cur Street) (Street, int) {
	switch cur {
	case StreetPreFlop:
		return StreetFlop, 3
	case StreetFlop:
		return StreetTurn, 1
	case StreetTurn:
		return StreetRiver, 1
	default:
		return "", 0
	}
}

// LastKnownServerVersion returns the highest applied server version.
func (s *Session) LastKnownServerVersion() uint64 { return s.lastVersion }
