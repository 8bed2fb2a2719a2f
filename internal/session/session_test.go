package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/operatingdev/mintyouragent-skill/internal/fair"
)

func mustCards(t *testing.T, ss ...string) []fair.Card {
	t.Helper()
	cards, err := fair.ParseCards(ss)
	require.NoError(t, err)
	return cards
}

func newActiveSession(t *testing.T) *Session {
	t.Helper()
	s := New("game-1", "myaddr", 1000, 10, nil)
	require.NoError(t, s.Apply(Event{Type: EventJoin, Seat: 1, Amount: 1000}))
	require.Equal(t, StateActive, s.State)
	require.Equal(t, StreetPreFlop, s.Street)
	require.Equal(t, 0, s.TurnSeat)
	return s
}

func TestNewStartsWaiting(t *testing.T) {
	s := New("game-1", "myaddr", 1000, 10, nil)
	require.Equal(t, StateWaiting, s.State)
	require.False(t, s.Desynced())
	require.Nil(t, s.LegalActions())
}

func TestRaiseInWaitingIsProtocolViolation(t *testing.T) {
	s := New("game-1", "myaddr", 1000, 10, nil)

	err := s.Apply(Event{Type: EventRaise, Seat: 1, Amount: 50})
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
	require.Equal(t, StateWaiting, pv.State)
	require.Equal(t, EventRaise, pv.Event)

	// State unchanged, session frozen.
	require.Equal(t, StateWaiting, s.State)
	require.True(t, s.Desynced())

	err = s.Apply(Event{Type: EventJoin, Seat: 1, Amount: 1000})
	require.ErrorAs(t, err, &pv)
	require.Equal(t, StateWaiting, s.State)
}

func TestCancelFromWaiting(t *testing.T) {
	s := New("game-1", "myaddr", 1000, 10, nil)
	require.NoError(t, s.Apply(Event{Type: EventCancel}))
	require.Equal(t, StateCancelled, s.State)

	// Terminal: nothing further is accepted.
	err := s.Apply(Event{Type: EventJoin, Seat: 1, Amount: 1000})
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
	require.Equal(t, StateCancelled, s.State)
}

func TestRaiseCallSweepsIntoPot(t *testing.T) {
	s := newActiveSession(t)

	require.NoError(t, s.Apply(Event{Type: EventRaise, Seat: 0, Amount: 50}))
	require.Equal(t, uint64(950), s.Seats[0].Stack)
	require.Equal(t, uint64(50), s.BetTo)
	require.Equal(t, 1, s.TurnSeat)

	require.NoError(t, s.Apply(Event{Type: EventCall, Seat: 1}))
	require.Equal(t, uint64(950), s.Seats[1].Stack)

	require.NoError(t, s.Apply(Event{
		Type: EventStreetAdvance, Street: StreetFlop,
		Cards: mustCards(t, "2c", "7d", "9h"),
	}))
	require.Equal(t, StreetFlop, s.Street)
	require.Equal(t, uint64(100), s.Pot)
	require.Equal(t, uint64(0), s.BetTo)
	require.Len(t, s.Board, 3)
}

func TestCheckWhileFacingBetIsViolation(t *testing.T) {
	s := newActiveSession(t)
	require.NoError(t, s.Apply(Event{Type: EventRaise, Seat: 0, Amount: 50}))

	err := s.Apply(Event{Type: EventCheck, Seat: 1})
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
	require.True(t, s.Desynced())
	// The rejected check mutated nothing.
	require.Equal(t, uint64(1000), s.Seats[1].Stack)
	require.Equal(t, uint64(50), s.BetTo)
}

func TestRaiseBelowMinimumIsViolation(t *testing.T) {
	s := newActiveSession(t)
	require.NoError(t, s.Apply(Event{Type: EventRaise, Seat: 0, Amount: 50}))

	// Last raise was 50, so the minimum re-raise is to 100.
	err := s.Apply(Event{Type: EventRaise, Seat: 1, Amount: 60})
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
}

func TestAllInShortRaiseIsAccepted(t *testing.T) {
	s := New("game-1", "myaddr", 1000, 10, nil)
	require.NoError(t, s.Apply(Event{Type: EventJoin, Seat: 1, Amount: 70}))
	require.NoError(t, s.Apply(Event{Type: EventRaise, Seat: 0, Amount: 50}))

	// Seat 1 shoves for less than a full raise.
	require.NoError(t, s.Apply(Event{Type: EventRaise, Seat: 1, Amount: 70}))
	require.Equal(t, uint64(0), s.Seats[1].Stack)
	require.Equal(t, uint64(70), s.BetTo)
}

func TestOutOfTurnIsViolation(t *testing.T) {
	s := newActiveSession(t)
	err := s.Apply(Event{Type: EventCheck, Seat: 1})
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
}

func TestOutOfOrderStreetIsViolation(t *testing.T) {
	s := newActiveSession(t)
	err := s.Apply(Event{
		Type: EventStreetAdvance, Street: StreetTurn,
		Cards: mustCards(t, "2c"),
	})
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
	require.Equal(t, StreetPreFlop, s.Street)
}

func TestServerVersionMustIncrease(t *testing.T) {
	s := New("game-1", "myaddr", 1000, 10, nil)
	require.NoError(t, s.Apply(Event{Type: EventJoin, Seat: 1, Amount: 1000, ServerVersion: 5}))
	require.Equal(t, uint64(5), s.LastKnownServerVersion())

	err := s.Apply(Event{Type: EventCheck, Seat: 0, ServerVersion: 5})
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
}

func TestFoldAwardsEverything(t *testing.T) {
	s := newActiveSession(t)
	require.NoError(t, s.Apply(Event{Type: EventRaise, Seat: 0, Amount: 50}))
	require.NoError(t, s.Apply(Event{Type: EventFold, Seat: 1}))

	require.Equal(t, StateSettled, s.State)
	require.Equal(t, uint64(1050), s.Seats[0].Stack)
	require.Equal(t, uint64(1000), s.Seats[1].Stack)
	require.Equal(t, uint64(0), s.Pot)
}

func advanceToRiver(t *testing.T, s *Session, flop, turn, river []fair.Card) {
	t.Helper()
	for _, step := range []struct {
		street Street
		cards  []fair.Card
	}{
		{StreetFlop, flop},
		{StreetTurn, turn},
		{StreetRiver, river},
	} {
		require.NoError(t, s.Apply(Event{Type: EventCheck, Seat: 0}))
		require.NoError(t, s.Apply(Event{Type: EventCheck, Seat: 1}))
		require.NoError(t, s.Apply(Event{Type: EventStreetAdvance, Street: step.street, Cards: step.cards}))
	}
}

func TestShowdownSettlesToEvaluatedWinner(t *testing.T) {
	s := newActiveSession(t)
	advanceToRiver(t, s,
		mustCards(t, "2c", "7d", "9h"),
		mustCards(t, "Js"),
		mustCards(t, "Kd"),
	)

	require.NoError(t, s.Apply(Event{Type: EventShowdownReveal, Seat: 0, Cards: mustCards(t, "Ah", "Ad")}))
	require.Equal(t, StateShowdown, s.State)
	require.NoError(t, s.Apply(Event{Type: EventShowdownReveal, Seat: 1, Cards: mustCards(t, "Qh", "Qs")}))

	winner, err := s.ExpectedWinner()
	require.NoError(t, err)
	require.Equal(t, 0, winner)

	require.NoError(t, s.Apply(Event{Type: EventSettle, WinnerSeat: 0}))
	require.Equal(t, StateSettled, s.State)
}

func TestSettlementDisagreementIsViolation(t *testing.T) {
	s := newActiveSession(t)
	advanceToRiver(t, s,
		mustCards(t, "2c", "7d", "9h"),
		mustCards(t, "Js"),
		mustCards(t, "Kd"),
	)
	require.NoError(t, s.Apply(Event{Type: EventShowdownReveal, Seat: 0, Cards: mustCards(t, "Ah", "Ad")}))
	require.NoError(t, s.Apply(Event{Type: EventShowdownReveal, Seat: 1, Cards: mustCards(t, "Qh", "Qs")}))

	// Server names the losing seat.
	err := s.Apply(Event{Type: EventSettle, WinnerSeat: 1})
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
	require.Equal(t, StateShowdown, s.State)
	require.True(t, s.Desynced())
}

func TestExpectedWinnerSplitPot(t *testing.T) {
	s := newActiveSession(t)
	advanceToRiver(t, s,
		mustCards(t, "2c", "3d", "4h"),
		mustCards(t, "5s"),
		mustCards(t, "6d"),
	)
	require.NoError(t, s.Apply(Event{Type: EventShowdownReveal, Seat: 0, Cards: mustCards(t, "Ah", "Kd")}))
	require.NoError(t, s.Apply(Event{Type: EventShowdownReveal, Seat: 1, Cards: mustCards(t, "Ac", "Ks")}))

	// Both seats play the board straight.
	winner, err := s.ExpectedWinner()
	require.NoError(t, err)
	require.Equal(t, -1, winner)

	require.NoError(t, s.Apply(Event{Type: EventSettle, WinnerSeat: -1}))
	require.Equal(t, StateSettled, s.State)
}

func TestLegalActionsFacingNoBet(t *testing.T) {
	s := newActiveSession(t)
	actions := s.LegalActions()
	require.Len(t, actions, 3)
	require.Equal(t, ActionFold, actions[0].Type)
	require.Equal(t, ActionCheck, actions[1].Type)
	require.Equal(t, ActionRaise, actions[2].Type)
	require.Equal(t, uint64(10), actions[2].Min) // one big blind
	require.Equal(t, uint64(1000), actions[2].Max)
}

func TestLegalActionsFacingBet(t *testing.T) {
	s := New("game-1", "myaddr", 1000, 10, nil)
	require.NoError(t, s.Apply(Event{Type: EventJoin, Seat: 1, Amount: 1000}))
	require.NoError(t, s.Apply(Event{Type: EventRaise, Seat: 0, Amount: 50}))

	// Flip perspective: pretend seat 1 is ours.
	s.OurSeat = 1
	actions := s.LegalActions()
	require.Len(t, actions, 3)
	require.Equal(t, ActionFold, actions[0].Type)
	require.Equal(t, ActionCall, actions[1].Type)
	require.Equal(t, uint64(50), actions[1].Min)
	require.Equal(t, ActionRaise, actions[2].Type)
	require.Equal(t, uint64(100), actions[2].Min)
	require.Equal(t, uint64(1000), actions[2].Max)
}

func TestLegalActionsNilWhenNotOurTurn(t *testing.T) {
	s := newActiveSession(t)
	require.NoError(t, s.Apply(Event{Type: EventCheck, Seat: 0}))
	require.Nil(t, s.LegalActions())
}

func TestLegalActionsNilWhenDesynced(t *testing.T) {
	s := newActiveSession(t)
	_ = s.Apply(Event{Type: EventCheck, Seat: 1}) // out of turn, desyncs
	require.True(t, s.Desynced())
	require.Nil(t, s.LegalActions())
}
