package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/operatingdev/mintyouragent-skill/internal/pokerapi"
	"github.com/operatingdev/mintyouragent-skill/internal/session"
)

type fakeAPI struct {
	mu      sync.Mutex
	views   []pokerapi.GameView
	idx     int
	actions []pokerapi.ActionRecord

	posted        []string
	postedAmounts []uint64
	authActions   []string
}

func (f *fakeAPI) Game(ctx context.Context, gameID, wallet string) (pokerapi.GameView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.views[f.idx]
	if f.idx < len(f.views)-1 {
		f.idx++
	}
	return v, nil
}

func (f *fakeAPI) GameActions(ctx context.Context, gameID string) ([]pokerapi.ActionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.actions, nil
}

func (f *fakeAPI) PostAction(ctx context.Context, auth pokerapi.Auth, gameID, action string, amount uint64) (pokerapi.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, action)
	f.postedAmounts = append(f.postedAmounts, amount)
	return pokerapi.ActionResult{}, nil
}

type fixedDecider struct{ d Decision }

func (f fixedDecider) Decide(pokerapi.GameView) Decision { return f.d }

func baseView(status string, yourTurn bool) pokerapi.GameView {
	return pokerapi.GameView{
		ID:           "g1",
		Status:       status,
		BettingRound: "preflop",
		YourTurn:     yourTurn,
		Player1:      &pokerapi.Player{Wallet: "wallet1"},
		Player2:      &pokerapi.Player{Wallet: "wallet2"},
		Player1Chips: 1_000_000_000,
		Player2Chips: 1_000_000_000,
		YourChips:    1_000_000_000,
	}
}

func newTestWatcher(api API, decider Decider) (*Watcher, *fakeAPI) {
	f, _ := api.(*fakeAPI)
	w := New(api, Config{
		Wallet:   "wallet1",
		Interval: time.Millisecond,
		Decider:  decider,
		Auth: func(action string) (pokerapi.Auth, error) {
			if f != nil {
				f.authActions = append(f.authActions, action)
			}
			return pokerapi.Auth{WalletAddress: "wallet1"}, nil
		},
	})
	return w, f
}

func TestActsOnOurTurnThenStopsWhenCompleted(t *testing.T) {
	api := &fakeAPI{views: []pokerapi.GameView{
		baseView("active", true),
		baseView("completed", false),
	}}
	w, _ := newTestWatcher(api, fixedDecider{Decision{Action: "check"}})

	err := w.Run(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, []string{"check"}, api.posted)
	require.Equal(t, []string{"poker-check"}, api.authActions)
}

func TestContextCancellationStopsLoop(t *testing.T) {
	api := &fakeAPI{views: []pokerapi.GameView{baseView("active", false)}}
	w, _ := newTestWatcher(api, Heuristic{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, "g1") }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
	require.Empty(t, api.posted)
}

func TestSessionMirrorsActionHistory(t *testing.T) {
	view := baseView("active", false)
	view.BettingRound = "flop"
	view.CommunityCards = []string{"2c", "7d", "9h"}
	done := baseView("completed", false)
	done.BettingRound = "flop"
	done.CommunityCards = view.CommunityCards

	api := &fakeAPI{
		views: []pokerapi.GameView{view, done},
		actions: []pokerapi.ActionRecord{
			{Player: &pokerapi.Player{Wallet: "wallet1"}, Action: "raise", Amount: 50_000_000, BettingRound: "preflop"},
			{Player: &pokerapi.Player{Wallet: "wallet2"}, Action: "call", BettingRound: "preflop"},
		},
	}
	w, _ := newTestWatcher(api, Heuristic{})
	require.NoError(t, w.Run(context.Background(), "g1"))

	sess := w.Session()
	require.NotNil(t, sess)
	require.False(t, sess.Desynced())
	require.Equal(t, session.StreetFlop, sess.Street)
	require.Equal(t, uint64(100_000_000), sess.Pot)
}

func TestDesyncedSessionStopsAutoPlay(t *testing.T) {
	view := baseView("active", true)
	api := &fakeAPI{
		views: []pokerapi.GameView{view, baseView("completed", false)},
		actions: []pokerapi.ActionRecord{
			// Out-of-turn action: seat 1 moves first.
			{Player: &pokerapi.Player{Wallet: "wallet2"}, Action: "check", BettingRound: "preflop"},
		},
	}
	w, _ := newTestWatcher(api, fixedDecider{Decision{Action: "check"}})
	require.NoError(t, w.Run(context.Background(), "g1"))

	require.True(t, w.Session().Desynced())
	require.Empty(t, api.posted)
}

func TestFilterDowngradesToLegalAction(t *testing.T) {
	api := &fakeAPI{views: []pokerapi.GameView{baseView("active", false)}}
	w, _ := newTestWatcher(api, Heuristic{})

	sess := session.New("g1", "wallet1", 1000, 10, nil)
	require.NoError(t, sess.Apply(session.Event{Type: session.EventJoin, Seat: 1, Amount: 1000}))
	w.sess = sess

	// Facing no bet, a call downgrades to check.
	action, amount := w.filter(Decision{Action: "call"})
	require.Equal(t, "check", action)
	require.Zero(t, amount)

	// A raise stays a raise while legal.
	action, _ = w.filter(Decision{Action: "raise", AmountLam: 100})
	require.Equal(t, "raise", action)
}

func TestHeuristicDecisions(t *testing.T) {
	// Pocket pair, no bet to match: raise.
	view := baseView("active", true)
	view.YourHand = []string{"Ah", "Ad"}
	view.Pot = 100_000_000
	d := Heuristic{}.Decide(view)
	require.Equal(t, "raise", d.Action)
	require.NotZero(t, d.AmountLam)

	// Weak offsuit hand facing a large bet: fold.
	view = baseView("active", true)
	view.YourHand = []string{"2h", "7d"}
	view.Pot = 10_000_000
	view.CurrentBet = 500_000_000
	d = Heuristic{}.Decide(view)
	require.Equal(t, "fold", d.Action)

	// Nothing to call, weak hand: check.
	view = baseView("active", true)
	view.YourHand = []string{"2h", "7d"}
	d = Heuristic{}.Decide(view)
	require.Equal(t, "check", d.Action)
}
