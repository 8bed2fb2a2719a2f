// Package watch runs the polling loop for one game: fetch the snapshot,
// apply server events to the local session mirror, act when it is our turn,
// sleep. One goroutine, no shared state.
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/decred/slog"

	"github.com/operatingdev/mintyouragent-skill/internal/audit"
	"github.com/operatingdev/mintyouragent-skill/internal/fair"
	"github.com/operatingdev/mintyouragent-skill/internal/pokerapi"
	"github.com/operatingdev/mintyouragent-skill/internal/session"
)

// API is the slice of the poker client the watcher consumes.
type API interface {
	Game(ctx context.Context, gameID, wallet string) (pokerapi.GameView, error)
	GameActions(ctx context.Context, gameID string) ([]pokerapi.ActionRecord, error)
	PostAction(ctx context.Context, auth pokerapi.Auth, gameID, action string, amountLamports uint64) (pokerapi.ActionResult, error)
}

// AuthFunc signs a fresh ownership challenge for one action.
type AuthFunc func(action string) (pokerapi.Auth, error)

// Config wires a Watcher.
type Config struct {
	Wallet   string
	Interval time.Duration
	Decider  Decider
	Auth     AuthFunc
	Audit    *audit.Log
	Log      slog.Logger

	// OnUpdate is called once per poll with the fresh snapshot. Optional.
	OnUpdate func(view pokerapi.GameView)
}

type Watcher struct {
	api      API
	cfg      Config
	log      slog.Logger
	sess     *session.Session
	applied  int // action records already fed to the session
	p1Wallet string
}

func New(api API, cfg Config) *Watcher {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Decider == nil {
		cfg.Decider = Heuristic{}
	}
	return &Watcher{api: api, cfg: cfg, log: cfg.Log}
}

// Session exposes the local mirror, mainly for inspection after Run returns.
func (w *Watcher) Session() *session.Session { return w.sess }

// Run polls until the game completes or ctx is cancelled. Cancellation is
// honored between cycles: an in-flight cycle always finishes so a posted
// action is never abandoned halfway.
func (w *Watcher) Run(ctx context.Context, gameID string) error {
	for {
		done, err := w.cycle(ctx, gameID)
		if err != nil {
			// Transport errors are logged and retried on the next poll; the
			// client already did its own bounded retries.
			var apiErr *pokerapi.APIError
			if errors.As(err, &apiErr) {
				return err
			}
			w.log.Warnf("watch %s: %v", gameID, err)
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.Interval):
		}
	}
}

func (w *Watcher) cycle(ctx context.Context, gameID string) (bool, error) {
	view, err := w.api.Game(ctx, gameID, w.cfg.Wallet)
	if err != nil {
		return false, err
	}
	if w.cfg.OnUpdate != nil {
		w.cfg.OnUpdate(view)
	}

	if view.Status == "active" || view.Status == "completed" {
		w.syncSession(ctx, gameID, view)
	}

	if view.Status == "completed" {
		w.cfg.Audit.Append("poker.watch", "completed", map[string]string{"gameId": gameID})
		return true, nil
	}
	if view.Status == "cancelled" {
		return true, nil
	}

	if view.YourTurn && view.Status == "active" {
		if w.sess != nil && w.sess.Desynced() {
			w.log.Warnf("watch %s: session desynced, not acting", gameID)
			return false, nil
		}
		if err := w.act(ctx, gameID, view); err != nil {
			return false, err
		}
	}
	return false, nil
}

// syncSession folds fresh server history into the local mirror. A failed
// apply marks the session desynced; watching continues, acting stops.
func (w *Watcher) syncSession(ctx context.Context, gameID string, view pokerapi.GameView) {
	if w.sess == nil {
		w.initSession(gameID, view)
	}
	if w.sess == nil || w.sess.Desynced() {
		return
	}

	board, err := fair.ParseCards(view.CommunityCards)
	if err != nil {
		w.log.Debugf("watch %s: bad community cards: %v", gameID, err)
		return
	}

	records, err := w.api.GameActions(ctx, gameID)
	if err != nil {
		w.log.Debugf("watch %s: action history fetch failed: %v", gameID, err)
		return
	}
	for ; w.applied < len(records); w.applied++ {
		rec := records[w.applied]
		// Each record names its betting round; advance the mirror street by
		// street before replaying it.
		w.advanceTo(session.Street(rec.BettingRound), board)
		if w.sess.Desynced() {
			return
		}
		ev, ok := w.translate(rec)
		if !ok {
			continue
		}
		if err := w.sess.Apply(ev); err != nil {
			w.log.Warnf("watch %s: %v", gameID, err)
			return
		}
	}
	w.advanceTo(session.Street(view.BettingRound), board)
}

func (w *Watcher) initSession(gameID string, view pokerapi.GameView) {
	if view.Player1 == nil || view.Player2 == nil {
		return
	}
	stack := view.Player1Chips
	if stack == 0 {
		stack = view.BuyInLamports
	}
	sess := session.New(gameID, view.Player1.Wallet, stack, minRaiseLamports, w.log)
	if view.Player2.Wallet == w.cfg.Wallet {
		sess.OurSeat = 1
	}
	w.p1Wallet = view.Player1.Wallet

	opp := view.Player2Chips
	if opp == 0 {
		opp = view.BuyInLamports
	}
	if err := sess.Apply(session.Event{Type: session.EventJoin, Seat: 1, Amount: opp}); err != nil {
		w.log.Warnf("watch %s: %v", gameID, err)
	}
	w.sess = sess
}

// streetOrder maps each street to its position and cumulative board size.
var streetOrder = []session.Street{session.StreetPreFlop, session.StreetFlop, session.StreetTurn, session.StreetRiver}
var boardCounts = []int{0, 3, 4, 5}

func streetPos(st session.Street) int {
	for i, o := range streetOrder {
		if o == st {
			return i
		}
	}
	return -1
}

// advanceTo walks the mirror forward to the target street, feeding the newly
// revealed board cards one street at a time.
func (w *Watcher) advanceTo(target session.Street, board []fair.Card) {
	tp := streetPos(target)
	if tp < 0 {
		return
	}
	for cur := streetPos(w.sess.Street); cur >= 0 && cur < tp; cur = streetPos(w.sess.Street) {
		if len(board) < boardCounts[cur+1] {
			return // server has not shown the cards yet
		}
		ev := session.Event{
			Type:   session.EventStreetAdvance,
			Street: streetOrder[cur+1],
			Cards:  board[boardCounts[cur]:boardCounts[cur+1]],
		}
		if err := w.sess.Apply(ev); err != nil {
			return
		}
	}
}

// translate maps one server action record onto a session event. Unknown
// action kinds are skipped rather than guessed at.
func (w *Watcher) translate(rec pokerapi.ActionRecord) (session.Event, bool) {
	seat := 0
	if rec.Player == nil {
		return session.Event{}, false
	}
	if rec.Player.Wallet != w.p1Wallet {
		seat = 1
	}
	switch rec.Action {
	case "fold":
		return session.Event{Type: session.EventFold, Seat: seat}, true
	case "check":
		return session.Event{Type: session.EventCheck, Seat: seat}, true
	case "call":
		return session.Event{Type: session.EventCall, Seat: seat}, true
	case "raise":
		return session.Event{Type: session.EventRaise, Seat: seat, Amount: rec.Amount}, true
	default:
		return session.Event{}, false
	}
}

// act asks the decider for a move, filters it through the locally legal set,
// and posts it.
func (w *Watcher) act(ctx context.Context, gameID string, view pokerapi.GameView) error {
	d := w.cfg.Decider.Decide(view)
	action, amount := w.filter(d)
	if action == "" {
		return nil
	}
	w.log.Infof("game %s: %s (%s)", gameID, action, d.Reasoning)

	auth, err := w.cfg.Auth("poker-" + action)
	if err != nil {
		return err
	}
	_, err = w.api.PostAction(ctx, auth, gameID, action, amount)
	if err != nil {
		w.cfg.Audit.Append("poker.action", "error", map[string]string{
			"gameId": gameID, "action": action, "error": err.Error(),
		})
		return err
	}
	w.cfg.Audit.Append("poker.action", "ok", map[string]string{"gameId": gameID, "action": action})
	return nil
}

// filter downgrades a decision the mirror considers illegal: raise falls back
// to call, call to check, never the other way. Without a mirror the decision
// passes through and the server has the last word.
func (w *Watcher) filter(d Decision) (string, uint64) {
	if w.sess == nil {
		return d.Action, d.AmountLam
	}
	legal := w.sess.LegalActions()
	if len(legal) == 0 {
		return d.Action, d.AmountLam
	}
	has := func(t session.ActionType) bool {
		for _, a := range legal {
			if a.Type == t {
				return true
			}
		}
		return false
	}
	switch d.Action {
	case "raise":
		if has(session.ActionRaise) {
			return "raise", d.AmountLam
		}
		fallthrough
	case "call":
		if has(session.ActionCall) {
			return "call", 0
		}
		fallthrough
	case "check":
		if has(session.ActionCheck) {
			return "check", 0
		}
		return "fold", 0
	default:
		return d.Action, d.AmountLam
	}
}
