package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/pterm/pterm"

	"github.com/operatingdev/mintyouragent-skill/internal/fair"
	"github.com/operatingdev/mintyouragent-skill/internal/pokerapi"
	"github.com/operatingdev/mintyouragent-skill/internal/wallet"
	"github.com/operatingdev/mintyouragent-skill/internal/watch"
)

func (a *app) cmdPoker(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError{msg: "usage: mya poker <games|create|join|action|watch|status|verify|history|cancel|stats>"}
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "games":
		return a.pokerGames(ctx, rest)
	case "create":
		return a.pokerCreate(ctx, rest)
	case "join":
		return a.pokerJoin(ctx, rest)
	case "action":
		return a.pokerAction(ctx, rest)
	case "watch":
		return a.pokerWatch(ctx, rest)
	case "status":
		return a.pokerStatus(ctx, rest)
	case "verify":
		return a.pokerVerify(ctx, rest)
	case "history":
		return a.pokerHistory(ctx, rest)
	case "cancel":
		return a.pokerCancel(ctx, rest)
	case "stats":
		return a.pokerStats(ctx, rest)
	default:
		return usageError{msg: fmt.Sprintf("unknown poker subcommand %q", sub)}
	}
}

func (a *app) pokerGames(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("poker games", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status (waiting|active|completed)")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	page, err := a.api.Games(ctx, *status)
	if err != nil {
		return apiFailure{err: err}
	}
	if len(page.Games) == 0 {
		pterm.Info.Println("No games found.")
		return nil
	}

	rows := pterm.TableData{{"ID", "Status", "Buy-in", "Player 1", "Player 2", "Created"}}
	for _, g := range page.Games {
		rows = append(rows, []string{
			short(g.ID), g.Status, sol(g.BuyInLamports),
			playerName(g.Player1, "-"), playerName(g.Player2, "waiting..."),
			g.CreatedAt,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("Total: %d games", page.Total)
	return nil
}

func (a *app) pokerCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("poker create", flag.ContinueOnError)
	buyIn := fs.Float64("buy-in", 0.01, "buy-in in SOL")
	noWatch := fs.Bool("no-watch", false, "do not enter watch mode after creating")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if *buyIn <= 0 {
		return usageError{msg: "buy-in must be positive"}
	}

	priv, err := a.store.Load()
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)

	auth, err := a.auth(priv, "poker-create")
	if err != nil {
		return err
	}
	result, err := a.api.CreateGame(ctx, auth, *buyIn)
	if err != nil {
		return apiFailure{err: err}
	}
	gameID := result.Game.ID

	// Escrow leg: the server hands back an unsigned deposit to sign locally.
	if result.Escrow != nil && result.Escrow.UnsignedTx != "" {
		confirmed, err := a.confirmEscrow(ctx, priv, result.Escrow, func(signedB64 string) (pokerapi.CreateResult, error) {
			confirmAuth, err := a.auth(priv, "poker-confirm-create")
			if err != nil {
				return pokerapi.CreateResult{}, err
			}
			onChainID, _ := result.Escrow.OnChainGameID.Int64()
			return a.api.ConfirmCreate(ctx, confirmAuth, signedB64, *buyIn, onChainID)
		})
		if err != nil {
			pterm.Warning.Printfln("Escrow deposit failed, game created off-chain: %v", err)
		} else if confirmed.Game.ID != "" {
			gameID = confirmed.Game.ID
			pterm.Success.Println("Game created with on-chain escrow.")
		}
	} else {
		pterm.Success.Println("Game created.")
	}

	a.audit.Append("poker.create", "ok", map[string]string{"gameId": gameID})
	a.record(ctx, "poker", gameID, fmt.Sprintf("created, buy-in %.4f SOL", *buyIn))
	pterm.Info.Printfln("Game ID: %s", gameID)
	pterm.Info.Printfln("Share with opponent: mya poker join %s", gameID)

	if *noWatch {
		return nil
	}
	return a.watchGame(ctx, priv, gameID)
}

func (a *app) pokerJoin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("poker join", flag.ContinueOnError)
	noWatch := fs.Bool("no-watch", false, "do not enter watch mode after joining")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 1 {
		return usageError{msg: "usage: mya poker join <game-id>"}
	}
	gameID := fs.Arg(0)

	priv, err := a.store.Load()
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)

	auth, err := a.auth(priv, "poker-join")
	if err != nil {
		return err
	}
	result, err := a.api.JoinGame(ctx, auth, gameID)
	if err != nil {
		return apiFailure{err: err}
	}

	if result.Escrow != nil && result.Escrow.UnsignedTx != "" {
		_, err := a.confirmEscrow(ctx, priv, result.Escrow, func(signedB64 string) (pokerapi.CreateResult, error) {
			confirmAuth, err := a.auth(priv, "poker-confirm-join")
			if err != nil {
				return pokerapi.CreateResult{}, err
			}
			return a.api.ConfirmJoin(ctx, confirmAuth, signedB64, gameID)
		})
		if err != nil {
			pterm.Warning.Printfln("Escrow deposit failed, join recorded off-chain: %v", err)
		} else {
			pterm.Success.Println("Joined game with on-chain escrow.")
		}
	} else {
		pterm.Success.Println("Joined game.")
	}

	a.audit.Append("poker.join", "ok", map[string]string{"gameId": gameID})
	a.record(ctx, "poker", gameID, "joined")

	if *noWatch {
		return nil
	}
	return a.watchGame(ctx, priv, gameID)
}

// confirmEscrow decodes, signs, and returns the server-prepared deposit. The
// transaction is signed as-is; the server cannot alter it afterwards because
// the signature covers the message bytes.
func (a *app) confirmEscrow(ctx context.Context, priv solana.PrivateKey, escrow *pokerapi.Escrow, confirm func(signedB64 string) (pokerapi.CreateResult, error)) (pokerapi.CreateResult, error) {
	raw, err := base64.StdEncoding.DecodeString(escrow.UnsignedTx)
	if err != nil {
		return pokerapi.CreateResult{}, fmt.Errorf("decode escrow transaction: %w", err)
	}
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return pokerapi.CreateResult{}, fmt.Errorf("parse escrow transaction: %w", err)
	}
	// Partial sign: the server may add its own signature later.
	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(priv.PublicKey()) {
			return &priv
		}
		return nil
	}); err != nil {
		return pokerapi.CreateResult{}, fmt.Errorf("sign escrow transaction: %w", err)
	}
	signed, err := tx.MarshalBinary()
	if err != nil {
		return pokerapi.CreateResult{}, fmt.Errorf("encode escrow transaction: %w", err)
	}
	return confirm(base64.StdEncoding.EncodeToString(signed))
}

func (a *app) pokerAction(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("poker action", flag.ContinueOnError)
	amount := fs.Float64("amount", 0, "raise amount in SOL")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 2 {
		return usageError{msg: "usage: mya poker action [-amount SOL] <game-id> <fold|check|call|raise>"}
	}
	gameID, action := fs.Arg(0), fs.Arg(1)
	switch action {
	case "fold", "check", "call", "raise":
	default:
		return usageError{msg: fmt.Sprintf("unknown action %q", action)}
	}
	var lamports uint64
	if action == "raise" {
		if *amount <= 0 {
			return usageError{msg: "-amount is required for raise"}
		}
		lamports = uint64(*amount * lamportsPerSOL)
	}

	priv, err := a.store.Load()
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)

	auth, err := a.auth(priv, "poker-"+action)
	if err != nil {
		return err
	}
	result, err := a.api.PostAction(ctx, auth, gameID, action, lamports)
	if err != nil {
		a.audit.Append("poker.action", "error", map[string]string{"gameId": gameID, "action": action, "error": err.Error()})
		return apiFailure{err: err}
	}

	a.audit.Append("poker.action", "ok", map[string]string{"gameId": gameID, "action": action})
	pterm.Success.Printfln("%s successful", action)
	displayTable(result.Game, priv.PublicKey().String())
	return nil
}

func (a *app) pokerWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("poker watch", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 1 {
		return usageError{msg: "usage: mya poker watch <game-id>"}
	}

	priv, err := a.store.Load()
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)
	return a.watchGame(ctx, priv, fs.Arg(0))
}

func (a *app) watchGame(ctx context.Context, priv solana.PrivateKey, gameID string) error {
	addr := priv.PublicKey().String()
	pterm.Info.Printfln("Watching game %s (poll every %s, Ctrl+C to stop)", short(gameID), a.cfg.PollInterval)

	w := watch.New(a.api, watch.Config{
		Wallet:   addr,
		Interval: a.cfg.PollInterval,
		Audit:    a.audit,
		Log:      a.logs.Logger("WTCH"),
		Auth: func(action string) (pokerapi.Auth, error) {
			return a.auth(priv, action)
		},
		OnUpdate: func(view pokerapi.GameView) {
			displayTable(view, addr)
		},
	})

	err := w.Run(ctx, gameID)
	if errors.Is(err, context.Canceled) {
		pterm.Info.Println("Stopped watching.")
		return nil
	}
	if err != nil {
		return apiFailure{err: err}
	}

	a.record(ctx, "poker", gameID, "completed")
	return nil
}

func (a *app) pokerStatus(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{msg: "usage: mya poker status <game-id>"}
	}
	addr, err := a.store.Address()
	if err != nil {
		return err
	}
	view, err := a.api.Game(ctx, args[0], addr.String())
	if err != nil {
		return apiFailure{err: err}
	}
	displayTable(view, addr.String())

	switch {
	case view.Status == "completed" && view.Winner != nil && view.Winner.Wallet == addr.String():
		pterm.Success.Println("You won!")
	case view.Status == "completed" && view.Winner != nil:
		pterm.Info.Printfln("Game over. Winner: %s", playerName(view.Winner, "?"))
	case view.Status == "completed":
		pterm.Info.Println("Game ended in a tie.")
	case view.Status == "waiting":
		pterm.Info.Println("Waiting for opponent to join...")
	case view.YourTurn:
		pterm.Info.Printfln("YOUR TURN: mya poker action %s <fold|check|call|raise>", args[0])
	default:
		pterm.Info.Println("Waiting for opponent's move...")
	}
	return nil
}

// pokerVerify recomputes the fairness proof locally instead of trusting the
// server's verdict: commitment hash from the revealed seed, then the full
// deck, then the dealt cards against it.
func (a *app) pokerVerify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{msg: "usage: mya poker verify <game-id>"}
	}
	gameID := args[0]

	bundle, err := a.api.Verify(ctx, gameID)
	if err != nil {
		return apiFailure{err: err}
	}
	if bundle.DeckSeed == "" || bundle.DeckHash == "" {
		return notFoundError{msg: "verification data not available for this game"}
	}

	commitment := fair.DeckCommitment{CommitmentHash: bundle.DeckHash}
	reveal := fair.RevealedSeed{Seed: bundle.DeckSeed, Nonce: bundle.ServerSecret}

	hand1, err := fair.ParseCards(bundle.Game.Player1Hand)
	if err != nil {
		return fmt.Errorf("parse player 1 hand: %w", err)
	}
	hand2, err := fair.ParseCards(bundle.Game.Player2Hand)
	if err != nil {
		return fmt.Errorf("parse player 2 hand: %w", err)
	}
	board, err := fair.ParseCards(bundle.Game.CommunityCards)
	if err != nil {
		return fmt.Errorf("parse community cards: %w", err)
	}

	result := fair.VerifyHeadsUp(commitment, reveal, hand1, hand2, board)
	outcome := "ok"
	if !result.Valid {
		outcome = "mismatch"
	}
	a.audit.Append("poker.verify", outcome, map[string]string{
		"gameId": gameID, "stage": string(result.Stage), "valid": strconv.FormatBool(result.Valid),
	})
	a.record(ctx, "verify", gameID, result.Detail)

	if result.Valid {
		pterm.Success.Println("DECK VERIFIED: commitment and deal check out.")
	} else {
		pterm.Error.Printfln("VERIFICATION FAILED at %s: %s", result.Stage, result.Detail)
	}
	pterm.Info.Printfln("Deck hash:     %s", bundle.DeckHash)
	pterm.Info.Printfln("Server secret: %s", bundle.ServerSecret)
	pterm.Info.Printfln("Deck seed:     %s", bundle.DeckSeed)
	if bundle.Verified != nil && *bundle.Verified != result.Valid {
		pterm.Warning.Println("Server's own verdict disagrees with the local check.")
	}
	if !result.Valid {
		return apiFailure{err: fmt.Errorf("deck verification failed: %s", result.Detail)}
	}
	return nil
}

func (a *app) pokerHistory(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{msg: "usage: mya poker history <game-id>"}
	}
	actions, err := a.api.GameActions(ctx, args[0])
	if err != nil {
		return apiFailure{err: err}
	}
	if len(actions) == 0 {
		pterm.Info.Println("No actions recorded for this game.")
		return nil
	}

	rows := pterm.TableData{{"#", "Player", "Action", "Amount", "Round", "Pot After"}}
	for i, act := range actions {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			playerName(act.Player, "?"),
			act.Action,
			sol(act.Amount),
			act.BettingRound,
			sol(act.PotAfter),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func (a *app) pokerCancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{msg: "usage: mya poker cancel <game-id>"}
	}
	gameID := args[0]

	priv, err := a.store.Load()
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)

	auth, err := a.auth(priv, "poker-cancel")
	if err != nil {
		return err
	}
	refundTx, err := a.api.CancelGame(ctx, auth, gameID)
	if err != nil {
		return apiFailure{err: err}
	}

	a.audit.Append("poker.cancel", "ok", map[string]string{"gameId": gameID})
	a.record(ctx, "poker", gameID, "cancelled")
	pterm.Success.Println("Game cancelled.")
	if refundTx != "" {
		pterm.Info.Printfln("Refund tx: %s", refundTx)
	}
	return nil
}

func (a *app) pokerStats(ctx context.Context, args []string) error {
	addr, err := a.store.Address()
	if err != nil {
		return err
	}
	agent, err := a.api.Stats(ctx, addr.String())
	if err != nil {
		return apiFailure{err: err}
	}
	if agent == nil {
		return notFoundError{msg: "agent not found; play a game first"}
	}

	winRate := 0.0
	if agent.GamesPlayed > 0 {
		winRate = float64(agent.GamesWon) / float64(agent.GamesPlayed) * 100
	}
	rows := pterm.TableData{
		{"Games played", strconv.Itoa(agent.GamesPlayed)},
		{"Games won", strconv.Itoa(agent.GamesWon)},
		{"Win rate", fmt.Sprintf("%.1f%%", winRate)},
		{"Total winnings", sol(agent.TotalWinnings)},
	}
	return pterm.DefaultTable.WithData(rows).Render()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func playerName(p *pokerapi.Player, fallback string) string {
	if p == nil || (p.Name == "" && p.Wallet == "") {
		return fallback
	}
	if p.Name != "" {
		return p.Name
	}
	return short(p.Wallet)
}
