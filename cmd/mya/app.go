package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pterm/pterm"

	"github.com/operatingdev/mintyouragent-skill/internal/audit"
	"github.com/operatingdev/mintyouragent-skill/internal/chain"
	"github.com/operatingdev/mintyouragent-skill/internal/config"
	"github.com/operatingdev/mintyouragent-skill/internal/history"
	"github.com/operatingdev/mintyouragent-skill/internal/logging"
	"github.com/operatingdev/mintyouragent-skill/internal/pokerapi"
	"github.com/operatingdev/mintyouragent-skill/internal/signing"
	"github.com/operatingdev/mintyouragent-skill/internal/wallet"
)

const lamportsPerSOL = 1_000_000_000

type app struct {
	cfg    config.Config
	logs   *logging.Backend
	audit  *audit.Log
	store  *wallet.Store
	api    *pokerapi.Client
	chain  *chain.Client
	signer *signing.Pipeline
	hist   *history.Store
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logs, err := logging.New(filepath.Join(cfg.Home, "logs"), cfg.Debug)
	if err != nil {
		return nil, err
	}

	auditLog := audit.New(filepath.Join(cfg.Home, "audit.log"), logs.Logger("AUDT"))
	store := wallet.NewStore(cfg.Home, logs.Logger("WALT"))
	chainClient := chain.New(cfg.RPCURL, logs.Logger("CHAN"))
	api := pokerapi.New(pokerapi.Config{
		BaseURL:       cfg.APIURL,
		APIKey:        cfg.APIKey,
		UserAgent:     "mya-go/1.0",
		CorrelationID: auditLog.CorrelationID(),
		Timeout:       cfg.Timeout,
		MaxAttempts:   cfg.RetryCount,
	}, logs.Logger("PAPI"))
	signer := signing.NewPipeline(chainClient, auditLog, logs.Logger("SIGN"), signing.Config{
		MaxAttempts:     cfg.RetryCount,
		InitialInterval: 500 * time.Millisecond,
		Freshness:       cfg.Freshness,
	})

	// History failures never block an operation; commands treat a nil store
	// as "recording disabled".
	hist, err := history.Open(filepath.Join(cfg.Home, "history.db"))
	if err != nil {
		logs.Logger("HIST").Warnf("history disabled: %v", err)
		hist = nil
	}

	return &app{
		cfg:    cfg,
		logs:   logs,
		audit:  auditLog,
		store:  store,
		api:    api,
		chain:  chainClient,
		signer: signer,
		hist:   hist,
	}, nil
}

func (a *app) Close() {
	if a.hist != nil {
		_ = a.hist.Close()
	}
	_ = a.logs.Close()
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "setup":
		return a.cmdSetup(args)
	case "wallet":
		return a.cmdWallet(ctx, args)
	case "transfer":
		return a.cmdTransfer(ctx, args)
	case "launch":
		return a.cmdLaunch(ctx, args)
	case "poker":
		return a.cmdPoker(ctx, args)
	case "history":
		return a.cmdHistory(ctx, args)
	case "uninstall":
		return a.cmdUninstall(args)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return usageError{msg: fmt.Sprintf("unknown command %q", cmd)}
	}
}

func (a *app) printError(err error) {
	var apiErr *pokerapi.APIError
	if errors.As(err, &apiErr) && apiErr.Hint != "" {
		pterm.Error.Printfln("%v", err)
		pterm.Info.Printfln("Hint: %s", apiErr.Hint)
		return
	}
	pterm.Error.Printfln("%v", err)
}

// record appends to local history, best effort.
func (a *app) record(ctx context.Context, kind, ref, detail string) {
	if a.hist == nil {
		return
	}
	if err := a.hist.Record(ctx, kind, ref, detail); err != nil {
		a.logs.Logger("HIST").Warnf("record history: %v", err)
	}
}

// auth signs a fresh ownership challenge for one API action.
func (a *app) auth(priv solana.PrivateKey, action string) (pokerapi.Auth, error) {
	ch, err := signing.SignChallenge(priv, action, time.Now())
	if err != nil {
		return pokerapi.Auth{}, fmt.Errorf("sign challenge: %w", err)
	}
	return pokerapi.Auth{
		WalletAddress: priv.PublicKey().String(),
		Challenge:     ch.Message,
		Signature:     ch.SignatureB64,
	}, nil
}

func sol(lamports uint64) string {
	return fmt.Sprintf("%.4f SOL", float64(lamports)/lamportsPerSOL)
}
