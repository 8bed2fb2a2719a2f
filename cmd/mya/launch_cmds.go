package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pterm/pterm"

	"github.com/operatingdev/mintyouragent-skill/internal/pokerapi"
	"github.com/operatingdev/mintyouragent-skill/internal/wallet"
)

func (a *app) cmdLaunch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	name := fs.String("name", "", "token name (required)")
	symbol := fs.String("symbol", "", "token symbol (required)")
	description := fs.String("description", "", "token description (required)")
	image := fs.String("image", "", "image URL or path (required)")
	banner := fs.String("banner", "", "banner URL")
	twitter := fs.String("twitter", "", "twitter handle")
	telegram := fs.String("telegram", "", "telegram link")
	website := fs.String("website", "", "website URL")
	slippage := fs.Int("slippage", 0, "slippage in bps")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if *name == "" || *symbol == "" || *description == "" || *image == "" {
		return usageError{msg: "launch requires -name, -symbol, -description, and -image"}
	}

	priv, err := a.store.Load()
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)
	creator := priv.PublicKey()

	prepared, err := a.api.PrepareLaunch(ctx, pokerapi.LaunchRequest{
		Name:           *name,
		Symbol:         strings.ToUpper(*symbol),
		Description:    *description,
		Image:          *image,
		Banner:         *banner,
		Twitter:        *twitter,
		Telegram:       *telegram,
		Website:        *website,
		CreatorAddress: creator.String(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		SlippageBps:    *slippage,
	})
	if err != nil {
		return apiFailure{err: err}
	}

	signedB64, err := a.signLaunchTransaction(priv, prepared.TransactionB64)
	if err != nil {
		return err
	}

	result, err := a.api.SubmitLaunch(ctx, signedB64, prepared.MintAddress, creator.String(), pokerapi.LaunchMetadata{
		Name:        *name,
		Symbol:      strings.ToUpper(*symbol),
		Description: *description,
		ImageURL:    prepared.ImageURL,
		Twitter:     *twitter,
		Telegram:    *telegram,
		Website:     *website,
	})
	if err != nil {
		a.audit.Append("launch.submit", "error", map[string]string{"mint": prepared.MintAddress, "error": err.Error()})
		return apiFailure{err: err}
	}

	a.audit.Append("launch.submit", "ok", map[string]string{"mint": result.Mint})
	a.record(ctx, "launch", result.Mint, strings.ToUpper(*symbol))
	pterm.Success.Println("Token launched!")
	pterm.Info.Printfln("Mint: %s", result.Mint)
	if result.PumpURL != "" {
		pterm.Info.Printfln("%s", result.PumpURL)
	}
	return nil
}

// signLaunchTransaction verifies the server-prepared transaction before
// signing: the fee payer must be our wallet, nothing else is acceptable. A
// transaction paying fees from another account would be signed blind.
func (a *app) signLaunchTransaction(priv solana.PrivateKey, txB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txB64)
	if err != nil {
		return "", fmt.Errorf("decode prepared transaction: %w", err)
	}
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("parse prepared transaction: %w", err)
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(priv.PublicKey()) {
		a.audit.Append("launch.sign", "error", map[string]string{"error": "fee payer is not our wallet"})
		return "", fmt.Errorf("prepared transaction fee payer is not our wallet")
	}

	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(priv.PublicKey()) {
			return &priv
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign launch transaction: %w", err)
	}
	signed, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode signed transaction: %w", err)
	}
	a.audit.Append("launch.sign", "ok", nil)
	return base64.StdEncoding.EncodeToString(signed), nil
}
