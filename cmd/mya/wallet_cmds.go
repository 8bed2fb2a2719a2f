package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pterm/pterm"

	"github.com/operatingdev/mintyouragent-skill/internal/signing"
	"github.com/operatingdev/mintyouragent-skill/internal/wallet"
)

func (a *app) cmdSetup(args []string) error {
	priv, err := a.store.Create()
	if err != nil {
		if errors.Is(err, wallet.ErrStorage) {
			return fmt.Errorf("wallet already exists; use 'mya wallet address' or 'mya uninstall' first: %w", err)
		}
		return err
	}
	defer wallet.Zeroize(priv)

	a.audit.Append("wallet.create", "ok", map[string]string{"address": priv.PublicKey().String()})
	pterm.Success.Println("Wallet created.")
	pterm.Info.Printfln("Address: %s", priv.PublicKey())
	pterm.Warning.Println("Back up the recovery file before funding this wallet.")
	return nil
}

func (a *app) cmdWallet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError{msg: "usage: mya wallet <address|balance|export|import|backup>"}
	}
	switch args[0] {
	case "address":
		addr, err := a.store.Address()
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil

	case "balance":
		addr, err := a.store.Address()
		if err != nil {
			return err
		}
		bal, err := a.chain.Balance(ctx, addr)
		if err != nil {
			return err
		}
		pterm.Info.Printfln("%s: %s", addr, sol(bal))
		return nil

	case "export":
		return a.walletExport(args[1:])

	case "import":
		return a.walletImport(args[1:])

	case "backup":
		h, err := a.store.Backup()
		if err != nil {
			return err
		}
		a.audit.Append("wallet.backup", "ok", nil)
		pterm.Success.Printfln("Backup written to %s", h.RecordPath)
		return nil

	default:
		return usageError{msg: fmt.Sprintf("unknown wallet subcommand %q", args[0])}
	}
}

// walletExport prints the private key after an explicit confirmation. The key
// goes to stdout only, never to logs or audit records.
func (a *app) walletExport(args []string) error {
	fs := flag.NewFlagSet("wallet export", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	if !*yes {
		pterm.Warning.Println("This prints your PRIVATE KEY. Anyone with it controls your funds.")
		fmt.Print("Type 'export' to continue: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(line) != "export" {
			return usageError{msg: "export cancelled"}
		}
	}

	priv, err := a.store.Load()
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)

	fmt.Println(priv.String())
	a.audit.Append("wallet.export", "ok", nil)
	return nil
}

// walletImport reads key material from a file or stdin. Keys never travel
// through argv, where other processes could read them.
func (a *app) walletImport(args []string) error {
	fs := flag.NewFlagSet("wallet import", flag.ContinueOnError)
	file := fs.String("file", "", "read the key from this file instead of stdin")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	var material string
	if *file != "" {
		b, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("read key file: %w", err)
		}
		material = string(b)
	} else {
		pterm.Info.Println("Paste the base58 private key or JSON byte array, then press Enter:")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read key from stdin: %w", err)
		}
		material = line
	}

	priv, err := a.store.ImportFrom(material)
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)

	a.audit.Append("wallet.import", "ok", map[string]string{"address": priv.PublicKey().String()})
	pterm.Success.Printfln("Imported wallet %s", priv.PublicKey())
	return nil
}

func (a *app) cmdTransfer(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError{msg: "usage: mya transfer <to-address> <amount-sol>"}
	}
	to, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		return usageError{msg: fmt.Sprintf("invalid destination address: %v", err)}
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		return usageError{msg: "amount must be a positive number of SOL"}
	}
	lamports := uint64(amount * lamportsPerSOL)

	priv, err := a.store.Load()
	if err != nil {
		return err
	}
	defer wallet.Zeroize(priv)

	unsigned, err := a.signer.Prepare(ctx, signing.TransferIntent{
		From:     priv.PublicKey(),
		To:       to,
		Lamports: lamports,
	})
	if err != nil {
		return err
	}
	signed, err := a.signer.Sign(unsigned, priv)
	if err != nil {
		return err
	}
	receipt, err := a.signer.Submit(ctx, signed)
	if err != nil {
		return err
	}

	a.record(ctx, "transfer", receipt.Signature.String(), fmt.Sprintf("%s to %s", sol(lamports), to))
	pterm.Success.Printfln("Sent %s to %s", sol(lamports), to)
	pterm.Info.Printfln("Signature: %s", receipt.Signature)
	return nil
}

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	if a.hist == nil {
		return errors.New("local history is not available")
	}
	kind := ""
	if len(args) > 0 {
		kind = args[0]
	}
	entries, err := a.hist.Recent(ctx, kind, 20)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		pterm.Info.Println("No history yet.")
		return nil
	}

	rows := pterm.TableData{{"When", "Kind", "Ref", "Detail"}}
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Kind,
			e.Ref,
			e.Detail,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// cmdUninstall erases the wallet and local state after explicit confirmation.
func (a *app) cmdUninstall(args []string) error {
	fs := flag.NewFlagSet("uninstall", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	if !*yes {
		pterm.Warning.Println("This PERMANENTLY destroys your wallet key. Funds become unrecoverable")
		pterm.Warning.Println("unless you exported the key or kept the recovery file elsewhere.")
		fmt.Print("Type 'destroy' to continue: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(line) != "destroy" {
			return usageError{msg: "uninstall cancelled"}
		}
	}

	if err := a.store.Erase(); err != nil {
		return err
	}
	a.audit.Append("wallet.erase", "ok", nil)
	pterm.Success.Println("Wallet erased.")
	return nil
}
