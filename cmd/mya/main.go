// mya is the MintYourAgent command line agent: it custodies a local Solana
// keypair, signs transactions and ownership challenges offline, and plays
// heads-up poker against the MintYourAgent API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/operatingdev/mintyouragent-skill/internal/wallet"
)

// Exit codes shared with existing agent tooling.
const (
	exitSuccess      = 0
	exitGeneralError = 1
	exitNoWallet     = 3
	exitInvalidInput = 4
	exitAPIError     = 6
	exitSecurity     = 7
	exitNotFound     = 11
)

func usage() {
	fmt.Fprint(os.Stderr, `Usage: mya <command> [args]

Commands:
  setup                      Create a new wallet
  wallet <subcommand>        address | balance | export | import | backup
  transfer <to> <sol>        Send SOL to another address
  launch                     Launch a token (see launch -h)
  poker <subcommand>         games | create | join | action | watch | status |
                             verify | history | cancel | stats
  history [kind]             Show local activity history
  uninstall                  Securely erase the wallet and local data
`)
}

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		usage()
		return exitInvalidInput
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		return exitGeneralError
	}
	defer app.Close()

	cmd, args := os.Args[1], os.Args[2:]
	err = app.dispatch(ctx, cmd, args)
	if err == nil {
		return exitSuccess
	}

	app.printError(err)
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	var code interface{ ExitCode() int }
	switch {
	case errors.As(err, &code):
		return code.ExitCode()
	case errors.Is(err, wallet.ErrNotFound):
		return exitNoWallet
	case errors.Is(err, wallet.ErrIntegrity):
		return exitSecurity
	default:
		return exitGeneralError
	}
}

// usageError aborts with the invalid-input exit code.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
func (e usageError) ExitCode() int { return exitInvalidInput }

// apiFailure marks errors from the remote API.
type apiFailure struct{ err error }

func (e apiFailure) Error() string { return e.err.Error() }
func (e apiFailure) Unwrap() error { return e.err }
func (e apiFailure) ExitCode() int { return exitAPIError }

// notFoundError aborts with the not-found exit code.
type notFoundError struct{ msg string }

func (e notFoundError) Error() string { return e.msg }
func (e notFoundError) ExitCode() int { return exitNotFound }
