package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/operatingdev/mintyouragent-skill/internal/pokerapi"
)

var suitSymbols = map[byte]string{'h': "♥", 'd': "♦", 'c': "♣", 's': "♠"}

func prettyCard(card string) string {
	if len(card) < 2 {
		return "??"
	}
	rank := string(card[0])
	if card[0] == 'T' {
		rank = "10"
	}
	if s, ok := suitSymbols[card[len(card)-1]]; ok {
		return rank + s
	}
	return card
}

func prettyHand(cards []string) string {
	if len(cards) == 0 {
		return "🂠 🂠"
	}
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = prettyCard(c)
	}
	return strings.Join(out, " ")
}

// displayTable renders the table snapshot from our seat's perspective.
func displayTable(view pokerapi.GameView, walletAddr string) {
	opp := view.Player2
	if view.Player2 != nil && view.Player2.Wallet == walletAddr {
		opp = view.Player1
	}

	box := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2)

	oppPanel := box.WithTitle(playerName(opp, "Waiting...")).Sprintf(
		"Cards: %s\nChips: %s", prettyHand(view.OpponentHand), sol(view.OpponentChips))

	boardInfo := fmt.Sprintf("Pot: %s", sol(view.Pot))
	if view.CurrentBet > 0 {
		boardInfo += fmt.Sprintf("\nBet to match: %s", sol(view.CurrentBet))
	}
	boardInfo += fmt.Sprintf("\nBoard: %s", prettyHand(view.CommunityCards))
	round := view.BettingRound
	if round == "" {
		round = view.Status
	}
	boardPanel := box.WithTitle(strings.ToUpper(round)).Sprintf("%s", boardInfo)

	youTitle := "You"
	if view.YourTurn {
		youTitle = "You (to act)"
	}
	youPanel := box.WithTitle(youTitle).Sprintf(
		"Cards: %s\nChips: %s", prettyHand(view.YourHand), sol(view.YourChips))

	_ = pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{{Data: oppPanel}},
		{{Data: boardPanel}},
		{{Data: youPanel}},
	}).Render()
}
