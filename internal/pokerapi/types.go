package pokerapi

import (
	"encoding/json"
)

// Player identifies one seat. The server sometimes sends a bare wallet
// string instead of the object form.
type Player struct {
	Name   string `json:"name"`
	Wallet string `json:"wallet"`
}

func (p *Player) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*p = Player{Wallet: s}
		return nil
	}
	type plain Player
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Player(v)
	return nil
}

// Game is one row in the game listing. Deployed servers have drifted between
// casings for two fields, so decoding accepts both; the rest of the program
// only ever sees the canonical form.
type Game struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	BuyInLamports uint64  `json:"buyInLamports"`
	CreatedAt     string  `json:"createdAt"`
	Player1       *Player `json:"player1"`
	Player2       *Player `json:"player2"`
}

func (g *Game) UnmarshalJSON(b []byte) error {
	type plain Game
	var v struct {
		plain
		BuyInSnake   uint64 `json:"buy_in"`
		CreatedSnake string `json:"created_at"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*g = Game(v.plain)
	if g.BuyInLamports == 0 {
		g.BuyInLamports = v.BuyInSnake
	}
	if g.CreatedAt == "" {
		g.CreatedAt = v.CreatedSnake
	}
	return nil
}

// GameView is the per-wallet state snapshot from GET /poker/game/{id}.
// Hole cards of the opponent stay empty until the server reveals them.
type GameView struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	BettingRound   string   `json:"bettingRound"`
	Pot            uint64   `json:"pot"`
	CurrentBet     uint64   `json:"currentBet"`
	YourTurn       bool     `json:"yourTurn"`
	YourHand       []string `json:"yourHand"`
	OpponentHand   []string `json:"opponentHand"`
	CommunityCards []string `json:"communityCards"`
	YourChips      uint64   `json:"yourChips"`
	OpponentChips  uint64   `json:"opponentChips"`
	Player1Chips   uint64   `json:"player1Chips"`
	Player2Chips   uint64   `json:"player2Chips"`
	Player1Bet     uint64   `json:"player1Bet"`
	Player2Bet     uint64   `json:"player2Bet"`
	Player1        *Player  `json:"player1"`
	Player2        *Player  `json:"player2"`
	Winner         *Player  `json:"winner"`
	BuyInLamports  uint64   `json:"buyInLamports"`
	TurnDeadline   string   `json:"turnDeadline"`
	SettlementTx   string   `json:"settlementTx"`
	Version        uint64   `json:"version"`
	Message        string   `json:"message"`
}

// Escrow is the optional on-chain deposit leg returned by create and join.
type Escrow struct {
	UnsignedTx    string      `json:"unsignedTx"`
	OnChainGameID json.Number `json:"onChainGameId"`
}

// ActionRecord is one entry of a game's action history.
type ActionRecord struct {
	Player       *Player `json:"player"`
	Action       string  `json:"action"`
	Amount       uint64  `json:"amount"`
	PotAfter     uint64  `json:"potAfter"`
	BettingRound string  `json:"bettingRound"`
}

// VerifyBundle is the server's fairness reveal for a completed game.
// Verified is the server's own verdict; the client recomputes independently.
type VerifyBundle struct {
	Verified     *bool  `json:"verified"`
	Message      string `json:"message"`
	DeckHash     string `json:"deckHash"`
	ServerSecret string `json:"serverSecret"`
	DeckSeed     string `json:"deckSeed"`
	Game         struct {
		Pot            uint64   `json:"pot"`
		Player1Hand    []string `json:"player1Hand"`
		Player2Hand    []string `json:"player2Hand"`
		CommunityCards []string `json:"communityCards"`
	} `json:"game"`
}

// AgentStats is the per-wallet record from GET /stats.
type AgentStats struct {
	GamesPlayed   int    `json:"games_played"`
	GamesWon      int    `json:"games_won"`
	TotalWinnings uint64 `json:"total_winnings"`
}

// Auth carries the signed ownership challenge attached to every mutating
// poker request.
type Auth struct {
	WalletAddress string
	Challenge     string
	Signature     string
}
