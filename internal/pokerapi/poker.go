package pokerapi

import (
	"context"
	"net/http"
	"net/url"
)

// GamesPage is the listing response.
type GamesPage struct {
	Games []Game `json:"games"`
	Total int    `json:"total"`
}

// Games lists games, optionally filtered by status ("waiting", "active",
// "completed").
func (c *Client) Games(ctx context.Context, status string) (GamesPage, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	var page GamesPage
	if err := c.do(ctx, http.MethodGet, "/poker/games", q, nil, &page); err != nil {
		return GamesPage{}, err
	}
	if page.Total == 0 {
		page.Total = len(page.Games)
	}
	return page, nil
}

// Game fetches the state snapshot for one game as seen by wallet.
func (c *Client) Game(ctx context.Context, gameID, wallet string) (GameView, error) {
	q := url.Values{}
	q.Set("wallet", wallet)
	var view GameView
	if err := c.do(ctx, http.MethodGet, "/poker/game/"+url.PathEscape(gameID), q, nil, &view); err != nil {
		return GameView{}, err
	}
	return view, nil
}

// GameActions fetches a game's full action history.
func (c *Client) GameActions(ctx context.Context, gameID string) ([]ActionRecord, error) {
	var out struct {
		Actions []ActionRecord `json:"actions"`
	}
	err := c.do(ctx, http.MethodGet, "/poker/game/"+url.PathEscape(gameID)+"/actions", nil, nil, &out)
	return out.Actions, err
}

// CreateResult is the create/join response. Escrow is present when the
// server wants an on-chain deposit signed.
type CreateResult struct {
	Game   Game    `json:"game"`
	Escrow *Escrow `json:"escrow"`
}

// CreateGame opens a new game with the given buy-in, stated in SOL.
func (c *Client) CreateGame(ctx context.Context, auth Auth, buyInSOL float64) (CreateResult, error) {
	var out CreateResult
	err := c.do(ctx, http.MethodPost, "/poker/create", nil, map[string]any{
		"walletAddress": auth.WalletAddress,
		"challenge":     auth.Challenge,
		"signature":     auth.Signature,
		"buyIn":         buyInSOL,
	}, &out)
	return out, err
}

// ConfirmCreate completes the escrow leg of game creation with the signed
// deposit transaction.
func (c *Client) ConfirmCreate(ctx context.Context, auth Auth, signedTxB64 string, buyInSOL float64, onChainGameID int64) (CreateResult, error) {
	var out CreateResult
	err := c.do(ctx, http.MethodPost, "/poker/confirm-create", nil, map[string]any{
		"walletAddress":     auth.WalletAddress,
		"challenge":         auth.Challenge,
		"signature":         auth.Signature,
		"signedTransaction": signedTxB64,
		"buyIn":             buyInSOL,
		"gameId":            onChainGameID,
	}, &out)
	return out, err
}

// JoinGame takes the open seat in an existing game.
func (c *Client) JoinGame(ctx context.Context, auth Auth, gameID string) (CreateResult, error) {
	var out CreateResult
	err := c.do(ctx, http.MethodPost, "/poker/join", nil, map[string]any{
		"walletAddress": auth.WalletAddress,
		"challenge":     auth.Challenge,
		"signature":     auth.Signature,
		"gameId":        gameID,
	}, &out)
	return out, err
}

// ConfirmJoin completes the escrow leg of a join.
func (c *Client) ConfirmJoin(ctx context.Context, auth Auth, signedTxB64, gameID string) (CreateResult, error) {
	var out CreateResult
	err := c.do(ctx, http.MethodPost, "/poker/confirm-join", nil, map[string]any{
		"walletAddress":     auth.WalletAddress,
		"challenge":         auth.Challenge,
		"signature":         auth.Signature,
		"signedTransaction": signedTxB64,
		"gameId":            gameID,
	}, &out)
	return out, err
}

// ActionResult echoes the post-action game snapshot.
type ActionResult struct {
	Game GameView `json:"game"`
}

// PostAction performs one betting action. amountLamports is only consulted
// for a raise; zero omits the field.
func (c *Client) PostAction(ctx context.Context, auth Auth, gameID, action string, amountLamports uint64) (ActionResult, error) {
	payload := map[string]any{
		"walletAddress": auth.WalletAddress,
		"challenge":     auth.Challenge,
		"signature":     auth.Signature,
		"gameId":        gameID,
		"action":        action,
	}
	if amountLamports > 0 {
		payload["amount"] = amountLamports
	}
	var out ActionResult
	err := c.do(ctx, http.MethodPost, "/poker/action", nil, payload, &out)
	return out, err
}

// CancelGame cancels a game still waiting for an opponent. Returns the
// refund transaction signature when an escrow deposit is returned.
func (c *Client) CancelGame(ctx context.Context, auth Auth, gameID string) (string, error) {
	var out struct {
		RefundTx string `json:"refundTx"`
	}
	err := c.do(ctx, http.MethodPost, "/poker/cancel", nil, map[string]any{
		"walletAddress": auth.WalletAddress,
		"challenge":     auth.Challenge,
		"signature":     auth.Signature,
		"gameId":        gameID,
	}, &out)
	return out.RefundTx, err
}

// Verify fetches the fairness reveal for a completed game.
func (c *Client) Verify(ctx context.Context, gameID string) (VerifyBundle, error) {
	q := url.Values{}
	q.Set("gameId", gameID)
	var out VerifyBundle
	err := c.do(ctx, http.MethodGet, "/poker/verify", q, nil, &out)
	return out, err
}

// Stats fetches the wallet's lifetime poker record. A missing agent is not
// an error at the transport level; the caller checks for nil.
func (c *Client) Stats(ctx context.Context, wallet string) (*AgentStats, error) {
	q := url.Values{}
	q.Set("wallet", wallet)
	var out struct {
		Agent *AgentStats `json:"agent"`
	}
	err := c.do(ctx, http.MethodGet, "/stats", q, nil, &out)
	return out.Agent, err
}

// Health pings the API.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}
