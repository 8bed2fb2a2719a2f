package pokerapi

import (
	"context"
	"net/http"
	"net/url"
)

// LaunchRequest describes a token to launch. Optional fields are omitted
// from the payload when empty.
type LaunchRequest struct {
	Name           string
	Symbol         string
	Description    string
	Image          string
	Banner         string
	Twitter        string
	Telegram       string
	Website        string
	CreatorAddress string
	Timestamp      string // RFC3339 UTC
	SlippageBps    int
	PriorityFee    uint64
}

// LaunchPrepared is the unsigned launch transaction to verify and sign
// locally.
type LaunchPrepared struct {
	TransactionB64 string `json:"transaction"`
	MintAddress    string `json:"mintAddress"`
	ImageURL       string `json:"imageUrl"`
}

// PrepareLaunch asks the API to assemble the launch transaction.
func (c *Client) PrepareLaunch(ctx context.Context, req LaunchRequest) (LaunchPrepared, error) {
	payload := map[string]any{
		"name":           req.Name,
		"symbol":         req.Symbol,
		"description":    req.Description,
		"image":          req.Image,
		"creatorAddress": req.CreatorAddress,
		"timestamp":      req.Timestamp,
	}
	for k, v := range map[string]string{
		"banner":   req.Banner,
		"twitter":  req.Twitter,
		"telegram": req.Telegram,
		"website":  req.Website,
	} {
		if v != "" {
			payload[k] = v
		}
	}
	if req.SlippageBps > 0 {
		payload["slippageBps"] = req.SlippageBps
	}
	if req.PriorityFee > 0 {
		payload["priorityFee"] = req.PriorityFee
	}
	var out LaunchPrepared
	err := c.do(ctx, http.MethodPost, "/launch/prepare", nil, payload, &out)
	return out, err
}

// LaunchMetadata echoes the token metadata back on submit.
type LaunchMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
	Website     string `json:"website,omitempty"`
}

// LaunchResult is the completed launch.
type LaunchResult struct {
	Mint      string `json:"mint"`
	Signature string `json:"signature"`
	PumpURL   string `json:"pumpUrl"`
}

// SubmitLaunch sends the locally signed launch transaction.
func (c *Client) SubmitLaunch(ctx context.Context, signedTxB64, mintAddress, creatorAddress string, meta LaunchMetadata) (LaunchResult, error) {
	var out LaunchResult
	err := c.do(ctx, http.MethodPost, "/launch/submit", nil, map[string]any{
		"signedTransaction": signedTxB64,
		"mintAddress":       mintAddress,
		"creatorAddress":    creatorAddress,
		"metadata":          meta,
	}, &out)
	return out, err
}

// LaunchStatus looks up an agent's launch record.
func (c *Client) LaunchStatus(ctx context.Context, agent string) (map[string]any, error) {
	q := url.Values{}
	q.Set("agent", agent)
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/launch", q, nil, &out)
	return out, err
}
