// Package fair reconstructs a dealt deck from a commit/reveal pair and checks
// it against what the server claimed during the hand. Verification needs only
// public inputs, so any third party can re-run it.
package fair

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DeckCommitment is published by the server before any card is dealt.
type DeckCommitment struct {
	CommitmentHash string    `json:"commitmentHash"` // hex(sha256(seed || nonce))
	PublishedAt    time.Time `json:"publishedAt"`
}

// RevealedSeed is published by the server after the hand completes.
type RevealedSeed struct {
	Seed  string `json:"seed"`
	Nonce string `json:"nonce"`
}

// Stage identifies which half of verification failed.
type Stage string

const (
	StageCommitment Stage = "commitment"
	StageDeal       Stage = "deal"
)

// Result is the outcome of Verify. Valid is true only when both the
// commitment hash and the full reconstructed deal match.
type Result struct {
	Valid  bool
	Stage  Stage  // set on mismatch
	Detail string // set on mismatch
}

// CommitmentHash computes the hash the server must publish for a seed/nonce
// pair: hex(sha256(seed || nonce)).
func CommitmentHash(reveal RevealedSeed) string {
	sum := sha256.Sum256([]byte(reveal.Seed + reveal.Nonce))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the commitment from the revealed seed and, if it binds,
// reconstructs the deck and compares it to the claimed deal position by
// position. It is deterministic and performs no I/O.
func Verify(commitment DeckCommitment, reveal RevealedSeed, claimedDeal []Card) Result {
	if r := verifyCommitment(commitment, reveal); !r.Valid {
		return r
	}

	deck := DeterministicDeck([]byte(reveal.Seed), len(claimedDeal))
	for i := range deck {
		if deck[i] != claimedDeal[i] {
			return Result{
				Stage:  StageDeal,
				Detail: fmt.Sprintf("deck position %d: reconstructed %s, server claimed %s", i, deck[i], claimedDeal[i]),
			}
		}
	}
	if len(claimedDeal) == 0 {
		return Result{Stage: StageDeal, Detail: "claimed deal is empty"}
	}
	return Result{Valid: true}
}

// DealHeadsUp deals a heads-up hold'em hand from the top of deck: hole cards
// alternate seat 1 / seat 2, then five board cards. No burn cards.
func DealHeadsUp(deck []Card) (hand1, hand2, board []Card) {
	if len(deck) < 9 {
		return nil, nil, nil
	}
	hand1 = []Card{deck[0], deck[2]}
	hand2 = []Card{deck[1], deck[3]}
	board = deck[4:9]
	return hand1, hand2, board
}

// VerifyHeadsUp checks a partial reveal against the reconstructed full deck:
// the commitment must bind, and every claimed card must sit at its dealing
// position. Empty slices are skipped (the server did not reveal them).
func VerifyHeadsUp(commitment DeckCommitment, reveal RevealedSeed, hand1, hand2, board []Card) Result {
	if r := verifyCommitment(commitment, reveal); !r.Valid {
		return r
	}
	deck := DeterministicDeck([]byte(reveal.Seed), DeckSize)
	wantH1, wantH2, wantBoard := DealHeadsUp(deck)

	checked := 0
	for _, part := range []struct {
		name string
		want []Card
		got  []Card
	}{
		{"player 1 hand", wantH1, hand1},
		{"player 2 hand", wantH2, hand2},
		{"board", wantBoard, board},
	} {
		if len(part.got) == 0 {
			continue
		}
		if len(part.got) != len(part.want) {
			return Result{Stage: StageDeal, Detail: fmt.Sprintf("%s has %d cards, expected %d", part.name, len(part.got), len(part.want))}
		}
		for i := range part.want {
			if part.got[i] != part.want[i] {
				return Result{
					Stage:  StageDeal,
					Detail: fmt.Sprintf("%s position %d: reconstructed %s, server claimed %s", part.name, i, part.want[i], part.got[i]),
				}
			}
			checked++
		}
	}
	if checked == 0 {
		return Result{Stage: StageDeal, Detail: "nothing revealed to check"}
	}
	return Result{Valid: true}
}

func verifyCommitment(commitment DeckCommitment, reveal RevealedSeed) Result {
	want, err := hex.DecodeString(commitment.CommitmentHash)
	if err != nil {
		return Result{Stage: StageCommitment, Detail: fmt.Sprintf("commitment hash is not hex: %v", err)}
	}
	sum := sha256.Sum256([]byte(reveal.Seed + reveal.Nonce))
	if !bytes.Equal(sum[:], want) {
		return Result{
			Stage:  StageCommitment,
			Detail: fmt.Sprintf("recomputed hash %s does not match published commitment %s", hex.EncodeToString(sum[:]), commitment.CommitmentHash),
		}
	}
	return Result{Valid: true}
}
