package fair

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministicDeckIsPermutation(t *testing.T) {
	deck := DeterministicDeck([]byte("ab12"), DeckSize)
	require.Len(t, deck, DeckSize)

	seen := map[Card]bool{}
	for _, c := range deck {
		require.Less(t, uint8(c), uint8(DeckSize))
		require.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
}

func TestDeterministicDeckIsStable(t *testing.T) {
	a := DeterministicDeck([]byte("ab12"), DeckSize)
	b := DeterministicDeck([]byte("ab12"), DeckSize)
	require.Equal(t, a, b)

	c := DeterministicDeck([]byte("ab13"), DeckSize)
	require.NotEqual(t, a, c)
}

func TestVerifyValid(t *testing.T) {
	reveal := RevealedSeed{Seed: "ab12", Nonce: "01"}
	commitment := DeckCommitment{CommitmentHash: CommitmentHash(reveal)}
	deal := DeterministicDeck([]byte(reveal.Seed), DeckSize)

	res := Verify(commitment, reveal, deal)
	require.True(t, res.Valid, "detail: %s", res.Detail)
}

func TestVerifyWrongNonceFailsAtCommitmentStage(t *testing.T) {
	commitment := DeckCommitment{CommitmentHash: CommitmentHash(RevealedSeed{Seed: "ab12", Nonce: "01"})}
	deal := DeterministicDeck([]byte("ab12"), DeckSize)

	res := Verify(commitment, RevealedSeed{Seed: "ab12", Nonce: "02"}, deal)
	require.False(t, res.Valid)
	require.Equal(t, StageCommitment, res.Stage)
}

func TestVerifySingleAlteredCardFailsAtDealStage(t *testing.T) {
	reveal := RevealedSeed{Seed: "ab12", Nonce: "01"}
	commitment := DeckCommitment{CommitmentHash: CommitmentHash(reveal)}
	deal := DeterministicDeck([]byte(reveal.Seed), DeckSize)

	for i := 0; i < DeckSize; i++ {
		altered := append([]Card(nil), deal...)
		altered[i] = altered[(i+1)%DeckSize] // duplicate a neighbour

		res := Verify(commitment, reveal, altered)
		require.False(t, res.Valid, "altered position %d accepted", i)
		require.Equal(t, StageDeal, res.Stage)
	}
}

func TestVerifyMalformedCommitmentHash(t *testing.T) {
	res := Verify(DeckCommitment{CommitmentHash: "not-hex"}, RevealedSeed{Seed: "x", Nonce: "y"}, nil)
	require.False(t, res.Valid)
	require.Equal(t, StageCommitment, res.Stage)
}

func TestVerifyHeadsUpValid(t *testing.T) {
	reveal := RevealedSeed{Seed: "ab12", Nonce: "01"}
	commitment := DeckCommitment{CommitmentHash: CommitmentHash(reveal)}
	deck := DeterministicDeck([]byte(reveal.Seed), DeckSize)
	h1, h2, board := DealHeadsUp(deck)

	res := VerifyHeadsUp(commitment, reveal, h1, h2, board)
	require.True(t, res.Valid, "detail: %s", res.Detail)

	// Partial reveal (one hand mucked) still verifies.
	res = VerifyHeadsUp(commitment, reveal, h1, nil, board)
	require.True(t, res.Valid, "detail: %s", res.Detail)
}

func TestVerifyHeadsUpAlteredBoardCard(t *testing.T) {
	reveal := RevealedSeed{Seed: "ab12", Nonce: "01"}
	commitment := DeckCommitment{CommitmentHash: CommitmentHash(reveal)}
	deck := DeterministicDeck([]byte(reveal.Seed), DeckSize)
	h1, h2, board := DealHeadsUp(deck)

	altered := append([]Card(nil), board...)
	altered[2] = deck[20]

	res := VerifyHeadsUp(commitment, reveal, h1, h2, altered)
	require.False(t, res.Valid)
	require.Equal(t, StageDeal, res.Stage)
	require.Contains(t, res.Detail, "board position 2")
}

func TestVerifyHeadsUpNothingRevealed(t *testing.T) {
	reveal := RevealedSeed{Seed: "ab12", Nonce: "01"}
	commitment := DeckCommitment{CommitmentHash: CommitmentHash(reveal)}

	res := VerifyHeadsUp(commitment, reveal, nil, nil, nil)
	require.False(t, res.Valid)
	require.Equal(t, StageDeal, res.Stage)
}

func TestParseCardRoundTrip(t *testing.T) {
	for i := 0; i < DeckSize; i++ {
		c := Card(i)
		got, err := ParseCard(c.String())
		require.NoError(t, err)
		require.Equal(t, c, got)
	}

	ten, err := ParseCard("10h")
	require.NoError(t, err)
	require.Equal(t, "Th", ten.String())

	_, err = ParseCard("Zx")
	require.Error(t, err)
}
