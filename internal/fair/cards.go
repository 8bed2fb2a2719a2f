package fair

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Card is a 0..51 id, where:
// - rank = (id % 13) + 2  (2..14)
// - suit = (id / 13)      (0..3, clubs/diamonds/hearts/spades)
//
// This matches the server's deck representation, so a reconstructed deck can
// be compared against a claimed deal position-by-position.
type Card uint8

// DeckSize is the standard deck the poker server deals from.
const DeckSize = 52

func (c Card) Rank() uint8 { // 2..14
	return uint8(c%13) + 2
}

func (c Card) Suit() uint8 { // 0..3
	return uint8(c / 13)
}

func (c Card) String() string {
	r := c.Rank()
	var rch byte
	switch r {
	case 14:
		rch = 'A'
	case 13:
		rch = 'K'
	case 12:
		rch = 'Q'
	case 11:
		rch = 'J'
	case 10:
		rch = 'T'
	default:
		rch = byte('0' + r)
	}
	s := c.Suit()
	var sch byte
	switch s {
	case 0:
		sch = 'c'
	case 1:
		sch = 'd'
	case 2:
		sch = 'h'
	case 3:
		sch = 's'
	default:
		sch = '?'
	}
	return string([]byte{rch, sch})
}

// ParseCard parses the server's two-character card notation ("Td", "2h").
// A ten may also arrive as "10h".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 && !(len(s) == 3 && s[0] == '1' && s[1] == '0') {
		return 0, fmt.Errorf("invalid card %q", s)
	}
	var rank uint8
	suitCh := s[len(s)-1]
	switch s[0] {
	case 'A', 'a':
		rank = 14
	case 'K', 'k':
		rank = 13
	case 'Q', 'q':
		rank = 12
	case 'J', 'j':
		rank = 11
	case 'T', 't', '1':
		rank = 10
	case '2', '3', '4', '5', '6', '7', '8', '9':
		rank = s[0] - '0'
	default:
		return 0, fmt.Errorf("invalid card rank in %q", s)
	}
	var suit uint8
	switch suitCh {
	case 'c', 'C':
		suit = 0
	case 'd', 'D':
		suit = 1
	case 'h', 'H':
		suit = 2
	case 's', 'S':
		suit = 3
	default:
		return 0, fmt.Errorf("invalid card suit in %q", s)
	}
	return Card(suit*13 + (rank - 2)), nil
}

// ParseCards parses a claimed deal in server notation.
func ParseCards(ss []string) ([]Card, error) {
	out := make([]Card, 0, len(ss))
	for i, s := range ss {
		c, err := ParseCard(s)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// DeterministicDeck returns a deterministically shuffled deck of size cards.
//
// The shuffle is a pinned contract shared with the server: a Fisher-Yates
// pass from the top index down, driven by a sha256-based stream. The swap
// index for step i comes from the first 8 LE bytes of
// sha256(seed || LE64(counter)) mod (i+1), counter incrementing per step.
// Changing any detail here produces false Mismatch verdicts.
func DeterministicDeck(seed []byte, size int) []Card {
	deck := make([]Card, size)
	for i := 0; i < size; i++ {
		deck[i] = Card(i)
	}
	var counter uint64
	for i := size - 1; i > 0; i-- {
		buf := make([]byte, len(seed)+8)
		copy(buf, seed)
		binary.LittleEndian.PutUint64(buf[len(seed):], counter)
		h := sha256.Sum256(buf)
		counter++
		j := int(binary.LittleEndian.Uint64(h[:8]) % uint64(i+1))
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}
