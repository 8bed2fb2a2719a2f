package session

import (
	"fmt"

	"github.com/paulhankin/poker"

	"github.com/operatingdev/mintyouragent-skill/internal/fair"
)

// evalCard converts the wire card id into the evaluator's representation.
// The evaluator wants ranks 1..13 with ace low in the encoding.
func evalCard(c fair.Card) (poker.Card, error) {
	rank := c.Rank()
	if rank == 14 {
		rank = 1
	}
	return poker.MakeCard(poker.Suit(c.Suit()), poker.Rank(rank))
}

// ExpectedWinner evaluates both revealed hands against the board and returns
// the seat the pot should go to, or -1 for a split. It requires a full board
// and both hole hands.
func (s *Session) ExpectedWinner() (int, error) {
	if len(s.Board) != 5 {
		return 0, fmt.Errorf("board has %d cards, need 5", len(s.Board))
	}
	var scores [2]int16
	for seat := 0; seat < 2; seat++ {
		hole := s.Seats[seat].Hole
		if len(hole) != 2 {
			return 0, fmt.Errorf("seat %d revealed %d hole cards, need 2", seat, len(hole))
		}
		var hand [7]poker.Card
		for i, c := range s.Board {
			pc, err := evalCard(c)
			if err != nil {
				return 0, fmt.Errorf("board card %d: %w", i, err)
			}
			hand[i] = pc
		}
		for i, c := range hole {
			pc, err := evalCard(c)
			if err != nil {
				return 0, fmt.Errorf("seat %d hole card %d: %w", seat, i, err)
			}
			hand[5+i] = pc
		}
		scores[seat] = poker.Eval7(&hand)
	}
	switch {
	case scores[0] > scores[1]:
		return 0, nil
	case scores[1] > scores[0]:
		return 1, nil
	default:
		return -1, nil
	}
}

// checkSettlement cross-checks the server's declared winner against the local
// hand evaluation. A disagreement is treated like any other illegal
// transition: rejected, session desynced, dispute left to the operator.
func (s *Session) checkSettlement(ev Event) error {
	if ev.WinnerSeat < -1 || ev.WinnerSeat > 1 {
		return s.violation(ev, "invalid winner seat %d", ev.WinnerSeat)
	}
	// Only cross-check when both hands are on the table. A single reveal
	// (opponent mucked) leaves nothing to evaluate against.
	if len(s.Seats[0].Hole) == 2 && len(s.Seats[1].Hole) == 2 {
		want, err := s.ExpectedWinner()
		if err != nil {
			return s.violation(ev, "cannot evaluate showdown: %v", err)
		}
		if want != ev.WinnerSeat {
			return s.violation(ev, "settlement names seat %d, local evaluation says %d", ev.WinnerSeat, want)
		}
	}
	return nil
}
