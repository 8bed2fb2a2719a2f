package watch

import (
	"fmt"
	"strings"

	"github.com/operatingdev/mintyouragent-skill/internal/pokerapi"
)

// Decision is a chosen action with the reasoning behind it.
type Decision struct {
	Action    string
	AmountLam uint64 // raise only
	Reasoning string
}

// Decider picks an action when it is our turn.
type Decider interface {
	Decide(view pokerapi.GameView) Decision
}

// minRaiseLamports is the raise floor (0.01 SOL).
const minRaiseLamports = 10_000_000

// Heuristic is a cheap rank-counting strategy. It never looks at opponent
// cards and only reads the public snapshot.
type Heuristic struct{}

func cardRank(card string) byte {
	if len(card) < 2 {
		return 0
	}
	return card[0]
}

func cardSuit(card string) byte {
	if len(card) < 2 {
		return 0
	}
	return card[len(card)-1]
}

// strength scores the hand on [0,1] from pairs, high cards, and suitedness.
func strength(hand, community []string) (float64, string) {
	const highCards = "TJQKA"

	counts := make(map[byte]int)
	for _, c := range hand {
		if r := cardRank(c); r != 0 {
			counts[r]++
		}
	}
	for _, c := range community {
		if r := cardRank(c); r != 0 {
			counts[r]++
		}
	}
	maxOfKind := 0
	for _, n := range counts {
		if n > maxOfKind {
			maxOfKind = n
		}
	}

	highCount := 0
	for _, c := range hand {
		if strings.IndexByte(highCards, cardRank(c)) >= 0 {
			highCount++
		}
	}

	s := 0.3 + float64(highCount)*0.1
	switch {
	case maxOfKind >= 4:
		s = 0.95
	case maxOfKind >= 3:
		s = 0.85
	case maxOfKind >= 2:
		s += 0.25
	}
	if len(hand) >= 2 && cardSuit(hand[0]) == cardSuit(hand[1]) {
		s += 0.05
	}
	if s > 1 {
		s = 1
	}

	var desc string
	switch {
	case maxOfKind >= 4:
		desc = "four of a kind"
	case maxOfKind >= 3:
		desc = "three of a kind"
	case maxOfKind >= 2:
		desc = "a pair"
	case highCount > 0:
		desc = "high cards"
	default:
		desc = "no made hand"
	}
	return s, desc
}

func (Heuristic) Decide(view pokerapi.GameView) Decision {
	s, desc := strength(view.YourHand, view.CommunityCards)

	// Bets are reported per seat. Heads-up the player to act is the one who
	// has committed less this street, so ours is the smaller of the two.
	myBet := view.Player1Bet
	if view.Player2Bet < myBet {
		myBet = view.Player2Bet
	}
	toCall := uint64(0)
	if view.CurrentBet > myBet {
		toCall = view.CurrentBet - myBet
	}

	if toCall == 0 {
		if s > 0.6 {
			raise := view.Pot / 2
			if raise < minRaiseLamports {
				raise = minRaiseLamports
			}
			if raise > view.YourChips {
				raise = view.YourChips
			}
			if raise > 0 {
				return Decision{
					Action:    "raise",
					AmountLam: raise,
					Reasoning: fmt.Sprintf("strength %.2f (%s), no bet to match, raising", s, desc),
				}
			}
		}
		return Decision{Action: "check", Reasoning: fmt.Sprintf("strength %.2f (%s), checking", s, desc)}
	}

	potOdds := 1.0
	if view.Pot+toCall > 0 {
		potOdds = float64(toCall) / float64(view.Pot+toCall)
	}

	switch {
	case s > 0.7:
		raise := view.Pot / 2
		if raise < minRaiseLamports {
			raise = minRaiseLamports
		}
		if view.YourChips > toCall && raise <= view.YourChips-toCall {
			return Decision{
				Action:    "raise",
				AmountLam: raise,
				Reasoning: fmt.Sprintf("strength %.2f (%s), strong hand, raising", s, desc),
			}
		}
		return Decision{Action: "call", Reasoning: fmt.Sprintf("strength %.2f (%s), strong hand, calling", s, desc)}
	case s > potOdds+0.1:
		return Decision{Action: "call", Reasoning: fmt.Sprintf("strength %.2f (%s), good pot odds %.2f, calling", s, desc, potOdds)}
	case s > 0.35:
		if float64(toCall) < float64(view.Pot)*0.3 {
			return Decision{Action: "call", Reasoning: fmt.Sprintf("strength %.2f (%s), small bet, calling", s, desc)}
		}
		return Decision{Action: "fold", Reasoning: fmt.Sprintf("strength %.2f (%s), bet too large, folding", s, desc)}
	default:
		return Decision{Action: "fold", Reasoning: fmt.Sprintf("strength %.2f (%s), weak hand, folding", s, desc)}
	}
}
