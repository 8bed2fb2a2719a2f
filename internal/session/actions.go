package session

// ActionType is a client action the watch loop may send to the server.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
)

// Action is one locally-legal move. Min and Max bound the chip amount for
// call and raise; both are zero for fold and check.
type Action struct {
	Type ActionType
	Min  uint64
	Max  uint64
}

// LegalActions computes the action set for our seat from the tracked betting
// state. It returns nil when it is not our turn, the hand is not live, or the
// session is desynced. The server remains authoritative; this is a pre-send
// filter, never a substitute for server validation.
func (s *Session) LegalActions() []Action {
	if s.desynced || s.State != StateActive || s.TurnSeat != s.OurSeat {
		return nil
	}
	us := s.Seats[s.OurSeat]
	if us.Folded || us.Stack == 0 {
		return nil
	}

	actions := []Action{{Type: ActionFold}}

	need := s.toCall(s.OurSeat)
	if need == 0 {
		actions = append(actions, Action{Type: ActionCheck})
	} else {
		call := need
		if call > us.Stack {
			call = us.Stack
		}
		actions = append(actions, Action{Type: ActionCall, Min: call, Max: call})
	}

	// Raise is stated as the total street commitment to raise to. The
	// minimum is a full raise unless that exceeds the stack, in which case
	// the only raise available is all-in.
	if us.Stack > need {
		maxTo := us.StreetCommit + us.Stack
		minTo := s.BetTo + s.MinRaise
		if minTo > maxTo {
			minTo = maxTo
		}
		actions = append(actions, Action{Type: ActionRaise, Min: minTo, Max: maxTo})
	}

	return actions
}
