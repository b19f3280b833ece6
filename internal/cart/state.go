package cart

type State string

const (
	StateEmpty      State = "EMPTY"
	StatePopulated  State = "POPULATED"
	StateSubmitting State = "SUBMITTING"
	StateConfirmed  State = "CONFIRMED"
)

var validNext = map[State]map[State]bool{
	StateEmpty:      {StateEmpty: true, StatePopulated: true},
	StatePopulated:  {StateEmpty: true, StatePopulated: true, StateSubmitting: true},
	StateSubmitting: {StatePopulated: true, StateConfirmed: true},
	StateConfirmed:  {},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}

func stateOf(c interface{ Empty() bool }) State {
	if c.Empty() {
		return StateEmpty
	}
	return StatePopulated
}
