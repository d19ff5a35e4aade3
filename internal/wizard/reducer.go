package wizard

// Reduce applies action to state and returns the next state. It never fails and never validates;
// a nil action returns a copy of state. The input is not modified.
func Reduce(state FormState, action Action) FormState {
	next := state.Clone()
	if action == nil {
		return next
	}
	return action.apply(next)
}

// ReduceAll folds actions over state in order.
func ReduceAll(state FormState, actions ...Action) FormState {
	next := state.Clone()
	for _, action := range actions {
		next = Reduce(next, action)
	}
	return next
}
