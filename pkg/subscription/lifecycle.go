package subscription

import (
	"fmt"
	"slices"
)

var transitions = map[Class][]Class{
	ClassNone:     {ClassTrial, ClassActive},
	ClassTrial:    {ClassActive, ClassExpired, ClassCanceled},
	ClassActive:   {ClassActive, ClassCanceled, ClassExpired},
	ClassExpired:  {ClassActive},
	ClassCanceled: {ClassActive},
}

// CanTransition reports whether a subscription may move from one class to another.
// A trial is only ever started from ClassNone.
func CanTransition(from, to Class) bool {
	return slices.Contains(transitions[from], to)
}

func checkTransition(from, to Class) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
