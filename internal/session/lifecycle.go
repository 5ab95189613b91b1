package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

const (
	eventStart  = "start"
	eventFinish = "finish"
	eventCancel = "cancel"
)

// ErrBackwardTransition is returned when a target state lies behind the current one.
var ErrBackwardTransition = errors.New("lifecycle cannot move backward")

func newLifecycle(current Status) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StatusScheduled)}, Dst: string(StatusActive)},
			{Name: eventFinish, Src: []string{string(StatusScheduled), string(StatusActive)}, Dst: string(StatusCompleted)},
			{Name: eventCancel, Src: []string{string(StatusScheduled), string(StatusActive)}, Dst: string(StatusCancelled)},
		},
		fsm.Callbacks{},
	)
}

// Advance moves a stored status forward to target. It returns the events fired,
// nil when already at target, or ErrBackwardTransition.
func Advance(ctx context.Context, current, target Status) ([]string, error) {
	if current == target {
		return nil, nil
	}
	if !current.Valid() {
		current = StatusScheduled
	}
	var event string
	switch target {
	case StatusActive:
		event = eventStart
	case StatusCompleted:
		event = eventFinish
	case StatusCancelled:
		event = eventCancel
	default:
		return nil, ErrBackwardTransition
	}

	machine := newLifecycle(current)
	if !machine.Can(event) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBackwardTransition, current, target)
	}
	if err := machine.Event(ctx, event); err != nil {
		return nil, err
	}
	return []string{event}, nil
}
