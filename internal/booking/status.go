package booking

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the only path between statuses. Cancelled and completed
// are terminal: nothing leads out of them.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCancelled: true,
		StatusCompleted: true,
	},
}

// CanTransition reports whether from -> to is a defined transition.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Transition moves the appointment to a new status, failing on anything
// outside the defined table.
func (a *Appointment) Transition(to Status) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	return nil
}

// Confirm approves a pending appointment.
func (a *Appointment) Confirm() error {
	return a.Transition(StatusConfirmed)
}

// MarkCancelled cancels the appointment and records the reason. Cancelling
// an already-cancelled appointment is a no-op so repeated cancel actions
// stay idempotent.
func (a *Appointment) MarkCancelled(reason string) error {
	if a.Status == StatusCancelled {
		return nil
	}
	if err := a.Transition(StatusCancelled); err != nil {
		return err
	}
	a.CancelReason = reason
	return nil
}

// Complete closes out a confirmed appointment.
func (a *Appointment) Complete() error {
	return a.Transition(StatusCompleted)
}
