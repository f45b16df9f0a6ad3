package action

import (
	"errors"
	"fmt"

	"github.com/zeusync/robosim/internal/core/body"
)

var (
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrIllegalAction     = errors.New("illegal action")
	ErrMissingResult     = errors.New("missing action result")
)

// UnsupportedActionError is returned when no solver exists for an action, or when a solver
// receives a body kind it cannot handle.
type UnsupportedActionError struct {
	Action Action
	Reason string
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported action %s: %s", kindOf(e.Action), e.Reason)
}

func (e *UnsupportedActionError) Is(target error) bool { return target == ErrUnsupportedAction }

// IllegalActionError is a domain violation detected while performing an action.
type IllegalActionError struct {
	Action Action
	Reason string
	Err    error
}

func (e *IllegalActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("illegal action %s: %s: %v", kindOf(e.Action), e.Reason, e.Err)
	}
	return fmt.Sprintf("illegal action %s: %s", kindOf(e.Action), e.Reason)
}

func (e *IllegalActionError) Is(target error) bool { return target == ErrIllegalAction }
func (e *IllegalActionError) Unwrap() error        { return e.Err }

// MissingResultError is returned by composite actions when a step they depend on produced
// no result.
type MissingResultError struct {
	Action Action
}

func (e *MissingResultError) Error() string {
	return fmt.Sprintf("action %s produced no result", kindOf(e.Action))
}

func (e *MissingResultError) Is(target error) bool { return target == ErrMissingResult }

// Unsupported builds an UnsupportedActionError naming the body kind that could not be handled.
func Unsupported(a Action, b any) error {
	name := fmt.Sprintf("%T", b)
	if bb, ok := b.(body.Body); ok && body.KindOf(bb) != "unknown" {
		name = body.KindOf(bb)
	}
	return &UnsupportedActionError{Action: a, Reason: "cannot handle body of kind " + name}
}

// Illegal builds an IllegalActionError.
func Illegal(a Action, reason string, err error) error {
	return &IllegalActionError{Action: a, Reason: reason, Err: err}
}

func kindOf(a Action) Kind {
	if a == nil {
		return KindUnknown
	}
	return a.Kind()
}
