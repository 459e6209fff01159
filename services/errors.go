package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrNotAuthorized = errors.New("actor is not a party to this booking")
)

// ConflictError marks "not possible" failures: overlapping time, a booking
// already in a terminal state, a duplicate escrow release. Callers should not
// retry without changing the request.
type ConflictError struct {
	Reason string
}

func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func IsConflictError(err error) *ConflictError {
	if err == nil {
		return nil
	}

	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr
	}

	return nil
}

// PolicyViolationError marks "not allowed" failures: the action is blocked by
// a hard rule rather than impossible. Distinct from ConflictError because the
// caller needs different messaging.
type PolicyViolationError struct {
	Reason string
}

func NewPolicyViolation(format string, args ...interface{}) *PolicyViolationError {
	return &PolicyViolationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *PolicyViolationError) Error() string {
	return e.Reason
}

func IsPolicyViolation(err error) *PolicyViolationError {
	if err == nil {
		return nil
	}

	var policyErr *PolicyViolationError
	if errors.As(err, &policyErr) {
		return policyErr
	}

	return nil
}

// InputError collects field-level validation problems. Rejected before any
// state is touched.
type InputError struct {
	fields map[string][]string
}

func newInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func (ie *InputError) addError(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

func (ie *InputError) fieldsCount() int {
	return len(ie.fields)
}

func (ie *InputError) Error() string {
	return fmt.Sprintf("%+v", ie.fields)
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}

func IsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return inputErr
	}

	return nil
}
