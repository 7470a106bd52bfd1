// Package outcome carries the accept/reject result of a pure domain operation.
//
// Domain rejections (insufficient equity, voting closed, and so on) are
// expected business outcomes. They travel as values so callers can present
// them without special-casing control flow; only contract violations are
// returned as errors.
package outcome

import "strings"

// Rejection captures a domain-level reason an operation was declined.
type Rejection struct {
	Code    string
	Message string
}

// Outcome is the pure result of evaluating an operation.
type Outcome[T any] struct {
	Value      T
	Rejections []Rejection
}

// Accept returns an outcome carrying value.
func Accept[T any](value T) Outcome[T] {
	return Outcome[T]{Value: value}
}

// Reject returns an outcome carrying the provided rejections.
func Reject[T any](rejections ...Rejection) Outcome[T] {
	return Outcome[T]{Rejections: append([]Rejection(nil), rejections...)}
}

// Accepted reports whether the outcome has no rejections.
func (o Outcome[T]) Accepted() bool {
	return len(o.Rejections) == 0
}

// Message joins rejection messages for display.
func (o Outcome[T]) Message() string {
	messages := make([]string, 0, len(o.Rejections))
	for _, rejection := range o.Rejections {
		messages = append(messages, rejection.Message)
	}
	return strings.Join(messages, "; ")
}
