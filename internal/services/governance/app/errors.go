package app

import (
	"strings"

	"github.com/louisbranch/moltcompany/internal/services/governance/domain/outcome"
)

// RejectedError reports a domain rejection: the request was well formed but
// the ledger or decision declined it.
type RejectedError struct {
	Operation  string
	Rejections []outcome.Rejection
}

func (e *RejectedError) Error() string {
	messages := make([]string, 0, len(e.Rejections))
	for _, rejection := range e.Rejections {
		messages = append(messages, rejection.Message)
	}
	return e.Operation + " rejected: " + strings.Join(messages, "; ")
}

// Code returns the first rejection code.
func (e *RejectedError) Code() string {
	if len(e.Rejections) == 0 {
		return ""
	}
	return e.Rejections[0].Code
}

func rejected(operation string, rejections []outcome.Rejection) *RejectedError {
	return &RejectedError{Operation: operation, Rejections: append([]outcome.Rejection(nil), rejections...)}
}
