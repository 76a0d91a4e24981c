// Package auth is the authentication boundary of the send pipeline. Nothing
// is composed, sent or logged unless the authenticator reports approval.
package auth

import "context"

type Decision string

const (
	Approved  Decision = "approved"
	Denied    Decision = "denied"
	Cancelled Decision = "cancelled"
)

type Authenticator interface {
	Authenticate(ctx context.Context, prompt string) (Decision, error)
}

// Static always returns a fixed decision. It stands in when no approval
// service is configured.
type Static struct {
	Decision Decision
}

func (s Static) Authenticate(context.Context, string) (Decision, error) {
	return s.Decision, nil
}
