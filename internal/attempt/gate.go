package attempt

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrLoginRequired means no usable credential is held; the caller should
	// route the user to the login flow. No network call was made.
	ErrLoginRequired = errors.New("login required")

	// ErrNotEnrolled is the gate's fail-closed decision: the user is not
	// enrolled, or the enrollment check itself failed.
	ErrNotEnrolled = errors.New("not enrolled in this category")
)

// EnrollmentChecker is the read-only backend call the gate depends on.
type EnrollmentChecker interface {
	EnrollmentStatus(ctx context.Context, categoryID string) (bool, error)
}

// CredentialSource supplies the current authorization credential, "" when
// absent or expired.
type CredentialSource interface {
	Credential() string
}

// Gate decides whether the caller may start an attempt for a category. It
// runs to completion before the session loader; the two are never
// concurrent.
type Gate struct {
	checker EnrollmentChecker
	creds   CredentialSource
	log     zerolog.Logger
}

func NewGate(checker EnrollmentChecker, creds CredentialSource, log zerolog.Logger) *Gate {
	return &Gate{checker: checker, creds: creds, log: log}
}

// Authorize returns nil when the attempt may start. Without a credential it
// decides ErrLoginRequired immediately, skipping the network. A failed check
// call decides ErrNotEnrolled: ambiguous failures never grant access.
func (g *Gate) Authorize(ctx context.Context, categoryID string) error {
	if categoryID == "" {
		return errors.New("category id is required")
	}

	if g.creds.Credential() == "" {
		return ErrLoginRequired
	}

	enrolled, err := g.checker.EnrollmentStatus(ctx, categoryID)
	if err != nil {
		g.log.Warn().Str("category_id", categoryID).Err(err).Msg("enrollment check failed, denying access")
		return fmt.Errorf("%w: %v", ErrNotEnrolled, err)
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}
