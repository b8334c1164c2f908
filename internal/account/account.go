// Package account is the relay's surface onto the external account system:
// resolving an authenticated session to a username, reading the current
// nickname color, and persisting color updates. Account CRUD itself lives
// outside this service.
package account

import (
	"context"
	"errors"
	"regexp"
)

// DefaultColor is used when an account has no stored color preference.
const DefaultColor = "#000000"

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ErrInvalidColor reports a color value that is not exactly #RRGGBB.
var ErrInvalidColor = errors.New("invalid color format, #RRGGBB required")

// ErrUnknownSession reports a session token with no bound identity.
var ErrUnknownSession = errors.New("unknown session token")

// ValidColor reports whether c matches #RRGGBB exactly.
func ValidColor(c string) bool {
	return colorPattern.MatchString(c)
}

// Store reads and updates per-account display preferences.
type Store interface {
	// Color returns the account's current nickname color. Accounts with no
	// stored preference get DefaultColor.
	Color(ctx context.Context, username string) (string, error)

	// UpdateColor persists a new nickname color for the account.
	UpdateColor(ctx context.Context, username, color string) error
}

// Authenticator resolves a transport-level session token to a username.
// A connection without a resolvable identity is refused before it can join.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}
