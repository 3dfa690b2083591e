// ABOUTME: Format validation for LIFX API tokens before they reach a worker.
// ABOUTME: Checks shape only; the API itself is the authority on validity.

package lifx

import (
	"errors"
	"regexp"
)

// ErrCredentialFormat indicates a token that cannot possibly be valid.
var ErrCredentialFormat = errors.New("lifx: credential format invalid")

// tokenPattern matches the shape of LIFX personal access tokens. Kept
// permissive on length so rotated token formats keep working.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{20,128}$`)

// ValidateToken rejects tokens that are structurally impossible, keeping
// garbage out of worker environments without calling the API.
func ValidateToken(token string) error {
	if !tokenPattern.MatchString(token) {
		return ErrCredentialFormat
	}
	return nil
}
