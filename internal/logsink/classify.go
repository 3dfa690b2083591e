// ABOUTME: Pure classification of log entries into system or session scope.
// ABOUTME: Keyword list is configuration, not inline literals.

package logsink

import (
	"log/slog"
	"strings"
)

// Scope identifies which store an entry belongs to.
type Scope string

const (
	// ScopeSystem marks operational entries visible to every session.
	ScopeSystem Scope = "system"
	// ScopeSession marks entries visible only to their owning session.
	ScopeSession Scope = "session"
)

// SessionKey is the metadata key carrying the owning session identifier.
// Call sites that tag their logs with this key get session scoping
// explicitly; keyword matching below is the fallback for untagged entries.
const SessionKey = "session_id"

// DefaultSystemKeywords are matched case-insensitively against the message
// text to classify operational entries as system-wide. The list is a
// configuration value; this is only the default.
var DefaultSystemKeywords = []string{
	"server start",
	"server stop",
	"shutdown",
	"startup",
	"configuration",
	"config loaded",
	"listening",
	"sweep",
}

// Classify decides the scope of a log entry and, for session-scoped
// entries, its owning session. It is a pure function of the inputs.
//
// Rules, in order: a message matching a system keyword is system-wide even
// when a session id is present; an entry carrying a session id is
// session-scoped; everything else (including error-level entries with no
// session attribution) is system-wide.
func Classify(level slog.Level, message string, meta map[string]any, keywords []string) (Scope, string) {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return ScopeSystem, ""
		}
	}

	if sid := sessionFromMeta(meta); sid != "" {
		return ScopeSession, sid
	}

	return ScopeSystem, ""
}

func sessionFromMeta(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	v, ok := meta[SessionKey]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
