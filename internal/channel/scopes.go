package channel

import (
	"time"

	"github.com/gobwas/glob"
)

// scopeCovered matches a scope against granted patterns. Patterns use
// glob syntax with ":" as separator, so "fs:write:*" covers
// "fs:write:src/main.go" but not "net:fetch". A pattern that fails to
// compile falls back to exact string comparison.
func scopeCovered(grants []scopeGrant, scope string, now time.Time) bool {
	for _, g := range grants {
		if !g.ExpiresAt.IsZero() && !now.Before(g.ExpiresAt) {
			continue
		}
		if g.Pattern == scope {
			return true
		}
		matcher, err := glob.Compile(g.Pattern, ':')
		if err != nil {
			continue
		}
		if matcher.Match(scope) {
			return true
		}
	}
	return false
}
