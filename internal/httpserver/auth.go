package httpserver

import (
	"net/http"
	"os"
	"strings"

	"github.com/effective-security/xlog"
)

const (
	// AllowedGroupsEnvVarName holds a comma-separated allow list of AD
	// groups. Authorization is disabled when the variable is empty.
	AllowedGroupsEnvVarName = "ALLOWED_AD_GROUPS"

	// MembershipsHeader carries the caller's AD group memberships,
	// comma-separated. The header is trusted: an upstream gateway is
	// expected to validate the user's identity and set it.
	MembershipsHeader = "X-AD-Memberships"
)

// AllowedGroups returns the configured allow list, or nil when
// authorization is disabled.
func AllowedGroups() []string {
	return splitGroups(os.Getenv(AllowedGroupsEnvVarName))
}

func splitGroups(s string) []string {
	var groups []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

func hasAllowedGroup(userGroups, allowed []string) bool {
	for _, g := range userGroups {
		for _, a := range allowed {
			if g == a {
				return true
			}
		}
	}
	return false
}

// GroupAuthHandler enforces AD group membership when AllowedGroupsEnvVarName
// is set. Requests must carry at least one allowed group in
// MembershipsHeader; otherwise the handler responds 403.
func GroupAuthHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed := AllowedGroups()
		if len(allowed) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		userGroups := splitGroups(r.Header.Get(MembershipsHeader))
		if !hasAllowedGroup(userGroups, allowed) {
			logger.ContextKV(r.Context(), xlog.WARNING,
				"reason", "authorization_denied",
				"method", r.Method,
				"path", r.URL.Path,
				"user_groups", userGroups,
			)
			writeError(w, http.StatusForbidden, "forbidden", "user not in allowed AD groups")
			return
		}
		next.ServeHTTP(w, r)
	})
}
