package middleware

// identity.go defines helper functions shared across middleware files. They
// read the identity values JWTAuth stored in the Echo context. JWT numeric
// claims decode as float64, so both helpers normalize numbers and strings to
// a stable text form; "anon" / "guest-org" are returned when no identity is
// present (for example on rate-limited routes hit before authentication).

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID renders the authenticated user id as a string key segment.
func currentUserID(c echo.Context) string {
	if s, ok := claimString(c.Get("user_id")); ok {
		return s
	}
	return "anon"
}

// currentOrgID renders the authenticated organization id as a string key
// segment.
func currentOrgID(c echo.Context) string {
	if s, ok := claimString(c.Get("org_id")); ok {
		return s
	}
	return "guest-org"
}

func claimString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t, true
		}
	case float64:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
	return "", false
}
