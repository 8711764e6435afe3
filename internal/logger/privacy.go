package logger

import (
	"net/url"
	"strings"
)

const redacted = "REDACTED"

// secretParams lists query parameters that carry credentials for rate APIs.
var secretParams = []string{"access_key", "apikey", "api_key", "app_id"}

// RedactURL hides credential query parameters so endpoints can be logged.
// Unparseable input is returned as a placeholder rather than verbatim.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}

	query := u.Query()
	changed := false
	for key := range query {
		for _, secret := range secretParams {
			if strings.EqualFold(key, secret) {
				query.Set(key, redacted)
				changed = true
			}
		}
	}
	if u.User != nil {
		u.User = url.User(redacted)
		changed = true
	}
	if changed {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
