package services

import (
	"net/url"
	"strings"
)

// NormalizeImageURL turns a stored image reference into a provider-
// presentable absolute URL, or "" when the reference is unusable. Dropbox
// share links (dl=0) are rewritten to raw delivery so the provider's
// checkout page can embed them.
func NormalizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}

	if strings.Contains(u.Host, "dropbox.com") {
		q := u.Query()
		if q.Get("dl") == "0" {
			q.Del("dl")
			q.Set("raw", "1")
			u.RawQuery = q.Encode()
		}
	}

	return u.String()
}
