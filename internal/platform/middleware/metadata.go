package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"arkhiv/pkg/requestcontext"
)

// Metadata captures client IP and a parsed User-Agent summary for the audit
// register. The reading room logs who accessed what from where; the digital
// register keeps parity.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), summarizeUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// summarizeUserAgent reduces a raw User-Agent to "browser/version (os)".
// Raw UA strings are high-cardinality and can embed junk; the summary is
// what lands in audit events.
func summarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	summary := name
	if version != "" {
		summary += "/" + version
	}
	if os := ua.OS(); os != "" {
		summary += " (" + os + ")"
	}
	return summary
}
