// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, a structured HTTP access logger that
// scrubs obvious PII from request metadata before emitting log lines. Support
// tickets routinely carry customer names and contact details, so the logger
// is default-safe: it never logs request or response bodies, masks sensitive
// headers outright, and pattern-redacts emails, phone numbers, and UUID-like
// identifiers from query strings and header values.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Customer-Email"},
//	}))
//
// This reduces but does not eliminate the risk of sensitive data reaching
// logs; clients should still avoid placing PII in query strings or headers.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
type RedactOptions struct {
	// MaskHeaders lists extra header names whose values are replaced with
	// "[REDACTED]" wholesale. Matching is case-insensitive and merged with
	// the built-in set (Authorization, Cookie, Set-Cookie).
	MaskHeaders []string
	// SkipPaths lists exact request paths that are not logged at all
	// (typically /health and /metrics, which are scraped frequently).
	SkipPaths []string
}

// redactor applies the PII substitution patterns in a fixed order.
type redactor struct {
	uuidRE  *regexp.Regexp
	emailRE *regexp.Regexp
	phoneRE *regexp.Regexp
}

func newRedactor() *redactor {
	return &redactor{
		uuidRE:  regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`),
		emailRE: regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`),
		// Digits-only phone pattern so hex runs inside UUIDs cannot match.
		phoneRE: regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`),
	}
}

// scrub rewrites s with all recognized PII patterns replaced. UUIDs are
// redacted before phone numbers so the looser phone pattern cannot claim
// the digit/hyphen segments of a UUID.
func (rd *redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	out := rd.uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	out = rd.emailRE.ReplaceAllString(out, "[REDACTED:email]")
	out = rd.phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
	return out
}

// RedactingLogger returns a Gin middleware that logs HTTP requests with
// sensitive values scrubbed.
//
// Behavior:
//   - Logs method, path, query string, status, response size, latency, and
//     request headers (after scrubbing).
//   - Fully masks built-in sensitive headers plus opts.MaskHeaders.
//   - Severity tracks the response: INFO by default, WARN for 4xx, ERROR
//     for 5xx.
//   - Requests to opts.SkipPaths are passed through without logging.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor()

	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := rd.scrub(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			val := strings.Join(vv, ", ")
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = rd.scrub(val)
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		size := c.Writer.Size()

		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", size).
			Dur("latency", latency).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
