// Package redaction scrubs secret-shaped values out of log output
// before it leaves the process: the exchange access key, private key
// path, and anything matching a handful of common secret-field
// patterns that might leak into a log field or formatted message
// (signed headers, connection strings pasted into an error).
package redaction

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)(secret|token|auth)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)Bearer\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)(private[_-]?key|privkey)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)(access[_-]?key)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
}

// Config controls which fields are fully replaced versus pattern-scanned.
type Config struct {
	Enabled       bool
	RedactionText string
	BlockedFields []string
}

// DefaultConfig blocks the field names a signed-request client's logs
// are most likely to carry verbatim.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RedactionText: "***REDACTED***",
		BlockedFields: []string{"password", "secret", "token", "apikey", "private_key", "access_key", "signature"},
	}
}

// Redactor scrubs strings and logrus fields in place.
type Redactor struct {
	cfg Config
}

// New builds a Redactor, falling back to "***REDACTED***" for an empty
// RedactionText.
func New(cfg Config) *Redactor {
	if cfg.RedactionText == "" {
		cfg.RedactionText = "***REDACTED***"
	}
	return &Redactor{cfg: cfg}
}

// RedactString replaces every secret-pattern match in s.
func (r *Redactor) RedactString(s string) string {
	if !r.cfg.Enabled {
		return s
	}
	result := s
	for _, pattern := range secretPatterns {
		repl := "${1}: " + r.cfg.RedactionText
		if pattern.NumSubexp() < 2 {
			// The Bearer pattern's only group is the token itself.
			repl = "Bearer " + r.cfg.RedactionText
		}
		result = pattern.ReplaceAllString(result, repl)
	}
	return result
}

// RedactFields returns a copy of fields with blocked field names fully
// replaced and string values pattern-scanned.
func (r *Redactor) RedactFields(fields logrus.Fields) logrus.Fields {
	if !r.cfg.Enabled {
		return fields
	}
	out := make(logrus.Fields, len(fields))
	for k, v := range fields {
		switch {
		case r.isBlockedField(k):
			out[k] = r.cfg.RedactionText
		default:
			if s, ok := v.(string); ok {
				out[k] = r.RedactString(s)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func (r *Redactor) isBlockedField(name string) bool {
	lower := strings.ToLower(name)
	for _, blocked := range r.cfg.BlockedFields {
		if strings.Contains(lower, blocked) {
			return true
		}
	}
	return false
}

// Hook is a logrus.Hook that redacts every entry's fields and message
// before they reach any logrus output formatter.
type Hook struct {
	redactor *Redactor
}

// NewHook builds a logrus Hook from cfg.
func NewHook(cfg Config) *Hook {
	return &Hook{redactor: New(cfg)}
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	entry.Message = h.redactor.RedactString(entry.Message)
	entry.Data = h.redactor.RedactFields(entry.Data)
	return nil
}
