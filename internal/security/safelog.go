// Package security masks credentials before they reach logs or output.
package security

import (
	"io"
	"regexp"
	"strings"
)

var (
	secretAssignment = regexp.MustCompile(`(?i)(api[_-]?key|trade[_-]?password|password|secret|token)(["']?\s*[=:]\s*["']?)([^\s"',}]+)`)
	openaiKey        = regexp.MustCompile(`sk-[A-Za-z0-9][A-Za-z0-9_-]{16,}`)
)

// MaskCredential hides the bulk of a secret while keeping enough of the
// edges to recognise which credential it is. Short values are starred
// out entirely.
func MaskCredential(value string) string {
	n := len(value)
	switch {
	case n == 0:
		return ""
	case n <= 4:
		return strings.Repeat("*", n)
	case n <= 8:
		return value[:2] + strings.Repeat("*", n-2)
	default:
		return value[:4] + strings.Repeat("*", n-8) + value[n-4:]
	}
}

// MaskText scans free-form text for credential assignments and API key
// shapes and masks the values in place.
func MaskText(input string) string {
	out := secretAssignment.ReplaceAllStringFunc(input, func(match string) string {
		parts := secretAssignment.FindStringSubmatch(match)
		return parts[1] + parts[2] + MaskCredential(parts[3])
	})
	return openaiKey.ReplaceAllStringFunc(out, MaskCredential)
}

// DescribeSecret renders a credential for operator-facing display.
func DescribeSecret(value string) string {
	if value == "" {
		return "(not set)"
	}
	return MaskCredential(value)
}

type maskWriter struct {
	w io.Writer
}

// MaskWriter wraps a log sink so secrets are masked before they hit
// disk or the terminal. The returned writer reports the original
// length on success, which keeps upstream writers from retrying.
func MaskWriter(w io.Writer) io.Writer {
	return &maskWriter{w: w}
}

func (m *maskWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(m.w, MaskText(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
