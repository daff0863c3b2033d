// Package util holds cross-cutting helpers shared by the sandbox, vector
// store, and index manager: human size parsing, host pattern matching, and
// content checksums.
package util

import (
	"strconv"
	"strings"

	"github.com/kubiyabot/skillrt/pkg/apperr"
)

// ParseSize parses a human-readable byte size such as "512m" or "2g" into
// bytes. Accepted suffixes: k, m, g (case-insensitive), or b or none for
// bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apperr.New(apperr.InvalidInput, "empty size")
	}

	lower := strings.ToLower(s)
	multiplier := int64(1)
	numPart := lower

	switch {
	case strings.HasSuffix(lower, "g"):
		multiplier = 1 << 30
		numPart = lower[:len(lower)-1]
	case strings.HasSuffix(lower, "m"):
		multiplier = 1 << 20
		numPart = lower[:len(lower)-1]
	case strings.HasSuffix(lower, "k"):
		multiplier = 1 << 10
		numPart = lower[:len(lower)-1]
	case strings.HasSuffix(lower, "b"):
		numPart = lower[:len(lower)-1]
	}

	numPart = strings.TrimSpace(numPart)
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, apperr.Wrapf(err, apperr.InvalidInput, "invalid size %q", s)
	}
	if n < 0 {
		return 0, apperr.Newf(apperr.InvalidInput, "negative size %q", s)
	}

	return int64(n * float64(multiplier)), nil
}
