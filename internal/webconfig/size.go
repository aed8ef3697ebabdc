package webconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// parseSize parses a byte-count with an optional K/M/G suffix
// (case-insensitive), multiplying by 1024, 1024^2, 1024^3 respectively
// (spec §3.1). This is a small dedicated parser rather than
// humanize.ParseBytes: humanize reads a bare single-letter suffix as
// decimal ("10M" = 10,000,000), whereas this grammar's suffixes are
// binary ("10M" = 10,485,760) — see DESIGN.md.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	mult := int64(1)
	last := s[len(s)-1]
	switch last {
	case 'k', 'K':
		mult = 1024
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n * mult, nil
}
