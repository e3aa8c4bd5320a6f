package version

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// semver is a parsed "major.minor.patch" triple.
type semver [3]int

func parse(s string) (semver, error) {
	var v semver

	parts := strings.SplitN(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".", 3)
	if len(parts) != 3 {
		return v, fmt.Errorf("malformed version %q", s)
	}

	for i, part := range parts {
		// pre-release and build suffixes are ignored
		part, _, _ = strings.Cut(part, "-")
		part, _, _ = strings.Cut(part, "+")

		n, err := strconv.Atoi(part)
		if err != nil {
			return v, fmt.Errorf("malformed version %q: %w", s, err)
		}
		v[i] = n
	}
	return v, nil
}

// Compare orders two versions, with or without a "v" prefix.
// It returns 1 if a > b, -1 if a < b and 0 if they are equal.
func Compare(a, b string) (int, error) {
	av, err := parse(a)
	if err != nil {
		return 0, err
	}

	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	return slices.Compare(av[:], bv[:]), nil
}
