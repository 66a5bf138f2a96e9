package update

import (
	"strconv"
	"strings"
)

// CompareVersions compares two dotted version strings numerically,
// segment by segment, padding the shorter one with zeros so that
// "1.2" equals "1.2.0" and "1.9.0" sorts before "1.10.0".
// A leading "v" and any non-numeric segment suffix are ignored.
// Returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	as := splitSegments(a)
	bs := splitSegments(b)

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// IsNewer reports whether remote is strictly newer than local.
func IsNewer(remote, local string) bool {
	return CompareVersions(remote, local) > 0
}

func splitSegments(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	parts := strings.Split(v, ".")
	segs := make([]int, 0, len(parts))
	for _, p := range parts {
		// Keep the leading digits only; "3-beta" parses as 3.
		end := 0
		for end < len(p) && p[end] >= '0' && p[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(p[:end])
		if err != nil {
			n = 0
		}
		segs = append(segs, n)
	}
	return segs
}
