package index

import (
	"strconv"
	"strings"
)

// Satisfies reports whether a version meets a comma separated constraint like
// ">=1.0, <2.0". An empty constraint is met by anything; a bare version is
// treated as an exact pin.
func Satisfies(version, constraint string) bool {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return true
	}

	for _, clause := range strings.Split(constraint, ",") {
		if !satisfiesOne(version, strings.TrimSpace(clause)) {
			return false
		}
	}
	return true
}

func satisfiesOne(version, clause string) bool {
	if clause == "" {
		return true
	}

	var op, want string
	switch {
	case strings.HasPrefix(clause, "~="):
		return satisfiesCompatible(version, strings.TrimSpace(clause[2:]))
	case strings.HasPrefix(clause, "==="):
		return version == strings.TrimSpace(clause[3:])
	case strings.HasPrefix(clause, "=="):
		op, want = "==", clause[2:]
	case strings.HasPrefix(clause, "!="):
		op, want = "!=", clause[2:]
	case strings.HasPrefix(clause, ">="):
		op, want = ">=", clause[2:]
	case strings.HasPrefix(clause, "<="):
		op, want = "<=", clause[2:]
	case strings.HasPrefix(clause, ">"):
		op, want = ">", clause[1:]
	case strings.HasPrefix(clause, "<"):
		op, want = "<", clause[1:]
	default:
		op, want = "==", clause
	}
	want = strings.TrimSpace(want)

	cmp := Compare(version, want)
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">=":
		return cmp >= 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case "<":
		return cmp < 0
	}
	return true
}

// satisfiesCompatible implements the `~=` compatible release clause:
// `~=2.2.3` means `>=2.2.3, ==2.2.*`.
func satisfiesCompatible(version, want string) bool {
	if Compare(version, want) < 0 {
		return false
	}
	parts := strings.Split(want, ".")
	if len(parts) < 2 {
		return true
	}
	prefix := parts[:len(parts)-1]
	have := strings.Split(version, ".")
	if len(have) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if normalizeComponent(have[i]) != normalizeComponent(p) {
			return false
		}
	}
	return true
}

// exactPin reports whether the constraint pins one exact version.
func exactPin(constraint string) bool {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || strings.Contains(constraint, ",") {
		return false
	}
	if strings.HasPrefix(constraint, "==") {
		return true
	}
	return !strings.ContainsAny(constraint, "<>~!=")
}

// Compare orders two dotted version strings. Components are compared
// numerically on their leading digits, then lexically on any remaining
// suffix; a component without a suffix sorts after one with a suffix, so
// "1.0" > "1.0rc1".
func Compare(a, b string) int {
	aParts := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bParts := strings.Split(strings.TrimPrefix(b, "v"), ".")

	maxLen := len(aParts)
	if len(bParts) > maxLen {
		maxLen = len(bParts)
	}

	for i := 0; i < maxLen; i++ {
		var aComp, bComp string
		if i < len(aParts) {
			aComp = aParts[i]
		}
		if i < len(bParts) {
			bComp = bParts[i]
		}
		if cmp := compareComponent(aComp, bComp); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func compareComponent(a, b string) int {
	aNum, aRest := splitNumeric(a)
	bNum, bRest := splitNumeric(b)

	if aNum != bNum {
		if aNum < bNum {
			return -1
		}
		return 1
	}

	// Same numeric part: a bare component is a final release and sorts after
	// a suffixed one ("0" > "0rc1").
	switch {
	case aRest == bRest:
		return 0
	case aRest == "":
		return 1
	case bRest == "":
		return -1
	case aRest < bRest:
		return -1
	default:
		return 1
	}
}

func splitNumeric(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}

func normalizeComponent(s string) string {
	n, rest := splitNumeric(s)
	return strconv.Itoa(n) + rest
}
