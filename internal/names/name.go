package names

import (
	"fmt"
	"regexp"
	"strings"
)

// PackageName is a normalized PyPI package name (PEP 503): lowercase, with
// runs of `-`, `_` and `.` collapsed to a single `-`.
type PackageName string

// InvalidNameError is returned when a string is not a valid package name.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid package name: %q (names must start and end with a letter or digit and may only contain -, _, ., letters and digits)", e.Name)
}

var (
	nameRe      = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	separatorRe = regexp.MustCompile(`[-_.]+`)
)

// ParseName validates and normalizes a package name.
func ParseName(s string) (PackageName, error) {
	if !nameRe.MatchString(s) {
		return "", &InvalidNameError{Name: s}
	}
	return PackageName(Normalize(s)), nil
}

// Normalize lowercases a name and collapses runs of `-`, `_` and `.` to `-`.
// It does not validate; use ParseName for untrusted input.
func Normalize(s string) string {
	return separatorRe.ReplaceAllString(strings.ToLower(s), "-")
}

func (n PackageName) String() string {
	return string(n)
}
