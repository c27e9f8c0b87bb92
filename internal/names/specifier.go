package names

// Specifier is a single token from a pip-style package selection flag such as
// --no-binary or --only-binary: the literal `:all:`, the literal `:none:`, or
// a package name.
type Specifier struct {
	kind specifierKind
	name PackageName
}

type specifierKind int

const (
	specifierPackage specifierKind = iota
	specifierAll
	specifierNone
)

const (
	allToken  = ":all:"
	noneToken = ":none:"
)

// ParseSpecifier parses one raw flag token.
func ParseSpecifier(token string) (Specifier, error) {
	switch token {
	case allToken:
		return Specifier{kind: specifierAll}, nil
	case noneToken:
		return Specifier{kind: specifierNone}, nil
	default:
		name, err := ParseName(token)
		if err != nil {
			return Specifier{}, err
		}
		return Specifier{kind: specifierPackage, name: name}, nil
	}
}

func (s Specifier) String() string {
	switch s.kind {
	case specifierAll:
		return allToken
	case specifierNone:
		return noneToken
	default:
		return s.name.String()
	}
}

// Specifiers is the final selection state collapsed from a sequence of
// Specifier tokens: everything, nothing, or an explicit list of names.
type Specifiers struct {
	all      bool
	packages []PackageName
}

// Collapse folds tokens left to right. `:none:` discards everything seen so
// far, `:all:` wins over any names in the same segment regardless of position,
// and names accumulate in order, duplicates included. The input order must be
// the order the tokens were given on the command line.
func Collapse(specifiers []Specifier) Specifiers {
	var packages []PackageName
	all := false

	for _, s := range specifiers {
		switch s.kind {
		case specifierNone:
			packages = nil
			all = false
		case specifierAll:
			all = true
		case specifierPackage:
			packages = append(packages, s.name)
		}
	}

	if all {
		return Specifiers{all: true}
	}
	return Specifiers{packages: packages}
}

// IsAll reports whether the collapsed state selects every package.
func (s Specifiers) IsAll() bool {
	return s.all
}

// IsNone reports whether the collapsed state selects no packages.
func (s Specifiers) IsNone() bool {
	return !s.all && len(s.packages) == 0
}

// Packages returns the accumulated names, in insertion order. It is nil
// unless the state is an explicit package list.
func (s Specifiers) Packages() []PackageName {
	return s.packages
}

// Matches reports whether name is selected by the collapsed state. Names are
// compared after normalization.
func (s Specifiers) Matches(name PackageName) bool {
	if s.all {
		return true
	}
	normalized := Normalize(name.String())
	for _, p := range s.packages {
		if Normalize(p.String()) == normalized {
			return true
		}
	}
	return false
}
