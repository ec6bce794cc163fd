// Package csemver implements CSemVer versions: Major.Minor.Patch[-prerelease[.Number[.Fix]]]
// mapped onto a dense, totally ordered integer.
//
// Every valid version has an ordered value in [1, MaxOrderedVersion]. Ordering and
// equality only consider that value: two versions written differently (for
// instance "1.0.0-foo" and "1.0.0-prerelease") are equal.
package csemver

import (
	"fmt"
	"strings"
)

const (
	// MaxMajor is the greatest Major component.
	MaxMajor = 99999
	// MaxMinor is the greatest Minor component.
	MaxMinor = 49999
	// MaxPatch is the greatest Patch component.
	MaxPatch = 9999
	// MaxPrereleaseNameIdx is the index of the last standard prerelease name ("rc").
	MaxPrereleaseNameIdx = 7
	// MaxPrereleaseNumber is the greatest prerelease number.
	MaxPrereleaseNumber = 99
	// MaxPrereleaseFix is the greatest prerelease fix.
	MaxPrereleaseFix = 99
)

const (
	fixRange  int64 = MaxPrereleaseFix + 1
	numRange  int64 = fixRange * (MaxPrereleaseNumber + 1)
	nameSlot  int64 = numRange*(MaxPrereleaseNameIdx+1) + 1
	minorSlot int64 = nameSlot * (MaxPatch + 1)
	majorSlot int64 = minorSlot * (MaxMinor + 1)

	// MaxOrderedVersion is the ordered value of v99999.49999.9999.
	MaxOrderedVersion int64 = MaxMajor*majorSlot + MaxMinor*minorSlot + (MaxPatch+1)*nameSlot
)

var standardNames = [MaxPrereleaseNameIdx + 1]string{
	"alpha", "beta", "delta", "epsilon", "gamma", "kappa", "prerelease", "rc",
}

// nonStandardNameIdx is the slot non-standard prerelease names are ordered in.
const nonStandardNameIdx = 6

// StandardPrereleaseNames returns the ordered standard prerelease names.
func StandardPrereleaseNames() []string {
	names := make([]string, len(standardNames))
	copy(names, standardNames[:])
	return names
}

// Kind is the shape of a Version.
type Kind int

const (
	// KindInvalid is a string that is not a version at all.
	KindInvalid Kind = iota
	// KindMalformed is a string that looks like a version but breaks a rule.
	KindMalformed
	// KindRelease is a valid release version.
	KindRelease
	// KindPrerelease is a valid prerelease version.
	KindPrerelease
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindRelease:
		return "release"
	case KindPrerelease:
		return "prerelease"
	default:
		return "invalid"
	}
}

// Version is an immutable CSemVer version. The zero value is an invalid version
// and stands for "no version".
type Version struct {
	kind    Kind
	text    string
	reason  string
	ordered int64

	major, minor, patch int
	nameIdx             int
	number, fix         int
	rawName             string
	markedInvalid       bool
}

// New returns the release version major.minor.patch.
func New(major, minor, patch int) (Version, error) {
	if err := checkCore(major, minor, patch); err != nil {
		return Version{}, err
	}
	return build(major, minor, patch, -1, 0, 0, "", false), nil
}

// NewPrerelease returns the prerelease version identified by a standard name index,
// a number and a fix.
func NewPrerelease(major, minor, patch, nameIdx, number, fix int) (Version, error) {
	if err := checkCore(major, minor, patch); err != nil {
		return Version{}, err
	}
	if nameIdx < 0 || nameIdx > MaxPrereleaseNameIdx {
		return Version{}, fmt.Errorf("prerelease name index %d out of range [0,%d]", nameIdx, MaxPrereleaseNameIdx)
	}
	if number < 0 || number > MaxPrereleaseNumber {
		return Version{}, fmt.Errorf("prerelease number %d out of range [0,%d]", number, MaxPrereleaseNumber)
	}
	if fix < 0 || fix > MaxPrereleaseFix {
		return Version{}, fmt.Errorf("prerelease fix %d out of range [0,%d]", fix, MaxPrereleaseFix)
	}
	return build(major, minor, patch, nameIdx, number, fix, "", false), nil
}

// FromOrdered decodes an ordered value back into its version.
func FromOrdered(ordered int64) (Version, error) {
	if ordered < 1 || ordered > MaxOrderedVersion {
		return Version{}, fmt.Errorf("ordered version %d out of range [1,%d]", ordered, MaxOrderedVersion)
	}
	l := ordered - 1
	major := l / majorSlot
	l %= majorSlot
	minor := l / minorSlot
	l %= minorSlot
	patch := l / nameSlot
	rem := l % nameSlot
	if rem == nameSlot-1 {
		return build(int(major), int(minor), int(patch), -1, 0, 0, "", false), nil
	}
	nameIdx := rem / numRange
	number := (rem % numRange) / fixRange
	fix := rem % fixRange
	return build(int(major), int(minor), int(patch), int(nameIdx), int(number), int(fix), "", false), nil
}

func checkCore(major, minor, patch int) error {
	if major < 0 || major > MaxMajor {
		return fmt.Errorf("major %d out of range [0,%d]", major, MaxMajor)
	}
	if minor < 0 || minor > MaxMinor {
		return fmt.Errorf("minor %d out of range [0,%d]", minor, MaxMinor)
	}
	if patch < 0 || patch > MaxPatch {
		return fmt.Errorf("patch %d out of range [0,%d]", patch, MaxPatch)
	}
	return nil
}

func encode(major, minor, patch, nameIdx, number, fix int) int64 {
	o := int64(major)*majorSlot + int64(minor)*minorSlot + int64(patch+1)*nameSlot
	if nameIdx >= 0 {
		o -= nameSlot - 1
		o += int64(nameIdx)*numRange + int64(number)*fixRange + int64(fix)
	}
	return o
}

// build assumes components are in range.
func build(major, minor, patch, nameIdx, number, fix int, rawName string, markedInvalid bool) Version {
	v := Version{
		kind:          KindRelease,
		major:         major,
		minor:         minor,
		patch:         patch,
		nameIdx:       -1,
		markedInvalid: markedInvalid,
	}
	if nameIdx >= 0 {
		v.kind = KindPrerelease
		v.nameIdx = nameIdx
		v.number = number
		v.fix = fix
		v.rawName = rawName
		if v.rawName == "" {
			v.rawName = standardNames[nameIdx]
		}
	}
	v.ordered = encode(major, minor, patch, v.nameIdx, number, fix)
	return v
}

// Kind returns the shape of the version.
func (v Version) Kind() Kind { return v.kind }

// IsValid reports whether v is a release or a prerelease.
func (v Version) IsValid() bool { return v.kind == KindRelease || v.kind == KindPrerelease }

// IsMalformed reports whether v was parsed from a string that looks like a version
// but breaks one of the rules.
func (v Version) IsMalformed() bool { return v.kind == KindMalformed }

// IsPrerelease reports whether v is a valid prerelease.
func (v Version) IsPrerelease() bool { return v.kind == KindPrerelease }

// IsRelease reports whether v is a valid release.
func (v Version) IsRelease() bool { return v.kind == KindRelease }

// IsMarkedInvalid reports whether the version carries the "+invalid" marker.
func (v Version) IsMarkedInvalid() bool { return v.markedInvalid }

// ParseError returns why an invalid or malformed version could not be parsed.
func (v Version) ParseError() string { return v.reason }

// Text returns the string v was parsed from, if any.
func (v Version) Text() string { return v.text }

// Ordered returns the ordered value. It is 0 for invalid versions.
func (v Version) Ordered() int64 { return v.ordered }

func (v Version) Major() int { return v.major }
func (v Version) Minor() int { return v.minor }
func (v Version) Patch() int { return v.patch }

// PrereleaseNameIdx is -1 for releases.
func (v Version) PrereleaseNameIdx() int {
	if v.kind != KindPrerelease {
		return -1
	}
	return v.nameIdx
}

// PrereleaseName returns the standard name of the prerelease slot, empty for releases.
func (v Version) PrereleaseName() string {
	if v.kind != KindPrerelease {
		return ""
	}
	return standardNames[v.nameIdx]
}

// PrereleaseNameFromTag returns the prerelease name as it was written.
func (v Version) PrereleaseNameFromTag() string { return v.rawName }

func (v Version) PrereleaseNumber() int { return v.number }
func (v Version) PrereleaseFix() int    { return v.fix }

// IsPrereleaseFix reports whether v is a prerelease with a non zero fix.
func (v Version) IsPrereleaseFix() bool { return v.kind == KindPrerelease && v.fix > 0 }

// IsStandardPrerelease reports whether the prerelease name is one of the standard names.
// Releases are standard.
func (v Version) IsStandardPrerelease() bool {
	if v.kind != KindPrerelease {
		return v.kind == KindRelease
	}
	return strings.EqualFold(v.rawName, standardNames[v.nameIdx])
}

// DefinitionStrength breaks ties between tags that denote the same version on one commit.
func (v Version) DefinitionStrength() int {
	if !v.IsValid() {
		return 0
	}
	s := 3
	if v.kind == KindPrerelease && !v.IsStandardPrerelease() {
		s--
	}
	if v.markedInvalid {
		s += 2
	}
	return s
}

// Compare returns -1, 0 or +1. Invalid versions are lower than any valid one.
func (v Version) Compare(o Version) int {
	switch {
	case v.ordered < o.ordered:
		return -1
	case v.ordered > o.ordered:
		return 1
	default:
		return 0
	}
}

// Equal reports whether both versions have the same ordered value.
func (v Version) Equal(o Version) bool { return v.ordered == o.ordered }

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool { return v.ordered < o.ordered }

// String returns the text v was parsed from, or its normalized form.
func (v Version) String() string {
	if v.text != "" {
		return v.text
	}
	return v.Format(Normalized)
}
