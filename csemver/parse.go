package csemver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	strictRe = regexp.MustCompile(`(?i)^v?(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)` +
		`(?:-([a-z]+)(?:\.(0|[1-9][0-9]?)(?:\.([1-9][0-9]?))?)?)?(\+invalid)?$`)

	// permissiveRe catches strings that are attempts at a version so that they can
	// be reported as malformed instead of being silently ignored.
	permissiveRe = regexp.MustCompile(`(?i)^v?([0-9]+(?:\.[0-9]+)+)(?:-([^+]*))?(?:\+(.*))?$`)

	lettersRe = regexp.MustCompile(`^[A-Za-z]+$`)
	digitsRe  = regexp.MustCompile(`^[0-9]+$`)
)

// TryParse parses s. It never fails: strings that are not versions yield an invalid
// Version whose ParseError explains why, and Kind tells apart "not a version"
// (KindInvalid) from "looks like a version but is wrong" (KindMalformed).
func TryParse(s string) Version {
	m := strictRe.FindStringSubmatch(s)
	if m == nil {
		return diagnose(s)
	}
	major, ok := atoiBounded(m[1], MaxMajor)
	if !ok {
		return malformed(s, outOfRange("Major", MaxMajor))
	}
	minor, ok := atoiBounded(m[2], MaxMinor)
	if !ok {
		return malformed(s, outOfRange("Minor", MaxMinor))
	}
	patch, ok := atoiBounded(m[3], MaxPatch)
	if !ok {
		return malformed(s, outOfRange("Patch", MaxPatch))
	}
	marked := m[7] != ""
	if m[4] == "" {
		v := build(major, minor, patch, -1, 0, 0, "", marked)
		v.text = s
		return v
	}
	number, fix := 0, 0
	if m[5] != "" {
		number, _ = strconv.Atoi(m[5])
	}
	if m[6] != "" {
		fix, _ = strconv.Atoi(m[6])
	} else if m[5] == "0" {
		return malformed(s, "Prerelease number 0 is only allowed when followed by a fix (.0.F).")
	}
	v := build(major, minor, patch, prereleaseNameIdx(m[4]), number, fix, m[4], marked)
	v.text = s
	return v
}

// Parse parses s and returns an error if it is not a valid version.
func Parse(s string) (Version, error) {
	v := TryParse(s)
	if !v.IsValid() {
		return v, fmt.Errorf("parsing version %q: %s", s, v.reason)
	}
	return v, nil
}

// MustParse is like Parse but panics if s is not a valid version.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func prereleaseNameIdx(name string) int {
	for i, n := range standardNames {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return nonStandardNameIdx
}

func atoiBounded(s string, limit int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n > limit {
		return 0, false
	}
	return n, true
}

func outOfRange(component string, limit int) string {
	return fmt.Sprintf("%s must be between 0 and %d.", component, limit)
}

func invalid(s, reason string) Version {
	return Version{kind: KindInvalid, text: s, reason: reason}
}

func malformed(s, reason string) Version {
	return Version{kind: KindMalformed, text: s, reason: reason}
}

// diagnose explains why s did not match the strict grammar.
func diagnose(s string) Version {
	m := permissiveRe.FindStringSubmatchIndex(s)
	if m == nil {
		return invalid(s, "Not a version.")
	}
	core := s[m[2]:m[3]]
	hasPre := m[4] >= 0
	hasBuild := m[6] >= 0

	parts := strings.Split(core, ".")
	if len(parts) < 3 {
		return malformed(s, "Expected Major.Minor.Patch.")
	}
	if len(parts) > 3 {
		return malformed(s, "Too many numeric parts: expected Major.Minor.Patch.")
	}
	names := [3]string{"Major", "Minor", "Patch"}
	bounds := [3]int{MaxMajor, MaxMinor, MaxPatch}
	for i, p := range parts {
		if len(p) > 1 && p[0] == '0' {
			return malformed(s, names[i]+" must not have leading zeros.")
		}
		if _, ok := atoiBounded(p, bounds[i]); !ok {
			return malformed(s, outOfRange(names[i], bounds[i]))
		}
	}
	if hasBuild && !strings.EqualFold(s[m[6]:m[7]], "invalid") {
		return malformed(s, "Build metadata must be '+invalid' when present.")
	}
	if hasPre {
		if reason := diagnosePrerelease(s[m[4]:m[5]]); reason != "" {
			return malformed(s, reason)
		}
	}
	return malformed(s, "Invalid version.")
}

func diagnosePrerelease(pre string) string {
	if pre == "" {
		return "Missing prerelease name."
	}
	parts := strings.Split(pre, ".")
	if !lettersRe.MatchString(parts[0]) {
		return "Prerelease name must contain only letters a-z."
	}
	if len(parts) > 3 {
		return "Too many prerelease parts: expected Name[.Number[.Fix]]."
	}
	if len(parts) > 1 {
		n := parts[1]
		if !digitsRe.MatchString(n) || len(n) > 2 {
			return "Prerelease number must be between 0 and 99."
		}
		if len(n) > 1 && n[0] == '0' {
			return "Prerelease number must not have leading zeros."
		}
		if len(parts) == 2 && n == "0" {
			return "Prerelease number 0 is only allowed when followed by a fix (.0.F)."
		}
	}
	if len(parts) > 2 {
		f := parts[2]
		if !digitsRe.MatchString(f) || len(f) > 2 || f == "0" {
			return "Prerelease fix must be between 1 and 99."
		}
		if f[0] == '0' {
			return "Prerelease fix must not have leading zeros."
		}
	}
	return ""
}
