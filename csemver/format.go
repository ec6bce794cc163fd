package csemver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blang/semver"
)

// Format selects how a Version is rendered.
type Format int

const (
	// Normalized is v{Major}.{Minor}.{Patch}[-{Name}[.{Number}[.{Fix}]]][+invalid].
	Normalized Format = iota
	// SemVer has no leading v and renders prereleases as {Name}.{Number}.{Fix}
	// as soon as the number or the fix is not zero.
	SemVer
	// SemVerWithMarker is SemVer followed by +invalid when the version is marked invalid.
	SemVerWithMarker
	// NuGetV2 abbreviates prerelease names to their first letter and zero pads
	// numbers to two digits, joined with dashes.
	NuGetV2
	// FileVersion splits the ordered value shifted left by one bit into four
	// 16 bits groups.
	FileVersion
)

var formatNames = map[string]Format{
	"normalized":         Normalized,
	"semver":             SemVer,
	"semverwithmarker":   SemVerWithMarker,
	"nuget":              NuGetV2,
	"nugetv2":            NuGetV2,
	"nugetpackagev2":     NuGetV2,
	"file":               FileVersion,
	"fileversion":        FileVersion,
	"semver-with-marker": SemVerWithMarker,
}

// ParseFormat maps a case-insensitive format name to a Format.
func ParseFormat(name string) (Format, error) {
	f, ok := formatNames[strings.ToLower(name)]
	if !ok {
		return Normalized, fmt.Errorf("unknown version format %q", name)
	}
	return f, nil
}

func (f Format) String() string {
	switch f {
	case SemVer:
		return "semver"
	case SemVerWithMarker:
		return "semverwithmarker"
	case NuGetV2:
		return "nugetv2"
	case FileVersion:
		return "fileversion"
	default:
		return "normalized"
	}
}

// Format renders v. Invalid versions render as the text they were parsed from.
func (v Version) Format(f Format) string {
	if !v.IsValid() {
		return v.text
	}
	var b strings.Builder
	switch f {
	case FileVersion:
		return FileVersionOf(v.ordered, false)
	case Normalized:
		b.WriteByte('v')
		v.writeCore(&b)
		if v.kind == KindPrerelease {
			b.WriteByte('-')
			b.WriteString(v.PrereleaseName())
			if v.number > 0 || v.fix > 0 {
				b.WriteByte('.')
				b.WriteString(strconv.Itoa(v.number))
				if v.fix > 0 {
					b.WriteByte('.')
					b.WriteString(strconv.Itoa(v.fix))
				}
			}
		}
		if v.markedInvalid {
			b.WriteString("+invalid")
		}
	case SemVer, SemVerWithMarker:
		v.writeCore(&b)
		if v.kind == KindPrerelease {
			b.WriteByte('-')
			b.WriteString(v.PrereleaseName())
			if v.number > 0 || v.fix > 0 {
				fmt.Fprintf(&b, ".%d.%d", v.number, v.fix)
			}
		}
		if f == SemVerWithMarker && v.markedInvalid {
			b.WriteString("+invalid")
		}
	case NuGetV2:
		v.writeCore(&b)
		if v.kind == KindPrerelease {
			b.WriteByte('-')
			b.WriteString(v.PrereleaseName()[:1])
			if v.number > 0 || v.fix > 0 {
				fmt.Fprintf(&b, "-%02d", v.number)
				if v.fix > 0 {
					fmt.Fprintf(&b, "-%02d", v.fix)
				}
			}
		}
	default:
		return v.Format(Normalized)
	}
	return b.String()
}

func (v Version) writeCore(b *strings.Builder) {
	fmt.Fprintf(b, "%d.%d.%d", v.major, v.minor, v.patch)
}

// FileVersionOf renders an ordered value as Major.Minor.Build.Revision: the value is
// shifted left by one bit, the low bit set for CI builds, and split into four
// 16 bits groups.
func FileVersionOf(ordered int64, isCI bool) string {
	n := uint64(ordered) << 1
	if isCI {
		n |= 1
	}
	return fmt.Sprintf("%d.%d.%d.%d", n>>48, (n>>32)&0xFFFF, (n>>16)&0xFFFF, n&0xFFFF)
}

// SemVer returns v as a blang/semver value, for precedence checks against
// other SemVer strings.
func (v Version) SemVer() (semver.Version, error) {
	if !v.IsValid() {
		return semver.Version{}, fmt.Errorf("version %q is not valid: %s", v.text, v.reason)
	}
	return semver.Parse(v.Format(SemVer))
}
