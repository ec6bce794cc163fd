package csemver

var firstPossibleVersions = func() []Version {
	var all []Version
	for _, core := range [][3]int{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}} {
		all = appendLadder(all, core[0], core[1], core[2])
	}
	return all
}()

// FirstPossibleVersions returns the versions a repository without any version can
// start with: every prerelease name and the release of 0.0.0, 0.1.0 and 1.0.0.
func FirstPossibleVersions() []Version {
	out := make([]Version, len(firstPossibleVersions))
	copy(out, firstPossibleVersions)
	return out
}

// appendLadder appends every standard prerelease name (number and fix 0) of
// major.minor.patch followed by its release.
func appendLadder(to []Version, major, minor, patch int) []Version {
	for i := 0; i <= MaxPrereleaseNameIdx; i++ {
		to = append(to, build(major, minor, patch, i, 0, 0, "", false))
	}
	return append(to, build(major, minor, patch, -1, 0, 0, "", false))
}

// isLadderHead reports whether v is the release or a first prerelease of its
// Major.Minor.Patch.
func (v Version) isLadderHead() bool {
	return v.kind == KindRelease || (v.kind == KindPrerelease && v.number == 0 && v.fix == 0)
}

// IsFirstPossibleVersion reports whether v can be the very first version of a repository.
func (v Version) IsFirstPossibleVersion() bool {
	if !v.IsValid() || !v.isLadderHead() {
		return false
	}
	switch {
	case v.major == 0 && v.minor == 0 && v.patch == 0:
		return true
	case v.major == 0 && v.minor == 1 && v.patch == 0:
		return true
	default:
		return v.major == 1 && v.minor == 0 && v.patch == 0
	}
}

// GetDirectSuccessors returns the versions that can directly follow v, closest
// first. When v is not valid, the first possible versions are returned.
//
// With patchesOnly, a prerelease can only move to its next fix, next number,
// next name or release, and a release only to the next patch.
func (v Version) GetDirectSuccessors(patchesOnly bool) []Version {
	if !v.IsValid() {
		return FirstPossibleVersions()
	}
	var out []Version
	if v.kind == KindPrerelease {
		if v.fix < MaxPrereleaseFix {
			out = append(out, build(v.major, v.minor, v.patch, v.nameIdx, v.number, v.fix+1, "", false))
		}
		if v.number < MaxPrereleaseNumber {
			out = append(out, build(v.major, v.minor, v.patch, v.nameIdx, v.number+1, 0, "", false))
		}
		if v.nameIdx < MaxPrereleaseNameIdx {
			out = append(out, build(v.major, v.minor, v.patch, v.nameIdx+1, 0, 0, "", false))
			if !patchesOnly {
				for i := v.nameIdx + 2; i <= MaxPrereleaseNameIdx; i++ {
					out = append(out, build(v.major, v.minor, v.patch, i, 0, 0, "", false))
				}
			}
		}
		return append(out, build(v.major, v.minor, v.patch, -1, 0, 0, "", false))
	}
	if v.patch < MaxPatch {
		out = appendLadder(out, v.major, v.minor, v.patch+1)
	}
	if patchesOnly {
		return out
	}
	if v.minor < MaxMinor {
		out = appendLadder(out, v.major, v.minor+1, 0)
	}
	if v.major < MaxMajor {
		out = appendLadder(out, v.major+1, 0, 0)
	}
	return out
}

// IsDirectPredecessor reports whether prev can directly precede v. Every direct
// successor of prev qualifies, and so does the head of the next Patch, Minor or
// Major ladder when prev is a prerelease. An invalid prev means "no version": v
// must then be a first possible version.
func (v Version) IsDirectPredecessor(prev Version) bool {
	if !v.IsValid() {
		return false
	}
	if !prev.IsValid() {
		return v.IsFirstPossibleVersion()
	}
	if prev.ordered == v.ordered-1 {
		return true
	}
	if prev.ordered >= v.ordered {
		return false
	}
	if v.major == prev.major && v.minor == prev.minor && v.patch == prev.patch {
		// prev is a prerelease of the same patch.
		if v.kind == KindRelease {
			return true
		}
		if v.fix != 0 {
			return false
		}
		if v.nameIdx == prev.nameIdx {
			return v.number == prev.number+1
		}
		return v.number == 0
	}
	// A bump of Major, Minor or Patch lands on the head of the new ladder,
	// whether prev is a release or a prerelease.
	if !v.isLadderHead() {
		return false
	}
	switch {
	case v.major == prev.major && v.minor == prev.minor:
		return v.patch == prev.patch+1
	case v.major == prev.major:
		return v.minor == prev.minor+1 && v.patch == 0
	default:
		return v.major == prev.major+1 && v.minor == 0 && v.patch == 0
	}
}
