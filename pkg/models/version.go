package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funcmodel/funcmodel/pkg/result"
)

// Version is a strict major.minor.patch semantic version.
type Version struct {
	major int
	minor int
	patch int
}

// InitialVersion is 1.0.0, the version every new model starts at.
func InitialVersion() Version {
	return Version{major: 1}
}

// ParseVersion validates raw as "major.minor.patch" with non-negative parts.
func ParseVersion(raw string) result.Result[Version] {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 {
		return result.Errf[Version]("version %q is not major.minor.patch: %w", raw, ErrValidation)
	}

	nums := make([]int, 3)

	for i, part := range parts {
		if !isDigits(part) || (len(part) > 1 && part[0] == '0') {
			return result.Errf[Version]("version %q has invalid component %q: %w", raw, part, ErrValidation)
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return result.Errf[Version]("version %q has invalid component %q: %w", raw, part, ErrValidation)
		}

		nums[i] = n
	}

	return result.Ok(Version{major: nums[0], minor: nums[1], patch: nums[2]})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, in semantic-version order.
func (v Version) Compare(other Version) int {
	for _, d := range []int{v.major - other.major, v.minor - other.minor, v.patch - other.patch} {
		if d < 0 {
			return -1
		}

		if d > 0 {
			return 1
		}
	}

	return 0
}

// IsGreaterThan reports whether v is strictly newer than other.
func (v Version) IsGreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// Equals reports component-wise equality.
func (v Version) Equals(other Version) bool {
	return v.Compare(other) == 0
}

// BumpMajor returns a new Version with major+1 and minor/patch reset.
func (v Version) BumpMajor() Version {
	return Version{major: v.major + 1}
}

// BumpMinor returns a new Version with minor+1 and patch reset.
func (v Version) BumpMinor() Version {
	return Version{major: v.major, minor: v.minor + 1}
}

// BumpPatch returns a new Version with patch+1.
func (v Version) BumpPatch() Version {
	return Version{major: v.major, minor: v.minor, patch: v.patch + 1}
}
