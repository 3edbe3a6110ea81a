package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion_Valid(t *testing.T) {
	r := ParseVersion("2.10.3")

	require.True(t, r.IsSuccess())
	assert.Equal(t, "2.10.3", r.Value().String())
}

func TestParseVersion_Invalid(t *testing.T) {
	for _, raw := range []string{"", "1.2", "1.2.3.4", "1.a.3", "-1.0.0", "1.02.0", "1.+2.3", "1.-0.0", "1. 2.3"} {
		r := ParseVersion(raw)

		require.True(t, r.IsFailure(), "expected failure for %q", raw)
		assert.True(t, IsValidation(r.Error()))
	}
}

func TestVersion_Compare(t *testing.T) {
	v210 := ParseVersion("2.1.0").Value()
	v203 := ParseVersion("2.0.3").Value()
	v210b := ParseVersion("2.1.0").Value()

	assert.True(t, v210.IsGreaterThan(v203))
	assert.False(t, v203.IsGreaterThan(v210))
	assert.True(t, v210.Equals(v210b))
	assert.Equal(t, -1, v203.Compare(v210))
}

func TestVersion_Bumps(t *testing.T) {
	v := ParseVersion("1.2.3").Value()

	assert.Equal(t, "2.0.0", v.BumpMajor().String())
	assert.Equal(t, "1.3.0", v.BumpMinor().String())
	assert.Equal(t, "1.2.4", v.BumpPatch().String())
	// v itself is unchanged
	assert.Equal(t, "1.2.3", v.String())
}

func TestModelName_TrimsAndRejectsEmpty(t *testing.T) {
	r := NewModelName("  Order Pipeline  ")

	require.True(t, r.IsSuccess())
	assert.Equal(t, "Order Pipeline", r.Value().String())

	assert.True(t, NewModelName("   ").IsFailure())
}

func TestPosition_RejectsNonFinite(t *testing.T) {
	require.True(t, NewPosition(1.5, -2).IsSuccess())

	assert.True(t, NewPosition(math.Inf(1), 0).IsFailure())
	assert.True(t, NewPosition(0, math.NaN()).IsFailure())
}
