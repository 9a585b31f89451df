package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName_String(t *testing.T) {
	assert.Equal(t, "5", Name(5).String())
	assert.Equal(t, "-65536", Name(-65536).String())
}

func TestName_StringRoundTrip(t *testing.T) {
	for _, n := range []Name{1, 5, 16384, math.MaxInt64, -1} {
		back, err := StringToName(n.String())
		require.NoError(t, err)
		assert.Equal(t, n, back)
	}
}

func TestStringToName_Invalid(t *testing.T) {
	_, err := StringToName("flower")
	assert.Error(t, err)
}

func TestName_Bytes(t *testing.T) {
	n := Name(1234567890)
	var back Name
	require.NoError(t, back.FromBytes(n.Bytes()))
	assert.Equal(t, n, back)

	assert.Error(t, back.FromBytes([]byte{1, 2, 3}))
}

func TestName_IsObjectName(t *testing.T) {
	assert.True(t, Name(1).IsObjectName())
	assert.False(t, NullName.IsObjectName())
	assert.False(t, Name(-3).IsObjectName())
}

func TestReverseComplement(t *testing.T) {
	assert.Equal(t, "GTAC", ReverseComplement("GTAC"))
	assert.Equal(t, "ACGT", ReverseComplement("ACGT"))
	assert.Equal(t, "NNcgTA", ReverseComplement("TAcgNN"))
	assert.Equal(t, "", ReverseComplement(""))
	assert.Equal(t, "A-T", ReverseComplement("A-T"))
}

func TestStrand_String(t *testing.T) {
	assert.Equal(t, "+", ForwardStrand.String())
	assert.Equal(t, "-", ReverseStrand.String())
	assert.Equal(t, "Unknown", Strand(7).String())
}
