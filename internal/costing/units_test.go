package costing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	cases := map[string]Unit{
		"g": Gram, "Gr": Gram, " KG ": Kilogram, "mg": Milligram,
		"Ml": Milliliter, "l": Liter, "lt": Liter,
		"Und": Each, "un": Each, "units": Each, "dz": Dozen,
	}
	for in, want := range cases {
		got, err := ParseUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseUnit("cup")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestUnit_IsBase(t *testing.T) {
	assert.True(t, Gram.IsBase())
	assert.True(t, Milliliter.IsBase())
	assert.True(t, Each.IsBase())
	assert.False(t, Kilogram.IsBase())
	assert.False(t, Dozen.IsBase())
	assert.False(t, Unit("CUP").IsBase())
}

func TestConvert(t *testing.T) {
	got, err := Convert(d("2.5"), Kilogram, Gram)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("2500")))

	got, err = Convert(d("250"), Milligram, Gram)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("0.25")))

	got, err = Convert(d("1.5"), Liter, Milliliter)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("1500")))

	got, err = Convert(d("36"), Each, Dozen)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("3")))
}

func TestConvert_AcrossFamilies(t *testing.T) {
	_, err := Convert(d("1"), Milliliter, Gram)
	var um *UnitMismatchError
	require.ErrorAs(t, err, &um)
	assert.Contains(t, err.Error(), "volume")
	assert.Contains(t, err.Error(), "mass")
}
