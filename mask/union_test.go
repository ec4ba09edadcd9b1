package mask

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detections(t *testing.T) []Detection {
	t.Helper()
	return []Detection{
		NewDetection(block(t, 40, 40, image.Rect(0, 0, 20, 20)), 0.9),
		NewDetection(block(t, 40, 40, image.Rect(10, 10, 30, 30)), 0.8),
		NewDetection(block(t, 40, 40, image.Rect(25, 0, 40, 12)), 0.7),
	}
}

func TestUnionFiltersSmallRegions(t *testing.T) {
	small := NewDetection(block(t, 40, 40, image.Rect(35, 35, 38, 38)), 0.99)
	ds := append(detections(t), small)

	u, err := Union(ds, DefaultMinArea)
	require.NoError(t, err)
	assert.Equal(t, Background, u.At(36, 36))
	assert.Equal(t, Foreground, u.At(15, 15))
	assert.Equal(t, Foreground, u.At(39, 0))
	assert.Equal(t, Background, u.At(5, 35))
}

func TestUnionCommutative(t *testing.T) {
	ds := detections(t)
	reversed := []Detection{ds[2], ds[0], ds[1]}

	a, err := Union(ds, DefaultMinArea)
	require.NoError(t, err)
	b, err := Union(reversed, DefaultMinArea)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestUnionIdempotent(t *testing.T) {
	ds := detections(t)
	u, err := Union(ds, DefaultMinArea)
	require.NoError(t, err)

	uu, err := Union([]Detection{NewDetection(u, 1), NewDetection(u, 1)}, DefaultMinArea)
	require.NoError(t, err)
	assert.True(t, u.Equal(uu))

	for _, d := range ds {
		again, err := Or(u, d.Mask)
		require.NoError(t, err)
		assert.True(t, u.Equal(again))
	}
}

func TestUnionNothingSurvives(t *testing.T) {
	ds := []Detection{NewDetection(block(t, 8, 8, image.Rect(0, 0, 2, 2)), 0.5)}

	u, err := Union(ds, DefaultMinArea)
	assert.ErrorIs(t, err, ErrNoRegionsFound)
	assert.Equal(t, 8, u.Width)
	assert.True(t, u.Empty())

	_, err = Union(nil, DefaultMinArea)
	assert.ErrorIs(t, err, ErrNoRegionsFound)
}

func TestUnionShapeMismatch(t *testing.T) {
	ds := []Detection{
		NewDetection(block(t, 8, 8, image.Rect(0, 0, 8, 8)), 1),
		NewDetection(block(t, 8, 9, image.Rect(0, 0, 8, 9)), 1),
	}
	_, err := Union(ds, 1)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Or(ds[0].Mask, ds[1].Mask)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestUnionDoesNotMutateInputs(t *testing.T) {
	ds := detections(t)
	before := ds[0].Mask.Clone()
	_, err := Union(ds, DefaultMinArea)
	require.NoError(t, err)
	assert.True(t, before.Equal(ds[0].Mask))
}

func TestFilter(t *testing.T) {
	ds := detections(t)
	ds[1].Area = 10
	kept := Filter(ds, DefaultMinArea)
	require.Len(t, kept, 2)
	assert.Equal(t, 0.9, kept[0].Score)
	assert.Equal(t, 0.7, kept[1].Score)
}
