package mask

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestApplyExtremes(t *testing.T) {
	src := solid(6, 5, color.NRGBA{R: 12, G: 34, B: 56, A: 255})

	zero := block(t, 6, 5)
	out, err := Apply(src, zero)
	require.NoError(t, err)
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			c := out.NRGBAAt(x, y)
			assert.Equal(t, uint8(0), c.A)
			assert.Equal(t, uint8(12), c.R)
		}
	}

	full := block(t, 6, 5, image.Rect(0, 0, 6, 5))
	out, err = Apply(src, full)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestApplyRedScenario(t *testing.T) {
	src := solid(4, 4, color.NRGBA{R: 255, A: 255})
	r := block(t, 4, 4, image.Rect(1, 1, 3, 3))

	wire, err := Encode(r)
	require.NoError(t, err)
	decoded, err := Decode(wire, 4, 4, 1)
	require.NoError(t, err)
	require.True(t, r.Equal(decoded))

	out, err := Apply(src, decoded)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := out.NRGBAAt(x, y)
			want := uint8(0)
			if x >= 1 && x <= 2 && y >= 1 && y <= 2 {
				want = 255
			}
			assert.Equal(t, want, c.A, "alpha at %d,%d", x, y)
			assert.Equal(t, uint8(255), c.R)
		}
	}
}

func TestApplyResamplesMask(t *testing.T) {
	src := solid(8, 8, color.NRGBA{G: 200, A: 255})
	// 左半边为前景的 2x2 掩码放大到 8x8
	r := block(t, 2, 2, image.Rect(0, 0, 1, 2))

	out, err := Apply(src, r)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), out.NRGBAAt(3, 7).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(4, 0).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(7, 7).A)
}

func TestApplyOffsetSource(t *testing.T) {
	base := solid(6, 6, color.NRGBA{B: 99, A: 255})
	sub := base.SubImage(image.Rect(2, 2, 5, 5))
	r := block(t, 3, 3, image.Rect(0, 0, 1, 1))

	out, err := Apply(sub, r)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 3), out.Bounds())
	assert.Equal(t, color.NRGBA{B: 99, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{B: 99, A: 0}, out.NRGBAAt(2, 2))
}

func TestApplyYCbCrSource(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio444)
	r := block(t, 4, 4, image.Rect(0, 0, 4, 4))
	out, err := Apply(src, r)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.NRGBAAt(3, 3).A)
}

func TestResamplePreservesBinary(t *testing.T) {
	r := carve(block(t, 13, 7, image.Rect(1, 1, 12, 6)), image.Rect(4, 2, 6, 4))
	for _, size := range [][2]int{{1, 1}, {5, 3}, {26, 14}, {100, 31}, {13, 7}} {
		out, err := Resample(r, size[0], size[1])
		require.NoError(t, err)
		assert.Equal(t, size[0], out.Width)
		assert.Equal(t, size[1], out.Height)
		for _, v := range out.Pix {
			require.True(t, v == Background || v == Foreground, "value %d", v)
		}
	}

	_, err := Resample(r, 0, 3)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestApplyEncodedUsesImageShape(t *testing.T) {
	src := solid(5, 3, color.NRGBA{R: 1, A: 255})
	r := block(t, 5, 3, image.Rect(0, 0, 2, 3))
	wire, err := Encode(r)
	require.NoError(t, err)

	out, applied, err := ApplyEncoded(src, wire, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.NRGBAAt(1, 2).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(2, 0).A)
	assert.True(t, r.Equal(applied))

	_, _, err = ApplyEncoded(src, wire, 4, 4)
	assert.ErrorIs(t, err, ErrCodec)
}

func TestApplyEncodedResamplesToImage(t *testing.T) {
	src := solid(4, 4, color.NRGBA{G: 3, A: 255})
	wire, err := Encode(block(t, 2, 2, image.Rect(1, 1, 2, 2)))
	require.NoError(t, err)

	out, applied, err := ApplyEncoded(src, wire, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, applied.Width)
	assert.Equal(t, 4, applied.Height)
	assert.Equal(t, image.Rect(2, 2, 4, 4), applied.Bounds())
	assert.Equal(t, uint8(255), out.NRGBAAt(3, 3).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(1, 1).A)
}

func TestCrop(t *testing.T) {
	src := solid(10, 10, color.NRGBA{R: 7, A: 255})
	r := block(t, 10, 10, image.Rect(2, 3, 6, 8))
	out, err := Apply(src, r)
	require.NoError(t, err)

	cropped := Crop(out, r)
	assert.Equal(t, image.Rect(0, 0, 4, 5), cropped.Bounds())
	assert.Equal(t, uint8(255), cropped.NRGBAAt(0, 0).A)

	assert.Same(t, out, Crop(out, block(t, 10, 10)))
}
