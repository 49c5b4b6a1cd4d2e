package render

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeJPEG returns JPEG bytes of a solid-colored w x h image.
func makeJPEG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := imaging.New(w, h, c)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

var (
	testRed  = color.NRGBA{R: 200, G: 30, B: 30, A: 255}
	testBlue = color.NRGBA{R: 30, G: 30, B: 200, A: 255}
)

func TestScalePhoto_CoverLargeSource(t *testing.T) {
	src := makeJPEG(t, 4000, 3000, testRed)

	data, err := ScalePhoto(src, PhotoOptions{Rotate: true})
	require.NoError(t, err)

	img := decodeImage(t, data)
	assert.Equal(t, photoTargetW, img.Bounds().Dx())
	assert.Equal(t, photoTargetH, img.Bounds().Dy())

	// Every pixel comes from the (solid red) source: no border anywhere.
	for _, pt := range []image.Point{
		{0, 0}, {photoTargetW - 1, 0}, {0, photoTargetH - 1},
		{photoTargetW - 1, photoTargetH - 1}, {photoTargetW / 2, photoTargetH / 2},
	} {
		r, _, b, _ := img.At(pt.X, pt.Y).RGBA()
		assert.Greater(t, r>>8, uint32(150), "corner %v should be red", pt)
		assert.Less(t, b>>8, uint32(100), "corner %v should be red", pt)
	}
}

func TestScalePhoto_RotatesPortrait(t *testing.T) {
	// Portrait source taller than wide; rotation makes it 3000x4000 and the
	// cover crop then fills the target without letterboxing.
	src := makeJPEG(t, 3000, 4000, testBlue)

	data, err := ScalePhoto(src, PhotoOptions{Rotate: true})
	require.NoError(t, err)

	img := decodeImage(t, data)
	assert.Equal(t, photoTargetW, img.Bounds().Dx())
	assert.Equal(t, photoTargetH, img.Bounds().Dy())
}

func TestScalePhoto_FallbackFillUndersized(t *testing.T) {
	// A small solid-red source with FallbackFill letterboxes on a canvas
	// filled with the dominant (red) color. A 400x300 source fit into
	// 1819x1311 leaves vertical bars left and right; with a solid source the
	// bars carry the same dominant color, so instead we verify the contain
	// path by checking every sampled pixel is red and untouched by crop.
	src := makeJPEG(t, 400, 300, testRed)

	data, err := ScalePhoto(src, PhotoOptions{Rotate: true, FallbackFill: true, ExportDir: t.TempDir()})
	require.NoError(t, err)

	img := decodeImage(t, data)
	assert.Equal(t, photoTargetW, img.Bounds().Dx())
	assert.Equal(t, photoTargetH, img.Bounds().Dy())

	r, _, b, _ := img.At(0, 0).RGBA()
	assert.Greater(t, r>>8, uint32(150))
	assert.Less(t, b>>8, uint32(100))
}

func TestScalePhoto_FallbackBorderUsesDominantColor(t *testing.T) {
	// Two-tone source, mostly blue: the letterbox border must be blue.
	img := imaging.New(400, 300, testBlue)
	img = imaging.Paste(img, imaging.New(100, 300, testRed), image.Pt(0, 0))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))

	data, err := ScalePhoto(buf.Bytes(), PhotoOptions{FallbackFill: true, ExportDir: t.TempDir()})
	require.NoError(t, err)

	out := decodeImage(t, data)

	// 400x300 fit into 1819x1311 scales to 1748x1311: bars on both sides.
	_, _, b, _ := out.At(5, photoTargetH/2).RGBA()
	assert.Greater(t, b>>8, uint32(150), "left border should use dominant blue")
	_, _, b, _ = out.At(photoTargetW-5, photoTargetH/2).RGBA()
	assert.Greater(t, b>>8, uint32(150), "right border should use dominant blue")
}

func TestScalePhoto_NoFallbackUpscales(t *testing.T) {
	// Without FallbackFill an undersized source is upscale-cropped: the
	// whole output is source content, no border.
	src := makeJPEG(t, 400, 300, testRed)

	data, err := ScalePhoto(src, PhotoOptions{})
	require.NoError(t, err)

	out := decodeImage(t, data)
	r, _, _, _ := out.At(0, photoTargetH/2).RGBA()
	assert.Greater(t, r>>8, uint32(150))
}

func TestScalePhoto_AspectPreserved(t *testing.T) {
	// An exact-size source and a 2x same-aspect source cover to the same
	// dimensions with no distortion.
	exact := makeJPEG(t, photoTargetW, photoTargetH, testBlue)
	double := makeJPEG(t, 2*photoTargetW, 2*photoTargetH, testBlue)

	a, err := ScalePhoto(exact, PhotoOptions{})
	require.NoError(t, err)
	b, err := ScalePhoto(double, PhotoOptions{})
	require.NoError(t, err)

	imgA := decodeImage(t, a)
	imgB := decodeImage(t, b)
	assert.Equal(t, imgA.Bounds(), imgB.Bounds())
}

func TestScalePhoto_InvalidSource(t *testing.T) {
	_, err := ScalePhoto([]byte("not an image"), PhotoOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode photo")
}

func TestDominantColor_MostFrequentWins(t *testing.T) {
	img := imaging.New(100, 100, testBlue)
	img = imaging.Paste(img, imaging.New(20, 100, testRed), image.Pt(0, 0))

	c, err := dominantColor(img)
	require.NoError(t, err)
	assert.Greater(t, int(c.B), 150)
	assert.Less(t, int(c.R), 100)
}
