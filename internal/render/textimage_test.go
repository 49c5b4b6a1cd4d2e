package render

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "image/jpeg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeImage(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	return img
}

func TestRenderText_CanvasDimensions(t *testing.T) {
	data, err := RenderText("Greetings from the mountains!", TextOptions{})
	require.NoError(t, err)

	img := decodeImage(t, data)
	assert.Equal(t, textCanvasW, img.Bounds().Dx())
	assert.Equal(t, textCanvasH, img.Bounds().Dy())
}

func TestRenderText_EmptyText(t *testing.T) {
	data, err := RenderText("", TextOptions{})
	require.NoError(t, err)

	img := decodeImage(t, data)
	assert.Equal(t, textCanvasW, img.Bounds().Dx())
	assert.Equal(t, textCanvasH, img.Bounds().Dy())

	// A blank canvas stays white everywhere.
	r, g, b, _ := img.At(textCanvasW/2, textCanvasH/2).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestRenderText_LongText(t *testing.T) {
	long := strings.Repeat("many words flow onto the little card ", 40)

	data, err := RenderText(long, TextOptions{})
	require.NoError(t, err)

	img := decodeImage(t, data)
	assert.Equal(t, textCanvasW, img.Bounds().Dx())
	assert.Equal(t, textCanvasH, img.Bounds().Dy())
}

func TestFindOptimalSize_FitInvariant(t *testing.T) {
	otf, err := loadFont()
	require.NoError(t, err)

	text := "Hello from Bern!\nWish you were here."
	size, chars, err := findOptimalSize(otf, text)
	require.NoError(t, err)

	require.GreaterOrEqual(t, size, minFontSize)
	require.LessOrEqual(t, size, maxFontSize)

	// The chosen layout fits the canvas vertically.
	face, err := newFace(otf, size)
	require.NoError(t, err)
	defer face.Close()

	lines := wrapAll(text, chars)
	total := len(lines) * lineHeight(face, text)
	assert.Less(t, total+2*blockPadding, textCanvasH)
}

func TestFindOptimalSize_MonotonicInTextLength(t *testing.T) {
	otf, err := loadFont()
	require.NoError(t, err)

	short := "Hi!"
	long := strings.Repeat("a longer greeting with many repeated words ", 12)

	shortSize, _, err := findOptimalSize(otf, short)
	require.NoError(t, err)
	longSize, _, err := findOptimalSize(otf, long)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, shortSize, longSize)
}

func TestFindOptimalSize_OverflowUsesMeasuredWrapWidth(t *testing.T) {
	otf, err := loadFont()
	require.NoError(t, err)

	// Enough text that even the minimum font size overflows the canvas.
	huge := strings.Repeat("words keep coming without an end in sight ", 400)

	size, chars, err := findOptimalSize(otf, huge)
	require.NoError(t, err)
	assert.Equal(t, minFontSize, size)

	// The wrap width must be the one measured at the size the text is
	// drawn with, not an arbitrary fallback.
	face, err := newFace(otf, minFontSize)
	require.NoError(t, err)
	defer face.Close()
	assert.Equal(t, wrapWidth(face), chars)

	data, err := RenderText(huge, TextOptions{})
	require.NoError(t, err)
	img := decodeImage(t, data)
	assert.Equal(t, textCanvasW, img.Bounds().Dx())
	assert.Equal(t, textCanvasH, img.Bounds().Dy())
}

func TestWrapLine(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  []string
	}{
		{
			name:  "fits on one line",
			in:    "hello world",
			width: 20,
			want:  []string{"hello world"},
		},
		{
			name:  "wraps at whitespace",
			in:    "one two three four",
			width: 9,
			want:  []string{"one two", "three", "four"},
		},
		{
			name:  "unbreakable token kept whole",
			in:    "see https://example.com/a/very/long/path now",
			width: 10,
			want:  []string{"see", "https://example.com/a/very/long/path", "now"},
		},
		{
			name:  "blank line produces nothing",
			in:    "   ",
			width: 10,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapLine(tt.in, tt.width))
		})
	}
}

func TestWrapAll_PreservesHardBreaks(t *testing.T) {
	lines := wrapAll("first\nsecond line here\n\nlast", 80)
	assert.Equal(t, []string{"first", "second line here", "last"}, lines)
}

func TestRenderText_Export(t *testing.T) {
	dir := t.TempDir()

	_, err := RenderText("export me", TextOptions{Export: true, ExportDir: dir})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_text.jpg"), entries[0].Name())
	assert.True(t, strings.HasPrefix(entries[0].Name(), "postcarder_export_"), entries[0].Name())

	info, err := os.Stat(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
