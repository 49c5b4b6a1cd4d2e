// Package render prepares the two JPEG faces of a postcard: the text side
// (fixed 720x744 canvas with the message fitted at the largest possible font
// size) and the photo side (fixed 1819x1311 cover crop with a letterboxed
// fallback for undersized sources).
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	textCanvasW = 720
	textCanvasH = 744

	minFontSize = 20
	maxFontSize = 400

	minLineChars = 1
	maxLineChars = 80

	// Horizontal padding per line and vertical padding for the whole block.
	linePadding  = 70
	blockPadding = 50

	// Leading multiplier applied to the measured glyph height.
	lineSpacing = 1.15

	jpegQuality = 90
)

// TextOptions controls side effects of RenderText.
type TextOptions struct {
	// Export writes the finished canvas to the debug export directory.
	Export bool
	// ExportDir overrides the default export directory.
	ExportDir string
}

var loadFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// RenderText draws text onto the fixed postcard canvas and returns it as a
// JPEG. The font size is the largest in [20,400] whose word-wrapped layout
// fits the canvas height; lines are wrapped at whitespace only, explicit
// newlines are kept as hard breaks, and an unbreakable token longer than the
// wrap width is emitted as its own line even if it overflows. Empty text
// yields a valid blank canvas.
func RenderText(text string, opts TextOptions) ([]byte, error) {
	otf, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	size, lineChars, err := findOptimalSize(otf, text)
	if err != nil {
		return nil, err
	}
	slog.Debug("text layout chosen", "font_size", size, "line_chars", lineChars)

	face, err := newFace(otf, size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	lines := wrapAll(text, lineChars)
	lineH := lineHeight(face, text)

	canvas := image.NewRGBA(image.Rect(0, 0, textCanvasW, textCanvasH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	y := blockStartY(len(lines), lineH)
	ascent := face.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for _, line := range lines {
		w, _ := measure(face, line)
		d.Dot = fixed.P((textCanvasW-w)/2, y+ascent)
		d.DrawString(line)
		y += lineH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode text image: %w", err)
	}

	if opts.Export {
		exportImage(buf.Bytes(), "text", opts.ExportDir)
	}

	return buf.Bytes(), nil
}

// findOptimalSize binary-searches the largest font size whose wrapped layout
// fits the canvas height, returning the size and the wrap width (characters
// per line) probed for it. The returned size always fits; when even the
// minimum size overflows, the minimum is returned and the block is drawn
// from the top edge.
func findOptimalSize(otf *opentype.Font, text string) (size, lineChars int, err error) {
	// Probe the floor up front so that when nothing fits, the text is
	// wrapped at a width actually measured at the size it is drawn with.
	floor, err := newFace(otf, minFontSize)
	if err != nil {
		return 0, 0, err
	}
	bestSize, bestChars := minFontSize, wrapWidth(floor)
	floor.Close()

	lo, hi := minFontSize, maxFontSize
	for lo <= hi {
		mid := (lo + hi) / 2

		face, err := newFace(otf, mid)
		if err != nil {
			return 0, 0, err
		}

		chars := wrapWidth(face)
		lines := wrapAll(text, chars)
		total := len(lines) * lineHeight(face, text)
		face.Close()

		if total+2*blockPadding < textCanvasH {
			bestSize, bestChars = mid, chars
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	return bestSize, bestChars, nil
}

// wrapWidth binary-searches the number of characters per line that keeps a
// rendered line inside the canvas width. A repeated reference character
// stands in for average glyph width, so the result is a monospace proxy.
func wrapWidth(face font.Face) int {
	lo, hi := minLineChars, maxLineChars
	n := minLineChars
	for lo < hi {
		n = (lo + hi) / 2
		w, _ := measure(face, strings.Repeat("1", n))
		if w+2*linePadding >= textCanvasW {
			hi = n - 1
		} else {
			lo = n + 1
		}
	}
	return n
}

// wrapAll splits text at explicit newlines and word-wraps each logical line
// independently to at most chars characters.
func wrapAll(text string, chars int) []string {
	var lines []string
	for _, logical := range strings.Split(text, "\n") {
		lines = append(lines, wrapLine(logical, chars)...)
	}
	return lines
}

// wrapLine greedily wraps a single logical line at whitespace boundaries.
// A single token longer than the width is kept whole on its own line.
func wrapLine(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) <= width {
			cur += " " + w
		} else {
			lines = append(lines, cur)
			cur = w
		}
	}
	return append(lines, cur)
}

// lineHeight measures the glyph height of the text (newlines flattened) and
// applies the leading multiplier. Empty text is measured with a reference
// character so the height is never zero.
func lineHeight(face font.Face, text string) int {
	probe := strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(probe) == "" {
		probe = "1"
	}
	_, h := measure(face, probe)
	return int(float64(h) * lineSpacing)
}

// blockStartY vertically centers the text block, with a floor at the top
// edge. The floor cannot be hit for a size chosen by findOptimalSize; it
// only matters when even the minimum size overflows.
func blockStartY(lineCount, lineH int) int {
	total := lineCount * lineH
	if total < textCanvasH {
		return (textCanvasH - total) / 2
	}
	return 0
}

// measure returns the pixel dimensions of the rendered bounding box of s.
func measure(face font.Face, s string) (w, h int) {
	bounds, _ := font.BoundString(face, s)
	return (bounds.Max.X - bounds.Min.X).Ceil(), (bounds.Max.Y - bounds.Min.Y).Ceil()
}

func newFace(otf *opentype.Font, size int) (font.Face, error) {
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face at size %d: %w", size, err)
	}
	return face, nil
}
