package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	"github.com/disintegration/imaging"
)

const (
	photoTargetW = 1819
	photoTargetH = 1311
)

// PhotoOptions controls the scaling behavior of ScalePhoto.
type PhotoOptions struct {
	// Rotate turns portrait sources 90 degrees to landscape before scaling.
	Rotate bool
	// FallbackFill letterboxes sources smaller than the target box instead
	// of upscale-cropping them, filling the border with the source's
	// dominant color.
	FallbackFill bool
	// Export writes the finished image to the debug export directory.
	Export bool
	// ExportDir overrides the default export directory.
	ExportDir string
}

// ScalePhoto decodes a source photo and scales it to the fixed postcard
// dimensions, returning a JPEG. The default strategy is cover: uniform scale
// so both dimensions reach the target box, then center-crop. With
// FallbackFill set, a source smaller than the box in either dimension is
// scaled to fit instead and centered on a canvas filled with its dominant
// color, which avoids low-quality upscaling.
func ScalePhoto(src []byte, opts PhotoOptions) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}

	if opts.Rotate && img.Bounds().Dx() < img.Bounds().Dy() {
		slog.Debug("rotating portrait photo to landscape")
		img = imaging.Rotate90(img)
	}

	export := opts.Export

	var out *image.NRGBA
	if opts.FallbackFill && undersized(img) {
		bg, err := dominantColor(img)
		if err != nil {
			return nil, fmt.Errorf("dominant color: %w", err)
		}
		slog.Warn("photo smaller than target box, letterboxing instead of upscaling",
			"width", img.Bounds().Dx(),
			"height", img.Bounds().Dy(),
			"fill_color", fmt.Sprintf("#%02x%02x%02x", bg.R, bg.G, bg.B),
		)

		fitted := imaging.Fit(img, photoTargetW, photoTargetH, imaging.Lanczos)
		out = imaging.PasteCenter(imaging.New(photoTargetW, photoTargetH, bg), fitted)
		// Letterboxed results are worth a visual check.
		export = true
	} else {
		out = imaging.Fill(img, photoTargetW, photoTargetH, imaging.Center, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}

	if export {
		exportImage(buf.Bytes(), "cover", opts.ExportDir)
	}

	return buf.Bytes(), nil
}

// undersized reports whether the image needs upscaling in either dimension
// to cover the target box.
func undersized(img image.Image) bool {
	return img.Bounds().Dx() < photoTargetW || img.Bounds().Dy() < photoTargetH
}
