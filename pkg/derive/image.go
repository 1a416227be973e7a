package derive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
)

// Image derivation defaults: the target width bounds the derivative, the
// quality matches the upstream preset.
const (
	DefaultImageTargetWidth = 900
	DefaultImageJPEGQuality = 78
)

// ImageTranscoder reduces still images in-process: decode, optional
// aspect-preserving downscale, JPEG re-encode at a fixed quality.
type ImageTranscoder struct {
	// TargetWidth is the maximum derivative width. Narrower sources are
	// re-encoded without resizing.
	TargetWidth int

	// Quality is the JPEG encode quality (1-100).
	Quality int
}

// NewImageTranscoder creates an ImageTranscoder with the fixed preset.
func NewImageTranscoder() *ImageTranscoder {
	return &ImageTranscoder{
		TargetWidth: DefaultImageTargetWidth,
		Quality:     DefaultImageJPEGQuality,
	}
}

// Transcode decodes src, downscales it to TargetWidth when wider
// (Lanczos resampling, aspect preserved) and re-encodes as JPEG. The
// JPEG encode flattens any alpha channel, which is the fixed color model
// for derivatives.
func (t *ImageTranscoder) Transcode(ctx context.Context, src []byte, sourceName string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrFailed, sourceName, truncateDiagnostic(err.Error()))
	}

	if width := img.Bounds().Dx(); width > t.TargetWidth {
		img = imaging.Resize(img, t.TargetWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(t.Quality)); err != nil {
		return nil, fmt.Errorf("%w: encode %q: %v", ErrFailed, sourceName, truncateDiagnostic(err.Error()))
	}
	return buf.Bytes(), nil
}

// Ensure ImageTranscoder implements Transcoder.
var _ Transcoder = (*ImageTranscoder)(nil)
