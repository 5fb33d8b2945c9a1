// Package codec implements the image transcode pipeline (C3): format
// detection, decode, resize, grayscale, blur, and encode, all intended to
// run off the async scheduler on a dedicated CPU worker pool.
package codec

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"

	deepwebp "github.com/deepteams/webp"

	"github.com/kesler-oduya/imagefp/internal/apperr"
	"github.com/kesler-oduya/imagefp/internal/fingerprint"
)

func init() {
	// Registers WEBP *source* decoding with the stdlib image package, which
	// both image.Decode and imaging.Decode dispatch through.
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
}

// Params is the normalized transform parameter set the codec applies, in
// the fixed order resize -> grayscale -> blur -> encode.
type Params struct {
	Width     *int
	Height    *int
	Format    fingerprint.Format
	BlurSigma float64
	Grayscale bool
}

const triangleThreshold = 300

// Transcode runs the full decode/resize/grayscale/blur/encode sequence and
// returns the encoded bytes plus their Content-Type.
func Transcode(data []byte, params Params) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindDecodeFailed, "failed to decode source image", err)
	}

	img, err = resize(img, params.Width, params.Height)
	if err != nil {
		return nil, "", apperr.Stage("resize", "resize failed", err)
	}

	if params.Grayscale {
		img = imaging.Grayscale(img)
	}

	if params.BlurSigma > 0 {
		img = imaging.Blur(img, params.BlurSigma)
	}

	return encode(img, params.Format, params.Width, params.Height)
}

// resize applies the target-box/aspect-preserving rules of §4.3. A nil
// width and nil height is a no-op (pass-through).
func resize(img image.Image, width, height *int) (image.Image, error) {
	if width == nil && height == nil {
		return img, nil
	}

	srcW, srcH := img.Bounds().Dx(), img.Bounds().Dy()

	var targetW, targetH int
	switch {
	case width != nil && height != nil:
		targetW, targetH = *width, *height
	case width != nil:
		targetW, targetH = *width, 0
	default:
		targetW, targetH = 0, *height
	}

	filter := imaging.Triangle
	if targetLargerEdge(srcW, srcH, targetW, targetH) > triangleThreshold {
		filter = imaging.Lanczos
	}
	resized := imaging.Resize(img, targetW, targetH, filter)
	return resized, nil
}

// targetLargerEdge computes the larger edge of the actual resize target box
// for the filter-selection rule of §4.3 step 3. targetW/targetH of 0 means
// that dimension is derived from the source's aspect ratio by
// imaging.Resize; this mirrors that derivation so the single-dimension case
// picks its filter based on the true target box, not just the one
// dimension the caller supplied.
func targetLargerEdge(srcW, srcH, targetW, targetH int) int {
	largerEdge := max(targetW, targetH)
	switch {
	case targetH == 0 && srcW > 0:
		largerEdge = max(largerEdge, (2*targetW*srcH+srcW)/(2*srcW))
	case targetW == 0 && srcH > 0:
		largerEdge = max(largerEdge, (2*targetH*srcW+srcH)/(2*srcH))
	}
	return largerEdge
}

func encode(img image.Image, format fingerprint.Format, width, height *int) ([]byte, string, error) {
	hintW, hintH := img.Bounds().Dx(), img.Bounds().Dy()
	if width != nil {
		hintW = *width
	}
	if height != nil {
		hintH = *height
	}

	buf := bytes.NewBuffer(make([]byte, 0, hintW*hintH*4))

	switch format {
	case fingerprint.FormatPNG:
		if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
			return nil, "", apperr.Stage("encode", "png encode failed", err)
		}
	case fingerprint.FormatWEBP:
		opts := deepwebp.DefaultOptions()
		opts.Quality = 85.0
		if err := deepwebp.Encode(buf, img, opts); err != nil {
			return nil, "", apperr.Stage("encode", "webp encode failed", err)
		}
	default:
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			return nil, "", apperr.Stage("encode", "jpeg encode failed", err)
		}
	}

	return buf.Bytes(), format.ContentType(), nil
}

// Sniff reports the format implied by magic bytes, mirroring §4.3 step 1.
// It is informational; Transcode always defers to image.Decode for the
// authoritative decode.
func Sniff(data []byte) string {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg"
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}):
		return "png"
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	default:
		return "unknown"
	}
}
