package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/kesler-oduya/imagefp/internal/fingerprint"
)

func sampleJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode sample jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestTranscodeResizeAndFormat(t *testing.T) {
	src := sampleJPEG(t, 500, 500)
	w, h := 100, 100

	out, contentType, err := Transcode(src, Params{Width: &w, Height: &h, Format: fingerprint.FormatPNG})
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	if contentType != "image/png" {
		t.Fatalf("expected image/png, got %s", contentType)
	}
	if Sniff(out) != "png" {
		t.Fatalf("expected png magic bytes, got %s", Sniff(out))
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("expected %dx%d, got %dx%d", w, h, img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestTranscodeWebpOutput(t *testing.T) {
	src := sampleJPEG(t, 50, 50)
	out, contentType, err := Transcode(src, Params{Format: fingerprint.FormatWEBP})
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	if contentType != "image/webp" {
		t.Fatalf("expected image/webp, got %s", contentType)
	}
	if Sniff(out) != "webp" {
		t.Fatalf("expected webp magic bytes, got %s", Sniff(out))
	}
}

func TestTranscodePassThroughWithoutResize(t *testing.T) {
	src := sampleJPEG(t, 64, 64)
	out, _, err := Transcode(src, Params{Format: fingerprint.FormatJPEG})
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Fatalf("expected pass-through dimensions preserved, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestTranscodeInvalidBytesFailsDecode(t *testing.T) {
	_, _, err := Transcode([]byte("not an image"), Params{Format: fingerprint.FormatJPEG})
	if err == nil {
		t.Fatal("expected decode failure for garbage input")
	}
}

func TestTargetLargerEdgeUsesDerivedDimensionForSingleAxisRequests(t *testing.T) {
	// A tall portrait source with only width requested: the true target box
	// (after deriving height from the source aspect ratio) is far larger
	// than the Triangle threshold, even though the requested width alone is
	// small.
	if got := targetLargerEdge(200, 2000, 250, 0); got <= triangleThreshold {
		t.Fatalf("expected derived larger edge over the threshold, got %d", got)
	}
	// A small source where the derived dimension also stays under the
	// threshold should still pick Triangle.
	if got := targetLargerEdge(200, 200, 250, 0); got > triangleThreshold {
		t.Fatalf("expected derived larger edge under the threshold, got %d", got)
	}
	// Symmetric case driven by height instead of width.
	if got := targetLargerEdge(2000, 200, 0, 250); got <= triangleThreshold {
		t.Fatalf("expected derived larger edge over the threshold (height-only), got %d", got)
	}
}
