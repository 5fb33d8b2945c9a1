// Package fingerprint computes the deterministic content-address for a
// transform request: a canonical byte serialization hashed with SHA-256.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/kesler-oduya/imagefp/internal/apperr"
)

// Format is the requested output image format.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatWEBP
)

func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWEBP, true
	default:
		return FormatJPEG, false
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	default:
		return "jpg"
	}
}

// token is the short form used inside the canonical fingerprint string; it
// is the same jpg|png|webp string that Extension returns.
func (f Format) token() string {
	return f.Extension()
}

func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatWEBP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Request is a normalized, immutable transform request. Construct it with
// Normalize rather than a struct literal so range/default checks run once.
type Request struct {
	SourceURL string
	Width     *int
	Height    *int
	Format    Format
	BlurSigma float64
	Grayscale bool
}

const (
	minExtent = 10
	maxExtent = 4096
	maxBlur   = 100.0
)

// Normalize validates raw, possibly-absent inputs and produces a Request
// ready for fingerprinting. A nil width/height pointer means "omitted".
func Normalize(sourceURL string, width, height *int, formatStr string, blurSigma float64, grayscale bool) (Request, error) {
	if sourceURL == "" {
		return Request{}, apperr.New(apperr.KindInvalidRequest, "url is required")
	}
	if !strings.HasPrefix(sourceURL, "http://") && !strings.HasPrefix(sourceURL, "https://") {
		return Request{}, apperr.New(apperr.KindInvalidRequest, "url must be an absolute http(s) URI")
	}
	if width != nil && (*width < minExtent || *width > maxExtent) {
		return Request{}, apperr.New(apperr.KindInvalidRequest, "width out of range [10,4096]")
	}
	if height != nil && (*height < minExtent || *height > maxExtent) {
		return Request{}, apperr.New(apperr.KindInvalidRequest, "height out of range [10,4096]")
	}
	if blurSigma < 0 || blurSigma > maxBlur {
		return Request{}, apperr.New(apperr.KindInvalidRequest, "blur_sigma out of range [0,100]")
	}
	format, ok := ParseFormat(formatStr)
	if !ok {
		return Request{}, apperr.New(apperr.KindInvalidRequest, "format must be one of jpg|png|webp")
	}

	return Request{
		SourceURL: strings.ToLower(sourceURL),
		Width:     width,
		Height:    height,
		Format:    format,
		BlurSigma: blurSigma,
		Grayscale: grayscale,
	}, nil
}

// canonical renders the fixed-order, pipe-delimited byte string described by
// the fingerprint normalization rules: url|w|h|fmt|blur|gray.
func (r Request) canonical() []byte {
	var b strings.Builder
	b.WriteString(r.SourceURL)
	b.WriteByte('|')
	b.WriteString(extentToken(r.Width))
	b.WriteByte('|')
	b.WriteString(extentToken(r.Height))
	b.WriteByte('|')
	b.WriteString(r.Format.token())
	b.WriteByte('|')
	b.WriteString(blurToken(r.BlurSigma))
	b.WriteByte('|')
	if r.Grayscale {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	return []byte(b.String())
}

func extentToken(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

// blurToken renders sigma with up to 6 fractional digits, trailing zeros and
// a bare trailing decimal point trimmed; 0 renders as "0".
func blurToken(sigma float64) string {
	s := strconv.FormatFloat(sigma, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		s = "0"
	}
	return s
}

// Fingerprint returns the 64-character lowercase hex SHA-256 of the
// canonical serialization.
func (r Request) Fingerprint() string {
	sum := sha256.Sum256(r.canonical())
	return hex.EncodeToString(sum[:])
}

// ArtifactKey is the storage key the fingerprint addresses.
func (r Request) ArtifactKey() string {
	return r.Fingerprint() + "." + r.Format.Extension()
}

// ContentTypeForExtension deduces a Content-Type from an artifact key's
// extension, used by the download path which only has a key, not a Request.
func ContentTypeForExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
