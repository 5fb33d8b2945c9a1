package fingerprint

import "testing"

func intPtr(v int) *int { return &v }

func TestFingerprintDeterministic(t *testing.T) {
	req, err := Normalize("https://ex.com/a.jpg", intPtr(200), intPtr(200), "jpg", 0, false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	a := req.Fingerprint()
	b := req.Fingerprint()
	if a != b {
		t.Fatalf("fingerprint not stable: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprintInjectivity(t *testing.T) {
	base, err := Normalize("https://ex.com/a.jpg", intPtr(200), intPtr(200), "jpg", 0, false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	variants := []Request{
		mustNormalize(t, "https://ex.com/b.jpg", intPtr(200), intPtr(200), "jpg", 0, false),
		mustNormalize(t, "https://ex.com/a.jpg", intPtr(201), intPtr(200), "jpg", 0, false),
		mustNormalize(t, "https://ex.com/a.jpg", intPtr(200), intPtr(201), "jpg", 0, false),
		mustNormalize(t, "https://ex.com/a.jpg", intPtr(200), intPtr(200), "webp", 0, false),
		mustNormalize(t, "https://ex.com/a.jpg", intPtr(200), intPtr(200), "jpg", 5, false),
		mustNormalize(t, "https://ex.com/a.jpg", intPtr(200), intPtr(200), "jpg", 0, true),
	}

	baseFP := base.Fingerprint()
	for i, v := range variants {
		if v.Fingerprint() == baseFP {
			t.Fatalf("variant %d collided with base fingerprint", i)
		}
	}
}

func mustNormalize(t *testing.T, url string, w, h *int, format string, blur float64, gray bool) Request {
	t.Helper()
	req, err := Normalize(url, w, h, format, blur, gray)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return req
}

func TestArtifactKeyExtension(t *testing.T) {
	req := mustNormalize(t, "https://ex.com/a.jpg", nil, nil, "webp", 0, false)
	key := req.ArtifactKey()
	if got, want := key[len(key)-5:], ".webp"; got != want {
		t.Fatalf("expected key to end with %q, got %q", want, got)
	}
}

func TestBlurTokenTrimsTrailingZeros(t *testing.T) {
	cases := map[float64]string{
		0:    "0",
		5:    "5",
		5.5:  "5.5",
		0.25: "0.25",
	}
	for sigma, want := range cases {
		if got := blurToken(sigma); got != want {
			t.Fatalf("blurToken(%v) = %q, want %q", sigma, got, want)
		}
	}
}

func TestNormalizeRejectsOutOfRangeWidth(t *testing.T) {
	if _, err := Normalize("https://ex.com/a.jpg", intPtr(5), nil, "jpg", 0, false); err == nil {
		t.Fatal("expected error for width below minimum")
	}
}

func TestNormalizeRejectsNonHTTPScheme(t *testing.T) {
	if _, err := Normalize("ftp://ex.com/a.jpg", nil, nil, "jpg", 0, false); err == nil {
		t.Fatal("expected error for non-http(s) scheme")
	}
}
