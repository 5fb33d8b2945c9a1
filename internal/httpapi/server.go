// Package httpapi implements the public HTTP surface (C8): the resize
// redirect operation, the download-by-key operation, and a plain health
// probe route, wired with stdlib routing the way the teacher's
// cmd/server/main.go dispatches requests.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kesler-oduya/imagefp/internal/apperr"
	"github.com/kesler-oduya/imagefp/internal/fingerprint"
	"github.com/kesler-oduya/imagefp/internal/logger"
	"github.com/kesler-oduya/imagefp/internal/resultcache"
)

// Pipeline is the subset of internal/pipeline.Pipeline the HTTP layer needs;
// expressed as an interface so handlers are testable against a stub.
type Pipeline interface {
	Resize(ctx context.Context, req fingerprint.Request) (resultcache.CacheEntry, error)
	Download(ctx context.Context, key string) ([]byte, string, error)
}

type Server struct {
	pipeline Pipeline
}

func NewServer(p Pipeline) *Server {
	return &Server{pipeline: p}
}

// Routes returns the mux for the three public routes.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/images/resize", s.handleResize)
	mux.HandleFunc("/api/images/files/", s.handleDownload)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawURL := q.Get("url")
	width, err := parseOptionalInt(q.Get("width"))
	if err != nil {
		writeError(w, apperr.New(apperr.KindInvalidRequest, "width must be an integer"))
		return
	}
	height, err := parseOptionalInt(q.Get("height"))
	if err != nil {
		writeError(w, apperr.New(apperr.KindInvalidRequest, "height must be an integer"))
		return
	}
	blurSigma := 0.0
	if raw := q.Get("blur_sigma"); raw != "" {
		blurSigma, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, apperr.New(apperr.KindInvalidRequest, "blur_sigma must be a number"))
			return
		}
	}
	grayscale := false
	if raw := q.Get("grayscale"); raw != "" {
		grayscale, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apperr.New(apperr.KindInvalidRequest, "grayscale must be a boolean"))
			return
		}
	}

	req, err := fingerprint.Normalize(rawURL, width, height, q.Get("format"), blurSigma, grayscale)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := s.pipeline.Resize(r.Context(), req)
	if err != nil {
		logger.Warnf("[HTTPAPI] resize failed: %v (url=%s)", err, rawURL)
		writeError(w, err)
		return
	}

	w.Header().Set("Location", entry.PublicURL)
	w.WriteHeader(http.StatusMovedPermanently)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/images/files/")
	if key == "" {
		writeError(w, apperr.New(apperr.KindNotFound, "missing artifact key"))
		return
	}

	data, contentType, err := s.pipeline.Download(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warnf("[HTTPAPI] error writing download response: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func parseOptionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	kind, ok := apperr.KindOf(err)
	if !ok {
		kind = "INTERNAL"
	}

	if kind == apperr.KindInvalidRequest {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: string(kind), Message: err.Error()}})
		return
	}

	http.Error(w, string(kind), status)
}
