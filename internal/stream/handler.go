// Package stream implements the range-negotiation core of the gateway:
// parsing client byte ranges, sizing the chunk actually served, and
// assembling response metadata.
package stream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"wavegate/internal/catalog"
	"wavegate/internal/observability/logging"
	"wavegate/internal/observability/metrics"
	"wavegate/internal/signing"
	"wavegate/internal/storage"
)

// Handler serves GET /stream. The catalog and signer are optional: without a
// catalog the file parameter is used as the object key directly, and without
// a signer the token and expires parameters are ignored.
type Handler struct {
	storage    storage.Gateway
	catalog    catalog.Repository
	signer     *signing.Signer
	logger     *slog.Logger
	metrics    *metrics.Recorder
	corsOrigin string
}

// Config wires the handler's collaborators.
type Config struct {
	Storage    storage.Gateway
	Catalog    catalog.Repository
	Signer     *signing.Signer
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
	CORSOrigin string
}

// NewHandler validates the configuration and builds the stream handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage gateway is required")
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Default()
	}
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return &Handler{
		storage:    cfg.Storage,
		catalog:    cfg.Catalog,
		signer:     cfg.Signer,
		logger:     cfg.Logger,
		metrics:    recorder,
		corsOrigin: origin,
	}, nil
}

// ServeHTTP handles a single stream request. The flow is strictly linear and
// terminal on the first failure: validate input, verify the URL token,
// resolve the track, fetch metadata, negotiate the range, fetch the bytes,
// write the response.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writePlainError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	logger := h.requestLogger(r)
	defer func() {
		if recovered := recover(); recovered != nil {
			if logger != nil {
				logger.Error("stream handler panic", "panic", recovered)
			}
			writePlainError(w, http.StatusInternalServerError, "internal error")
		}
	}()

	file := r.URL.Query().Get("file")
	if file == "" {
		writePlainError(w, http.StatusBadRequest, "file parameter is required")
		return
	}
	logger = logging.WithContext(logging.ContextWithTrack(r.Context(), file), logger)

	if h.signer.Enabled() {
		token := r.URL.Query().Get("token")
		expires := r.URL.Query().Get("expires")
		if err := h.signer.Verify(file, token, expires); err != nil {
			h.metrics.ObserveTokenRejected()
			if logger != nil {
				logger.Warn("rejected stream token", "error", err)
			}
			writePlainError(w, http.StatusForbidden, "invalid or expired token")
			return
		}
	}

	objectKey, contentTypeOverride := file, ""
	if h.catalog != nil {
		track, err := h.catalog.Resolve(r.Context(), file)
		if errors.Is(err, catalog.ErrTrackNotFound) {
			writePlainError(w, http.StatusNotFound, "unknown track")
			return
		}
		if err != nil {
			if logger != nil {
				logger.Error("catalog lookup failed", "error", err)
			}
			writePlainError(w, http.StatusInternalServerError, "internal error")
			return
		}
		objectKey = track.ObjectKey
		contentTypeOverride = track.ContentType
	}

	meta, err := h.storage.GetMetadata(r.Context(), objectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		writePlainError(w, http.StatusNotFound, "object not found")
		return
	}
	if err != nil || meta.Size <= 0 {
		h.metrics.ObserveStorageFailure("metadata")
		if logger != nil {
			logger.Error("metadata fetch failed", "key", objectKey, "error", err)
		}
		writePlainError(w, http.StatusInternalServerError, "object unavailable")
		return
	}

	rangeHeader := r.Header.Get("Range")
	requested := ByteRange{Start: 0, End: meta.Size - 1}
	if rangeHeader != "" {
		requested, err = ParseRange(rangeHeader, meta.Size)
		if err != nil {
			if logger != nil {
				logger.Warn("unsatisfiable range", "range", rangeHeader, "size", meta.Size)
			}
			writePlainError(w, http.StatusRequestedRangeNotSatisfiable, "Invalid range")
			return
		}
	}

	// A first request is one with no Range header at all, or an explicit
	// range anchored at byte zero: both mark the start of playback.
	firstRequest := rangeHeader == "" || requested.Start == 0
	served := Optimize(requested, meta.Size, firstRequest)

	body, err := h.storage.GetRange(r.Context(), objectKey, served.Start, served.End)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			h.metrics.ObserveStorageFailure("range")
		}
		if logger != nil {
			logger.Warn("range fetch failed", "key", objectKey, "error", err)
		}
		writePlainError(w, http.StatusNotFound, "object not found")
		return
	}
	defer body.Close()

	contentType := meta.ContentType
	if contentTypeOverride != "" {
		contentType = contentTypeOverride
	}
	desc := BuildResponse(served, meta.Size, firstRequest, rangeHeader != "", contentType, file)
	h.writeResponse(w, r, desc)

	h.metrics.StreamStarted()
	defer h.metrics.StreamFinished()
	written, err := io.Copy(w, body)
	if err != nil && logger != nil {
		// Common case: the player disconnected mid-chunk. The request
		// context cancels the backend read, so just note it.
		logger.Debug("stream copy interrupted", "written", written, "error", err)
	}
	h.metrics.ObserveChunk(chunkPolicy(firstRequest, served), TierName(meta.Size), served.Length())
	if logger != nil {
		logger.Info("chunk served",
			"status", desc.Status,
			"start", served.Start,
			"end", served.End,
			"bytes", written,
			"policy", chunkPolicy(firstRequest, served))
	}
}

func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, desc ResponseDescriptor) {
	header := w.Header()
	header.Set("Content-Type", desc.ContentType)
	header.Set("Content-Length", fmt.Sprintf("%d", desc.ContentLength))
	header.Set("Accept-Ranges", "bytes")
	header.Set("Cache-Control", desc.CacheControl)
	header.Set("Access-Control-Allow-Origin", h.corsOrigin)
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("X-Frame-Options", "DENY")
	header.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	header.Set("Content-Disposition", "inline")
	if desc.ContentRange != "" {
		header.Set("Content-Range", desc.ContentRange)
	}
	if desc.NextRange != nil {
		header.Set("X-Next-Range", desc.NextRange.Header())
		header.Set("Link", fmt.Sprintf("<%s>; rel=\"prefetch\"", r.URL.RequestURI()))
	}
	w.WriteHeader(desc.Status)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	if h.logger == nil {
		return nil
	}
	return logging.WithContext(r.Context(), h.logger)
}

func chunkPolicy(firstRequest bool, served ByteRange) string {
	if firstRequest && served.Start == 0 {
		return metrics.PolicyInitial
	}
	return metrics.PolicySteady
}

// writePlainError writes a plain-text error body without a trailing newline;
// range failures must carry the exact body "Invalid range".
func writePlainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}
