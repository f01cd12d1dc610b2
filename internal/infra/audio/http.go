package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"chat-mate/internal/domain"
)

const (
	maxClipBytes = 10 * 1024 * 1024
	queueSize    = 10
)

// HTTPSource receives clips posted by the browser recorder. Clips are queued
// and handed out one at a time by NextClip.
type HTTPSource struct {
	clips       chan domain.AudioClip
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
	closeOnce   sync.Once
	rateLimiter *RateLimiter
	authToken   string
}

func NewHTTPSource(authToken string, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		clips:       make(chan domain.AudioClip, queueSize),
		logger:      logger,
		rateLimiter: NewRateLimiter(30, time.Minute), // 30 clips per minute per IP
		authToken:   authToken,
	}
}

func (h *HTTPSource) Name() string {
	return "http"
}

// RegisterRoutes mounts the upload endpoint on r.
func (h *HTTPSource) RegisterRoutes(r chi.Router) {
	r.With(h.rateLimiter.Middleware, h.requireToken).Post("/audio", h.handleAudio)
}

func (h *HTTPSource) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = true
	return nil
}

func (h *HTTPSource) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closeOnce.Do(func() {
		close(h.clips)
	})
	h.running = false
	return nil
}

func (h *HTTPSource) NextClip(ctx context.Context) (domain.AudioClip, error) {
	select {
	case <-ctx.Done():
		return domain.AudioClip{}, ctx.Err()
	case clip, ok := <-h.clips:
		if !ok {
			return domain.AudioClip{}, domain.ErrSourceClosed
		}
		return clip, nil
	}
}

// QueueLen reports how many clips are waiting.
func (h *HTTPSource) QueueLen() int {
	return len(h.clips)
}

// InjectAudio queues a clip without going through HTTP. It drops the clip
// when the queue is full.
func (h *HTTPSource) InjectAudio(clip domain.AudioClip) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return false
	}
	select {
	case h.clips <- clip:
		return true
	default:
		return false
	}
}

func (h *HTTPSource) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != h.authToken {
			h.logger.Warn("unauthorized audio upload", "remote_addr", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HTTPSource) handleAudio(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxClipBytes))
	if err != nil {
		h.logger.Error("reading audio body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if len(data) == 0 {
		http.Error(w, "empty audio", http.StatusBadRequest)
		return
	}

	clip := domain.AudioClip{
		Data:       data,
		Container:  containerFromContentType(r.Header.Get("Content-Type")),
		SampleRate: declaredSampleRate(r),
	}

	if !h.InjectAudio(clip) {
		http.Error(w, "queue full, try again", http.StatusServiceUnavailable)
		return
	}

	h.logger.Info("received audio via HTTP", "bytes", len(data), "container", clip.Container)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, `{"status":"received","bytes":%d}`, len(data))
}

// containerFromContentType maps an upload's media type to a container name.
// A missing or generic type is treated as WAV.
func containerFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return domain.ContainerWAV
	}

	switch mediaType {
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return domain.ContainerWAV
	}
	if sub, ok := strings.CutPrefix(mediaType, "audio/"); ok {
		return sub
	}
	return mediaType
}

func declaredSampleRate(r *http.Request) int {
	v := r.Header.Get("X-Sample-Rate")
	if v == "" {
		v = r.URL.Query().Get("rate")
	}
	rate, err := strconv.Atoi(v)
	if err != nil || rate < 0 {
		return 0
	}
	return rate
}
