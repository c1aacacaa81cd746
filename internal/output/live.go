package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>streamview</title></head>
<body style="margin:0;background:#222">
<img src="stream.mjpg" alt="live view" style="display:block;margin:auto">
</body>
</html>
`

// frameHolder keeps the latest encoded frame. Waiters are woken by closing
// the current changed channel.
type frameHolder struct {
	mu      sync.Mutex
	data    []byte
	seq     uint64
	changed chan struct{}
}

func newFrameHolder() *frameHolder {
	return &frameHolder{changed: make(chan struct{})}
}

func (h *frameHolder) set(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = data
	h.seq++
	close(h.changed)
	h.changed = make(chan struct{})
}

func (h *frameHolder) get() ([]byte, uint64, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data, h.seq, h.changed
}

// LiveServer serves the composed canvas: a viewing page, single JPEG
// snapshots, an MJPEG stream and the Prometheus metrics.
type LiveServer struct {
	addr    string
	quality int
	frames  *frameHolder
	mux     *http.ServeMux
	logger  *slog.Logger

	srv *http.Server
	ln  net.Listener
}

// NewLiveServer builds the handlers. Nothing listens until Start.
func NewLiveServer(addr string, quality int, gatherer prometheus.Gatherer, logger *slog.Logger) *LiveServer {
	s := &LiveServer{
		addr:    addr,
		quality: quality,
		frames:  newFrameHolder(),
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /snapshot.jpg", s.handleSnapshot)
	s.mux.HandleFunc("GET /stream.mjpg", s.handleStream)
	if gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *LiveServer) Handler() http.Handler { return s.mux }

// Start listens on the configured address and serves in the background
// until ctx is done or Close is called.
func (s *LiveServer) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("live server stopped", "addr", s.addr, "error", err)
		}
	}()
	s.logger.Info("live view listening", "url", s.URL())
	return nil
}

// URL returns the address of the viewing page, once started.
func (s *LiveServer) URL() string {
	if s.ln == nil {
		return ""
	}
	host, port, err := net.SplitHostPort(s.ln.Addr().String())
	if err != nil {
		return ""
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

// Publish encodes img and makes it the current frame.
func (s *LiveServer) Publish(img image.Image) error {
	var buf bytes.Buffer
	if err := encode(&buf, img, FormatJPEG, s.quality); err != nil {
		return fmt.Errorf("encode live frame: %w", err)
	}
	s.frames.set(buf.Bytes())
	return nil
}

// Close stops the server.
func (s *LiveServer) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

func (s *LiveServer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

func (s *LiveServer) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	data, _, _ := s.frames.get()
	if data == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *LiveServer) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var last uint64
	for {
		data, seq, changed := s.frames.get()
		if data != nil && seq != last {
			last = seq
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {strconv.Itoa(len(data))},
			})
			if err == nil {
				_, err = part.Write(data)
			}
			if err != nil {
				s.logger.Debug("live stream client gone", "remote", r.RemoteAddr, "error", err)
				return
			}
			flusher.Flush()
		}
		select {
		case <-r.Context().Done():
			return
		case <-changed:
		}
	}
}
