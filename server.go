package shorty

import (
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/xerrors"
)

// maxBodySize limits the size of a shorten request body.
const maxBodySize = 8 << 10

const redirectPage = `<!DOCTYPE HTML>
<html lang="en-US">
    <head>
        <meta charset="UTF-8">
        <meta http-equiv="refresh" content="0; url=%s">
        <title>Page Redirection</title>
    </head>
</html>
`

type Server struct {
	index  Index
	logger *slog.Logger
	quiet  bool
}

// NewServer returns a new Server using index i and logger l.
// If l is nil, slog.Default() will be used.
func NewServer(i Index, l *slog.Logger) *Server {
	if l == nil {
		l = slog.Default()
	}

	return &Server{
		index:  i,
		logger: l.With(slog.String("component", "server")),
	}
}

// Quiet disables the per-request log lines.
func (s *Server) Quiet(quiet bool) {
	s.quiet = quiet
}

// SetupRoutes registers the shorten and resolve handlers on the router.
func (s *Server) SetupRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "%s", http.StatusText(http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "method not allowed", requestAttrs(r)...)
		writeError(w, http.StatusMethodNotAllowed, "%s", http.StatusText(http.StatusMethodNotAllowed))
	})

	r.Post("/", s.shorten)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "%s", http.StatusText(http.StatusNotFound))
	})
	r.Get("/{code}", func(w http.ResponseWriter, r *http.Request) {
		s.resolve(w, r, chi.URLParam(r, "code"))
	})
}

// writeError writes a printf-formatted response using the specified status code to the client.
func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, format, args...)
}

// shorten handles POST requests whose body is the URL to shorten. It responds with the
// absolute short URL the client can use instead in the future.
func (s *Server) shorten(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if xerrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "%s : The post body exceeds %d bytes.", http.StatusText(http.StatusRequestEntityTooLarge), tooLarge.Limit)
			return
		}
		writeError(w, http.StatusBadRequest, "%s : Could not read the post body.", http.StatusText(http.StatusBadRequest))
		return
	}

	longURL := strings.TrimSpace(string(body))
	if longURL == "" {
		s.logger.WarnContext(r.Context(), "post request without body", requestAttrs(r)...)
		writeError(w, http.StatusBadRequest, "%s : The post body is missing.", http.StatusText(http.StatusBadRequest))
		return
	}

	shortURL, err := s.index.Shorten(r.Context(), longURL)
	if err != nil {
		if xerrors.Is(err, ErrInvalidURL) {
			s.logger.WarnContext(r.Context(), "post does not contain a valid URL", append(requestAttrs(r), slog.String("body", longURL))...)
			writeError(w, http.StatusBadRequest, "%s : The post does not contain a valid URL %s", http.StatusText(http.StatusBadRequest), longURL)
			return
		}
		s.logger.ErrorContext(r.Context(), "error shortening URL", append(requestAttrs(r), slog.String("url", longURL), slog.Any("error", err))...)
		writeError(w, http.StatusInternalServerError, "%s", http.StatusText(http.StatusInternalServerError))
		return
	}

	if !s.quiet {
		s.logger.InfoContext(r.Context(), "shortened", append(requestAttrs(r), slog.String("url", longURL), slog.String("short_url", shortURL))...)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, shortURL)
}

// resolve looks up the URL mapped to code. If successful, the client is redirected to that URL.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, code string) {
	longURL, err := s.index.Resolve(r.Context(), code)
	if err != nil {
		if xerrors.Is(err, ErrNotFound) {
			s.logger.WarnContext(r.Context(), "cannot redirect unknown code", append(requestAttrs(r), slog.String("code", code))...)
			writeError(w, http.StatusNotFound, "%s", http.StatusText(http.StatusNotFound))
			return
		}
		s.logger.ErrorContext(r.Context(), "error resolving code", append(requestAttrs(r), slog.String("code", code), slog.Any("error", err))...)
		writeError(w, http.StatusInternalServerError, "%s", http.StatusText(http.StatusInternalServerError))
		return
	}

	if !s.quiet {
		s.logger.InfoContext(r.Context(), "resolved", append(requestAttrs(r), slog.String("code", code), slog.String("url", longURL))...)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Location", longURL)
	w.WriteHeader(http.StatusMovedPermanently)
	fmt.Fprintf(w, redirectPage, html.EscapeString(longURL))
}

// logRequests logs the outcome and duration of every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		if s.quiet {
			return
		}
		s.logger.InfoContext(r.Context(), "request handled", append(requestAttrs(r),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
		)...)
	})
}

func requestAttrs(r *http.Request) []any {
	return []any{
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote", r.RemoteAddr),
	}
}
