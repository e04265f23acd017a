// Package server exposes the converter over HTTP.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nconklindev/kbnsheet/internal/converter"
	"github.com/nconklindev/kbnsheet/internal/schema"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ConversionIDHeader carries the ID assigned to each conversion.
const ConversionIDHeader = "X-Conversion-ID"

// Server converts uploaded delimited files into workbooks.
type Server struct {
	opts           converter.Options
	maxUploadBytes int64
	logger         *zap.Logger
	router         *chi.Mux
}

// New creates a Server. opts supplies the defaults for every request.
func New(opts converter.Options, maxUploadBytes int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		opts:           opts,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
		router:         chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Post("/convert", s.handleConvert)
}

// handleConvert reads a multipart form with the delimited file in "file",
// the schema description in "schema" and an optional "header_rows".
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	logger := s.logger.With(
		zap.String("conversion_id", id),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	w.Header().Set(ConversionIDHeader, id)

	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, fmt.Sprintf("read upload: %v", err), status)
		return
	}

	defs, err := schema.Parse(r.FormValue("schema"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.opts
	opts.Logger = logger
	if v := r.FormValue("header_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid header_rows %q", v), http.StatusBadRequest)
			return
		}
		opts.HeaderRows = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("missing file: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	// The workbook is buffered so a failed conversion can still get an error status.
	var out bytes.Buffer
	result, err := converter.ConvertStream(file, &out, defs, opts)
	if err != nil {
		logger.Warn("conversion failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputName(header.Filename)))
	w.Header().Set("X-Rows-Processed", strconv.Itoa(result.RowsProcessed))
	w.Header().Set("X-Dropdowns", strconv.Itoa(result.Dropdowns()))
	if _, err := out.WriteTo(w); err != nil {
		logger.Warn("write response", zap.Error(err))
	}
}

func outputName(upload string) string {
	base := filepath.Base(upload)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "converted"
	}
	return name + ".xlsx"
}

// requestLogger logs each request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
