// Package api serves the meeting store over HTTP for `breeze serve`.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otherjamesbrown/breeze-cli/pkg/buildinfo"
	brerrors "github.com/otherjamesbrown/breeze-cli/pkg/errors"
	"github.com/otherjamesbrown/breeze-cli/pkg/logging"
	"github.com/otherjamesbrown/breeze-cli/pkg/meeting"
)

// Form field names accepted by POST /api/meetings.
const (
	FieldLink     = "link"
	FieldTitle    = "title"
	FieldDocument = "file"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxUploadBytes bounds multipart bodies.
const DefaultMaxUploadBytes = 32 << 20

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

// Server routes HTTP requests to a meeting store.
type Server struct {
	store    *meeting.Store
	resolver *meeting.Resolver
	logger   logging.Logger
	health   healthcheck.Handler
	registry *prometheus.Registry
	service  string

	maxUploadBytes int64
	requestSeconds *prometheus.HistogramVec
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry sets the registry that request metrics are registered on and
// that /metrics exposes.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithReadinessCheck adds a check to /ready.
func WithReadinessCheck(name string, check healthcheck.Check) Option {
	return func(s *Server) {
		s.health.AddReadinessCheck(name, check)
	}
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		s.maxUploadBytes = n
	}
}

// NewServer creates a server over store.
func NewServer(store *meeting.Store, opts ...Option) *Server {
	s := &Server{
		store:          store,
		resolver:       meeting.NewResolver(store),
		logger:         logging.MustGlobal(),
		health:         healthcheck.NewHandler(),
		service:        "breeze",
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.logger = s.logger.With(logging.F("component", "api"))

	s.requestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "breeze_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler", "code", "method"})
	s.registry.MustRegister(s.requestSeconds)

	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	r.Use(s.requestID)

	r.Methods(http.MethodGet).Path("/api/meetings").Handler(s.instrument("list", s.handleList))
	r.Methods(http.MethodPost).Path("/api/meetings").Handler(s.instrument("create", s.handleCreate))
	r.Methods(http.MethodGet).Path("/api/meetings/{id}").Handler(s.instrument("show", s.handleShow))
	r.Methods(http.MethodPost).Path("/api/meetings/{id}/start").Handler(s.instrument("start", s.handleStart))
	r.Methods(http.MethodPost).Path("/api/meetings/{id}/stop").Handler(s.instrument("stop", s.handleStop))
	r.Methods(http.MethodPut).Path("/api/meetings/{id}/status").Handler(s.instrument("update_status", s.handleUpdateStatus))

	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Methods(http.MethodGet).Path("/version").Handler(buildinfo.Handler(s.service))
	r.Methods(http.MethodGet).Path("/live").HandlerFunc(s.health.LiveEndpoint)
	r.Methods(http.MethodGet).Path("/ready").HandlerFunc(s.health.ReadyEndpoint)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", logging.F("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) instrument(name string, h http.HandlerFunc) http.Handler {
	return promhttp.InstrumentHandlerDuration(s.requestSeconds.MustCurryWith(prometheus.Labels{"handler": name}), h)
}

// requestID propagates or assigns X-Request-ID and stores it on the context
// so that published events carry it as their correlation id.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), logging.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ListResponse is the body of GET /api/meetings.
type ListResponse struct {
	Meetings []meeting.StoredMeeting `json:"meetings"`
	Count    int                     `json:"count"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Suggestion string `json:"suggestion,omitempty"`
}

// createRequest is the JSON form of POST /api/meetings.
type createRequest struct {
	Link         string `json:"link"`
	DocumentName string `json:"documentName"`
	Title        string `json:"title"`
}

type statusRequest struct {
	Status meeting.Status `json:"status"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	meetings := s.store.List(r.Context())
	s.writeJSON(w, http.StatusOK, ListResponse{Meetings: meetings, Count: len(meetings)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeCreate(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	m, err := s.store.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/meetings/"+m.ID)
	s.writeJSON(w, http.StatusCreated, m)
}

// decodeCreate accepts multipart uploads (the document is validated as a
// PDF) and JSON bodies (the document name is taken as given).
func (s *Server) decodeCreate(w http.ResponseWriter, r *http.Request) (meeting.NewMeeting, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
			return meeting.NewMeeting{}, brerrors.Validationf("body", "can't parse multipart form: %v", err)
		}
		defer r.MultipartForm.RemoveAll()

		in := meeting.NewMeeting{
			Link:  r.FormValue(FieldLink),
			Title: r.FormValue(FieldTitle),
		}
		file, header, err := r.FormFile(FieldDocument)
		if errors.Is(err, http.ErrMissingFile) {
			return in, meeting.ValidateNewMeeting(in)
		}
		if err != nil {
			return in, brerrors.Validationf(FieldDocument, "can't read document: %v", err)
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			head := make([]byte, sniffLen)
			n, err := io.ReadFull(file, head)
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
				return in, brerrors.Validationf(FieldDocument, "can't read document: %v", err)
			}
			if n > 0 {
				contentType = http.DetectContentType(head[:n])
			}
		}
		if err := meeting.ValidateDocument(header.Filename, contentType); err != nil {
			return in, err
		}
		in.DocumentName = header.Filename
		return in, nil

	case "application/json", "":
		var req createRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, s.maxUploadBytes)).Decode(&req); err != nil {
			return meeting.NewMeeting{}, brerrors.Validationf("body", "invalid JSON: %v", err)
		}
		return meeting.NewMeeting{Link: req.Link, DocumentName: req.DocumentName, Title: req.Title}, nil

	default:
		return meeting.NewMeeting{}, brerrors.Validationf("body", "unsupported content type %q", mediaType)
	}
}

// meetingID returns the {id} path variable, rejecting malformed ids before
// the store is read.
func meetingID(r *http.Request) (string, error) {
	id := mux.Vars(r)["id"]
	if err := meeting.ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	id, err := meetingID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.resolver.Resolve(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id, err := meetingID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r)(s.store.Start(r.Context(), id))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id, err := meetingID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r)(s.store.Stop(r.Context(), id))
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := meetingID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, r, brerrors.Validationf("body", "invalid JSON: %v", err))
		return
	}
	s.writeResult(w, r)(s.store.UpdateStatus(r.Context(), id, req.Status))
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request) func(meeting.StoredMeeting, error) {
	return func(m meeting.StoredMeeting, err error) {
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", logging.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := brerrors.CodeFor(err)
	status := httpStatus(code)

	log := s.logger.WithContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", logging.Err(err), logging.F("path", r.URL.Path))
	} else {
		log.Debug("Request rejected", logging.Err(err), logging.F("path", r.URL.Path))
	}

	resp := ErrorResponse{Error: err.Error(), Code: string(code)}
	var verr *brerrors.ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Message
	}
	if status >= http.StatusInternalServerError {
		resp.Suggestion = strings.TrimSpace(brerrors.GetSuggestedAction(code))
	}
	s.writeJSON(w, status, resp)
}

func httpStatus(code brerrors.ErrorCode) int {
	switch code {
	case brerrors.CodeNotFound:
		return http.StatusNotFound
	case brerrors.CodeValidation:
		return http.StatusBadRequest
	case brerrors.CodeInvalidState:
		return http.StatusConflict
	case brerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
