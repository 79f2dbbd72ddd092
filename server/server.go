// Package server exposes the comparison engine over HTTP.
package server

import (
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-http-utils/etag"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"lapcompare/compare"
	"lapcompare/config"
	"lapcompare/models"
	"lapcompare/store"
)

type Server struct {
	engine  *compare.Engine
	store   *store.Store
	cfg     config.ServerConfig
	log     logrus.FieldLogger
	metrics *Metrics

	server *http.Server
}

// New wires the HTTP server. Shutdown may be called from another goroutine at
// any point after New returns, including before Listen.
func New(engine *compare.Engine, st *store.Store, cfg config.ServerConfig, metrics *Metrics, log logrus.FieldLogger) *Server {
	s := &Server{
		engine:  engine,
		store:   st,
		cfg:     cfg,
		log:     log,
		metrics: metrics,
	}
	s.server = &http.Server{
		Handler:           s.Router(),
		Addr:              cfg.Addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Listen serves until the server is shut down.
func (s *Server) Listen() error {
	s.log.Infof("HTTP server listening on %s", s.cfg.Addr)

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)

	r.Get("/health", s.health)
	r.Get("/capabilities", s.capabilities)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/telemetry", func(r chi.Router) {
		r.Post("/process", s.process)
		r.Post("/analyze", s.analyze)
		r.Post("/compare", s.compare)
	})

	r.Get("/comparisons", s.listComparisons)
	r.Method(http.MethodGet, "/comparisons/{id}", etag.Handler(http.HandlerFunc(s.getComparison), false))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debugf("Could not find HTTP response for URL: %s", r.URL.String())
		http.NotFound(w, r)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "lap comparison service is running",
	})
}

type capabilities struct {
	SupportedFormats []string `json:"supportedFormats"`
	MaxFileSize      string   `json:"maxFileSize"`
	Channels         []string `json:"channels"`
	GridSpacing      float64  `json:"gridSpacing"`
	Sectors          int      `json:"sectors"`
	MaxCorners       int      `json:"maxCorners"`
	RequestTimeout   string   `json:"requestTimeout"`
}

func (s *Server) capabilities(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	writeJSON(w, http.StatusOK, capabilities{
		SupportedFormats: []string{"CSV"},
		MaxFileSize:      humanize.IBytes(uint64(s.cfg.MaxUploadBytes)),
		Channels:         cfg.Alignment.Channels,
		GridSpacing:      cfg.Alignment.Spacing,
		Sectors:          cfg.Delta.Sectors,
		MaxCorners:       cfg.GPS.MaxCorners,
		RequestTimeout:   s.cfg.RequestTimeout.String(),
	})
}

// process handles a single upload in the "file" field.
func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	if !s.parseForm(w, r) {
		return
	}
	in, closer, err := s.formFile(r, "file")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	defer closer.Close()

	p, err := s.engine.ProcessFile(ctx, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p.Summary)
}

type analyzeResult struct {
	Name    string                `json:"name"`
	Success bool                  `json:"success"`
	Summary *models.DriverSummary `json:"summary,omitempty"`
	Error   string                `json:"error,omitempty"`
	Kind    string                `json:"kind,omitempty"`
}

// analyze processes every upload in the "files" field. Files fail individually.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	if !s.parseForm(w, r) {
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		badRequest(w, "no files uploaded in field \"files\"")
		return
	}

	var inputs []compare.Input
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, errors.Wrapf(err, "could not open upload %s", fh.Filename))
			return
		}
		defer f.Close()
		s.logUpload(fh)
		inputs = append(inputs, compare.Input{Name: fh.Filename, Reader: f})
	}

	results := s.engine.ProcessBatch(ctx, inputs)

	out := make([]analyzeResult, len(results))
	for i, res := range results {
		out[i] = analyzeResult{Name: res.Name, Success: res.Err == nil, Summary: res.Summary}
		if res.Err != nil {
			_, kind := classify(res.Err)
			out[i].Error = res.Err.Error()
			out[i].Kind = kind
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// compare compares the uploads in "driver1" and "driver2" and stores the result.
func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	if !s.parseForm(w, r) {
		return
	}
	in1, c1, err := s.formFile(r, "driver1")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	defer c1.Close()
	in2, c2, err := s.formFile(r, "driver2")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	defer c2.Close()

	c, err := s.engine.Compare(ctx, in1, in2)
	if err != nil {
		s.metrics.comparison("failed")
		s.writeError(w, r, err)
		return
	}

	if err := s.store.Put(store.NewID(), c); err != nil {
		s.metrics.comparison("failed")
		s.writeError(w, r, err)
		return
	}
	s.metrics.comparison("ok")

	w.Header().Set("Location", "/comparisons/"+c.ID)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listComparisons(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getComparison(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequest(w, "could not read multipart form: "+err.Error())
		return false
	}
	return true
}

func (s *Server) formFile(r *http.Request, field string) (compare.Input, multipart.File, error) {
	f, fh, err := r.FormFile(field)
	if err != nil {
		return compare.Input{}, nil, errors.Wrapf(err, "missing upload in field %q", field)
	}
	s.logUpload(fh)
	return compare.Input{Name: fh.Filename, Reader: f}, f, nil
}

func (s *Server) logUpload(fh *multipart.FileHeader) {
	s.log.WithFields(logrus.Fields{
		"file": fh.Filename,
		"size": humanize.Bytes(uint64(fh.Size)),
	}).Debug("received upload")
}
