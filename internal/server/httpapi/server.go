// Package httpapi serves the public JSON API used by the web app and the
// admin CLI: synced contracts and labels, the origin credential and the
// poller status.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/casely/internal/logging"
	"github.com/dmitrijs2005/casely/internal/server/metrics"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/polling"
	"github.com/klauspost/compress/gzhttp"
)

type ContractService interface {
	ListSince(ctx context.Context, since int64, allowDeleted bool) ([]*models.Contract, int64, error)
	Get(ctx context.Context, id int64) (*models.Contract, error)
	SoftDelete(ctx context.Context, id int64) (int64, error)
	SetNotes(ctx context.Context, id int64, notes *string) (int64, error)
	AddLabel(ctx context.Context, id, labelID int64) (int64, error)
	RemoveLabel(ctx context.Context, id, labelID int64) (int64, error)
	Stats(ctx context.Context) (models.StoreStats, error)
}

type LabelService interface {
	ListSince(ctx context.Context, since int64) ([]*models.Label, int64, error)
	MaxUpdatedAt(ctx context.Context) (int64, error)
	Upsert(ctx context.Context, l models.Label) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type CredentialReader interface {
	Load(ctx context.Context) (models.Credential, error)
	Paused() bool
}

type CursorReader interface {
	Stored(ctx context.Context) (int64, error)
	Effective(ctx context.Context) (int64, error)
}

// Poller is the part of *polling.Poller the API drives.
type Poller interface {
	Submit(msg polling.ControlMessage)
	Status() polling.Status
}

type Options struct {
	Address   string
	StaticDir string

	Contracts   ContractService
	Labels      LabelService
	Credentials CredentialReader
	Cursor      CursorReader
	Poller      Poller

	Metrics        metrics.Provider
	MetricsHandler http.Handler
	Logger         logging.Logger
}

type Server struct {
	address        string
	staticDir      string
	contracts      ContractService
	labels         LabelService
	credentials    CredentialReader
	cursor         CursorReader
	poller         Poller
	metrics        metrics.Provider
	metricsHandler http.Handler
	logger         logging.Logger
}

func NewServer(opts Options) *Server {
	m := opts.Metrics
	if m == nil {
		m = metrics.New(false, nil)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		address:        opts.Address,
		staticDir:      opts.StaticDir,
		contracts:      opts.Contracts,
		labels:         opts.Labels,
		credentials:    opts.Credentials,
		cursor:         opts.Cursor,
		poller:         opts.Poller,
		metrics:        m,
		metricsHandler: opts.MetricsHandler,
		logger:         log.With("module", "http_server"),
	}
}

// Handler builds the full handler tree: API routes (gzip, metrics), the
// metrics endpoint, static files, and the outer request-id, access log,
// CORS and recover middleware.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/ping", s.ping)

	api.HandleFunc("GET /api/auth", s.getAuth)
	api.HandleFunc("POST /api/auth", s.setAuth)
	api.HandleFunc("DELETE /api/auth", s.clearAuth)

	api.HandleFunc("GET /api/contracts", s.listContracts)
	api.HandleFunc("GET /api/contracts/{id}", s.getContract)
	api.HandleFunc("DELETE /api/contracts/{id}", s.deleteContract)
	api.HandleFunc("PUT /api/contracts/{id}/notes", s.setNotes)
	api.HandleFunc("PUT /api/contracts/{id}/labels", s.addLabel)
	api.HandleFunc("DELETE /api/contracts/{id}/labels", s.removeLabel)

	api.HandleFunc("GET /api/labels", s.listLabels)
	api.HandleFunc("PUT /api/labels/{id}", s.upsertLabel)
	api.HandleFunc("DELETE /api/labels/{id}", s.deleteLabel)

	api.HandleFunc("GET /api/status", s.status)

	root := http.NewServeMux()
	root.Handle("/api/", gzhttp.GzipHandler(metrics.Middleware(s.metrics, api)))
	if s.metricsHandler != nil {
		root.Handle("GET /metrics", s.metricsHandler)
	}
	if s.staticDir != "" {
		root.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	return s.requestID(s.accessLog(s.cors(s.recoverer(root))))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.WithoutCancel(ctx), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
