package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"ortho-go/internal/database/sqlc"
	"ortho-go/internal/events"
	"ortho-go/internal/ortho"
)

const shutdownTimeout = 5 * time.Second

// Uploads is the part of ortho.UploadService the HTTP surface drives.
type Uploads interface {
	ReceiveChunk(chunk *ortho.Chunk) error
	ListFiles(ownerID string, category ortho.Category) ([]*sqlc.File, error)
	DeleteFile(id string) (bool, error)
	ClearStaging() error
	OpenFile(ownerID string, category ortho.Category, name string, w io.Writer) error
	Thumbnail(ownerID string, name string) ([]byte, error)
}

var _ Uploads = (*ortho.UploadService)(nil)

// Server exposes the upload pipeline over HTTP:
//
//	POST   /api/owners/{ownerID}/files/{category}/chunks   upload one chunk (multipart)
//	GET    /api/owners/{ownerID}/files/{category}          list stored files
//	DELETE /api/files/{id}                                 delete a stored file
//	DELETE /api/staging                                    clear the staging area
//	GET    /api/events                                     websocket stream of upload events
//	GET    /files/{ownerID}/{category}/{name}              photo content or video thumbnail
type Server struct {
	uploads      Uploads
	broker       *events.Broker
	logger       ortho.Logger
	maxChunkSize int64
	router       *mux.Router
}

// New creates a Server. Events published on broker are streamed to websocket clients.
func New(uploads Uploads, broker *events.Broker, logger ortho.Logger, maxChunkSize int64) *Server {
	if logger == nil {
		logger = ortho.NewNopLogger()
	}
	s := &Server{
		uploads:      uploads,
		broker:       broker,
		logger:       logger,
		maxChunkSize: maxChunkSize,
		router:       mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/owners/{ownerID}/files/{category}/chunks", s.handleUploadChunk).Methods(http.MethodPost)
	api.HandleFunc("/owners/{ownerID}/files/{category}", s.handleListFiles).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", s.handleDeleteFile).Methods(http.MethodDelete)
	api.HandleFunc("/staging", s.handleClearStaging).Methods(http.MethodDelete)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	s.router.HandleFunc("/files/{ownerID}/{category}/{name}", s.handleServeFile).Methods(http.MethodGet)
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// Websocket handlers return once their subscription channel closes.
		s.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}
