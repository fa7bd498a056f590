package ops

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/enchung913/career-recommender/internal/logger"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	http *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves in the background until Shutdown is called.
func (s *Server) Start() {
	go func() {
		log.Infof("ops server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeConfig).Errorf("ops server stopped: %v", err)
		}
	}()
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
