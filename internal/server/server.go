// Package server is a reference rendezvous server for the sync protocol:
// it keeps the last upload of every user and hands it out on download.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/wordsync/pkg/models"
)

// Server handles /sync/upload and /sync/download
type Server struct {
	engine   *gin.Engine
	auth     *Auth
	store    *SnapshotStore
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func New(auth *Auth, store *SnapshotStore, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = NewSnapshotStore()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:   gin.New(),
		auth:     auth,
		store:    store,
		validate: validator.New(),
		log:      log.Named("server"),
		now:      time.Now,
	}
	s.engine.Use(gin.Recovery(), s.requestLog())

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/sync")
	api.Use(auth.JWTAuth())
	{
		api.POST("/upload", s.upload)
		api.GET("/download", s.download)
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) upload(c *gin.Context) {
	var payload models.UploadPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, models.Ack{Error: "malformed payload"})
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		c.JSON(http.StatusBadRequest, models.Ack{Error: err.Error()})
		return
	}
	if payload.UserID != c.GetString(ctxUserID) {
		c.JSON(http.StatusForbidden, models.Ack{Error: "user mismatch"})
		return
	}

	updatedAt := models.Millis(s.now())
	s.store.Put(payload, updatedAt)
	s.log.Info("snapshot stored",
		zap.String("user_id", payload.UserID),
		zap.Int("words", len(payload.WordRecords)),
		zap.Int("schedule", len(payload.ScheduleRecords)),
		zap.Int("ledger", len(payload.LedgerEntries)))

	c.JSON(http.StatusOK, models.Ack{Success: true, UpdatedAt: updatedAt})
}

func (s *Server) download(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, models.DownloadResponse{Error: "userId is required"})
		return
	}
	if userID != c.GetString(ctxUserID) {
		c.JSON(http.StatusForbidden, models.DownloadResponse{Error: "user mismatch"})
		return
	}

	data, err := s.store.Get(userID)
	if err != nil {
		s.log.Error("failed to build snapshot", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.DownloadResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, models.DownloadResponse{Success: true, Data: data})
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestID),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
