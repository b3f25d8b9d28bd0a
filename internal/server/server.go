package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"backend/internal/aggregator"
	"backend/internal/config"
	"backend/internal/handler"
	"backend/internal/ingest"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
)

type Server struct {
	router      *gin.Engine
	db          *sqlx.DB
	cfg         *config.Config
	pipeline    *ingest.Pipeline
	aggregator  *aggregator.Aggregator
	authService service.AuthService
	logger      *zap.Logger
	log         *logrus.Logger
}

func NewServer(
	db *sqlx.DB,
	cfg *config.Config,
	pipeline *ingest.Pipeline,
	agg *aggregator.Aggregator,
	authService service.AuthService,
	logger *zap.Logger,
	log *logrus.Logger,
) *Server {
	router := gin.Default()

	s := &Server{
		router:      router,
		db:          db,
		cfg:         cfg,
		pipeline:    pipeline,
		aggregator:  agg,
		authService: authService,
		logger:      logger,
		log:         log,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	studentRepo := repository.NewStudentRepository(s.db, s.log)
	turnRepo := repository.NewTurnRepository(s.db, s.logger)
	flagRepo := repository.NewFlagRepository(s.db, s.logger)
	summaryRepo := repository.NewSummaryRepository(s.db, s.logger)

	window := time.Duration(s.cfg.Aggregator.WindowMinutes) * time.Minute

	authHandler := handler.NewAuthHandler(s.authService, s.log)
	turnHandler := handler.NewTurnHandler(s.pipeline, s.logger)
	historyHandler := handler.NewHistoryHandler(turnRepo, s.authService, s.logger)
	flaggedHandler := handler.NewFlaggedHandler(flagRepo, turnRepo, s.logger)
	analyticsHandler := handler.NewAnalyticsHandler(summaryRepo, s.aggregator, window, s.logger)
	studentHandler := handler.NewStudentHandler(studentRepo, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Token minting from the learning platform webhook
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/token", authHandler.MintToken)

	// Authenticated routes
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.AuthMiddleware(s.authService, s.logger))
	{
		authRequired.POST("/turns", turnHandler.SubmitTurn)
		authRequired.GET("/history", historyHandler.GetHistory)
	}

	// Admin routes
	admin := s.router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(s.authService, s.logger))
	admin.Use(middleware.RequireAdmin(s.authService, s.logger))
	{
		admin.GET("/summary", analyticsHandler.GetSummary)
		admin.POST("/recompute", analyticsHandler.Recompute)
		admin.GET("/flagged", flaggedHandler.ListFlagged)
		admin.GET("/flagged/:id", flaggedHandler.GetFlagged)
		admin.PUT("/flagged/:id/status", flaggedHandler.UpdateFlagStatus)
		admin.GET("/students", studentHandler.ListStudents)
		admin.GET("/students/:id", studentHandler.GetStudent)
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
