package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/handler"
	"taskboard/internal/logging"
	"taskboard/internal/middleware"
	"taskboard/internal/ranking"
	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Server struct {
	Engine  *gin.Engine
	DB      *gorm.DB
	Ranking *ranking.Engine
	Config  *config.Config
	redis   *redis.Client
}

// Init connects to the store, applies migrations and wires the routes.
func Init(cfg *config.Config) (*Server, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cfg, db); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, lane cache disabled")
			_ = rdb.Close()
			rdb = nil
		}
	}

	s := New(cfg, db, rdb)
	s.redis = rdb
	return s, nil
}

// New builds the router on an already migrated database. rdb may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Server {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger())

	var (
		opts     []ranking.Option
		onDelete func(context.Context, uuid.UUID)
		denylist *cache.TokenDenylist
	)
	if rdb != nil {
		denylist = cache.NewTokenDenylist(rdb)
		lanes := cache.NewLaneCache(rdb, cfg.LaneCacheTTL)
		opts = append(opts, ranking.WithCache(lanes))
		onDelete = func(ctx context.Context, boardID uuid.UUID) {
			if err := lanes.Invalidate(ctx, boardID); err != nil {
				log.WithError(err).WithField("board", boardID).Warn("lane cache invalidation failed")
			}
		}
		log.WithField("addr", cfg.RedisAddr).Info("lane cache enabled")
	}
	engine := ranking.NewEngine(db, opts...)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo, cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	var revocations middleware.RevocationChecker
	if denylist != nil {
		userHandler.WithRevoker(denylist)
		revocations = denylist
	}
	boardHandler := handler.NewBoardHandler(boardRepo, onDelete)
	taskHandler := handler.NewTaskHandler(engine, cfg.RankingMaxRetries)

	// Public routes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, revocations))
	{
		authorized.GET("/user", userHandler.Me)
		authorized.POST("/logout", userHandler.Logout)

		boardParam := middleware.RequireBoardOwner(boardRepo, middleware.FromParam("id"))
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards/:id", boardParam, boardHandler.GetByID)
		authorized.PUT("/boards/:id", boardParam, boardHandler.Update)
		authorized.DELETE("/boards/:id", boardParam, boardHandler.Delete)

		taskParam := middleware.RequireTaskOwner(boardRepo, middleware.FromParam("id"))
		authorized.GET("/tasks", middleware.RequireBoardOwner(boardRepo, middleware.FromQuery("board_id")), taskHandler.List)
		authorized.POST("/tasks", middleware.RequireBoardOwner(boardRepo, middleware.FromJSONBody()), taskHandler.Create)
		authorized.GET("/tasks/:id", taskParam, taskHandler.GetByID)
		authorized.PUT("/tasks/:id", taskParam, taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskParam, taskHandler.Delete)
		authorized.PATCH("/tasks/:id/move", taskParam, taskHandler.Move)
	}

	return &Server{
		Engine:  r,
		DB:      db,
		Ranking: engine,
		Config:  cfg,
	}
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.WithField("port", s.Config.ServerPort).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	s.Close()

	log.Info("server exited properly")
}

// Close releases the database and redis connections.
func (s *Server) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
