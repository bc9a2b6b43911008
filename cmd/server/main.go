package main

import (
	"context"
	"flag"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	_ "taskboard/docs"
	"taskboard/internal/config"
	"taskboard/internal/logging"
	"taskboard/internal/server"
)

// @title           Task Board API
// @version         1.0
// @description     Boards with todo / in_progress / done lanes and dense task ordering.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	normalize := flag.String("normalize", "", "rewrite task positions of the given board to 0..n-1 and exit")
	flag.Parse()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	s, err := server.Init(cfg)
	if err != nil {
		log.WithError(err).Fatal("server initialization failed")
	}

	if *normalize != "" {
		defer s.Close()
		boardID, err := uuid.Parse(*normalize)
		if err != nil {
			log.WithError(err).Fatal("invalid board id")
		}
		n, err := s.Ranking.Normalize(context.Background(), boardID)
		if err != nil {
			log.WithError(err).WithField("board", boardID).Fatal("normalize failed")
		}
		log.WithFields(log.Fields{"board": boardID, "rewritten": n}).Info("board normalized")
		return
	}

	s.Run()
}
