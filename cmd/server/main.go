package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/contestrank/backend/attemptsrvc"
	"github.com/contestrank/backend/conf"
	"github.com/contestrank/backend/http"
	"github.com/contestrank/backend/scoresrvc"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	pgPool, err := pgxpool.New(context.Background(), conf.GetPgConnStrFromEnv())
	if err != nil {
		slog.Error("failed to connect to pg", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	attemptSrvc := attemptsrvc.NewAttemptSrvc(
		attemptsrvc.NewPgAttemptRepo(pgPool), slog.Default())

	scoreSrvc := scoresrvc.NewScoreSrvc(
		scoresrvc.NewPgScoreRepo(pgPool),
		attemptSrvc,
		conf.GetRecomputeWorkersFromEnv(),
		slog.Default())
	defer scoreSrvc.Close()

	httpServer := http.NewHttpServer(scoreSrvc, attemptSrvc)

	address := conf.GetHttpAddrFromEnv()
	log.Printf("Starting server on %s", address)
	err = httpServer.Start(address)
	log.Printf("Server stopped with error: %v", err)
}
