package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"memory-scramble-server/api"
	"memory-scramble-server/config"
	"memory-scramble-server/game"
	"memory-scramble-server/loghandler"
	"memory-scramble-server/sim"
	"memory-scramble-server/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Print("No .env file found; using environment variables.")
	}

	cfg := config.Load(os.Args[1:])

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, level)))

	board, err := game.ParseBoardFile(cfg.BoardFile)
	if err != nil {
		log.Fatalf("Cannot load board: %v", err)
	}
	rows, cols := board.Size()
	log.Printf("Loaded %dx%d board from %s", rows, cols, cfg.BoardFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if os.Getenv("SIMULATE") == "1" {
		go func() {
			opts := sim.Options{
				Players:  cfg.Sim.Players,
				Flips:    cfg.Sim.Flips,
				MaxDelay: time.Duration(cfg.Sim.MaxDelayMS) * time.Millisecond,
			}
			if err := sim.Run(ctx, board, opts); err != nil {
				slog.Warn("simulation stopped", "tag", "sim", "err", err)
			}
		}()
	}

	hub := ws.NewHub(cfg, board)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	api.NewHandler(board, cfg).Register(mux)
	mux.HandleFunc("/ws", hub.ServeWS)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Printf("Memory Scramble server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
