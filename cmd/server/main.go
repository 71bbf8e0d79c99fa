package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"thetraitors/internal/app"
	"thetraitors/internal/config"
	"thetraitors/internal/transport/rest"
)

func main() {
	configPath := flag.String("config", "", "path to traitors.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to start:", err)
	}
	defer a.Close(context.Background())

	log.Printf("Storage: %s, lock: %s, players: %d-%d, phase: %s",
		cfg.Storage.Driver, cfg.Lock.Backend, cfg.Game.MinPlayers, cfg.Game.MaxPlayers, cfg.Game.PhaseDuration)

	if sched := a.Scheduler(); sched != nil {
		go sched.Run(ctx)
	} else {
		log.Println("Auto-phase scheduler disabled, use POST /v1/auto-phase/check")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      rest.NewRouter(a.Container()),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTP.Port)
		log.Println("Endpoints:")
		log.Println("  POST /v1/games, POST /v1/join")
		log.Println("  GET  /v1/games/{gameId}")
		log.Println("  POST /v1/games/{gameId}/start|vote|next-phase")
		log.Println("  GET/POST /v1/games/{gameId}/auto-phase")
		log.Println("  POST /v1/auto-phase/check")
		log.Println("  WS   /v1/ws/games/{gameId}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}
	a.Close(shutdownCtx)

	log.Println("Server exited")
}
