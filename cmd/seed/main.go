package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"thetraitors/internal/app"
	"thetraitors/internal/config"
	"thetraitors/internal/model"
	"time"
)

// seed creates a demo game with a full roster, starts it and casts a few
// day votes so the client has something to show
func main() {
	configPath := flag.String("config", "", "path to traitors.yaml")
	players := flag.Int("players", 6, "number of players including the host")
	autoPhase := flag.Bool("auto-phase", false, "enable auto-phase on the demo game")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer a.Close(context.Background())

	names := []string{"Ava", "Bram", "Cleo", "Dario", "Esme", "Finn", "Greta", "Hugo", "Ines", "Jules", "Kai", "Lena"}
	if *players < cfg.Game.MinPlayers || *players > len(names) || *players > cfg.Game.MaxPlayers {
		log.Fatalf("players must be between %d and %d", cfg.Game.MinPlayers, min(len(names), cfg.Game.MaxPlayers))
	}

	created, err := a.Games.CreateGame(ctx, names[0])
	if err != nil {
		log.Fatalf("Failed to create game: %v", err)
	}
	fmt.Printf("Game %s (code %s)\n", created.GameID, created.GameCode)
	fmt.Printf("  %-6s host  token=%s\n", names[0], created.Token)

	ids := []string{created.HostID}
	for _, name := range names[1:*players] {
		joined, err := a.Games.JoinGame(ctx, created.GameCode, name)
		if err != nil {
			log.Fatalf("Failed to join %s: %v", name, err)
		}
		ids = append(ids, joined.PlayerID)
		fmt.Printf("  %-6s       token=%s\n", name, joined.Token)
	}

	start, err := a.Games.StartGame(ctx, created.GameID, created.HostID)
	if err != nil {
		log.Fatalf("Failed to start game: %v", err)
	}
	fmt.Printf("Started: %d traitors, %d faithfuls\n", start.TraitorCount, start.FaithfulCount)

	room, err := a.Rooms.InitializeRoom(ctx, created.GameID, created.HostID)
	if err != nil {
		log.Fatalf("Failed to furnish room: %v", err)
	}
	fmt.Printf("Room: %d objects, %d personal items\n", room.ObjectCount, room.ItemCount)

	// everyone but the last player votes for the next player in line
	for i := 0; i < len(ids)-1; i++ {
		if _, err := a.Votes.CastVote(ctx, created.GameID, ids[i], ids[i+1]); err != nil {
			log.Printf("Warning: vote %d failed: %v", i, err)
		}
	}

	if *autoPhase {
		st, err := a.AutoPhase.Configure(ctx, created.GameID, created.HostID, &model.AutoPhaseRequest{Enabled: true})
		if err != nil {
			log.Fatalf("Failed to enable auto-phase: %v", err)
		}
		fmt.Printf("Auto-phase on, every %.0fh\n", st.DurationHours)
	}

	if cfg.Storage.Driver == "memory" {
		log.Println("Warning: memory storage, the seeded game is gone when this process exits")
	}
}
