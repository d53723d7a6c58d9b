// arenacheck is a connectivity probe: it hits the HTTP surface, opens
// a websocket, creates a throwaway match, and prints whatever the
// server sends back.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/chess-arena/pkg/arenaclient"
	"github.com/park285/chess-arena/pkg/protocol"
)

func main() {
	baseURL := os.Getenv("ARENA_BASE_URL")
	player := os.Getenv("ARENA_PLAYER_ID")

	if baseURL == "" {
		log.Fatal("ARENA_BASE_URL is required")
	}
	if player == "" {
		player = "arenacheck"
	}

	client := arenaclient.NewClient(baseURL, arenaclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Println("/healthz ok")

	matches, err := client.ListMatches(ctx)
	if err != nil {
		log.Printf("/matches error: %v", err)
	} else {
		log.Printf("/matches ok: %d live", len(matches))
	}

	sock := arenaclient.NewSocket(baseURL, player, 3)
	sock.OnStateChange(func(state arenaclient.SocketState) {
		log.Printf("WS state: %s", state)
	})
	sock.OnEvent(func(ev protocol.Event) {
		fmt.Printf("WS event type=%s payload=%s\n", ev.Type, string(ev.Payload))
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := sock.Connect(cctx); err != nil {
		log.Fatalf("WS connect error: %v", err)
	}

	if err := sock.CreateGame(cctx, ""); err != nil {
		log.Printf("createGame error: %v", err)
	}

	// observe for a short window
	t := time.NewTimer(5 * time.Second)
	<-t.C

	shCtx, shCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shCancel()
	_ = sock.Close(shCtx)
	log.Println("arenacheck done")
}
