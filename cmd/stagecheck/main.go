package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/Cheese-3DChess/internal/stageclient"
	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

func main() {
	baseURL := os.Getenv("STAGE_BASE_URL")
	feedURL := os.Getenv("STAGE_FEED_URL")

	if baseURL == "" {
		log.Fatal("STAGE_BASE_URL is required")
	}

	client := stageclient.NewClient(baseURL, stageclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	state, err := client.CreateSession(ctx)
	if err != nil {
		log.Fatalf("create session error: %v", err)
	}
	log.Printf("session ok: id=%s pieces=%d status=%q theme=%s", state.ID, len(state.Pieces), state.Status, state.Theme.ID)

	var feed *stageclient.Feed
	if feedURL == "" {
		log.Println("STAGE_FEED_URL not set; skipping feed check")
	} else {
		feed = stageclient.NewFeed(strings.TrimRight(feedURL, "/")+"/feed/"+state.ID, 3)
		feed.OnStateChange(func(s stageclient.FeedState) {
			log.Printf("feed state: %s", s)
		})
		feed.OnMessage(func(msg *stagedto.FeedMessage) {
			fmt.Printf("feed msg seq=%d type=%s\n", msg.Seq, msg.Type)
		})
		if err := feed.Connect(ctx); err != nil {
			log.Printf("feed connect error: %v", err)
			feed = nil
		}
	}

	for _, sq := range []string{"e2", "e4"} {
		res, err := client.Tap(ctx, state.ID, sq)
		if err != nil {
			log.Fatalf("tap %s error: %v", sq, err)
		}
		log.Printf("tap %s: transition=%s ops=%d", sq, res.Transition, len(res.Ops))
	}
	saved, err := client.Save(ctx, state.ID, "")
	if err != nil {
		log.Fatalf("save error: %v", err)
	}
	loaded, err := client.Load(ctx, state.ID, saved.Slot)
	if err != nil {
		log.Fatalf("load error: %v", err)
	}
	log.Printf("round trip ok: slot=%s fen=%s", saved.Slot, loaded.State.FEN)

	if feed != nil {
		// Observe for a short window
		t := time.NewTimer(2 * time.Second)
		<-t.C
		_ = feed.Close(context.Background())
	}
	if err := client.DeleteSession(context.Background(), state.ID); err != nil {
		log.Printf("delete session error: %v", err)
	}
}
