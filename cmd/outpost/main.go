package main

import (
	"context"
	"log"
	"os"
	"time"

	"outpost/syncmanager"
	"outpost/types"
	config2 "outpost/types/config"
)

func main() {
	baseURL := os.Getenv("OUTPOST_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	cfg, err := config2.NewOutpostConfig("till-1",
		config2.WithSQLitePath("./data/outpost.db"),
		config2.WithBackend(baseURL, baseURL+"/ping"),
		config2.WithAPIToken(os.Getenv("OUTPOST_API_TOKEN")),
		config2.WithHistoryCap(50),
		config2.WithMaxRetryAttempts(25),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	manager, err := syncmanager.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer manager.Close()

	const owner = "pharmacy-42"

	id, err := manager.Enqueue(ctx, owner, types.EnqueueRequest{
		Type:    types.ActionStockUpdate,
		Payload: types.Payload{"product_id": "p1", "delta": -5},
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("queued stock update %s", id)

	id, err = manager.Enqueue(ctx, owner, types.EnqueueRequest{
		Type: types.ActionBookingCreate,
		Payload: types.Payload{
			"customer": "R. Singh",
			"date":     time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("queued booking %s", id)

	pending, err := manager.PendingCount(ctx, owner)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%d changes waiting to sync", pending)

	if result, err := manager.Sync(ctx, owner); err != nil {
		log.Printf("sync skipped: %s", err)
	} else {
		log.Printf("sync pass: %d succeeded, %d failed", result.Succeeded, result.Failed)
	}

	recent, err := manager.Recent(ctx, owner, 10)
	if err != nil {
		log.Fatal(err)
	}
	for _, item := range recent {
		log.Printf("synced %s at %s: %s", item.ID, item.SyncedAt.Format(time.Kitchen), item.Label)
	}
}
