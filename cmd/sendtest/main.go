package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/kmaassrock/nba-injury-alert/internal/notify"
	"github.com/kmaassrock/nba-injury-alert/internal/storage"
)

// consoleSender prints notifications to the terminal instead of delivering
// them, so the routing and formatting logic can be exercised end to end
// without SMTP or gateway credentials.
type consoleSender struct {
	channel string
}

func (c *consoleSender) Name() string { return c.channel }

func (c *consoleSender) Send(ctx context.Context, n models.Notification) models.SendResult {
	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Printf("Channel:   %s\n", c.channel)
	fmt.Printf("Recipient: %s\n", n.Recipient)
	fmt.Printf("Subject:   %s\n", n.Subject)
	fmt.Printf("Body:\n%s\n", n.Body)
	return models.SendResult{Channel: c.channel, Recipient: n.Recipient, Success: true}
}

func (c *consoleSender) SendBatch(ctx context.Context, batch []models.Notification) []models.SendResult {
	results := make([]models.SendResult, len(batch))
	for i, n := range batch {
		results[i] = c.Send(ctx, n)
	}
	return results
}

func main() {
	fmt.Println("NBA Injury Alert - Notification Test")
	fmt.Println("====================================")

	ctx := context.Background()

	dir, err := os.MkdirTemp("", "sendtest")
	if err != nil {
		fmt.Printf("Error creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "sendtest.db"))
	if err != nil {
		fmt.Printf("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Seed a subscriber following the Lakers on all channels.
	sub, err := store.CreateSubscriber(ctx, models.Subscriber{
		Email:          "fan@example.com",
		Active:         true,
		EmailEnabled:   true,
		PushEnabled:    true,
		WebhookEnabled: true,
		PushToken:      "test-device-token",
		WebhookURL:     "https://example.com/hooks/injuries",
	})
	if err != nil {
		fmt.Printf("Error creating subscriber: %v\n", err)
		os.Exit(1)
	}
	if _, err := store.CreateOverride(ctx, models.PreferenceOverride{
		SubscriberID: sub.ID,
		Team:         "LAL",
	}); err != nil {
		fmt.Printf("Error creating override: %v\n", err)
		os.Exit(1)
	}

	// Synthetic snapshot and changes covering the three transition kinds.
	now := time.Now()
	snapID, _, err := store.InsertSnapshotIfNew(ctx, &models.Snapshot{
		FetchedAt:   now,
		SourceURL:   "sendtest",
		Fingerprint: fmt.Sprintf("sendtest-%d", now.UnixNano()),
		Raw:         []byte(`{"players":[]}`),
	})
	if err != nil {
		fmt.Printf("Error creating snapshot: %v\n", err)
		os.Exit(1)
	}

	changes := []models.StatusChange{
		{
			PlayerID: "2544", PlayerName: "LeBron James", Team: "LAL",
			OldStatus: "", NewStatus: "OUT",
			Reason: "Injury/Illness", Details: "Left Ankle; Sprain",
			SnapshotID: snapID, DetectedAt: now,
		},
		{
			PlayerID: "1629029", PlayerName: "Austin Reaves", Team: "LAL",
			OldStatus: "OUT", NewStatus: "QUESTIONABLE",
			Reason: "Injury/Illness", Details: "Right Knee; Soreness",
			SnapshotID: snapID, DetectedAt: now,
		},
		{
			PlayerID: "203076", PlayerName: "Anthony Davis", Team: "LAL",
			OldStatus: "QUESTIONABLE", NewStatus: models.StatusActive,
			SnapshotID: snapID, DetectedAt: now,
		},
	}

	stored, err := store.InsertChanges(ctx, changes)
	if err != nil {
		fmt.Printf("Error storing changes: %v\n", err)
		os.Exit(1)
	}

	router := notify.NewRouter(store)
	dispatcher := notify.NewDispatcher(store, []notify.Sender{
		&consoleSender{channel: models.ChannelEmail},
		&consoleSender{channel: models.ChannelPush},
		&consoleSender{channel: models.ChannelWebhook},
	})

	notifications, err := router.Route(ctx, stored)
	if err != nil {
		fmt.Printf("Error routing changes: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nRouted %d changes into %d notifications\n", len(stored), len(notifications))

	results, err := dispatcher.Dispatch(ctx, stored, notifications)
	if err != nil {
		fmt.Printf("Error dispatching: %v\n", err)
		os.Exit(1)
	}

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("Done: %d/%d sends succeeded\n", ok, len(results))
}
