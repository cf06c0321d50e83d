// Command seeder fills a development database with user mappings, job
// schedules and an event history so the API has something to show.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/domain"
)

// haUserID mimics Home Assistant's 32 hex character user ids.
func haUserID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func main() {
	dbPath := flag.String("db", "./hassarr.db", "Database file to seed")
	flag.Parse()

	repo, err := db.NewRepository(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	ctx := context.Background()
	fmt.Println("Seeding database...")

	users := []db.UserMapping{
		{HAUserID: haUserID(), OverseerrUserID: 1, Username: "admin"},
		{HAUserID: haUserID(), OverseerrUserID: 2, Username: "alice"},
		{HAUserID: haUserID(), OverseerrUserID: 3, Username: "bob"},
	}
	for _, u := range users {
		if err := repo.UpsertUserMapping(ctx, u); err != nil {
			log.Printf("Failed to insert user mapping: %v", err)
		}
	}

	schedules := []struct {
		JobID string
		Cron  string
	}{
		{"plex-recently-added-scan", "*/15 * * * *"},
		{"download-sync", "*/5 * * * *"},
		{"image-cache-cleanup", "0 4 * * *"},
	}
	for _, s := range schedules {
		if _, err := repo.CreateJobSchedule(ctx, s.JobID, s.Cron); err != nil {
			log.Printf("Failed to insert schedule: %v", err)
		}
	}

	now := time.Now().UTC()
	events := []struct {
		event domain.Event
		age   time.Duration
		user  int
	}{
		{domain.NewMediaEvent(domain.MediaAdded, domain.MediaEventData{Title: "The Godfather", TmdbID: 238, MediaType: "movie", Username: "alice"}), 30 * time.Hour, 1},
		{domain.NewMediaEvent(domain.MediaAdded, domain.MediaEventData{Title: "Breaking Bad", TmdbID: 1396, MediaType: "tv", Seasons: "1,2", Username: "bob"}), 20 * time.Hour, 2},
		{domain.NewMediaEvent(domain.MediaAddFailed, domain.MediaEventData{Title: "Dune", TmdbID: 438631, MediaType: "movie", Error: "quota exceeded", Username: "bob"}), 6 * time.Hour, 2},
		{domain.NewMediaEvent(domain.MediaRemoved, domain.MediaEventData{Title: "Cats", TmdbID: 536869, MediaID: 42, MediaType: "movie", Username: "admin"}), 2 * time.Hour, 0},
		{domain.NewJobEvent("download-sync", "Download Sync", "schedule"), 10 * time.Minute, -1},
	}
	for _, e := range events {
		ev := e.event
		ev.CreatedAt = now.Add(-e.age)
		if e.user >= 0 {
			ev.UserID = users[e.user].HAUserID
		}
		if _, err := repo.InsertEvent(ctx, &ev); err != nil {
			log.Printf("Failed to insert event: %v", err)
		}
	}

	fmt.Printf("Seeded %d user mappings, %d schedules and %d events into %s\n", len(users), len(schedules), len(events), *dbPath)
}
