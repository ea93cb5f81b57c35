// Package testutil holds helpers for database-backed tests.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vanderwood/midgard/db"
)

// SetupTestDB opens the test database, applies the schema and wipes game
// state so each test starts clean. Skips the test when TEST_PG_DSN is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	if err := truncateAll(database); err != nil {
		database.Close()
		t.Fatalf("failed to reset tables: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

func truncateAll(database *sql.DB) error {
	_, err := database.Exec(`
		TRUNCATE channels, clans, players, seasons, sessions, raid_sessions,
		spoils_sessions, clan_spoils_sessions, sentry_sessions, checkins,
		raid_checkins, sentry_checkins, spoils_claims, clan_spoils_claims,
		points, player_watch_times, subscriptions, gifted_subs_leaderboard,
		follower_giveaways, follower_giveaway_entries, follower_giveaway_prizes,
		reward_levels, event_subscriptions
		RESTART IDENTITY CASCADE`)
	return err
}
