package store

import (
	"context"
	"database/sql"
	"fmt"
)

// insertCheckin inserts one check-in row and reports whether it was new plus
// the session's total check-in count afterwards. Insert and count run in one
// transaction so "first check-in of the session" is decided exactly once even
// when two players race.
func (s *Store) insertCheckin(ctx context.Context, table string, channelID, sessionID, playerID int64) (inserted bool, total int, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO `+table+` (channel_id, session_id, player_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, player_id) DO NOTHING`, channelID, sessionID, playerID)
	if err != nil {
		return false, 0, fmt.Errorf("insert %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}

	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE session_id = $1`, sessionID).Scan(&total)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return n > 0, total, nil
}

func (s *Store) InsertCheckin(ctx context.Context, channelID, sessionID, playerID int64) (bool, int, error) {
	return s.insertCheckin(ctx, "checkins", channelID, sessionID, playerID)
}

func (s *Store) InsertRaidCheckin(ctx context.Context, channelID, sessionID, playerID int64) (bool, int, error) {
	return s.insertCheckin(ctx, "raid_checkins", channelID, sessionID, playerID)
}

func (s *Store) InsertSentryCheckin(ctx context.Context, channelID, sessionID, playerID int64) (bool, int, error) {
	return s.insertCheckin(ctx, "sentry_checkins", channelID, sessionID, playerID)
}

func (s *Store) InsertSpoilsClaim(ctx context.Context, channelID, sessionID, playerID int64) (bool, int, error) {
	return s.insertCheckin(ctx, "spoils_claims", channelID, sessionID, playerID)
}

func (s *Store) InsertClanSpoilsClaim(ctx context.Context, channelID, sessionID, playerID int64) (bool, int, error) {
	return s.insertCheckin(ctx, "clan_spoils_claims", channelID, sessionID, playerID)
}

// AddPoints increments a player's season score, creating the row on first
// award. The clan snapshot is written only on insert; later awards leave it
// alone so a mid-season clan move doesn't rewrite earlier standings rows.
func (s *Store) AddPoints(ctx context.Context, channelID, playerID, seasonID int64, clanID sql.NullInt64, points int) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO points (channel_id, player_id, season_id, clan_id, points)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id, season_id)
		DO UPDATE SET points = points.points + EXCLUDED.points`,
		channelID, playerID, seasonID, clanID, points)
	if err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	return nil
}

// RemovePoints deducts points, flooring at zero. A no-op when the player has
// no points row this season.
func (s *Store) RemovePoints(ctx context.Context, playerID, seasonID int64, points int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE points SET points = GREATEST(points - $1, 0)
		WHERE player_id = $2 AND season_id = $3`, points, playerID, seasonID)
	if err != nil {
		return fmt.Errorf("remove points: %w", err)
	}
	return nil
}

// PlayerPoints returns a player's score for one season. Zero with no error
// when the player hasn't scored yet.
func (s *Store) PlayerPoints(ctx context.Context, playerID, seasonID int64) (int, error) {
	var pts int
	err := s.DB.QueryRowContext(ctx, `
		SELECT points FROM points WHERE player_id = $1 AND season_id = $2`,
		playerID, seasonID).Scan(&pts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return pts, nil
}

func (s *Store) AddWatchMinutes(ctx context.Context, channelID, playerID, seasonID int64, minutes int) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO player_watch_times (channel_id, player_id, season_id, minutes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, season_id)
		DO UPDATE SET minutes = player_watch_times.minutes + EXCLUDED.minutes`,
		channelID, playerID, seasonID, minutes)
	if err != nil {
		return fmt.Errorf("add watch minutes: %w", err)
	}
	return nil
}

func (s *Store) PlayerWatchMinutes(ctx context.Context, playerID, seasonID int64) (int, error) {
	var mins int
	err := s.DB.QueryRowContext(ctx, `
		SELECT minutes FROM player_watch_times WHERE player_id = $1 AND season_id = $2`,
		playerID, seasonID).Scan(&mins)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return mins, nil
}

// UpsertSubscription records a sub or resub. Months only ever move forward so
// a late-arriving duplicate notification can't shrink the streak.
func (s *Store) UpsertSubscription(ctx context.Context, channelID, playerID int64, months int) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO subscriptions (channel_id, player_id, months_subscribed, currently_subscribed)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (channel_id, player_id)
		DO UPDATE SET months_subscribed = GREATEST(subscriptions.months_subscribed, EXCLUDED.months_subscribed),
		              currently_subscribed = TRUE`,
		channelID, playerID, months)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (s *Store) IncrementGiftedSubs(ctx context.Context, channelID, playerID int64, count int) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO gifted_subs_leaderboard (channel_id, player_id, gifted_subs)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id, player_id)
		DO UPDATE SET gifted_subs = gifted_subs_leaderboard.gifted_subs + EXCLUDED.gifted_subs`,
		channelID, playerID, count)
	if err != nil {
		return fmt.Errorf("increment gifted subs: %w", err)
	}
	return nil
}

func (s *Store) SetRewardLevel(ctx context.Context, channelID int64, level int, reward string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO reward_levels (channel_id, level, reward) VALUES ($1, $2, $3)
		ON CONFLICT (channel_id, level) DO UPDATE SET reward = EXCLUDED.reward`,
		channelID, level, reward)
	return err
}

func (s *Store) ListRewardLevels(ctx context.Context, channelID int64) ([]RewardLevel, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT level, reward FROM reward_levels
		WHERE channel_id = $1 ORDER BY level`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RewardLevel
	for rows.Next() {
		var r RewardLevel
		if err := rows.Scan(&r.Level, &r.Reward); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkEventSubscribed records a successful EventSub registration so the
// bootstrap can skip it on the next boot.
func (s *Store) MarkEventSubscribed(ctx context.Context, channelName, eventType string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO event_subscriptions (channel_name, event_type, subscribed)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (channel_name, event_type) DO UPDATE SET subscribed = TRUE`,
		channelName, eventType)
	return err
}

func (s *Store) HasEventSubscription(ctx context.Context, channelName, eventType string) (bool, error) {
	var subscribed bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT subscribed FROM event_subscriptions
		WHERE channel_name = $1 AND event_type = $2`, channelName, eventType).Scan(&subscribed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return subscribed, nil
}
