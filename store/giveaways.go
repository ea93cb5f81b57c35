package store

import (
	"context"
	"fmt"
	"time"
)

func (s *Store) CreateGiveaway(ctx context.Context, channelID int64, follower string, start, end time.Time) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO follower_giveaways (channel_id, follower, start_time, end_time)
		VALUES ($1, $2, $3, $4) RETURNING id`, channelID, follower, start, end).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create giveaway: %w", err)
	}
	return id, nil
}

// DeleteUnresolvedGiveawayByFollower drops any unresolved giveaway for one
// follower handle, covering the unfollow/refollow case. Entries cascade.
func (s *Store) DeleteUnresolvedGiveawayByFollower(ctx context.Context, channelID int64, follower string) error {
	_, err := s.DB.ExecContext(ctx, `
		DELETE FROM follower_giveaways
		WHERE channel_id = $1 AND follower = $2 AND winner_id IS NULL`,
		channelID, follower)
	return err
}

// OpenGiveaway returns the giveaway currently accepting entries on a channel,
// or sql.ErrNoRows when none is open.
func (s *Store) OpenGiveaway(ctx context.Context, channelID int64, now time.Time) (*Giveaway, error) {
	var g Giveaway
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, follower, start_time, end_time, winner_id
		FROM follower_giveaways
		WHERE channel_id = $1 AND winner_id IS NULL AND end_time > $2
		ORDER BY end_time DESC LIMIT 1`, channelID, now).
		Scan(&g.ID, &g.ChannelID, &g.Follower, &g.StartTime, &g.EndTime, &g.WinnerID)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// InsertGiveawayEntry records one entry, reporting whether it was new.
func (s *Store) InsertGiveawayEntry(ctx context.Context, channelID, giveawayID, playerID int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO follower_giveaway_entries (channel_id, giveaway_id, player_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (giveaway_id, player_id) DO NOTHING`, channelID, giveawayID, playerID)
	if err != nil {
		return false, fmt.Errorf("insert giveaway entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExpiredGiveaways lists giveaways past their window that still need a winner
// drawn, across all channels. The resolver job feeds on this.
func (s *Store) ExpiredGiveaways(ctx context.Context, now time.Time) ([]Giveaway, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, channel_id, follower, start_time, end_time, winner_id
		FROM follower_giveaways
		WHERE winner_id IS NULL AND end_time <= $1
		ORDER BY end_time`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Giveaway
	for rows.Next() {
		var g Giveaway
		if err := rows.Scan(&g.ID, &g.ChannelID, &g.Follower, &g.StartTime, &g.EndTime, &g.WinnerID); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GiveawayEntrants returns the players entered into a giveaway, ordered by
// entry id so a seeded draw is reproducible.
func (s *Store) GiveawayEntrants(ctx context.Context, giveawayID int64) ([]Player, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT p.id, p.channel_id, p.name, p.nickname, p.clan_id, p.enabled
		FROM follower_giveaway_entries e
		JOIN players p ON p.id = e.player_id
		WHERE e.giveaway_id = $1
		ORDER BY e.id`, giveawayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.ChannelID, &p.Name, &p.Nickname, &p.ClanID, &p.Enabled); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SetGiveawayWinner(ctx context.Context, giveawayID, playerID int64) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE follower_giveaways SET winner_id = $1
		WHERE id = $2 AND winner_id IS NULL`, playerID, giveawayID)
	return err
}

// DeleteGiveaway removes a giveaway that expired with no entries. Entries
// cascade, though there are none by definition.
func (s *Store) DeleteGiveaway(ctx context.Context, giveawayID int64) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM follower_giveaways WHERE id = $1`, giveawayID)
	return err
}

// CountOpenGiveaways counts unresolved giveaways across all channels, for the
// metrics gauge.
func (s *Store) CountOpenGiveaways(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follower_giveaways WHERE winner_id IS NULL`).Scan(&n)
	return n, err
}

func (s *Store) AddGiveawayPrize(ctx context.Context, channelID int64, message string, vpReward int) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO follower_giveaway_prizes (channel_id, message, vp_reward)
		VALUES ($1, $2, $3) RETURNING id`, channelID, message, vpReward).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add giveaway prize: %w", err)
	}
	return id, nil
}

// RandomPrize picks one prize from the channel's pool uniformly at random.
// Returns sql.ErrNoRows when the pool is empty.
func (s *Store) RandomPrize(ctx context.Context, channelID int64) (*GiveawayPrize, error) {
	var p GiveawayPrize
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, message, vp_reward FROM follower_giveaway_prizes
		WHERE channel_id = $1 ORDER BY random() LIMIT 1`, channelID).
		Scan(&p.ID, &p.Message, &p.VPReward)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
