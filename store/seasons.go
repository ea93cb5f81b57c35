package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ActiveSeason returns the channel's open season, or sql.ErrNoRows when none
// is running. The partial unique index guarantees at most one row matches.
func (s *Store) ActiveSeason(ctx context.Context, channelID int64) (*Season, error) {
	var se Season
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, name, start_date, end_date, info_end_date
		FROM seasons WHERE channel_id = $1 AND end_date IS NULL`, channelID).
		Scan(&se.ID, &se.ChannelID, &se.Name, &se.StartDate, &se.EndDate, &se.InfoEndDate)
	if err != nil {
		return nil, err
	}
	return &se, nil
}

// LastEndedSeason returns the most recently closed season, for MVP lookups.
func (s *Store) LastEndedSeason(ctx context.Context, channelID int64) (*Season, error) {
	var se Season
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, name, start_date, end_date, info_end_date
		FROM seasons WHERE channel_id = $1 AND end_date IS NOT NULL
		ORDER BY end_date DESC LIMIT 1`, channelID).
		Scan(&se.ID, &se.ChannelID, &se.Name, &se.StartDate, &se.EndDate, &se.InfoEndDate)
	if err != nil {
		return nil, err
	}
	return &se, nil
}

// CreateSeason opens a season. The one-active-per-channel index makes a
// concurrent double-start fail with a unique violation.
func (s *Store) CreateSeason(ctx context.Context, channelID int64, name string, start time.Time) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO seasons (channel_id, name, start_date) VALUES ($1, $2, $3)
		RETURNING id`, channelID, name, start).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create season %q: %w", name, err)
	}
	return id, nil
}

// EndSeason closes a season. A valid infoEnd also updates the announced end
// date; a null one leaves whatever was advertised in place.
func (s *Store) EndSeason(ctx context.Context, seasonID int64, endedAt time.Time, infoEnd sql.NullTime) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE seasons SET end_date = $1, info_end_date = COALESCE($2, info_end_date)
		WHERE id = $3 AND end_date IS NULL`, endedAt, infoEnd, seasonID)
	return err
}

// SetSeasonInfoEndDate updates the advertised end date of an open season
// without closing it.
func (s *Store) SetSeasonInfoEndDate(ctx context.Context, seasonID int64, infoEnd time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE seasons SET info_end_date = $1
		WHERE id = $2 AND end_date IS NULL`, infoEnd, seasonID)
	return err
}

// sessionTable names the stream-session flavors that share the same shape.
// Spoils flavors carry a points_reward and live in their own queries below.
type sessionTable string

const (
	tableSessions     sessionTable = "sessions"
	tableRaidSessions sessionTable = "raid_sessions"
)

func (s *Store) activeSession(ctx context.Context, table sessionTable, channelID int64) (*Session, error) {
	var se Session
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, season_id, start_time, end_time
		FROM `+string(table)+` WHERE channel_id = $1 AND end_time IS NULL`, channelID).
		Scan(&se.ID, &se.ChannelID, &se.SeasonID, &se.StartTime, &se.EndTime)
	if err != nil {
		return nil, err
	}
	return &se, nil
}

func (s *Store) createSession(ctx context.Context, table sessionTable, channelID, seasonID int64, start time.Time) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO `+string(table)+` (channel_id, season_id, start_time) VALUES ($1, $2, $3)
		RETURNING id`, channelID, seasonID, start).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}
	return id, nil
}

func (s *Store) endSession(ctx context.Context, table sessionTable, sessionID int64, endedAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE `+string(table)+` SET end_time = $1
		WHERE id = $2 AND end_time IS NULL`, endedAt, sessionID)
	return err
}

func (s *Store) ActiveSession(ctx context.Context, channelID int64) (*Session, error) {
	return s.activeSession(ctx, tableSessions, channelID)
}

func (s *Store) CreateSession(ctx context.Context, channelID, seasonID int64, start time.Time) (int64, error) {
	return s.createSession(ctx, tableSessions, channelID, seasonID, start)
}

func (s *Store) EndSession(ctx context.Context, sessionID int64, endedAt time.Time) error {
	return s.endSession(ctx, tableSessions, sessionID, endedAt)
}

func (s *Store) ActiveRaidSession(ctx context.Context, channelID int64) (*Session, error) {
	return s.activeSession(ctx, tableRaidSessions, channelID)
}

func (s *Store) CreateRaidSession(ctx context.Context, channelID, seasonID int64, start time.Time) (int64, error) {
	return s.createSession(ctx, tableRaidSessions, channelID, seasonID, start)
}

func (s *Store) EndRaidSession(ctx context.Context, sessionID int64, endedAt time.Time) error {
	return s.endSession(ctx, tableRaidSessions, sessionID, endedAt)
}

func (s *Store) ActiveSpoilsSession(ctx context.Context, channelID int64) (*RewardSession, error) {
	var se RewardSession
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, season_id, points_reward, start_time, end_time
		FROM spoils_sessions WHERE channel_id = $1 AND end_time IS NULL`, channelID).
		Scan(&se.ID, &se.ChannelID, &se.SeasonID, &se.PointsReward, &se.StartTime, &se.EndTime)
	if err != nil {
		return nil, err
	}
	return &se, nil
}

func (s *Store) CreateSpoilsSession(ctx context.Context, channelID, seasonID int64, reward int, start time.Time) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO spoils_sessions (channel_id, season_id, points_reward, start_time)
		VALUES ($1, $2, $3, $4) RETURNING id`, channelID, seasonID, reward, start).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create spoils session: %w", err)
	}
	return id, nil
}

func (s *Store) EndSpoilsSession(ctx context.Context, sessionID int64, endedAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE spoils_sessions SET end_time = $1
		WHERE id = $2 AND end_time IS NULL`, endedAt, sessionID)
	return err
}

// ActiveClanSpoilsSession returns the open clan-spoils window for one clan.
func (s *Store) ActiveClanSpoilsSession(ctx context.Context, channelID, clanID int64) (*RewardSession, error) {
	var se RewardSession
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, season_id, clan_id, points_reward, start_time, end_time
		FROM clan_spoils_sessions
		WHERE channel_id = $1 AND clan_id = $2 AND end_time IS NULL`, channelID, clanID).
		Scan(&se.ID, &se.ChannelID, &se.SeasonID, &se.ClanID, &se.PointsReward, &se.StartTime, &se.EndTime)
	if err != nil {
		return nil, err
	}
	return &se, nil
}

func (s *Store) CreateClanSpoilsSession(ctx context.Context, channelID, seasonID, clanID int64, reward int, start time.Time) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO clan_spoils_sessions (channel_id, season_id, clan_id, points_reward, start_time)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, channelID, seasonID, clanID, reward, start).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create clan spoils session: %w", err)
	}
	return id, nil
}

func (s *Store) EndClanSpoilsSession(ctx context.Context, sessionID int64, endedAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE clan_spoils_sessions SET end_time = $1
		WHERE id = $2 AND end_time IS NULL`, endedAt, sessionID)
	return err
}

// EndOpenRaidSessions closes any open raid window on a channel, used when the
// season ends so a stale window can't pay into the next season.
func (s *Store) EndOpenRaidSessions(ctx context.Context, channelID int64, endedAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE raid_sessions SET end_time = $1
		WHERE channel_id = $2 AND end_time IS NULL`, endedAt, channelID)
	return err
}

// EndOpenSpoilsSessions closes any open spoils window on a channel.
func (s *Store) EndOpenSpoilsSessions(ctx context.Context, channelID int64, endedAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE spoils_sessions SET end_time = $1
		WHERE channel_id = $2 AND end_time IS NULL`, endedAt, channelID)
	return err
}

// EndOpenClanSpoilsSessions closes every open clan-spoils window on a channel,
// used when a stream session ends. Returns how many were closed.
func (s *Store) EndOpenClanSpoilsSessions(ctx context.Context, channelID int64, endedAt time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE clan_spoils_sessions SET end_time = $1
		WHERE channel_id = $2 AND end_time IS NULL`, endedAt, channelID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateSentrySession opens a sentry window. The close time is fixed up front
// so no job is needed to end it.
func (s *Store) CreateSentrySession(ctx context.Context, channelID, seasonID, sessionID int64, start, end time.Time) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO sentry_sessions (channel_id, season_id, session_id, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, channelID, seasonID, sessionID, start, end).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create sentry session: %w", err)
	}
	return id, nil
}

// ActiveSentrySession returns the sentry window covering now inside the given
// stream session, or sql.ErrNoRows when no window is open.
func (s *Store) ActiveSentrySession(ctx context.Context, sessionID int64, now time.Time) (*SentrySession, error) {
	var se SentrySession
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, season_id, session_id, start_time, end_time
		FROM sentry_sessions
		WHERE session_id = $1 AND start_time <= $2 AND end_time > $2
		ORDER BY start_time DESC LIMIT 1`, sessionID, now).
		Scan(&se.ID, &se.ChannelID, &se.SeasonID, &se.SessionID, &se.StartTime, &se.EndTime)
	if err != nil {
		return nil, err
	}
	return &se, nil
}
