package store

import (
	"context"
	"database/sql"
)

// ClanStanding is one row of the clan scoreboard.
type ClanStanding struct {
	Clan   Clan
	Points int
}

// PlayerStanding is one row of the individual leaderboard.
type PlayerStanding struct {
	PlayerID int64
	Name     string
	ClanTag  sql.NullString
	Points   int
}

// ClanStandings sums player scores per clan for one season, using the clan
// snapshot taken when each points row was created. Clans with no scorers yet
// still appear with zero points.
func (s *Store) ClanStandings(ctx context.Context, channelID, seasonID int64) ([]ClanStanding, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id, c.channel_id, c.name, c.tag, c.emoji,
		       COALESCE(SUM(pt.points), 0)
		FROM clans c
		LEFT JOIN points pt ON pt.clan_id = c.id AND pt.season_id = $2
		WHERE c.channel_id = $1
		GROUP BY c.id
		ORDER BY COALESCE(SUM(pt.points), 0) DESC, c.id`, channelID, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClanStanding
	for rows.Next() {
		var st ClanStanding
		if err := rows.Scan(&st.Clan.ID, &st.Clan.ChannelID, &st.Clan.Name, &st.Clan.Tag, &st.Clan.Emoji, &st.Points); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// TopPlayers returns the season leaderboard, highest score first. Ties break
// on player id so pagination is stable.
func (s *Store) TopPlayers(ctx context.Context, seasonID int64, limit int) ([]PlayerStanding, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT p.id, p.name, c.tag, pt.points
		FROM points pt
		JOIN players p ON p.id = pt.player_id
		LEFT JOIN clans c ON c.id = pt.clan_id
		WHERE pt.season_id = $1
		ORDER BY pt.points DESC, p.id
		LIMIT $2`, seasonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerStanding
	for rows.Next() {
		var st PlayerStanding
		if err := rows.Scan(&st.PlayerID, &st.Name, &st.ClanTag, &st.Points); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// PlayerRank returns a player's 1-based leaderboard position and score for a
// season. Rank is the count of strictly higher scores plus one, so equal
// scores share a rank. Returns sql.ErrNoRows when the player has no score.
func (s *Store) PlayerRank(ctx context.Context, playerID, seasonID int64) (rank, points int, err error) {
	err = s.DB.QueryRowContext(ctx, `
		SELECT 1 + COUNT(*) FILTER (WHERE other.points > mine.points), mine.points
		FROM points mine
		LEFT JOIN points other ON other.season_id = mine.season_id AND other.id <> mine.id
		WHERE mine.player_id = $1 AND mine.season_id = $2
		GROUP BY mine.points`, playerID, seasonID).Scan(&rank, &points)
	if err != nil {
		return 0, 0, err
	}
	return rank, points, nil
}

// PlayerClanRank is PlayerRank scoped to the player's clan snapshot, so
// clanmates compete among themselves. Returns sql.ErrNoRows when the player
// has no score this season.
func (s *Store) PlayerClanRank(ctx context.Context, playerID, seasonID int64) (rank int, err error) {
	err = s.DB.QueryRowContext(ctx, `
		SELECT 1 + COUNT(*) FILTER (WHERE other.points > mine.points)
		FROM points mine
		LEFT JOIN points other ON other.season_id = mine.season_id
			AND other.clan_id = mine.clan_id AND other.id <> mine.id
		WHERE mine.player_id = $1 AND mine.season_id = $2
		GROUP BY mine.points`, playerID, seasonID).Scan(&rank)
	if err != nil {
		return 0, err
	}
	return rank, nil
}

// ClanChampion is the top scorer of one clan.
type ClanChampion struct {
	Clan   Clan
	Player string
	Points int
}

// ClanChampions returns each clan's highest scorer for a season, using the
// clan snapshot on the points rows. Clans with no scorers are omitted.
func (s *Store) ClanChampions(ctx context.Context, channelID, seasonID int64) ([]ClanChampion, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT DISTINCT ON (pt.clan_id)
		       c.id, c.channel_id, c.name, c.tag, c.emoji, p.name, pt.points
		FROM points pt
		JOIN clans c ON c.id = pt.clan_id
		JOIN players p ON p.id = pt.player_id
		WHERE pt.season_id = $1 AND c.channel_id = $2
		ORDER BY pt.clan_id, pt.points DESC, p.id`, seasonID, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClanChampion
	for rows.Next() {
		var ch ClanChampion
		if err := rows.Scan(&ch.Clan.ID, &ch.Clan.ChannelID, &ch.Clan.Name, &ch.Clan.Tag, &ch.Clan.Emoji, &ch.Player, &ch.Points); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// LifetimePoints sums a player's scores across every season of a channel.
func (s *Store) LifetimePoints(ctx context.Context, channelID, playerID int64) (int, error) {
	var total int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM points
		WHERE channel_id = $1 AND player_id = $2`, channelID, playerID).Scan(&total)
	return total, err
}

// GiftedLeaderboard lists the channel's top gifters, all-time.
func (s *Store) GiftedLeaderboard(ctx context.Context, channelID int64, limit int) ([]PlayerStanding, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT p.id, p.name, c.tag, g.gifted_subs
		FROM gifted_subs_leaderboard g
		JOIN players p ON p.id = g.player_id
		LEFT JOIN clans c ON c.id = p.clan_id
		WHERE g.channel_id = $1
		ORDER BY g.gifted_subs DESC, p.id
		LIMIT $2`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerStanding
	for rows.Next() {
		var st PlayerStanding
		if err := rows.Scan(&st.PlayerID, &st.Name, &st.ClanTag, &st.Points); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// WatchTimeLeaderboard lists the season's top watchers by credited minutes.
func (s *Store) WatchTimeLeaderboard(ctx context.Context, seasonID int64, limit int) ([]PlayerStanding, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT p.id, p.name, c.tag, w.minutes
		FROM player_watch_times w
		JOIN players p ON p.id = w.player_id
		LEFT JOIN clans c ON c.id = p.clan_id
		WHERE w.season_id = $1
		ORDER BY w.minutes DESC, p.id
		LIMIT $2`, seasonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerStanding
	for rows.Next() {
		var st PlayerStanding
		if err := rows.Scan(&st.PlayerID, &st.Name, &st.ClanTag, &st.Points); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
