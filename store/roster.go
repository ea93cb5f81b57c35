package store

import (
	"context"
	"fmt"
)

// CreateChannel registers a channel by name, returning the existing row's id
// when the channel is already registered.
func (s *Store) CreateChannel(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO channels (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create channel %q: %w", name, err)
	}
	return id, nil
}

// GetChannelByName looks up a registered channel. Returns sql.ErrNoRows when
// the channel has never been registered.
func (s *Store) GetChannelByName(ctx context.Context, name string) (*Channel, error) {
	var c Channel
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, twitch_user_id, discord_server_id
		FROM channels WHERE name = $1`, name).
		Scan(&c.ID, &c.Name, &c.TwitchUserID, &c.DiscordServerID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetChannelByID(ctx context.Context, channelID int64) (*Channel, error) {
	var c Channel
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, twitch_user_id, discord_server_id
		FROM channels WHERE id = $1`, channelID).
		Scan(&c.ID, &c.Name, &c.TwitchUserID, &c.DiscordServerID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetChannelByDiscordServer(ctx context.Context, serverID string) (*Channel, error) {
	var c Channel
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, twitch_user_id, discord_server_id
		FROM channels WHERE discord_server_id = $1`, serverID).
		Scan(&c.ID, &c.Name, &c.TwitchUserID, &c.DiscordServerID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SetChannelTwitchUserID(ctx context.Context, channelID int64, twitchUserID string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE channels SET twitch_user_id = $1 WHERE id = $2`, twitchUserID, channelID)
	return err
}

func (s *Store) SetChannelDiscordServer(ctx context.Context, channelID int64, serverID string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE channels SET discord_server_id = $1 WHERE id = $2`, serverID, channelID)
	return err
}

// ListChannels returns every registered channel that has a Twitch user id,
// i.e. the ones the EventSub bootstrap can subscribe for.
func (s *Store) ListChannels(ctx context.Context) ([]Channel, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, twitch_user_id, discord_server_id FROM channels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Channel
	for rows.Next() {
		var c Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.TwitchUserID, &c.DiscordServerID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateClan(ctx context.Context, channelID int64, name, tag, emoji string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO clans (channel_id, name, tag, emoji) VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id`, channelID, name, tag, emoji).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create clan %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) GetClanByName(ctx context.Context, channelID int64, name string) (*Clan, error) {
	var c Clan
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, name, tag, emoji FROM clans
		WHERE channel_id = $1 AND LOWER(name) = LOWER($2)`, channelID, name).
		Scan(&c.ID, &c.ChannelID, &c.Name, &c.Tag, &c.Emoji)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetClanByTag(ctx context.Context, channelID int64, tag string) (*Clan, error) {
	var c Clan
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, name, tag, emoji FROM clans
		WHERE channel_id = $1 AND LOWER(tag) = LOWER($2)`, channelID, tag).
		Scan(&c.ID, &c.ChannelID, &c.Name, &c.Tag, &c.Emoji)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetClanByID(ctx context.Context, clanID int64) (*Clan, error) {
	var c Clan
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, name, tag, emoji FROM clans WHERE id = $1`, clanID).
		Scan(&c.ID, &c.ChannelID, &c.Name, &c.Tag, &c.Emoji)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListClans(ctx context.Context, channelID int64) ([]Clan, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, channel_id, name, tag, emoji FROM clans
		WHERE channel_id = $1 ORDER BY id`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Clan
	for rows.Next() {
		var c Clan
		if err := rows.Scan(&c.ID, &c.ChannelID, &c.Name, &c.Tag, &c.Emoji); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClanMemberCount pairs a clan with its enabled-player headcount.
type ClanMemberCount struct {
	Clan  Clan
	Count int
}

// ClanMemberCounts returns every clan with the number of enabled players
// enrolled in it, including clans with zero members. Ordered by clan id so
// callers get a stable ordering for tie-breaking.
func (s *Store) ClanMemberCounts(ctx context.Context, channelID int64) ([]ClanMemberCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id, c.channel_id, c.name, c.tag, c.emoji,
		       COUNT(p.id) FILTER (WHERE p.enabled)
		FROM clans c
		LEFT JOIN players p ON p.clan_id = c.id
		WHERE c.channel_id = $1
		GROUP BY c.id
		ORDER BY c.id`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClanMemberCount
	for rows.Next() {
		var m ClanMemberCount
		if err := rows.Scan(&m.Clan.ID, &m.Clan.ChannelID, &m.Clan.Name, &m.Clan.Tag, &m.Clan.Emoji, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreatePlayer enrolls a player in a clan, returning the existing row's id if
// the player was already enrolled (the clan is not changed in that case).
func (s *Store) CreatePlayer(ctx context.Context, channelID int64, name string, clanID int64) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO players (channel_id, name, clan_id) VALUES ($1, $2, $3)
		ON CONFLICT (channel_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, channelID, name, clanID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create player %q: %w", name, err)
	}
	return id, nil
}

// GetPlayerByName looks up a player by their Twitch login. Returns
// sql.ErrNoRows when the player has never enrolled.
func (s *Store) GetPlayerByName(ctx context.Context, channelID int64, name string) (*Player, error) {
	var p Player
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, name, nickname, clan_id, enabled
		FROM players WHERE channel_id = $1 AND LOWER(name) = LOWER($2)`, channelID, name).
		Scan(&p.ID, &p.ChannelID, &p.Name, &p.Nickname, &p.ClanID, &p.Enabled)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPlayerByID(ctx context.Context, playerID int64) (*Player, error) {
	var p Player
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, channel_id, name, nickname, clan_id, enabled
		FROM players WHERE id = $1`, playerID).
		Scan(&p.ID, &p.ChannelID, &p.Name, &p.Nickname, &p.ClanID, &p.Enabled)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) SetPlayerClan(ctx context.Context, playerID, clanID int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE players SET clan_id = $1 WHERE id = $2`, clanID, playerID)
	return err
}

func (s *Store) SetPlayerEnabled(ctx context.Context, playerID int64, enabled bool) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE players SET enabled = $1 WHERE id = $2`, enabled, playerID)
	return err
}

func (s *Store) SetPlayerNickname(ctx context.Context, playerID int64, nickname string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE players SET nickname = NULLIF($1, '') WHERE id = $2`, nickname, playerID)
	return err
}

// ClanRoster lists enabled players enrolled in a clan, for the roster command.
func (s *Store) ClanRoster(ctx context.Context, clanID int64) ([]Player, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, channel_id, name, nickname, clan_id, enabled
		FROM players WHERE clan_id = $1 AND enabled ORDER BY name`, clanID)
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
