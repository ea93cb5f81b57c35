package game

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vanderwood/midgard/store"
)

// Standings returns the clan scoreboard for the active season.
func (s *Service) Standings(ctx context.Context, channel string) (*store.Season, []store.ClanStanding, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, nil, err
	}
	standings, err := s.store.ClanStandings(ctx, ch.ID, season.ID)
	if err != nil {
		return nil, nil, err
	}
	return season, standings, nil
}

// Leaderboard returns the active season's top players.
func (s *Service) Leaderboard(ctx context.Context, channel string, limit int) (*store.Season, []store.PlayerStanding, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, nil, err
	}
	top, err := s.store.TopPlayers(ctx, season.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	return season, top, nil
}

// SeasonInfo returns the active season, for the dates command.
func (s *Service) SeasonInfo(ctx context.Context, channel string) (*store.Season, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	return s.activeSeason(ctx, ch.ID)
}

// PlayerStatus is everything the status command reports about one player.
type PlayerStatus struct {
	Player       *store.Player
	Clan         *store.Clan
	Rank         int
	ClanRank     int
	Points       int
	Lifetime     int
	WatchMinutes int
}

// Status summarizes a player's season: rank, score, lifetime total and
// credited watch time.
func (s *Service) Status(ctx context.Context, channel, playerName string) (*PlayerStatus, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	p, err := s.player(ctx, ch.ID, playerName)
	if err != nil {
		return nil, err
	}

	st := &PlayerStatus{Player: p}
	if p.ClanID.Valid {
		if st.Clan, err = s.store.GetClanByID(ctx, p.ClanID.Int64); err != nil {
			return nil, err
		}
	}
	rank, points, err := s.store.PlayerRank(ctx, p.ID, season.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	st.Rank, st.Points = rank, points
	if rank > 0 {
		clanRank, err := s.store.PlayerClanRank(ctx, p.ID, season.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		st.ClanRank = clanRank
	}
	if st.Lifetime, err = s.store.LifetimePoints(ctx, ch.ID, p.ID); err != nil {
		return nil, err
	}
	if st.WatchMinutes, err = s.store.PlayerWatchMinutes(ctx, p.ID, season.ID); err != nil {
		return nil, err
	}
	return st, nil
}

// MVP returns the top scorer of the most recently ended season.
func (s *Service) MVP(ctx context.Context, channel string) (*store.Season, *store.PlayerStanding, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	season, err := s.store.LastEndedSeason(ctx, ch.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoActiveSeason
	}
	if err != nil {
		return nil, nil, err
	}
	top, err := s.store.TopPlayers(ctx, season.ID, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(top) == 0 {
		return season, nil, nil
	}
	return season, &top[0], nil
}

// ClanChampions returns each clan's top scorer this season.
func (s *Service) ClanChampions(ctx context.Context, channel string) ([]store.ClanChampion, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	return s.store.ClanChampions(ctx, ch.ID, season.ID)
}

// PlayerReward returns the highest reward level a player's season score has
// reached, or nil when no level is reached or none are configured.
func (s *Service) PlayerReward(ctx context.Context, channel, playerName string) (*store.RewardLevel, int, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, 0, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, 0, err
	}
	p, err := s.player(ctx, ch.ID, playerName)
	if err != nil {
		return nil, 0, err
	}
	points, err := s.store.PlayerPoints(ctx, p.ID, season.ID)
	if err != nil {
		return nil, 0, err
	}
	levels, err := s.store.ListRewardLevels(ctx, ch.ID)
	if err != nil {
		return nil, 0, err
	}
	var reached *store.RewardLevel
	for i := range levels {
		if levels[i].Level <= points {
			reached = &levels[i]
		}
	}
	return reached, points, nil
}

// GiftedLeaders returns the channel's all-time top sub gifters.
func (s *Service) GiftedLeaders(ctx context.Context, channel string, limit int) ([]store.PlayerStanding, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	return s.store.GiftedLeaderboard(ctx, ch.ID, limit)
}

// WatchLeaders returns the active season's top watchers.
func (s *Service) WatchLeaders(ctx context.Context, channel string, limit int) ([]store.PlayerStanding, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	return s.store.WatchTimeLeaderboard(ctx, season.ID, limit)
}

// Clans lists the channel's clans with member counts.
func (s *Service) Clans(ctx context.Context, channel string) ([]store.ClanMemberCount, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	return s.store.ClanMemberCounts(ctx, ch.ID)
}

// ClanRoster lists the enabled members of a clan.
func (s *Service) ClanRoster(ctx context.Context, channel, clanName string) (*store.Clan, []store.Player, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	clan, err := s.clanByNameOrTag(ctx, ch.ID, clanName)
	if err != nil {
		return nil, nil, err
	}
	roster, err := s.store.ClanRoster(ctx, clan.ID)
	if err != nil {
		return nil, nil, err
	}
	return clan, roster, nil
}
