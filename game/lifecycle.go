package game

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vanderwood/midgard/store"
)

const maxTagLen = 4

// RegisterChannel enrolls a channel into the game. Idempotent.
func (s *Service) RegisterChannel(ctx context.Context, channel string) (int64, error) {
	return s.store.CreateChannel(ctx, strings.ToLower(channel))
}

// SetChannelTwitchID records the channel's Twitch user id, learned from chat
// tags, so EventSub subscriptions can be created for it.
func (s *Service) SetChannelTwitchID(ctx context.Context, channel, twitchUserID string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	if ch.TwitchUserID.String == twitchUserID {
		return nil
	}
	return s.store.SetChannelTwitchUserID(ctx, ch.ID, twitchUserID)
}

// LinkDiscordServer binds a Discord guild to a channel so slash commands know
// which game they operate on.
func (s *Service) LinkDiscordServer(ctx context.Context, channel, serverID string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	return s.store.SetChannelDiscordServer(ctx, ch.ID, serverID)
}

// StartSeason opens a new season. Fails with ErrSeasonActive when one is
// already running.
func (s *Service) StartSeason(ctx context.Context, channel, name string) (*store.Season, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.ActiveSeason(ctx, ch.ID); err == nil {
		return nil, ErrSeasonActive
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	now := s.now()
	id, err := s.store.CreateSeason(ctx, ch.ID, name, now)
	if err != nil {
		return nil, err
	}
	return &store.Season{ID: id, ChannelID: ch.ID, Name: name, StartDate: now}, nil
}

// EndSeason closes the active season. endDate is optional; when given it is
// the announced end in DD/MM/YYYY form, stored alongside the actual close
// time. Refused while a stream session is still open so the season's last
// session can't be cut in half. Raid and spoils windows don't block the close
// but are swept shut with it.
func (s *Service) EndSeason(ctx context.Context, channel, endDate string) (*store.Season, error) {
	var infoEnd sql.NullTime
	if endDate != "" {
		t, err := ParseEndDate(endDate)
		if err != nil {
			return nil, err
		}
		infoEnd = sql.NullTime{Time: t, Valid: true}
	}
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.ActiveSession(ctx, ch.ID); err == nil {
		return nil, ErrSessionInProgress
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	now := s.now()
	if err := s.store.EndSeason(ctx, season.ID, now, infoEnd); err != nil {
		return nil, err
	}
	if err := s.store.EndOpenRaidSessions(ctx, ch.ID, now); err != nil {
		return nil, err
	}
	if err := s.store.EndOpenSpoilsSessions(ctx, ch.ID, now); err != nil {
		return nil, err
	}
	if _, err := s.store.EndOpenClanSpoilsSessions(ctx, ch.ID, now); err != nil {
		return nil, err
	}
	return season, nil
}

// SetAdvertisedEndDate updates the season's announced end date without
// closing it.
func (s *Service) SetAdvertisedEndDate(ctx context.Context, channel, endDate string) (*store.Season, error) {
	infoEnd, err := ParseEndDate(endDate)
	if err != nil {
		return nil, err
	}
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetSeasonInfoEndDate(ctx, season.ID, infoEnd); err != nil {
		return nil, err
	}
	season.InfoEndDate = sql.NullTime{Time: infoEnd, Valid: true}
	return season, nil
}

// StartSession opens a stream session inside the active season.
func (s *Service) StartSession(ctx context.Context, channel string) (*store.Session, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.ActiveSession(ctx, ch.ID); err == nil {
		return nil, ErrSessionActive
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	now := s.now()
	id, err := s.store.CreateSession(ctx, ch.ID, season.ID, now)
	if err != nil {
		return nil, err
	}
	return &store.Session{ID: id, ChannelID: ch.ID, SeasonID: season.ID, StartTime: now}, nil
}

// EndSession closes the stream session and sweeps up any clan-spoils windows
// still open. Sentry windows need no sweep, they carry their own end time.
func (s *Service) EndSession(ctx context.Context, channel string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	session, err := s.store.ActiveSession(ctx, ch.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoActiveSession
	}
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.store.EndSession(ctx, session.ID, now); err != nil {
		return err
	}
	_, err = s.store.EndOpenClanSpoilsSessions(ctx, ch.ID, now)
	return err
}

// StartRaid opens a raid check-in window.
func (s *Service) StartRaid(ctx context.Context, channel string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return err
	}
	if _, err := s.store.ActiveRaidSession(ctx, ch.ID); err == nil {
		return ErrSessionActive
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = s.store.CreateRaidSession(ctx, ch.ID, season.ID, s.now())
	return err
}

func (s *Service) EndRaid(ctx context.Context, channel string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	session, err := s.store.ActiveRaidSession(ctx, ch.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoActiveSession
	}
	if err != nil {
		return err
	}
	return s.store.EndRaidSession(ctx, session.ID, s.now())
}

// StartSpoils opens a spoils window paying reward points per claim.
func (s *Service) StartSpoils(ctx context.Context, channel string, reward int) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return err
	}
	if _, err := s.store.ActiveSpoilsSession(ctx, ch.ID); err == nil {
		return ErrSpoilsActive
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = s.store.CreateSpoilsSession(ctx, ch.ID, season.ID, reward, s.now())
	return err
}

func (s *Service) EndSpoils(ctx context.Context, channel string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	session, err := s.store.ActiveSpoilsSession(ctx, ch.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoActiveSpoils
	}
	if err != nil {
		return err
	}
	return s.store.EndSpoilsSession(ctx, session.ID, s.now())
}

// StartClanSpoils opens a spoils window only members of one clan can claim.
func (s *Service) StartClanSpoils(ctx context.Context, channel, clanName string, reward int) (*store.Clan, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	clan, err := s.clanByNameOrTag(ctx, ch.ID, clanName)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.ActiveClanSpoilsSession(ctx, ch.ID, clan.ID); err == nil {
		return nil, ErrSpoilsActive
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if _, err := s.store.CreateClanSpoilsSession(ctx, ch.ID, season.ID, clan.ID, reward, s.now()); err != nil {
		return nil, err
	}
	return clan, nil
}

func (s *Service) EndClanSpoils(ctx context.Context, channel, clanName string) (*store.Clan, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	clan, err := s.clanByNameOrTag(ctx, ch.ID, clanName)
	if err != nil {
		return nil, err
	}
	session, err := s.store.ActiveClanSpoilsSession(ctx, ch.ID, clan.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSpoils
	}
	if err != nil {
		return nil, err
	}
	if err := s.store.EndClanSpoilsSession(ctx, session.ID, s.now()); err != nil {
		return nil, err
	}
	return clan, nil
}

// CreateClan adds a clan to the channel's roster.
func (s *Service) CreateClan(ctx context.Context, channel, name, tag, emoji string) (*store.Clan, error) {
	if len(tag) > maxTagLen {
		return nil, ErrTagTooLong
	}
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetClanByName(ctx, ch.ID, name); err == nil {
		return nil, ErrClanNameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if _, err := s.store.GetClanByTag(ctx, ch.ID, tag); err == nil {
		return nil, ErrClanTagTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	id, err := s.store.CreateClan(ctx, ch.ID, name, tag, emoji)
	if err != nil {
		return nil, err
	}
	return &store.Clan{ID: id, ChannelID: ch.ID, Name: name, Tag: tag}, nil
}

func (s *Service) clanByNameOrTag(ctx context.Context, channelID int64, ref string) (*store.Clan, error) {
	clan, err := s.store.GetClanByName(ctx, channelID, ref)
	if err == nil {
		return clan, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	clan, err = s.store.GetClanByTag(ctx, channelID, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClanNotFound
	}
	return clan, err
}

// MovePlayer reassigns a player to a named clan. Blocked while a season is
// running so standings snapshots stay coherent.
func (s *Service) MovePlayer(ctx context.Context, channel, playerName, clanName string) (*store.Clan, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.ActiveSeason(ctx, ch.ID); err == nil {
		return nil, ErrSeasonActive
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	p, err := s.player(ctx, ch.ID, playerName)
	if err != nil {
		return nil, err
	}
	clan, err := s.clanByNameOrTag(ctx, ch.ID, clanName)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPlayerClan(ctx, p.ID, clan.ID); err != nil {
		return nil, err
	}
	return clan, nil
}

// SetPlayerEnabled toggles a player in or out of the game without deleting
// their history.
func (s *Service) SetPlayerEnabled(ctx context.Context, channel, playerName string, enabled bool) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	p, err := s.store.GetPlayerByName(ctx, ch.ID, playerName)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotEnrolled
	}
	if err != nil {
		return err
	}
	return s.store.SetPlayerEnabled(ctx, p.ID, enabled)
}

func (s *Service) SetNickname(ctx context.Context, channel, playerName, nickname string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	p, err := s.player(ctx, ch.ID, playerName)
	if err != nil {
		return err
	}
	return s.store.SetPlayerNickname(ctx, p.ID, nickname)
}

// SetRewardLevel configures the reward text shown for a point threshold.
func (s *Service) SetRewardLevel(ctx context.Context, channel string, level int, reward string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	return s.store.SetRewardLevel(ctx, ch.ID, level, reward)
}

func (s *Service) RewardLevels(ctx context.Context, channel string) ([]store.RewardLevel, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	return s.store.ListRewardLevels(ctx, ch.ID)
}

func (s *Service) AddGiveawayPrize(ctx context.Context, channel, message string, vpReward int) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	_, err = s.store.AddGiveawayPrize(ctx, ch.ID, message, vpReward)
	return err
}
