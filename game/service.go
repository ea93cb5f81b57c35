// Package game implements the Battle of Midgard rules on top of the store.
// It is transport-agnostic: chat, Discord and EventSub handlers all call the
// same Service, and all awards funnel through the same scoring paths.
package game

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/vanderwood/midgard/config"
	"github.com/vanderwood/midgard/store"
)

type Service struct {
	store  *store.Store
	tuning config.Tuning
	now    func() time.Time
	rand   *rand.Rand
}

type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand overrides the randomness source used by the clan balancer and
// giveaway draws, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rand = r }
}

func New(st *store.Store, tuning config.Tuning, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tuning: tuning,
		now:    time.Now,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Store() *store.Store { return s.store }

func (s *Service) channel(ctx context.Context, name string) (*store.Channel, error) {
	ch, err := s.store.GetChannelByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChannelNotRegistered
	}
	return ch, err
}

func (s *Service) activeSeason(ctx context.Context, channelID int64) (*store.Season, error) {
	season, err := s.store.ActiveSeason(ctx, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSeason
	}
	return season, err
}

// player resolves an enrolled, enabled player by Twitch login.
func (s *Service) player(ctx context.Context, channelID int64, name string) (*store.Player, error) {
	p, err := s.store.GetPlayerByName(ctx, channelID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		return nil, ErrPlayerDisabled
	}
	return p, nil
}

// clannedPlayer is player plus the clan-membership gate every scoring action
// requires. A player can lose their clan when it is dissolved.
func (s *Service) clannedPlayer(ctx context.Context, channelID int64, name string) (*store.Player, error) {
	p, err := s.player(ctx, channelID, name)
	if err != nil {
		return nil, err
	}
	if !p.ClanID.Valid {
		return nil, ErrNoClan
	}
	return p, nil
}

// ChannelForDiscordServer maps a Discord guild to the Twitch channel it is
// linked to, so slash commands know which game they operate on.
func (s *Service) ChannelForDiscordServer(ctx context.Context, serverID string) (string, error) {
	ch, err := s.store.GetChannelByDiscordServer(ctx, serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrChannelNotRegistered
	}
	if err != nil {
		return "", err
	}
	return ch.Name, nil
}

// ParseEndDate parses the DD/MM/YYYY date format used by season-end commands.
func ParseEndDate(s string) (time.Time, error) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
