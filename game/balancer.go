package game

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"strings"

	"github.com/vanderwood/midgard/store"
)

// PickClan chooses the least-populated clan, breaking ties uniformly at
// random. Exposed as a pure function so the draw can be tested with a seeded
// source.
func PickClan(counts []store.ClanMemberCount, r *rand.Rand) (*store.Clan, error) {
	if len(counts) == 0 {
		return nil, ErrNoClans
	}
	min := counts[0].Count
	for _, c := range counts[1:] {
		if c.Count < min {
			min = c.Count
		}
	}
	var tied []*store.Clan
	for i := range counts {
		if counts[i].Count == min {
			tied = append(tied, &counts[i].Clan)
		}
	}
	return tied[r.Intn(len(tied))], nil
}

// Enroll signs a viewer up, assigning them to the least-populated clan. If
// they enrolled before, their existing clan is kept and returned.
func (s *Service) Enroll(ctx context.Context, channel, playerName string) (*store.Player, *store.Clan, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	return s.enroll(ctx, ch.ID, playerName)
}

func (s *Service) enroll(ctx context.Context, channelID int64, playerName string) (*store.Player, *store.Clan, error) {
	playerName = strings.ToLower(playerName)

	p, err := s.store.GetPlayerByName(ctx, channelID, playerName)
	if err == nil {
		if !p.Enabled {
			return nil, nil, ErrPlayerDisabled
		}
		var clan *store.Clan
		if p.ClanID.Valid {
			if clan, err = s.store.GetClanByID(ctx, p.ClanID.Int64); err != nil {
				return nil, nil, err
			}
		}
		return p, clan, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}

	counts, err := s.store.ClanMemberCounts(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	clan, err := PickClan(counts, s.rand)
	if err != nil {
		return nil, nil, err
	}
	id, err := s.store.CreatePlayer(ctx, channelID, playerName, clan.ID)
	if err != nil {
		return nil, nil, err
	}
	p = &store.Player{
		ID:        id,
		ChannelID: channelID,
		Name:      playerName,
		ClanID:    sql.NullInt64{Int64: clan.ID, Valid: true},
		Enabled:   true,
	}
	return p, clan, nil
}
