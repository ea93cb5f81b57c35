package game

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vanderwood/midgard/store"
	"github.com/vanderwood/midgard/telemetry"
)

// OpenFollowerGiveaway opens a short entry window celebrating a new follower.
// Only one giveaway runs at a time per channel; an unresolved giveaway for
// the same follower is replaced, covering the unfollow/refollow case.
func (s *Service) OpenFollowerGiveaway(ctx context.Context, channel, follower string) (time.Time, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.store.DeleteUnresolvedGiveawayByFollower(ctx, ch.ID, follower); err != nil {
		return time.Time{}, err
	}
	now := s.now()
	if _, err := s.store.OpenGiveaway(ctx, ch.ID, now); err == nil {
		return time.Time{}, ErrGiveawayOpen
	} else if !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, err
	}
	end := now.Add(s.tuning.GiveawayWindow)
	if _, err := s.store.CreateGiveaway(ctx, ch.ID, follower, now, end); err != nil {
		return time.Time{}, err
	}
	return end, nil
}

// EnterGiveaway records an entry into the channel's open giveaway.
func (s *Service) EnterGiveaway(ctx context.Context, channel, playerName string) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	g, err := s.store.OpenGiveaway(ctx, ch.ID, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoOpenGiveaway
	}
	if err != nil {
		return err
	}
	p, err := s.player(ctx, ch.ID, playerName)
	if err != nil {
		return err
	}
	inserted, err := s.store.InsertGiveawayEntry(ctx, ch.ID, g.ID, p.ID)
	if err != nil {
		return err
	}
	if !inserted {
		telemetry.Inc(telemetry.DuplicateActions)
		return ErrAlreadyEntered
	}
	return nil
}

// GiveawayOutcome is what the resolver reports back for announcement.
type GiveawayOutcome struct {
	Channel  string
	Follower string
	Winner   string
	Prize    string
	Points   int
	Expired  bool
}

// ResolveExpiredGiveaways draws winners for every giveaway past its window.
// Giveaways with no entrants are dropped. The prize's point value is credited
// only while a season is running; the prize text is announced either way.
func (s *Service) ResolveExpiredGiveaways(ctx context.Context) ([]GiveawayOutcome, error) {
	expired, err := s.store.ExpiredGiveaways(ctx, s.now())
	if err != nil {
		return nil, err
	}

	var outcomes []GiveawayOutcome
	for _, g := range expired {
		outcome, err := s.resolveGiveaway(ctx, g)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

func (s *Service) resolveGiveaway(ctx context.Context, g store.Giveaway) (*GiveawayOutcome, error) {
	ch, err := s.store.GetChannelByID(ctx, g.ChannelID)
	if err != nil {
		return nil, err
	}

	entrants, err := s.store.GiveawayEntrants(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if len(entrants) == 0 {
		if err := s.store.DeleteGiveaway(ctx, g.ID); err != nil {
			return nil, err
		}
		telemetry.Inc(telemetry.GiveawaysExpired)
		return &GiveawayOutcome{Channel: ch.Name, Follower: g.Follower, Expired: true}, nil
	}

	winner := entrants[s.rand.Intn(len(entrants))]
	if err := s.store.SetGiveawayWinner(ctx, g.ID, winner.ID); err != nil {
		return nil, err
	}

	outcome := &GiveawayOutcome{Channel: ch.Name, Follower: g.Follower, Winner: winner.Name}

	prize, err := s.store.RandomPrize(ctx, g.ChannelID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if prize != nil {
		outcome.Prize = prize.Message
		if season, err := s.store.ActiveSeason(ctx, g.ChannelID); err == nil {
			if err := s.store.AddPoints(ctx, g.ChannelID, winner.ID, season.ID, winner.ClanID, prize.VPReward); err != nil {
				return nil, err
			}
			outcome.Points = prize.VPReward
			telemetry.AddPoints(prize.VPReward)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	telemetry.Inc(telemetry.GiveawaysResolved)
	return outcome, nil
}
