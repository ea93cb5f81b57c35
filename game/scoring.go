package game

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vanderwood/midgard/store"
	"github.com/vanderwood/midgard/telemetry"
)

// CheckinResult describes one scored check-in.
type CheckinResult struct {
	Player *store.Player
	Points int
	First  bool
	Early  bool
	Total  int
}

// checkinAward applies the check-in tiers: first of the session beats early
// bird, early bird beats the base award.
func (s *Service) checkinAward(first bool, sinceStart time.Duration) (points int, early bool) {
	if first {
		return s.tuning.CheckinFirst, false
	}
	if sinceStart <= s.tuning.CheckinEarlyWindow {
		return s.tuning.CheckinEarly, true
	}
	return s.tuning.CheckinBase, false
}

// CheckIn scores a viewer's check-in for the live stream session. One per
// player per session, enforced by the unique index underneath.
func (s *Service) CheckIn(ctx context.Context, channel, playerName string) (*CheckinResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "game", "CheckIn")
	defer span.End()

	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeSeason(ctx, ch.ID); err != nil {
		return nil, err
	}
	session, err := s.store.ActiveSession(ctx, ch.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	p, err := s.clannedPlayer(ctx, ch.ID, playerName)
	if err != nil {
		return nil, err
	}

	var res *CheckinResult
	telemetry.TimeFunc(telemetry.ScoringDuration, func() {
		var inserted bool
		var total int
		inserted, total, err = s.store.InsertCheckin(ctx, ch.ID, session.ID, p.ID)
		if err != nil {
			return
		}
		if !inserted {
			telemetry.Inc(telemetry.DuplicateActions)
			err = ErrAlreadyCheckedIn
			return
		}
		first := total == 1
		points, early := s.checkinAward(first, s.now().Sub(session.StartTime))
		if err = s.store.AddPoints(ctx, ch.ID, p.ID, session.SeasonID, p.ClanID, points); err != nil {
			return
		}
		telemetry.Inc(telemetry.CheckinsRecorded)
		telemetry.AddPoints(points)
		res = &CheckinResult{Player: p, Points: points, First: first, Early: early, Total: total}
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetSpanSuccess(span)
	return res, nil
}

// RaidCheckIn scores participation in an open raid window.
func (s *Service) RaidCheckIn(ctx context.Context, channel, playerName string) (*CheckinResult, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeSeason(ctx, ch.ID); err != nil {
		return nil, err
	}
	session, err := s.store.ActiveRaidSession(ctx, ch.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	p, err := s.clannedPlayer(ctx, ch.ID, playerName)
	if err != nil {
		return nil, err
	}
	inserted, total, err := s.store.InsertRaidCheckin(ctx, ch.ID, session.ID, p.ID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		telemetry.Inc(telemetry.DuplicateActions)
		return nil, ErrAlreadyCheckedIn
	}
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, session.SeasonID, p.ClanID, s.tuning.RaidAward); err != nil {
		return nil, err
	}
	telemetry.Inc(telemetry.CheckinsRecorded)
	telemetry.AddPoints(s.tuning.RaidAward)
	return &CheckinResult{Player: p, Points: s.tuning.RaidAward, Total: total}, nil
}

// SentryCheckIn scores a check-in against the sentry window currently open
// inside the live session, crediting watch minutes on top of points.
func (s *Service) SentryCheckIn(ctx context.Context, channel, playerName string) (*CheckinResult, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	session, err := s.store.ActiveSession(ctx, ch.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	sentry, err := s.store.ActiveSentrySession(ctx, session.ID, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSentry
	}
	if err != nil {
		return nil, err
	}
	p, err := s.clannedPlayer(ctx, ch.ID, playerName)
	if err != nil {
		return nil, err
	}
	inserted, total, err := s.store.InsertSentryCheckin(ctx, ch.ID, sentry.ID, p.ID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		telemetry.Inc(telemetry.DuplicateActions)
		return nil, ErrAlreadyCheckedIn
	}
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, sentry.SeasonID, p.ClanID, s.tuning.SentryAward); err != nil {
		return nil, err
	}
	if err := s.store.AddWatchMinutes(ctx, ch.ID, p.ID, sentry.SeasonID, s.tuning.SentryWatchMins); err != nil {
		return nil, err
	}
	telemetry.Inc(telemetry.CheckinsRecorded)
	telemetry.AddPoints(s.tuning.SentryAward)
	return &CheckinResult{Player: p, Points: s.tuning.SentryAward, Total: total}, nil
}

// ClaimSpoils pays out the open spoils window's reward, once per player.
func (s *Service) ClaimSpoils(ctx context.Context, channel, playerName string) (*CheckinResult, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeSeason(ctx, ch.ID); err != nil {
		return nil, err
	}
	session, err := s.store.ActiveSpoilsSession(ctx, ch.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSpoils
	}
	if err != nil {
		return nil, err
	}
	p, err := s.clannedPlayer(ctx, ch.ID, playerName)
	if err != nil {
		return nil, err
	}
	inserted, total, err := s.store.InsertSpoilsClaim(ctx, ch.ID, session.ID, p.ID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		telemetry.Inc(telemetry.DuplicateActions)
		return nil, ErrAlreadyClaimed
	}
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, session.SeasonID, p.ClanID, session.PointsReward); err != nil {
		return nil, err
	}
	telemetry.AddPoints(session.PointsReward)
	return &CheckinResult{Player: p, Points: session.PointsReward, Total: total}, nil
}

// ClaimClanSpoils pays out a clan-gated spoils window. The claimer's own clan
// decides which window, so members of other clans see no open window.
func (s *Service) ClaimClanSpoils(ctx context.Context, channel, playerName string) (*CheckinResult, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeSeason(ctx, ch.ID); err != nil {
		return nil, err
	}
	p, err := s.clannedPlayer(ctx, ch.ID, playerName)
	if err != nil {
		return nil, err
	}
	session, err := s.store.ActiveClanSpoilsSession(ctx, ch.ID, p.ClanID.Int64)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSpoils
	}
	if err != nil {
		return nil, err
	}
	inserted, total, err := s.store.InsertClanSpoilsClaim(ctx, ch.ID, session.ID, p.ID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		telemetry.Inc(telemetry.DuplicateActions)
		return nil, ErrAlreadyClaimed
	}
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, session.SeasonID, p.ClanID, session.PointsReward); err != nil {
		return nil, err
	}
	telemetry.AddPoints(session.PointsReward)
	return &CheckinResult{Player: p, Points: session.PointsReward, Total: total}, nil
}

// AwardResult describes a scored event that may have auto-enrolled the player.
type AwardResult struct {
	Player   *store.Player
	Clan     *store.Clan
	Points   int
	Enrolled bool
	ModLog   bool
}

// RecordSubscription scores a sub or resub. Viewers who never enrolled are
// signed up on the spot so the award lands somewhere.
func (s *Service) RecordSubscription(ctx context.Context, channel, userName string, tier, months int) (*AwardResult, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	p, clan, enrolled, err := s.playerOrEnroll(ctx, ch.ID, userName)
	if err != nil {
		return nil, err
	}
	points := s.tuning.SubTierPoints(tier)
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, season.ID, p.ClanID, points); err != nil {
		return nil, err
	}
	if err := s.store.UpsertSubscription(ctx, ch.ID, p.ID, months); err != nil {
		return nil, err
	}
	telemetry.Inc(telemetry.SubscriptionsSeen)
	telemetry.AddPoints(points)
	return &AwardResult{Player: p, Clan: clan, Points: points, Enrolled: enrolled}, nil
}

// RecordGiftedSubs credits a gifter with half the tier award per gifted sub
// and bumps their all-time gift count. Anonymous gifts can't be attributed
// and score nothing.
func (s *Service) RecordGiftedSubs(ctx context.Context, channel, gifterName string, tier, count int, anonymous bool) (*AwardResult, error) {
	if anonymous || count <= 0 {
		return nil, nil
	}
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	p, clan, enrolled, err := s.playerOrEnroll(ctx, ch.ID, gifterName)
	if err != nil {
		return nil, err
	}
	points := s.tuning.SubTierPoints(tier) * count / 2
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, season.ID, p.ClanID, points); err != nil {
		return nil, err
	}
	if err := s.store.IncrementGiftedSubs(ctx, ch.ID, p.ID, count); err != nil {
		return nil, err
	}
	telemetry.Inc(telemetry.SubscriptionsSeen)
	telemetry.AddPoints(points)
	return &AwardResult{Player: p, Clan: clan, Points: points, Enrolled: enrolled}, nil
}

// RecordRedemption scores a channel-point redemption at half its cost. ModLog
// is set when the redeemed reward is the one configured for mod-log
// cross-posting; the caller decides where that goes.
func (s *Service) RecordRedemption(ctx context.Context, channel, userName, rewardID string, cost int) (*AwardResult, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	p, clan, enrolled, err := s.playerOrEnroll(ctx, ch.ID, userName)
	if err != nil {
		return nil, err
	}
	points := cost / 2
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, season.ID, p.ClanID, points); err != nil {
		return nil, err
	}
	telemetry.AddPoints(points)
	modLog := s.tuning.ModLogRewardID != "" && rewardID == s.tuning.ModLogRewardID
	return &AwardResult{Player: p, Clan: clan, Points: points, Enrolled: enrolled, ModLog: modLog}, nil
}

// RecordHighlight awards the bonus for a highlighted chat message. Only
// enrolled players score; there's no auto-enroll for passive chatting.
func (s *Service) RecordHighlight(ctx context.Context, channel, userName string) (*AwardResult, error) {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return nil, err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	p, err := s.clannedPlayer(ctx, ch.ID, userName)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, season.ID, p.ClanID, s.tuning.HighlightAward); err != nil {
		return nil, err
	}
	telemetry.AddPoints(s.tuning.HighlightAward)
	return &AwardResult{Player: p, Points: s.tuning.HighlightAward}, nil
}

// AwardPoints is the moderator backdoor for manual credits.
func (s *Service) AwardPoints(ctx context.Context, channel, playerName string, points int) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return err
	}
	p, err := s.player(ctx, ch.ID, playerName)
	if err != nil {
		return err
	}
	if err := s.store.AddPoints(ctx, ch.ID, p.ID, season.ID, p.ClanID, points); err != nil {
		return err
	}
	telemetry.AddPoints(points)
	return nil
}

// DeductPoints removes points, never dropping a player below zero.
func (s *Service) DeductPoints(ctx context.Context, channel, playerName string, points int) error {
	ch, err := s.channel(ctx, channel)
	if err != nil {
		return err
	}
	season, err := s.activeSeason(ctx, ch.ID)
	if err != nil {
		return err
	}
	p, err := s.player(ctx, ch.ID, playerName)
	if err != nil {
		return err
	}
	return s.store.RemovePoints(ctx, p.ID, season.ID, points)
}

// playerOrEnroll resolves a player and auto-enrolls them when unknown.
func (s *Service) playerOrEnroll(ctx context.Context, channelID int64, name string) (*store.Player, *store.Clan, bool, error) {
	p, err := s.player(ctx, channelID, name)
	if err == nil {
		return p, nil, false, nil
	}
	if !errors.Is(err, ErrNotEnrolled) {
		return nil, nil, false, err
	}
	p, clan, err := s.enroll(ctx, channelID, name)
	if err != nil {
		return nil, nil, false, err
	}
	return p, clan, true, nil
}
