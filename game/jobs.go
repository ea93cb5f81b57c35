package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vanderwood/midgard/telemetry"
)

// Notifier is how background jobs talk back to chat. The chat bot implements
// it; a nil Notifier keeps jobs silent.
type Notifier interface {
	Announce(ctx context.Context, channel, message string)
}

// OpenSentryWindows opens a sentry check-in window on every channel with a
// live session that doesn't already have one. Returns the channel names that
// got a new window.
func (s *Service) OpenSentryWindows(ctx context.Context) ([]string, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var opened []string
	for _, ch := range channels {
		session, err := s.store.ActiveSession(ctx, ch.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return opened, err
		}
		if _, err := s.store.ActiveSentrySession(ctx, session.ID, now); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return opened, err
		}
		end := now.Add(s.tuning.SentryLength)
		if _, err := s.store.CreateSentrySession(ctx, ch.ID, session.SeasonID, session.ID, now, end); err != nil {
			return opened, err
		}
		opened = append(opened, ch.Name)
	}
	return opened, nil
}

// StartSentryJob periodically opens sentry windows on live channels and
// announces them. Runs until ctx is done.
func StartSentryJob(ctx context.Context, svc *Service, notifier Notifier, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		slog.Info("sentry job started", slog.String("interval", interval.String()))
		for {
			select {
			case <-ctx.Done():
				slog.Info("sentry job stopping")
				return
			case <-ticker.C:
				opened, err := svc.OpenSentryWindows(ctx)
				if err != nil {
					slog.Error("sentry window open failed", slog.Any("err", err))
					continue
				}
				for _, channel := range opened {
					slog.Info("sentry window opened", slog.String("channel", channel))
					if notifier != nil {
						notifier.Announce(ctx, channel, "The sentries are out! Type ?sentry to check in for bonus points.")
					}
				}
			}
		}
	}()
}

// StartGiveawayResolverJob polls for follower giveaways past their entry
// window, draws winners and announces the outcomes. Runs until ctx is done.
func StartGiveawayResolverJob(ctx context.Context, svc *Service, notifier Notifier, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		slog.Info("giveaway resolver started", slog.String("interval", interval.String()))
		for {
			select {
			case <-ctx.Done():
				slog.Info("giveaway resolver stopping")
				return
			case <-ticker.C:
				telemetry.Inc(telemetry.ResolverCycles)
				outcomes, err := svc.ResolveExpiredGiveaways(ctx)
				if err != nil {
					slog.Error("giveaway resolve failed", slog.Any("err", err))
				}
				for _, o := range outcomes {
					announceOutcome(ctx, notifier, o)
				}
				if n, err := svc.Store().CountOpenGiveaways(ctx); err == nil {
					telemetry.SetOpenGiveaways(n)
				}
			}
		}
	}()
}

func announceOutcome(ctx context.Context, notifier Notifier, o GiveawayOutcome) {
	if o.Expired {
		slog.Info("giveaway expired with no entrants",
			slog.String("channel", o.Channel), slog.String("follower", o.Follower))
		if notifier != nil {
			notifier.Announce(ctx, o.Channel,
				fmt.Sprintf("Nobody entered! %s is on the loose in Vanderheim!", o.Follower))
		}
		return
	}
	slog.Info("giveaway resolved",
		slog.String("channel", o.Channel),
		slog.String("winner", o.Winner),
		slog.Int("points", o.Points))
	if notifier == nil {
		return
	}
	msg := fmt.Sprintf("The follower giveaway for %s is over! Congratulations @%s", o.Follower, o.Winner)
	if o.Prize != "" {
		msg += fmt.Sprintf(", you won: %s", o.Prize)
	}
	if o.Points > 0 {
		msg += fmt.Sprintf(" (+%d points)", o.Points)
	}
	notifier.Announce(ctx, o.Channel, msg)
}
