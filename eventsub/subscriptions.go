package eventsub

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nicklaw5/helix/v2"

	"github.com/vanderwood/midgard/config"
	"github.com/vanderwood/midgard/store"
)

// subscriptionSpec pairs an EventSub type with its version and whether the
// condition needs a moderator (channel.follow v2 does).
type subscriptionSpec struct {
	eventType     string
	version       string
	needModerator bool
}

var wantedSubscriptions = []subscriptionSpec{
	{helix.EventSubTypeChannelSubscription, "1", false},
	{helix.EventSubTypeChannelSubscriptionMessage, "1", false},
	{helix.EventSubTypeChannelSubscriptionGift, "1", false},
	{helix.EventSubTypeChannelPointsCustomRewardRedemptionAdd, "1", false},
	{helix.EventSubTypeChannelFollow, "2", true},
}

// EnsureSubscriptions creates the webhook EventSub subscriptions for every
// registered channel whose Twitch user id is known. Already-created
// subscriptions (recorded locally or reported back by Twitch as a conflict)
// are skipped, so this is safe to run on every boot.
func EnsureSubscriptions(ctx context.Context, cfg *config.Config, st *store.Store) error {
	client, err := helix.NewClient(&helix.Options{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
	})
	if err != nil {
		return fmt.Errorf("failed to create helix client: %w", err)
	}
	token, err := client.RequestAppAccessToken(nil)
	if err != nil {
		return fmt.Errorf("failed to get app access token: %w", err)
	}
	client.SetAppAccessToken(token.Data.AccessToken)

	channels, err := st.ListChannels(ctx)
	if err != nil {
		return err
	}

	for _, ch := range channels {
		if !ch.TwitchUserID.Valid || ch.TwitchUserID.String == "" {
			slog.Info("skipping eventsub for channel without twitch id", slog.String("channel", ch.Name))
			continue
		}
		for _, spec := range wantedSubscriptions {
			done, err := st.HasEventSubscription(ctx, ch.Name, spec.eventType)
			if err != nil {
				return err
			}
			if done {
				continue
			}
			if err := createSubscription(client, cfg, ch, spec); err != nil {
				slog.Error("eventsub subscribe failed",
					slog.String("channel", ch.Name),
					slog.String("type", spec.eventType),
					slog.Any("err", err))
				continue
			}
			if err := st.MarkEventSubscribed(ctx, ch.Name, spec.eventType); err != nil {
				return err
			}
			slog.Info("eventsub subscribed",
				slog.String("channel", ch.Name),
				slog.String("type", spec.eventType))
		}
	}
	return nil
}

func createSubscription(client *helix.Client, cfg *config.Config, ch store.Channel, spec subscriptionSpec) error {
	cond := helix.EventSubCondition{BroadcasterUserID: ch.TwitchUserID.String}
	if spec.needModerator {
		cond.ModeratorUserID = ch.TwitchUserID.String
	}
	resp, err := client.CreateEventSubSubscription(&helix.EventSubSubscription{
		Type:      spec.eventType,
		Version:   spec.version,
		Condition: cond,
		Transport: helix.EventSubTransport{
			Method:   "webhook",
			Callback: cfg.EventSubCallback,
			Secret:   cfg.EventSubSecret,
		},
	})
	if err != nil {
		return err
	}
	// Twitch answers 409 when the subscription already exists
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("twitch returned %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	return nil
}
