// Package eventsub receives Twitch EventSub webhook notifications and feeds
// them into the game: subs, gifted subs, channel point redemptions and new
// followers.
package eventsub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nicklaw5/helix/v2"

	"github.com/vanderwood/midgard/chat"
	"github.com/vanderwood/midgard/game"
	"github.com/vanderwood/midgard/telemetry"
)

// Game is the slice of the game service the webhook needs.
type Game interface {
	RecordSubscription(ctx context.Context, channel, userName string, tier, months int) (*game.AwardResult, error)
	RecordGiftedSubs(ctx context.Context, channel, gifterName string, tier, count int, anonymous bool) (*game.AwardResult, error)
	RecordRedemption(ctx context.Context, channel, userName, rewardID string, cost int) (*game.AwardResult, error)
	OpenFollowerGiveaway(ctx context.Context, channel, follower string) (end time.Time, err error)
}

// Handler is the webhook endpoint. Notifications arrive at least once, so a
// small window of recently seen message ids guards against redelivery.
type Handler struct {
	secret   string
	svc      Game
	notifier game.Notifier
	alerts   chat.Alerter

	mu       sync.Mutex
	seen     map[string]struct{}
	seenFifo []string
}

const seenWindow = 1024

func NewHandler(secret string, svc Game, notifier game.Notifier, alerts chat.Alerter) *Handler {
	return &Handler{
		secret:   secret,
		svc:      svc,
		notifier: notifier,
		alerts:   alerts,
		seen:     make(map[string]struct{}),
	}
}

type envelope struct {
	Subscription struct {
		Type string `json:"type"`
	} `json:"subscription"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if !helix.VerifyEventSubNotification(h.secret, r.Header, string(body)) {
		slog.Warn("eventsub signature verification failed")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	switch r.Header.Get("Twitch-Eventsub-Message-Type") {
	case "webhook_callback_verification":
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, env.Challenge)
		return
	case "revocation":
		slog.Warn("eventsub subscription revoked", slog.String("type", env.Subscription.Type))
		w.WriteHeader(http.StatusOK)
		return
	case "notification":
		if h.alreadySeen(r.Header.Get("Twitch-Eventsub-Message-Id")) {
			w.WriteHeader(http.StatusOK)
			return
		}
		telemetry.Inc(telemetry.EventSubDeliveries)
		h.dispatch(r.Context(), env.Subscription.Type, env.Event)
		w.WriteHeader(http.StatusOK)
		return
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) alreadySeen(id string) bool {
	if id == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.seen[id]; ok {
		return true
	}
	h.seen[id] = struct{}{}
	h.seenFifo = append(h.seenFifo, id)
	if len(h.seenFifo) > seenWindow {
		delete(h.seen, h.seenFifo[0])
		h.seenFifo = h.seenFifo[1:]
	}
	return false
}

type subscribeEvent struct {
	BroadcasterLogin string `json:"broadcaster_user_login"`
	UserLogin        string `json:"user_login"`
	Tier             string `json:"tier"`
	IsGift           bool   `json:"is_gift"`
}

type resubEvent struct {
	BroadcasterLogin string `json:"broadcaster_user_login"`
	UserLogin        string `json:"user_login"`
	Tier             string `json:"tier"`
	CumulativeMonths int    `json:"cumulative_months"`
}

type giftEvent struct {
	BroadcasterLogin string `json:"broadcaster_user_login"`
	UserLogin        string `json:"user_login"`
	Tier             string `json:"tier"`
	Total            int    `json:"total"`
	IsAnonymous      bool   `json:"is_anonymous"`
}

type redemptionEvent struct {
	BroadcasterLogin string `json:"broadcaster_user_login"`
	UserLogin        string `json:"user_login"`
	UserInput        string `json:"user_input"`
	Reward           struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Cost  int    `json:"cost"`
	} `json:"reward"`
}

type followEvent struct {
	BroadcasterLogin string `json:"broadcaster_user_login"`
	UserLogin        string `json:"user_login"`
	UserName         string `json:"user_name"`
}

func (h *Handler) dispatch(ctx context.Context, eventType string, raw json.RawMessage) {
	switch eventType {
	case helix.EventSubTypeChannelSubscription:
		var ev subscribeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Error("bad subscribe event", slog.Any("err", err))
			return
		}
		// gift recipients are scored when the gift event credits the gifter
		if ev.IsGift {
			return
		}
		h.scoreSub(ctx, ev.BroadcasterLogin, ev.UserLogin, ev.Tier, 1)

	case helix.EventSubTypeChannelSubscriptionMessage:
		var ev resubEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Error("bad resub event", slog.Any("err", err))
			return
		}
		h.scoreSub(ctx, ev.BroadcasterLogin, ev.UserLogin, ev.Tier, ev.CumulativeMonths)

	case helix.EventSubTypeChannelSubscriptionGift:
		var ev giftEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Error("bad gift event", slog.Any("err", err))
			return
		}
		res, err := h.svc.RecordGiftedSubs(ctx, ev.BroadcasterLogin, ev.UserLogin, tierPoints(ev.Tier), ev.Total, ev.IsAnonymous)
		if err != nil {
			logGameErr("gifted subs", err)
			return
		}
		if res != nil && h.notifier != nil {
			h.notifier.Announce(ctx, ev.BroadcasterLogin,
				"Skål @"+ev.UserLogin+"! "+strconv.Itoa(ev.Total)+" gifted subs earned you "+strconv.Itoa(res.Points)+" points!")
		}

	case helix.EventSubTypeChannelPointsCustomRewardRedemptionAdd:
		var ev redemptionEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Error("bad redemption event", slog.Any("err", err))
			return
		}
		res, err := h.svc.RecordRedemption(ctx, ev.BroadcasterLogin, ev.UserLogin, ev.Reward.ID, ev.Reward.Cost)
		if err != nil {
			logGameErr("redemption", err)
			return
		}
		if res.ModLog && h.alerts != nil {
			h.alerts.ModLog(ctx, ev.BroadcasterLogin, ev.UserLogin, ev.Reward.Title+": "+ev.UserInput)
		}

	case helix.EventSubTypeChannelFollow:
		var ev followEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Error("bad follow event", slog.Any("err", err))
			return
		}
		if _, err := h.svc.OpenFollowerGiveaway(ctx, ev.BroadcasterLogin, ev.UserLogin); err != nil {
			logGameErr("follower giveaway", err)
			return
		}
		if h.alerts != nil {
			h.alerts.Alert(ctx, "New follower in #"+ev.BroadcasterLogin+": "+ev.UserLogin+", giveaway opened")
		}
		if h.notifier != nil {
			h.notifier.Announce(ctx, ev.BroadcasterLogin,
				"Welcome @"+ev.UserLogin+"! A giveaway is open in their honor, type ?giveaway to enter!")
		}

	default:
		slog.Debug("unhandled eventsub type", slog.String("type", eventType))
	}
}

func (h *Handler) scoreSub(ctx context.Context, channel, user, tier string, months int) {
	res, err := h.svc.RecordSubscription(ctx, channel, user, tierPoints(tier), months)
	if err != nil {
		logGameErr("subscription", err)
		return
	}
	if res.Enrolled && res.Clan != nil && h.notifier != nil {
		h.notifier.Announce(ctx, channel,
			"Welcome to the battle @"+user+"! You fight for "+res.Clan.Name+" and earned "+strconv.Itoa(res.Points)+" points!")
	}
}

// tierPoints parses the EventSub tier string ("1000"/"2000"/"3000").
func tierPoints(tier string) int {
	n, err := strconv.Atoi(tier)
	if err != nil {
		return 1000
	}
	return n
}

// logGameErr keeps routine game-state refusals at debug level. An event for a
// channel with no season running is expected, not a failure.
func logGameErr(what string, err error) {
	switch {
	case errors.Is(err, game.ErrChannelNotRegistered),
		errors.Is(err, game.ErrNoActiveSeason),
		errors.Is(err, game.ErrPlayerDisabled),
		errors.Is(err, game.ErrGiveawayOpen):
		slog.Debug(what+" skipped", slog.Any("err", err))
	default:
		slog.Error(what+" scoring failed", slog.Any("err", err))
	}
}
