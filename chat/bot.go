// Package chat runs the Twitch IRC bot: the ?-prefixed command surface plus
// passive scoring for highlighted messages and clip cross-posting.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/vanderwood/midgard/config"
	"github.com/vanderwood/midgard/game"
)

// Alerter receives events worth cross-posting elsewhere. The Discord bot
// implements it; a nil Alerter drops them.
type Alerter interface {
	Clip(ctx context.Context, channel, user, url string)
	ModLog(ctx context.Context, channel, user, message string)
	Alert(ctx context.Context, message string)
}

type Bot struct {
	client *twitch.Client
	svc    *game.Service
	cfg    *config.Config
	alerts Alerter

	mu      sync.Mutex
	roomIDs map[string]string // channel -> twitch user id already recorded
}

func New(cfg *config.Config, svc *game.Service, alerts Alerter) *Bot {
	b := &Bot{
		client:  twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken),
		svc:     svc,
		cfg:     cfg,
		alerts:  alerts,
		roomIDs: make(map[string]string),
	}
	b.client.OnPrivateMessage(b.handleMessage)
	return b
}

// Run connects to Twitch IRC and blocks until ctx is done or the connection
// fails. Channels are registered in the game on join so commands work
// immediately.
func (b *Bot) Run(ctx context.Context) error {
	for _, channel := range b.cfg.TwitchChannels {
		if _, err := b.svc.RegisterChannel(ctx, channel); err != nil {
			return err
		}
		b.client.Join(channel)
		slog.Info("joining channel", slog.String("channel", channel))
	}

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		b.client.Disconnect()
		close(done)
	}()

	err := b.client.Connect()
	select {
	case <-done:
		return nil
	default:
	}
	if err != nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	return err
}

// Announce implements game.Notifier for background jobs.
func (b *Bot) Announce(_ context.Context, channel, message string) {
	b.client.Say(channel, message)
}

func (b *Bot) handleMessage(msg twitch.PrivateMessage) {
	ctx := context.Background()
	channel := strings.ToLower(msg.Channel)
	user := strings.ToLower(msg.User.Name)

	b.recordRoomID(ctx, channel, msg.RoomID)

	if msg.Tags["msg-id"] == "highlighted-message" {
		b.scoreHighlight(ctx, channel, user)
	}

	if url, ok := clipLink(msg.Message); ok && b.alerts != nil {
		b.alerts.Clip(ctx, channel, user, url)
	}

	cmd, args, ok := parseCommand(msg.Message)
	if !ok {
		return
	}
	if reply := b.dispatch(ctx, channel, user, roles(msg), cmd, args); reply != "" {
		b.client.Say(channel, "@"+msg.User.DisplayName+" "+reply)
	}
}

// recordRoomID captures the channel's Twitch user id from message tags, once,
// so EventSub subscriptions can be created for it.
func (b *Bot) recordRoomID(ctx context.Context, channel, roomID string) {
	if roomID == "" {
		return
	}
	b.mu.Lock()
	seen := b.roomIDs[channel] == roomID
	if !seen {
		b.roomIDs[channel] = roomID
	}
	b.mu.Unlock()
	if seen {
		return
	}
	if err := b.svc.SetChannelTwitchID(ctx, channel, roomID); err != nil && !errors.Is(err, game.ErrChannelNotRegistered) {
		slog.Error("failed to record channel twitch id", slog.String("channel", channel), slog.Any("err", err))
	}
}

func (b *Bot) scoreHighlight(ctx context.Context, channel, user string) {
	res, err := b.svc.RecordHighlight(ctx, channel, user)
	if err != nil {
		// highlights from non-players are normal chatter, not errors
		if !errors.Is(err, game.ErrNotEnrolled) && !errors.Is(err, game.ErrNoActiveSeason) &&
			!errors.Is(err, game.ErrChannelNotRegistered) && !errors.Is(err, game.ErrPlayerDisabled) &&
			!errors.Is(err, game.ErrNoClan) {
			slog.Error("highlight scoring failed", slog.String("channel", channel), slog.Any("err", err))
		}
		return
	}
	slog.Info("highlight scored",
		slog.String("channel", channel),
		slog.String("user", user),
		slog.Int("points", res.Points))
}

type userRoles struct {
	mod         bool
	broadcaster bool
}

func roles(msg twitch.PrivateMessage) userRoles {
	_, mod := msg.User.Badges["moderator"]
	_, bc := msg.User.Badges["broadcaster"]
	return userRoles{mod: mod || bc, broadcaster: bc}
}

const commandPrefix = "?"

// parseCommand splits a ?-prefixed chat message into a lowercase command name
// and its arguments.
func parseCommand(message string) (cmd string, args []string, ok bool) {
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, commandPrefix) || len(message) <= len(commandPrefix) {
		return "", nil, false
	}
	fields := strings.Fields(message[len(commandPrefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// clipLink extracts the first Twitch clip URL from a message, if any.
func clipLink(message string) (string, bool) {
	for _, f := range strings.Fields(message) {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(f, "https://"), "http://")
		if strings.HasPrefix(trimmed, "clips.twitch.tv/") ||
			(strings.HasPrefix(trimmed, "www.twitch.tv/") || strings.HasPrefix(trimmed, "twitch.tv/")) && strings.Contains(trimmed, "/clip/") {
			return f, true
		}
	}
	return "", false
}
