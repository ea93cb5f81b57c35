// Package discord runs the Discord side of the bot: moderation slash
// commands plus the alert, clip and mod-log cross-posts coming from Twitch.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/vanderwood/midgard/config"
	"github.com/vanderwood/midgard/game"
)

type Bot struct {
	session  *discordgo.Session
	svc      *game.Service
	cfg      *config.Config
	commands []*discordgo.ApplicationCommand
}

func New(cfg *config.Config, svc *game.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	b := &Bot{session: session, svc: svc, cfg: cfg}
	session.AddHandler(b.handleInteraction)
	return b, nil
}

// Start opens the Discord connection and registers the slash commands.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	slog.Info("connected to Discord", slog.String("user", b.session.State.User.Username))

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}

// Stop removes the registered commands and closes the session.
func (b *Bot) Stop() error {
	for _, cmd := range b.commands {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", cmd.ID); err != nil {
			slog.Error("failed to remove command", slog.String("name", cmd.Name), slog.Any("err", err))
		}
	}
	return b.session.Close()
}

// Clip cross-posts a Twitch clip link to the configured clip channel.
// Implements the chat package's Alerter.
func (b *Bot) Clip(_ context.Context, channel, user, url string) {
	if b.cfg.DiscordClipChannelID == "" {
		return
	}
	msg := fmt.Sprintf("New clip in #%s from **%s**: %s", channel, user, url)
	if _, err := b.session.ChannelMessageSend(b.cfg.DiscordClipChannelID, msg); err != nil {
		slog.Error("failed to post clip", slog.Any("err", err))
	}
}

// ModLog posts a redemption that needs moderator attention.
func (b *Bot) ModLog(_ context.Context, channel, user, message string) {
	if b.cfg.DiscordLogChannelID == "" {
		return
	}
	msg := fmt.Sprintf("[#%s] **%s**: %s", channel, user, message)
	if _, err := b.session.ChannelMessageSend(b.cfg.DiscordLogChannelID, msg); err != nil {
		slog.Error("failed to post mod log", slog.Any("err", err))
	}
}

// Alert posts operational notices (new followers, giveaway outcomes) to the
// alert channel.
func (b *Bot) Alert(_ context.Context, message string) {
	if b.cfg.DiscordAlertChannelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSend(b.cfg.DiscordAlertChannelID, message); err != nil {
		slog.Error("failed to post alert", slog.Any("err", err))
	}
}
