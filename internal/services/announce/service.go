// Package announce relays high-value duel announcements to a Discord channel
package announce

import (
	"context"
	"fmt"

	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	colorStarted  = 0xF1C40F
	colorFinished = 0x2ECC71
)

// DiscordSession is the part of *discordgo.Session the relay needs
type DiscordSession interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Service posts duel announcements
type Service interface {
	// DuelStarted announces a high-value duel as combat begins
	DuelStarted(challenger, challenged, pot string)

	// DuelFinished announces the result of a high-value duel
	DuelFinished(winner, loser, pot, winnings string)
}

type service struct {
	session   DiscordSession
	channelID string
	scheduler scheduler.Scheduler
	logger    logrus.FieldLogger
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Session   DiscordSession      // Required
	ChannelID string              // Required
	Scheduler scheduler.Scheduler // Required
	Logger    logrus.FieldLogger  // Optional
}

// NewService creates a new Discord relay
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("ServiceConfig cannot be nil")
	}
	if cfg.Session == nil {
		panic("discord session is required")
	}
	if cfg.ChannelID == "" {
		panic("channel ID is required")
	}
	if cfg.Scheduler == nil {
		panic("scheduler is required")
	}

	svc := &service{
		session:   cfg.Session,
		channelID: cfg.ChannelID,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger,
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	svc.logger = svc.logger.WithField("component", "announce")
	return svc
}

func (s *service) DuelStarted(challenger, challenged, pot string) {
	s.send(&discordgo.MessageEmbed{
		Title:       "High stakes duel",
		Description: fmt.Sprintf("**%s** and **%s** are dueling for **%s**!", challenger, challenged, pot),
		Color:       colorStarted,
	})
}

func (s *service) DuelFinished(winner, loser, pot, winnings string) {
	s.send(&discordgo.MessageEmbed{
		Title:       "Duel result",
		Description: fmt.Sprintf("**%s** defeated **%s** and took **%s**.", winner, loser, winnings),
		Color:       colorFinished,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Pot", Value: pot, Inline: true},
			{Name: "Winnings", Value: winnings, Inline: true},
		},
	})
}

func (s *service) send(embed *discordgo.MessageEmbed) {
	s.scheduler.RunAsync(func(ctx context.Context) error {
		_, err := s.session.ChannelMessageSendComplex(s.channelID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{embed},
		}, discordgo.WithContext(ctx))
		return err
	}, func(err error) {
		if err != nil {
			s.logger.WithError(err).WithField("channel", s.channelID).Error("Failed to post duel announcement")
		}
	})
}
