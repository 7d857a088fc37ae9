package services

import (
	"github.com/KirkDiggler/cduello/internal/config"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/messages"
	"github.com/KirkDiggler/cduello/internal/metrics"
	"github.com/KirkDiggler/cduello/internal/repositories/arenas"
	statsrepo "github.com/KirkDiggler/cduello/internal/repositories/stats"
	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/KirkDiggler/cduello/internal/services/announce"
	"github.com/KirkDiggler/cduello/internal/services/arena"
	"github.com/KirkDiggler/cduello/internal/services/duel"
	"github.com/KirkDiggler/cduello/internal/services/economy"
	"github.com/KirkDiggler/cduello/internal/services/guard"
	"github.com/KirkDiggler/cduello/internal/services/leaderboard"
	"github.com/KirkDiggler/cduello/internal/services/ledger"
	"github.com/KirkDiggler/cduello/internal/services/stats"
	"github.com/KirkDiggler/cduello/internal/uuid"
	"github.com/sirupsen/logrus"
)

// Provider holds all service instances
type Provider struct {
	Messenger   *messages.Messenger
	Metrics     *metrics.Metrics
	Economy     economy.Service
	Arenas      arena.Service
	Stats       stats.Service
	Leaderboard leaderboard.Service
	Guard       guard.Service
	Duels       duel.Service
	Requests    ledger.Service
	Announcer   announce.Service // Nil when Discord is not configured
}

// ProviderConfig holds configuration for creating services
type ProviderConfig struct {
	Config    *config.Config      // Required
	Server    host.Server         // Required
	Scheduler scheduler.Scheduler // Required

	Catalog         messages.Catalog        // Optional, defaults to the embedded catalog
	ArenaRepository arenas.Repository       // Optional, defaults to in-memory
	StatsRepository statsrepo.Repository    // Optional, defaults to in-memory
	EconomyProvider economy.Provider        // Optional, nil disables money duels
	Discord         announce.DiscordSession // Optional
	UUID            uuid.Generator          // Optional
	Metrics         *metrics.Metrics        // Optional
	Logger          logrus.FieldLogger      // Optional
}

// NewProvider creates a new service provider with all services initialized
func NewProvider(cfg *ProviderConfig) *Provider {
	if cfg == nil {
		panic("ProviderConfig cannot be nil")
	}
	if cfg.Config == nil || cfg.Server == nil || cfg.Scheduler == nil {
		panic("config, server and scheduler are required")
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = messages.Default()
	}
	arenaRepo := cfg.ArenaRepository
	if arenaRepo == nil {
		arenaRepo = arenas.NewInMemoryRepository()
	}
	statsRepo := cfg.StatsRepository
	if statsRepo == nil {
		statsRepo = statsrepo.NewInMemoryRepository()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	messenger := messages.NewMessenger(cfg.Server, catalog)

	economySvc := economy.NewService(&economy.ServiceConfig{
		Provider: cfg.EconomyProvider,
		Settings: EconomySettings(cfg.Config),
		Logger:   logger,
	})

	arenaSvc := arena.NewService(&arena.ServiceConfig{
		Repository:   arenaRepo,
		Scheduler:    cfg.Scheduler,
		UsageEnabled: cfg.Config.Duel.ArenasEnabled,
		Logger:       logger,
	})

	statsSvc := stats.NewService(&stats.ServiceConfig{
		Repository:    statsRepo,
		Scheduler:     cfg.Scheduler,
		Metrics:       m,
		Logger:        logger,
		FlushInterval: cfg.Config.Stats.FlushInterval,
		FlushDebounce: cfg.Config.Stats.FlushDebounce,
	})

	leaderboardSvc := leaderboard.NewService(&leaderboard.ServiceConfig{
		Stats:    statsSvc,
		Format:   economySvc.Format,
		CacheTTL: cfg.Config.Leaderboard.CacheTTL,
		Logger:   logger,
	})

	guardSvc := guard.NewService(&guard.ServiceConfig{
		Messenger: messenger,
		Metrics:   m,
	})

	var announcer announce.Service
	var duelAnnouncer duel.Announcer
	if cfg.Discord != nil && cfg.Config.Discord.AnnounceChannelID != "" {
		announcer = announce.NewService(&announce.ServiceConfig{
			Session:   cfg.Discord,
			ChannelID: cfg.Config.Discord.AnnounceChannelID,
			Scheduler: cfg.Scheduler,
			Logger:    logger,
		})
		duelAnnouncer = announcer
	}

	duelSvc := duel.NewService(&duel.ServiceConfig{
		Economy:   economySvc,
		Arenas:    arenaSvc,
		Stats:     statsSvc,
		Guard:     guardSvc,
		Server:    cfg.Server,
		Messenger: messenger,
		Scheduler: cfg.Scheduler,
		Settings:  DuelSettings(cfg.Config),
		Announcer: duelAnnouncer,
		UUID:      cfg.UUID,
		Metrics:   m,
		Logger:    logger,
	})

	ledgerSvc := ledger.NewService(&ledger.ServiceConfig{
		Sessions:  duelSvc,
		Economy:   economySvc,
		Server:    cfg.Server,
		Messenger: messenger,
		Scheduler: cfg.Scheduler,
		Metrics:   m,
		Logger:    logger,
		Timeout:   cfg.Config.Duel.RequestTimeout(),
	})

	return &Provider{
		Messenger:   messenger,
		Metrics:     m,
		Economy:     economySvc,
		Arenas:      arenaSvc,
		Stats:       statsSvc,
		Leaderboard: leaderboardSvc,
		Guard:       guardSvc,
		Duels:       duelSvc,
		Requests:    ledgerSvc,
		Announcer:   announcer,
	}
}

// Reload swaps the reloadable settings and the message catalog
func (p *Provider) Reload(cfg *config.Config, catalog messages.Catalog) {
	p.Duels.SetSettings(DuelSettings(cfg))
	p.Economy.SetSettings(EconomySettings(cfg))
	p.Requests.SetTimeout(cfg.Duel.RequestTimeout())
	p.Arenas.SetUsageEnabled(cfg.Duel.ArenasEnabled)
	if catalog != nil {
		p.Messenger.SetCatalog(catalog)
	}
	p.Leaderboard.Invalidate()
}

// CancelEverything drops pending requests and cancels every duel with refunds
func (p *Provider) CancelEverything(reason string) int {
	p.Requests.Clear()
	return p.Duels.CancelAll(reason)
}

// DuelSettings extracts the session manager options
func DuelSettings(cfg *config.Config) duel.Settings {
	return duel.Settings{
		Countdown:       cfg.Duel.Countdown(),
		TeleportBack:    cfg.Duel.TeleportBack,
		HealAfter:       cfg.Duel.HealAfter,
		ClearEffects:    cfg.Duel.ClearEffects,
		KeepInventory:   cfg.Duel.KeepInventory,
		AllowedCommands: cfg.Duel.AllowedCommands,
	}
}

// EconomySettings extracts the money duel options
func EconomySettings(cfg *config.Config) economy.Settings {
	return economy.Settings{
		Enabled:               cfg.Economy.Enabled,
		WinnerPercentage:      cfg.Economy.WinnerPercentage,
		MinBet:                cfg.Economy.MinBet,
		MaxBet:                cfg.Economy.MaxBet,
		AnnouncementThreshold: cfg.Economy.AnnouncementThreshold,
	}
}
