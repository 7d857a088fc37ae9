package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/KirkDiggler/cduello/internal/bridge"
	"github.com/KirkDiggler/cduello/internal/commands"
	"github.com/KirkDiggler/cduello/internal/config"
	"github.com/KirkDiggler/cduello/internal/events"
	"github.com/KirkDiggler/cduello/internal/listeners"
	"github.com/KirkDiggler/cduello/internal/messages"
	"github.com/KirkDiggler/cduello/internal/metrics"
	"github.com/KirkDiggler/cduello/internal/repositories/arenas"
	"github.com/KirkDiggler/cduello/internal/repositories/sqlite"
	statsrepo "github.com/KirkDiggler/cduello/internal/repositories/stats"
	"github.com/KirkDiggler/cduello/internal/repositories/wallets"
	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/KirkDiggler/cduello/internal/services"
	"github.com/KirkDiggler/cduello/internal/services/announce"
	"github.com/KirkDiggler/cduello/internal/services/economy"
	"github.com/KirkDiggler/cduello/internal/uuid"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	} else {
		log.Info("Loaded .env file")
	}

	if err := run(log); err != nil {
		log.WithError(err).Fatal("cDuello stopped")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer closeDB(log, db)
	log.WithField("path", cfg.Storage.SQLitePath).Info("Opened sqlite database")

	redisClient, err := connectRedis(log, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.WithError(err).Warn("Error closing Redis connection")
			}
		}()
	}

	var wallet economy.Provider
	if redisClient != nil {
		wallet = wallets.NewRedisWallet(&wallets.RedisWalletConfig{Client: redisClient})
	} else if cfg.Economy.Enabled {
		log.Warn("No REDIS_URL configured, money duels are disabled")
	}

	var statsRepo statsrepo.Repository
	switch cfg.Stats.Backend {
	case config.StatsBackendRedis:
		statsRepo = statsrepo.NewRedis(redisClient)
	default:
		statsRepo = statsrepo.NewSQLiteRepository(db)
	}
	log.WithField("backend", cfg.Stats.Backend).Info("Statistics backend selected")

	var discord announce.DiscordSession
	if cfg.Discord.Enabled() {
		// REST only, announcements do not need the gateway
		dg, err := discordgo.New("Bot " + cfg.Discord.Token)
		if err != nil {
			return err
		}
		discord = dg
		log.WithField("channel", cfg.Discord.AnnounceChannelID).Info("Discord announcements enabled")
	}

	loop := scheduler.NewLoop(&scheduler.LoopConfig{Logger: log})
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	m := metrics.New()
	hostBridge := bridge.New(&bridge.Config{
		Executor: loop,
		Token:    cfg.Bridge.Token,
		Metrics:  m,
		Logger:   log,
	})

	provider := services.NewProvider(&services.ProviderConfig{
		Config:          cfg,
		Server:          hostBridge,
		Scheduler:       loop,
		Catalog:         catalog,
		ArenaRepository: arenas.NewSQLiteRepository(db),
		StatsRepository: statsRepo,
		EconomyProvider: wallet,
		Discord:         discord,
		UUID:            uuid.NewGoogleUUIDGenerator(),
		Metrics:         m,
		Logger:          log,
	})

	bus := events.NewBus(log)
	listeners.Register(bus, &listeners.Config{
		Duels:  provider.Duels,
		Stats:  provider.Stats,
		Guard:  provider.Guard,
		Logger: log,
	})

	router := commands.NewRouter(&commands.RouterConfig{
		Provider:  provider,
		Server:    hostBridge,
		Scheduler: loop,
		Reload:    reloader(log, provider),
		Logger:    log,
	})

	hostBridge.Bind(&bridge.Handlers{
		Bus:         bus,
		Router:      router,
		Leaderboard: provider.Leaderboard,
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	err = provider.Arenas.Load(startCtx)
	cancelStart()
	if err != nil {
		return err
	}
	if err := loop.Call(context.Background(), provider.Stats.Start); err != nil {
		return err
	}

	servers := []*http.Server{{Addr: cfg.Bridge.Addr, Handler: hostBridge}}
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		servers = append(servers, &http.Server{Addr: cfg.Metrics.Addr, Handler: mux})
	}

	serveErr := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			log.WithField("addr", srv.Addr).Info("Listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	log.Info("cDuello is now running. Press CTRL-C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	select {
	case s := <-sig:
		log.WithField("signal", s.String()).Info("Shutting down...")
	case err = <-serveErr:
		log.WithError(err).Error("Listener failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hostBridge.Close()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Listener did not shut down cleanly")
		}
	}

	if callErr := loop.Call(shutdownCtx, func() {
		n := provider.CancelEverything("shutdown")
		log.WithField("count", n).Info("Cancelled running duels")
	}); callErr != nil {
		log.WithError(callErr).Warn("Could not cancel running duels")
	}

	if flushErr := provider.Stats.Shutdown(shutdownCtx); flushErr != nil {
		log.WithError(flushErr).Error("Failed to flush statistics")
	}

	stopLoop()
	loop.Stop()
	select {
	case <-loop.Done():
	case <-shutdownCtx.Done():
		log.Warn("Game loop did not finish before shutdown timeout")
	}
	return err
}

// reloader re-reads the environment and the message file. It runs on the game loop.
func reloader(log logrus.FieldLogger, provider *services.Provider) commands.ReloadFunc {
	return func() error {
		if err := godotenv.Overload(); err != nil {
			log.WithError(err).Debug("No .env file to reload")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		if catalog == nil {
			catalog = messages.Default()
		}
		provider.Reload(cfg, catalog)
		return nil
	}
}

// loadCatalog reads MESSAGES_FILE. A nil catalog means the embedded defaults.
func loadCatalog(cfg *config.Config) (messages.Catalog, error) {
	if cfg.MessagesFile == "" {
		return nil, nil
	}
	catalog, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func connectRedis(log logrus.FieldLogger, cfg *config.Config) (*redis.Client, error) {
	if cfg.Storage.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.Storage.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Info("Successfully connected to Redis")
	return client, nil
}

func closeDB(log logrus.FieldLogger, db *sql.DB) {
	if err := db.Close(); err != nil {
		log.WithError(err).Warn("Error closing sqlite database")
	}
}
