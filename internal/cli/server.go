package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/config"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
	pgloader "trivia-room-service/internal/infra/postgres"
	redisinfra "trivia-room-service/internal/infra/redis"
	transport "trivia-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(builtinBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var banks app.BankRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var rooms app.RoomStore
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, redisTTL)
	} else {
		rooms = memory.NewRoomStore()
	}

	hub := transport.NewHub()
	service := app.NewGameService(rooms, banks, hub, timingFromConfig(cfg), settingsFromConfig(cfg))

	defaultBank := cfg.Questions.DefaultBank
	if defaultBank == "" {
		defaultBank = "default"
	}
	wsHandler := transport.NewWSHandler(service, hub, defaultBank)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: websocket connections outlive any sane value
	}

	go func() {
		log.Printf("starting trivia room service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func settingsFromConfig(cfg config.Config) domain.GameSettings {
	settings := domain.DefaultSettings()
	if cfg.Game.TimeDecay == string(domain.DecayExponential) {
		settings.TimeDecay = domain.DecayExponential
	}
	if cfg.Game.QuestionTimeLimit > 0 {
		settings.QuestionTimeLimit = cfg.Game.QuestionTimeLimit
	}
	if cfg.Game.MaxPlayers > 0 {
		settings.MaxPlayers = cfg.Game.MaxPlayers
	}
	settings.AllowLateJoin = cfg.Game.AllowLateJoin
	if cfg.Game.ShowCorrectAnswer != nil {
		settings.ShowCorrectAnswer = *cfg.Game.ShowCorrectAnswer
	}
	return settings
}

func timingFromConfig(cfg config.Config) app.Timing {
	timing := app.DefaultTiming()
	if cfg.Game.CountdownSeconds > 0 {
		timing.CountdownSeconds = cfg.Game.CountdownSeconds
	}
	timing.ResultsDelay = config.TTLDuration(cfg.Game.ResultsDelay, timing.ResultsDelay)
	return timing
}
