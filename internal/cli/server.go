package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insight-survey-service/internal/app"
	"insight-survey-service/internal/config"
	"insight-survey-service/internal/domain"
	"insight-survey-service/internal/infra/audio"
	"insight-survey-service/internal/infra/elevenlabs"
	"insight-survey-service/internal/infra/memory"
	pgloader "insight-survey-service/internal/infra/postgres"
	redisinfra "insight-survey-service/internal/infra/redis"
	transport "insight-survey-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the survey server",
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
		finalPort = "3000"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(nil)
	if pool != nil {
		// custom sets come from Postgres; the built-in sequence stays available
		loader = memory.NewFallbackLoader(pgloader.NewQuestionLoader(pool), memory.NewStaticQuestionLoader(nil))
	}

	questionTTL := config.TTLDuration(cfg.Survey.QuestionTTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, questionTTL)
	}

	sessionTTL := config.TTLDuration(cfg.Survey.SessionTTL, 30*time.Minute)
	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		memStore := memory.NewSessionStore(sessionTTL)
		defer memStore.Close()
		store = memStore
	}

	speechTimeout := config.TTLDuration(cfg.Speech.Timeout, 30*time.Second)
	synth := elevenlabs.NewClient(elevenlabs.Config{
		APIKey:  cfg.Speech.APIKey,
		VoiceID: cfg.Speech.VoiceID,
		ModelID: cfg.Speech.ModelID,
		BaseURL: cfg.Speech.BaseURL,
		Timeout: speechTimeout,
	})

	audioDir := cfg.Speech.AudioDir
	if audioDir == "" {
		audioDir = "audio"
	}
	audioStore, err := audio.NewStore(audioDir, config.TTLDuration(cfg.Speech.AudioMaxAge, 24*time.Hour), cfg.Speech.AudioMaxFiles)
	if err != nil {
		return err
	}
	audioStore.StartSweeper(10 * time.Minute)
	defer audioStore.Close()

	character := domain.DefaultCharacter(cfg.Speech.VoiceID)
	reward := domain.Reward{Type: cfg.Survey.RewardType, Amount: cfg.Survey.RewardAmount}

	surveyService := app.NewSurveyService(store, questionRepo, character, reward)
	speechService := app.NewSpeechService(synth, audioStore)

	handler := transport.NewHandler(surveyService, speechService, audioStore, synth.Configured)
	wsHandler := transport.NewWSHandler(surveyService)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	root := transport.CORS(cfg.Survey.AllowedOrigins)(transport.APIKey(cfg.Survey.APIKey)(mux))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     root,
		ReadTimeout: 15 * time.Second,
		// the speak endpoint waits synchronously on the provider call
		WriteTimeout: speechTimeout + 15*time.Second,
	}

	go func() {
		log.Printf("starting survey service on :%s", finalPort)
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
