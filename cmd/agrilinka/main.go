package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agrilinka/auth-service/adapters/challenges"
	"github.com/agrilinka/auth-service/adapters/directory"
	"github.com/agrilinka/auth-service/adapters/events"
	"github.com/agrilinka/auth-service/adapters/tokenizer"
	"github.com/agrilinka/auth-service/config"
	"github.com/agrilinka/auth-service/ports"
	"github.com/agrilinka/auth-service/service"
	transport "github.com/agrilinka/auth-service/transport/http"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger := zerolog.New(os.Stderr)
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := newLogger(cfg)

	if err := cfg.ValidateSecret(); err != nil {
		log.Fatal().Err(err).Msg("refusing to start")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// Insecure dev mode: a random per-process secret, so sessions die
		// with the process and the placeholder can never ship.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatal().Err(err).Msg("failed to generate dev secret")
		}
		secret = hex.EncodeToString(buf)
		log.Warn().Msg("AUTH_INSECURE_DEV_SECRET is set: using a random per-process signing secret")
	}

	var userDirectory ports.UserDirectory
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open postgres")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to reach postgres")
		}
		userDirectory, err = directory.NewPostgresDirectory(db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize user directory")
		}
	} else {
		log.Warn().Msg("DATABASE_URL is unset: users are held in memory and lost on restart")
		userDirectory = directory.NewMemoryDirectory()
	}

	var challengeStore ports.ChallengeStore
	var eventPub ports.EventPublisher
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse redis URL")
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		challengeStore = challenges.NewRedisStore(redisClient, cfg.ChallengeTTL)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		// Process-local challenges: fine for a single instance, wrong for a
		// scaled deployment (peers cannot see each other's challenges).
		challengeStore = challenges.NewMemoryStore(cfg.ChallengeTTL)
	}

	jwtTokenizer := tokenizer.NewJWTTokenizer([]byte(secret), cfg.JWTTTL)
	authService := service.NewAuthService(challengeStore, userDirectory, jwtTokenizer, eventPub, log)

	router := transport.SetupRouter(authService)

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting auth service")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
