package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

const (
	applicationName = "salon-booking"
	pingTimeout     = 3 * time.Second
)

// BuildRedisClient connects to cfg.RedisAddr, or returns nil when no address
// is set. With verify, an unreachable server also yields nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil {
		return nil
	}
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	opts := &redis.Options{
		Addr:        addr,
		Password:    cfg.RedisPassword,
		DialTimeout: pingTimeout,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}

	if ctx == nil {
		ctx = context.Background()
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		orDefault(logger).Warn("redis ping failed", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens a pool for cfg.DatabaseURL tagged with the service's
// application_name. It returns nil when the URL is empty or invalid.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *pgxpool.Pool {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil
	}
	logger = orDefault(logger)

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("invalid DATABASE_URL", "error", err)
		return nil
	}
	if cfg.DatabaseMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DatabaseMaxConns)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	return pool
}

func orDefault(logger *logging.Logger) *logging.Logger {
	if logger == nil {
		return logging.Default()
	}
	return logger
}

// BuildEmailSender picks SendGrid when an API key is configured and the
// logging stub otherwise.
func BuildEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	logger = orDefault(logger)
	if cfg != nil {
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			logger.Info("email delivery via sendgrid", "from", cfg.SendGridFromEmail)
			return sender
		}
	}
	logger.Warn("SENDGRID_API_KEY not set; emails will be logged only")
	return notify.NewStubEmailSender(logger)
}
