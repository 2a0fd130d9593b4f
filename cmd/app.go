package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/studypal/internal/config"
	"github.com/abhisek/studypal/internal/flow"
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/logger"
	"github.com/abhisek/studypal/internal/payment"
	"github.com/abhisek/studypal/internal/quota"
	"github.com/abhisek/studypal/internal/store"
	"github.com/abhisek/studypal/internal/tutor"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app holds the wired dependencies shared by serve, ask and drill.
type app struct {
	cfg   config.Config
	log   *logger.Logger
	store *store.Store
	redis *redis.Client
	svc   *tutor.Service
}

// loadConfig reads the --config file (or the default path) and validates it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openStore opens the database named by --db or the configuration.
func openStore(cmd *cobra.Command, cfg config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// newApp builds the tutor service from configuration. A nil log uses the
// configured log mode.
func newApp(ctx context.Context, cmd *cobra.Command, log *logger.Logger) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if log == nil {
		log, err = logger.New(cfg.LogMode)
		if err != nil {
			return nil, err
		}
	}

	st, err := openStore(cmd, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, store: st}

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	events := a.store.EventRepo()

	text, err := llm.NewProvider(ctx, cfg.LLM, events, a.log)
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}

	var speech llm.Provider
	if cfg.SpeechEnabled() {
		sp, err := llm.NewSpeechProvider(ctx, cfg.LLM, events, a.log)
		if err != nil {
			return fmt.Errorf("speech provider: %w", err)
		}
		speech = sp
	} else {
		a.log.Info("speech disabled: no speech provider configured")
	}

	var counter quota.Counter = a.store.UsageRepo()
	if cfg.Quota.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Quota.RedisAddr,
			Password: cfg.Quota.RedisPassword,
			DB:       cfg.Quota.RedisDB,
		})
		counter = quota.NewRedisCounter(a.redis)
	}

	var gateway payment.Gateway
	if cfg.Payment.Enabled() {
		rp, err := payment.NewRazorpay(cfg.Payment.Razorpay, a.log)
		if err != nil {
			return fmt.Errorf("payment gateway: %w", err)
		}
		gateway = rp
	}

	a.svc = tutor.New(tutor.Deps{
		Runner:   flow.NewRunner(text, speech, cfg.Flow),
		Limiter:  quota.New(counter, a.store.ProfileRepo(), cfg.Quota.DailyLimit),
		Profiles: a.store.ProfileRepo(),
		History:  a.store.HistoryRepo(),
		Orders:   a.store.OrderRepo(),
		Gateway:  gateway,
		KeyID:    cfg.Payment.Razorpay.KeyID,
		Secret:   cfg.Payment.Razorpay.KeySecret,
		Premium:  cfg.Payment.Premium,
		Log:      a.log,
	})

	a.log.Info("tutor ready",
		"provider", cfg.LLM.Primary.Provider,
		"model", text.ModelID(),
		"fallback", cfg.LLM.Fallback != nil,
		"speech", speech != nil,
		"payments", gateway != nil,
		"redis_quota", a.redis != nil)
	return nil
}

// Ping checks the database and, when configured, Redis.
func (a *app) Ping(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return err
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.store.Close())
	a.log.Sync()
	return errors.Join(errs...)
}
