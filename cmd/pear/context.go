package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/pear/internal/batch"
	"github.com/MikeSquared-Agency/pear/internal/config"
	"github.com/MikeSquared-Agency/pear/internal/extractor"
	"github.com/MikeSquared-Agency/pear/internal/hermes"
	"github.com/MikeSquared-Agency/pear/internal/llm"
	"github.com/MikeSquared-Agency/pear/internal/processor"
	"github.com/MikeSquared-Agency/pear/internal/reconcile"
	"github.com/MikeSquared-Agency/pear/internal/resolver"
	"github.com/MikeSquared-Agency/pear/internal/slack"
	"github.com/MikeSquared-Agency/pear/internal/source"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

type commandContext struct {
	envFile *string

	configOnce sync.Once
	config     config.Config
	configErr  error
	logger     *slog.Logger
}

func newCommandContext(envFile *string) *commandContext {
	return &commandContext{envFile: envFile}
}

// ensureConfig loads and validates the configuration once and installs
// the default logger.
func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFile != nil {
			if path := strings.TrimSpace(*c.envFile); path != "" {
				if err := godotenv.Load(path); err != nil {
					c.configErr = fmt.Errorf("load env file: %w", err)
					return
				}
			}
		}
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		slog.SetDefault(c.logger)
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// openStore connects to the database and applies pending migrations.
func (c *commandContext) openStore(ctx context.Context) (*store.Store, error) {
	st, err := c.connectStore(ctx)
	if err != nil {
		return nil, err
	}
	n, err := st.Migrate()
	if err != nil {
		st.Close()
		return nil, err
	}
	if n > 0 {
		c.log().Info("migrations applied", "count", n)
	}
	return st, nil
}

func (c *commandContext) connectStore(ctx context.Context) (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	c.log().Debug("database connected", "dialect", st.Dialect())
	return st, nil
}

func (c *commandContext) withStore(ctx context.Context, fn func(*store.Store) error) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// pipeline is the wired processing stack for one command invocation.
type pipeline struct {
	store   *store.Store
	engine  *reconcile.Engine
	proc    *processor.Processor
	hermes  *hermes.Client
	poster  *slack.Poster
	domains []extractor.Domain
}

func (p *pipeline) Close() {
	if p.hermes != nil {
		p.hermes.Close()
	}
	p.store.Close()
}

// notifier returns the Slack poster as a batch notifier, or nil.
func (p *pipeline) notifier() batch.Notifier {
	if p.poster == nil {
		return nil
	}
	return p.poster
}

func (c *commandContext) buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.log()

	domains, err := extractor.LoadDomains(cfg.DomainsFile)
	if err != nil {
		return nil, err
	}

	st, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	p := &pipeline{store: st, domains: domains}

	var pub reconcile.Publisher
	if cfg.NatsURL != "" {
		hc, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		p.hermes = hc
		pub = hc
		logger.Info("NATS connected", "url", cfg.NatsURL)
	}

	opts := processor.Options{DomainTx: cfg.DomainTx}
	if cfg.SlackBotToken != "" {
		p.poster = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		opts.Notifier = p.poster
		logger.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	gateway := newGateway(cfg, logger)
	if !gateway.Configured() {
		logger.Warn("no llm provider configured; extraction will fail")
	}

	p.engine = reconcile.New(st, pub, logger)
	p.proc = processor.New(
		st,
		resolver.New(st, cfg.OrganizationID, logger),
		extractor.New(gateway, logger),
		p.engine,
		pub,
		domains,
		opts,
		logger,
	)
	return p, nil
}

func newGateway(cfg config.Config, logger *slog.Logger) *llm.Gateway {
	var primary, secondary llm.Provider
	if cfg.GeminiAPIKey != "" {
		primary = llm.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		secondary = llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	return llm.NewGateway(primary, secondary, cfg.LLMTimeout, logger)
}

// newSource builds the configured document source. kind and dir override
// the configuration when non-empty.
func (c *commandContext) newSource(ctx context.Context, kind, dir string) (source.Source, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = cfg.Source
	}

	switch kind {
	case "local":
		if dir == "" {
			dir = cfg.SourceDir
		}
		return source.NewLocal(dir), nil
	case "minio":
		src, err := source.NewMinIO(source.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Prefix:    cfg.MinIOPrefix,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case "drive":
		src, err := source.NewDrive(ctx, cfg.GoogleCredentialsFile, cfg.DriveFolderID, cfg.Since(time.Now()), c.log())
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source %q", kind)
	}
}
