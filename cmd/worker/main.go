package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basegraph.app/intake/common/id"
	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/common/otel"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/alert"
	"basegraph.app/intake/internal/attachment"
	"basegraph.app/intake/internal/issuetracker"
	"basegraph.app/intake/internal/mapper"
	"basegraph.app/intake/internal/normalize"
	"basegraph.app/intake/internal/notify"
	"basegraph.app/intake/internal/pipeline"
	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/storage"
	"basegraph.app/intake/internal/summarize"
	"basegraph.app/intake/internal/validate"
	"basegraph.app/intake/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "intake worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer,
		"otel", telemetry != nil)

	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	deps, err := buildPipelineDeps(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(pipeline.Config{
		AlertRecipient: cfg.Alert.Recipient,
		RunTimeout:     cfg.Timeouts.Run,
		AlertTimeout:   cfg.Timeouts.Alert,
	}, deps)

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer,
		DLQStream: cfg.Pipeline.RedisDLQStream,
		BatchSize: 1,
		Block:     5 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, p)

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:        cfg.Pipeline.RedisStream,
		Group:         cfg.Pipeline.RedisGroup,
		Consumer:      cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:       cfg.Pipeline.ReclaimMinIdle,
		Interval:      cfg.Pipeline.ReclaimInterval,
		BatchSize:     10,
		MaxDeliveries: cfg.Pipeline.MaxDeliveries,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	running := 2
	select {
	case <-quit:
		slog.InfoContext(ctx, "shutting down worker...")
	case err := <-errCh:
		running--
		slog.ErrorContext(ctx, "worker loop exited, shutting down", "error", err)
	}

	// A run in flight may still be waiting on the completion service or the webhook.
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Run+5*time.Second)
	defer cancel()

	// Stop returns at once for a loop that already exited.
	go func() {
		reclaimer.Stop()
		w.Stop()
	}()

	for ; running > 0; running-- {
		select {
		case <-shutdownCtx.Done():
			slog.WarnContext(ctx, "shutdown timeout exceeded")
			running = 0
		case err := <-errCh:
			if err != nil {
				slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
			}
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

// buildPipelineDeps wires the stages. Optional integrations (file storage,
// completion service, issue filing, SMTP) are left out when unconfigured.
func buildPipelineDeps(ctx context.Context, cfg config.Config) (pipeline.Deps, error) {
	deps := pipeline.Deps{
		Mapper:     mapper.NewFormMapper(),
		Validator:  validate.New(cfg.Limits.MaxTitleLength),
		Normalizer: normalize.New(id.NewTicketGenerator()),
		Alerts:     alert.LogSender{},
	}

	if cfg.Storage.Enabled() {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:   cfg.Storage.Region,
			Bucket:   cfg.Storage.Bucket,
			Endpoint: cfg.Storage.Endpoint,
		})
		if err != nil {
			return pipeline.Deps{}, fmt.Errorf("creating file store: %w", err)
		}
		deps.Attachments = attachment.NewResolver(store, attachment.Config{
			Policy: attachment.Policy{
				MaxBytes:          cfg.Limits.MaxFileBytes,
				AllowedExtensions: cfg.Limits.AllowedExtensions,
			},
			URLs: attachment.URLTemplates{
				View:      cfg.Storage.ViewURLTemplate,
				Download:  cfg.Storage.DownloadURLTemplate,
				Thumbnail: cfg.Storage.ThumbnailURLTemplate,
			},
			Workers: cfg.Limits.AttachmentWorkers,
			Timeout: cfg.Timeouts.Storage,
		})
		slog.InfoContext(ctx, "file storage enabled", "bucket", cfg.Storage.Bucket)
	} else {
		slog.WarnContext(ctx, "file storage disabled, uploads will be reported as errors")
	}

	var completions llm.Client
	if cfg.OpenAI.Enabled() {
		client, err := llm.New(llm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
		if err != nil {
			return pipeline.Deps{}, fmt.Errorf("creating completion client: %w", err)
		}
		completions = client
		slog.InfoContext(ctx, "ai summaries enabled", "model", client.Model())
	} else {
		slog.WarnContext(ctx, "OPENAI_API_KEY not set, every notification uses the fallback summary")
	}
	deps.Summarizer = summarize.New(completions, summarize.Config{
		Options: summarize.Options{
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		},
		Timeout:     cfg.Timeouts.AI,
		MaxAttempts: cfg.OpenAI.MaxAttempts,
	})

	if cfg.GitLab.Enabled() {
		filer, err := issuetracker.NewGitLabFiler(issuetracker.GitLabConfig{
			BaseURL:   cfg.GitLab.BaseURL,
			Token:     cfg.GitLab.Token,
			ProjectID: cfg.GitLab.ProjectID,
			Timeout:   cfg.Timeouts.Issue,
		})
		if err != nil {
			return pipeline.Deps{}, fmt.Errorf("creating gitlab filer: %w", err)
		}
		deps.Issues = filer
		slog.InfoContext(ctx, "gitlab issue filing enabled", "project", cfg.GitLab.ProjectID)
	}

	deps.Notifier = notify.NewNotifier(notify.NewWebhookClient(cfg.Timeouts.Webhook), notify.Config{
		WebhookURL: cfg.Discord.WebhookURL,
		Username:   cfg.Discord.Username,
		AvatarURL:  cfg.Discord.AvatarURL,
		Components: cfg.Discord.ComponentsEnabled,
	})

	if cfg.Alert.SMTPEnabled() {
		deps.Alerts = alert.NewSMTPSender(alert.SMTPConfig{
			Host:        cfg.Alert.SMTPHost,
			Port:        cfg.Alert.SMTPPort,
			Username:    cfg.Alert.SMTPUser,
			Password:    cfg.Alert.SMTPPass,
			FromAddress: cfg.Alert.FromAddress,
			FromName:    cfg.Alert.FromName,
			Timeout:     cfg.Timeouts.Alert,
		})
	} else {
		slog.WarnContext(ctx, "SMTP_HOST not set, operator alerts are only logged")
	}

	return deps, nil
}

const banner = `
██╗███╗   ██╗████████╗ █████╗ ██╗  ██╗███████╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
██║████╗  ██║╚══██╔══╝██╔══██╗██║ ██╔╝██╔════╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██║██╔██╗ ██║   ██║   ███████║█████╔╝ █████╗      ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██║██║╚██╗██║   ██║   ██╔══██║██╔═██╗ ██╔══╝      ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
██║██║ ╚████║   ██║   ██║  ██║██║  ██╗███████╗    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚═╝╚═╝  ╚═══╝   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝     ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
