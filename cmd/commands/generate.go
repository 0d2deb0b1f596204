package commands

// generate runs the full flow once
// Missing credentials only fail their own card; the exit status reports any failed step

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"readme-image/internal/clients_api/twitter"
	"readme-image/internal/clients_api/wakatime"
	"readme-image/internal/features/bars"
	"readme-image/internal/features/cards"
	"readme-image/internal/features/publish"
	"readme-image/internal/features/quotes"
	"readme-image/internal/features/render"
	"readme-image/internal/infra/config"
	"readme-image/internal/infra/fs"
	"readme-image/internal/infra/log"
	"readme-image/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var skipPublish bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate 01.png, 02.png, 03.png and readmeImage.png",
	Long: `Fetch WakaTime stats and the latest tweets, pick a quote, render the three cards
and join them side by side. The composite is only written when all three cards succeed.
When TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are set the composite is also sent to Telegram.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&skipPublish, "no-publish", false, "Do not send the composite to Telegram")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	res, err := gen.Run(ctx)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	log.LogInfo("Generation finished",
		zap.String("run_id", res.RunID),
		zap.Strings("files", res.Files),
		zap.String("composite", res.Composite),
		zap.Bool("published", res.Published))
	return nil
}

func buildGenerator(cfg *config.Config) (*pipeline.Generator, error) {
	timeout := time.Duration(cfg.App.RequestTimeout) * time.Second

	gradient, err := bars.GradientByName(cfg.Render.Gradient)
	if err != nil {
		return nil, err
	}

	corpus, err := quotes.Load(cfg.App.QuotesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load quotes: %w", err)
	}

	raster, err := render.New(cfg.Render)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s renderer: %w", cfg.Render.Backend, err)
	}

	if cfg.WakaTime.APIKey == "" {
		log.LogWarn("WAKATIME_API_KEY not set, the languages card will fail")
	}
	stats := wakatime.NewClient(cfg.WakaTime.APIKey, wakatime.Options{
		BaseURL:         cfg.WakaTime.BaseURL,
		Timeout:         timeout,
		MaxRetries:      cfg.App.MaxRetries,
		MaxResponseSize: cfg.App.MaxResponseSize,
	})

	var posts pipeline.PostsFetcher
	tw, err := twitter.NewClient(twitter.Credentials{
		APIKey:            cfg.Twitter.APIKey,
		APISecretKey:      cfg.Twitter.APISecretKey,
		AccessToken:       cfg.Twitter.AccessToken,
		AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
	}, twitter.Options{
		BaseURL:         cfg.Twitter.BaseURL,
		Timeout:         timeout,
		MaxRetries:      cfg.App.MaxRetries,
		MaxResponseSize: cfg.App.MaxResponseSize,
	})
	if err != nil {
		log.LogWarn("Twitter client unavailable, the posts card will fail", zap.Error(err))
	} else {
		posts = tw
	}

	gen := pipeline.NewGenerator(stats, posts, corpus, raster, pipeline.Options{
		Paths:        fs.NewImagePaths(cfg.App.Workspace),
		Range:        cfg.WakaTime.Range,
		MaxLanguages: cfg.WakaTime.MaxLanguages,
		BarWidth:     cfg.Render.BarWidth,
		Bars:         bars.Renderer{Gradient: gradient},
		Style: cards.Style{
			Background: cfg.Render.Background,
			Foreground: cfg.Render.Foreground,
			FontFamily: cfg.Render.FontFamily,
			Height:     cfg.Render.CanvasHeight,
		},
		Account:     cfg.Twitter.Account,
		PostCount:   cfg.Twitter.Count,
		Caption:     cfg.Telegram.Caption,
		SnapshotDir: cfg.App.SnapshotDir,
	})

	if cfg.Telegram.Enabled() && !skipPublish {
		tg, err := publish.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, publish.Options{Timeout: timeout})
		if err != nil {
			// delivery is optional, the images are still generated
			log.LogWarn("Telegram publishing disabled", zap.Error(err))
		} else {
			gen.WithPublisher(tg)
		}
	}

	log.LogInfo("Generator configured",
		zap.String("workspace", cfg.App.Workspace),
		zap.String("backend", raster.Name()),
		zap.String("gradient", cfg.Render.Gradient),
		zap.String("range", cfg.WakaTime.Range),
		zap.String("account", cfg.Twitter.Account))
	return gen, nil
}
