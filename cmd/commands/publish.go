package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"readme-image/internal/features/publish"
	"readme-image/internal/infra/fs"

	"github.com/spf13/cobra"
)

var publishFile string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Send an existing image to Telegram",
	Long:  `Send readmeImage.png (or --file) to TELEGRAM_CHAT_ID using TELEGRAM_BOT_TOKEN.`,
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishFile, "file", "", "Image to send (default: <workspace>/assets/images/readmeImage.png)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	path := publishFile
	if path == "" {
		path = fs.NewImagePaths(cfg.App.Workspace).Readme
	}

	tg, err := publish.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, publish.Options{
		Timeout: time.Duration(cfg.App.RequestTimeout) * time.Second,
	})
	if err != nil {
		return err
	}
	return tg.SendImage(ctx, path, cfg.Telegram.Caption)
}
