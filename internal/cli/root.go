package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/refereat/refereat-server/internal/common/config"
	"github.com/refereat/refereat-server/internal/common/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const projectName = "refereat-server"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "refereat",
	Short: "ReferEat referral marketing server",
	Long: `ReferEat connects restaurants with influencer ambassadors.
Ambassadors share referral links, restaurants record verified bookings,
and commission credits accrue to the ambassador wallet.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute はコマンドを実行します
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap は設定、ロガー、X-Rayを初期化します
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	// X-Ray設定
	if cfg.EnableTracing {
		if err := xray.Configure(xray.Config{
			DaemonAddr:     "127.0.0.1:2000", // X-Rayデーモンのアドレス
			ServiceVersion: "1.0.0",
		}); err != nil {
			logger.Warn("failed to configure X-Ray", zap.Error(err))
			// X-Ray設定失敗時はデフォルトの設定を使用
			if configErr := xray.Configure(xray.Config{}); configErr != nil {
				return nil, nil, fmt.Errorf("failed to configure default X-Ray settings: %w", configErr)
			}
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}
	return cfg, logger, nil
}

// beginSegment はHTTPリクエスト外の処理用にX-Rayのセグメントを開始します
func beginSegment(ctx context.Context, name string) (context.Context, func()) {
	ctx, seg := xray.BeginSegment(ctx, projectName+"-"+name)
	return ctx, func() { seg.Close(nil) }
}
