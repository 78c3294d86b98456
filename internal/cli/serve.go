package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/refereat/refereat-server/internal/auth"
	"github.com/refereat/refereat-server/internal/common/config"
	"github.com/refereat/refereat-server/internal/common/database"
	"github.com/refereat/refereat-server/internal/handler"
	"github.com/refereat/refereat-server/internal/integration/gemini"
	"github.com/refereat/refereat-server/internal/integration/mail"
	"github.com/refereat/refereat-server/internal/integration/workflow"
	"github.com/refereat/refereat-server/internal/repository"
	"github.com/refereat/refereat-server/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	db := repository.NewDB(conn.DB, cfg.Ledger.MaxTxAttempts, logger)
	defer db.Close()

	publisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server, err := newServer(ctx, cfg, db, publisher, logger)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("tracing", cfg.EnableTracing),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	// シグナルまたはサーバーエラーの待機
	select {
	case <-ctx.Done():
		logger.Info("shutting down", zap.Duration("timeout", cfg.HTTP.ShutdownTimeout))
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func connect(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	ctx, end := beginSegment(ctx, "connect")
	defer end()

	conn, err := database.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// newPublisher はStep Functionsのイベント発行を作成します
// ENV=LOCALやステートマシン未設定の場合、クライアントなしで作成し発行をスキップします
func newPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*workflow.SFNPublisher, error) {
	if cfg.IsLocal() || cfg.SFN.StateMachineARN == "" {
		return workflow.NewSFNPublisher(nil, cfg.SFN.StateMachineARN, logger), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return workflow.NewSFNPublisher(sfn.NewFromConfig(awsCfg), cfg.SFN.StateMachineARN, logger), nil
}

func newServer(ctx context.Context, cfg *config.Config, db *repository.DB, publisher service.EventPublisher, logger *zap.Logger) (*handler.Server, error) {
	restaurantRepo := repository.NewRestaurantRepository(db)
	influencerRepo := repository.NewInfluencerRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	creditLogRepo := repository.NewCreditLogRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	mailer := mail.NewMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		Sender:   cfg.SMTP.Sender,
	})
	extractor, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:   cfg.Gemini.APIKey,
		Model:    cfg.Gemini.Model,
		Endpoint: cfg.Gemini.Endpoint,
		Timeout:  cfg.Gemini.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, booking verification will fail")
	}

	referrals := service.NewReferralService(influencerRepo, restaurantRepo, invitationRepo, referralRepo, logger)

	return handler.NewServer(handler.ServerDeps{
		Sessions: issuer,
		Accounts: service.NewAccountService(db, accountRepo, restaurantRepo, issuer, logger),
		Invitations: service.NewInvitationService(service.InvitationServiceDeps{
			Tx:             db,
			InvitationRepo: invitationRepo,
			RestaurantRepo: restaurantRepo,
			InfluencerRepo: influencerRepo,
			AccountRepo:    accountRepo,
			Mailer:         mailer,
			Publisher:      publisher,
			BaseURL:        cfg.PublicBaseURL,
			Logger:         logger,
		}),
		Referrals:   referrals,
		Restaurants: service.NewRestaurantService(db, restaurantRepo, influencerRepo, bookingRepo, invitationRepo, logger),
		Ledger: service.NewLedgerService(service.LedgerServiceDeps{
			Tx:             db,
			InfluencerRepo: influencerRepo,
			RestaurantRepo: restaurantRepo,
			BookingRepo:    bookingRepo,
			CreditLogRepo:  creditLogRepo,
			ReferralRepo:   referralRepo,
			InvitationRepo: invitationRepo,
			Publisher:      publisher,
			Logger:         logger,
		}),
		Verification:   service.NewVerificationService(extractor, referrals, cfg.Gemini.Timeout, logger),
		Influencers:    service.NewInfluencerService(influencerRepo, cfg.PublicBaseURL),
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		EnableTracing:  cfg.EnableTracing,
	}), nil
}
