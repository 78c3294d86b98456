package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/refereat/refereat-server/internal/auth"
	"github.com/refereat/refereat-server/internal/integration/gemini"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// requestTimeout は1リクエストの処理時間の上限です
const requestTimeout = 60 * time.Second

type SessionParser interface {
	Parse(token string) (auth.Session, error)
}

type AccountAPI interface {
	RegisterRestaurant(ctx context.Context, in service.RegisterRestaurantInput) (*service.Registration, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

type InvitationAPI interface {
	Send(ctx context.Context, restaurantID uuid.UUID, email string) (*model.Invitation, error)
	List(ctx context.Context, restaurantID uuid.UUID) ([]model.Invitation, error)
	Get(ctx context.Context, id uuid.UUID) (*service.InvitationView, error)
	Accept(ctx context.Context, id uuid.UUID, in service.AcceptInput) (*service.AcceptResult, error)
}

type ReferralAPI interface {
	ReferralPage(ctx context.Context, influencerID uuid.UUID) (*service.ReferralPage, error)
	Submit(ctx context.Context, influencerID uuid.UUID, req model.ReferralRequest) (*model.ReferralBooking, error)
}

type RestaurantAPI interface {
	Stats(ctx context.Context, restaurantID uuid.UUID) (*service.RestaurantStats, error)
	UpdateDefaultCommission(ctx context.Context, restaurantID uuid.UUID, rate *decimal.Decimal) error
	AddAmbassador(ctx context.Context, restaurantID uuid.UUID, profile model.InfluencerProfile) (*model.Influencer, error)
	ListAmbassadors(ctx context.Context, restaurantID uuid.UUID) ([]model.Influencer, error)
	UpdateAmbassador(ctx context.Context, restaurantID, influencerID uuid.UUID, settings model.AmbassadorSettings) (*model.Influencer, error)
	ListBookings(ctx context.Context, restaurantID uuid.UUID, limit int) ([]model.Booking, error)
}

type LedgerAPI interface {
	RecordVerifiedBooking(ctx context.Context, restaurantID uuid.UUID, in model.VerifiedBookingInput) (*service.AccrualResult, error)
	Redeem(ctx context.Context, restaurantID, influencerID uuid.UUID, amount decimal.Decimal) (*model.Influencer, error)
	History(ctx context.Context, influencerID uuid.UUID) ([]model.CreditLogEntry, error)
	Reconcile(ctx context.Context, restaurantID, influencerID uuid.UUID) (*model.ReconciliationReport, error)
}

type VerificationAPI interface {
	Analyze(ctx context.Context, in gemini.Input) (*service.VerificationResult, error)
}

type InfluencerAPI interface {
	Profile(ctx context.Context, influencerID uuid.UUID) (*model.Influencer, error)
	Link(influencerID uuid.UUID) string
}

// Server はReferEatのHTTP APIサーバーです
type Server struct {
	sessions     SessionParser
	accounts     AccountAPI
	invitations  InvitationAPI
	referrals    ReferralAPI
	restaurants  RestaurantAPI
	ledger       LedgerAPI
	verification VerificationAPI
	influencers  InfluencerAPI
	logger       *zap.Logger

	allowedOrigins []string
	allowAnyOrigin bool
	tracing        bool
}

type ServerDeps struct {
	Sessions       SessionParser
	Accounts       AccountAPI
	Invitations    InvitationAPI
	Referrals      ReferralAPI
	Restaurants    RestaurantAPI
	Ledger         LedgerAPI
	Verification   VerificationAPI
	Influencers    InfluencerAPI
	Logger         *zap.Logger
	AllowedOrigins []string
	EnableTracing  bool
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		sessions:       deps.Sessions,
		accounts:       deps.Accounts,
		invitations:    deps.Invitations,
		referrals:      deps.Referrals,
		restaurants:    deps.Restaurants,
		ledger:         deps.Ledger,
		verification:   deps.Verification,
		influencers:    deps.Influencers,
		logger:         deps.Logger,
		allowedOrigins: deps.AllowedOrigins,
		tracing:        deps.EnableTracing,
	}
	for _, o := range deps.AllowedOrigins {
		if o == "*" {
			s.allowAnyOrigin = true
		}
	}
	return s
}

// Handler はすべてのルートを登録したルーターを返します
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register/restaurant", s.handleRegisterRestaurant)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/invitations/{id}", s.handleGetInvitation)
		r.Post("/invitations/{id}/accept", s.handleAcceptInvitation)

		r.Get("/r/{influencerId}", s.handleReferralPage)
		r.Post("/r/{influencerId}/bookings", s.handleSubmitReferral)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/restaurant", func(r chi.Router) {
				r.Use(requireRole(model.RoleRestaurant))
				r.Get("/", s.handleRestaurantStats)
				r.Patch("/settings", s.handleUpdateRestaurantSettings)
				r.Get("/ambassadors", s.handleListAmbassadors)
				r.Post("/ambassadors", s.handleAddAmbassador)
				r.Patch("/ambassadors/{id}", s.handleUpdateAmbassador)
				r.Post("/ambassadors/{id}/redeem", s.handleRedeem)
				r.Get("/ambassadors/{id}/reconciliation", s.handleReconcile)
				r.Get("/invitations", s.handleListInvitations)
				r.Post("/invitations", s.handleSendInvitation)
				r.Post("/bookings/verify", s.handleVerifyBooking)
				r.Get("/bookings", s.handleListBookings)
				r.Post("/bookings", s.handleRecordBooking)
			})

			r.Route("/influencer", func(r chi.Router) {
				r.Use(requireRole(model.RoleInfluencer))
				r.Get("/me", s.handleInfluencerProfile)
				r.Get("/link", s.handleInfluencerLink)
				r.Get("/credit-logs", s.handleCreditLogs)
			})
		})
	})

	if s.tracing {
		return xray.Handler(xray.NewFixedSegmentNamer("refereat-server"), r)
	}
	return r
}

// pathUUID はURLパラメータをUUIDとして取り出します
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
