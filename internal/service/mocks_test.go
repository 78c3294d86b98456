package service

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/integration/gemini"
	"github.com/refereat/refereat-server/internal/integration/mail"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	// テストではX-Rayへ送信しない
	os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
	os.Exit(m.Run())
}

// memStore はテスト用のインメモリストアです
// MockTransactorはトランザクションを直列に実行し、エラー時はスナップショットへ戻します
type memStore struct {
	mu          sync.Mutex
	restaurants map[uuid.UUID]model.Restaurant
	influencers map[uuid.UUID]model.Influencer
	bookings    []model.Booking
	creditLogs  []model.CreditLogEntry
	referrals   []model.ReferralBooking
	invitations map[uuid.UUID]model.Invitation
	accounts    map[string]model.Account

	appendErr error
}

func newMemStore() *memStore {
	return &memStore{
		restaurants: map[uuid.UUID]model.Restaurant{},
		influencers: map[uuid.UUID]model.Influencer{},
		invitations: map[uuid.UUID]model.Invitation{},
		accounts:    map[string]model.Account{},
	}
}

type memSnapshot struct {
	restaurants map[uuid.UUID]model.Restaurant
	influencers map[uuid.UUID]model.Influencer
	bookings    []model.Booking
	creditLogs  []model.CreditLogEntry
	referrals   []model.ReferralBooking
	invitations map[uuid.UUID]model.Invitation
	accounts    map[string]model.Account
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		restaurants: copyMap(s.restaurants),
		influencers: copyMap(s.influencers),
		bookings:    append([]model.Booking(nil), s.bookings...),
		creditLogs:  append([]model.CreditLogEntry(nil), s.creditLogs...),
		referrals:   append([]model.ReferralBooking(nil), s.referrals...),
		invitations: copyMap(s.invitations),
		accounts:    copyMap(s.accounts),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants = snap.restaurants
	s.influencers = snap.influencers
	s.bookings = snap.bookings
	s.creditLogs = snap.creditLogs
	s.referrals = snap.referrals
	s.invitations = snap.invitations
	s.accounts = snap.accounts
}

// MockTransactor はテスト用のトランザクションです
type MockTransactor struct {
	mu    sync.Mutex
	store *memStore
	calls int
}

func (m *MockTransactor) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// MockRestaurantRepository はテスト用のモックリポジトリです
type MockRestaurantRepository struct{ store *memStore }

func (m *MockRestaurantRepository) Create(ctx context.Context, tx *sqlx.Tx, r *model.Restaurant) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.restaurants[r.ID] = *r
	return nil
}

func (m *MockRestaurantRepository) Get(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.restaurants[id]
	if !ok {
		return nil, model.ErrRestaurantNotFound
	}
	// 累計は予約と台帳から集計する
	r.TotalRevenueGenerated = decimal.Zero
	r.TotalCreditsSpent = decimal.Zero
	for _, b := range m.store.bookings {
		if b.RestaurantID == id {
			r.TotalRevenueGenerated = r.TotalRevenueGenerated.Add(b.TotalSpend)
		}
	}
	for _, e := range m.store.creditLogs {
		if e.RestaurantID == id && e.Type == model.CreditLogRedeemed {
			r.TotalCreditsSpent = r.TotalCreditsSpent.Add(e.Amount)
		}
	}
	return &r, nil
}

func (m *MockRestaurantRepository) UpdateDefaultCommission(ctx context.Context, id uuid.UUID, rate decimal.NullDecimal) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.restaurants[id]
	if !ok {
		return model.ErrRestaurantNotFound
	}
	r.DefaultCommissionPercentage = rate
	m.store.restaurants[id] = r
	return nil
}

// MockInfluencerRepository はテスト用のモックリポジトリです
type MockInfluencerRepository struct{ store *memStore }

func (m *MockInfluencerRepository) Create(ctx context.Context, tx *sqlx.Tx, inf *model.Influencer) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.influencers[inf.ID] = *inf
	return nil
}

func (m *MockInfluencerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Influencer, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	inf, ok := m.store.influencers[id]
	if !ok {
		return nil, model.ErrInfluencerNotFound
	}
	inf.BlackoutDates = append([]string{}, inf.BlackoutDates...)
	return &inf, nil
}

func (m *MockInfluencerRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Influencer, error) {
	return m.Get(ctx, id)
}

func (m *MockInfluencerRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.Influencer, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []model.Influencer{}
	for _, inf := range m.store.influencers {
		if inf.BelongsTo(restaurantID) {
			out = append(out, inf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockInfluencerRepository) UpdateWallet(ctx context.Context, tx *sqlx.Tx, inf *model.Influencer) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cur, ok := m.store.influencers[inf.ID]
	if !ok {
		return model.ErrInfluencerNotFound
	}
	cur.WalletBalance = inf.WalletBalance
	cur.TotalBookings = inf.TotalBookings
	cur.TotalSpendGenerated = inf.TotalSpendGenerated
	cur.TotalCreditsEarned = inf.TotalCreditsEarned
	m.store.influencers[inf.ID] = cur
	return nil
}

func (m *MockInfluencerRepository) UpdateSettings(ctx context.Context, tx *sqlx.Tx, inf *model.Influencer) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cur, ok := m.store.influencers[inf.ID]
	if !ok {
		return model.ErrInfluencerNotFound
	}
	cur.CommissionPercentage = inf.CommissionPercentage
	cur.BlackoutDates = inf.BlackoutDates
	m.store.influencers[inf.ID] = cur
	return nil
}

// MockBookingRepository はテスト用のモックリポジトリです
type MockBookingRepository struct{ store *memStore }

func (m *MockBookingRepository) Create(ctx context.Context, tx *sqlx.Tx, b *model.Booking) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.bookings = append(m.store.bookings, *b)
	return nil
}

func (m *MockBookingRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, limit int) ([]model.Booking, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []model.Booking{}
	for i := len(m.store.bookings) - 1; i >= 0 && len(out) < limit; i-- {
		if m.store.bookings[i].RestaurantID == restaurantID {
			out = append(out, m.store.bookings[i])
		}
	}
	return out, nil
}

// MockCreditLogRepository はテスト用のモックリポジトリです
type MockCreditLogRepository struct{ store *memStore }

func (m *MockCreditLogRepository) Append(ctx context.Context, tx *sqlx.Tx, e *model.CreditLogEntry) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.appendErr != nil {
		return m.store.appendErr
	}
	m.store.creditLogs = append(m.store.creditLogs, *e)
	return nil
}

func (m *MockCreditLogRepository) ListByInfluencer(ctx context.Context, influencerID uuid.UUID) ([]model.CreditLogEntry, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []model.CreditLogEntry{}
	for i := len(m.store.creditLogs) - 1; i >= 0; i-- {
		if m.store.creditLogs[i].InfluencerID == influencerID {
			out = append(out, m.store.creditLogs[i])
		}
	}
	return out, nil
}

func (m *MockCreditLogRepository) Totals(ctx context.Context, influencerID uuid.UUID) (model.LedgerTotals, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	totals := model.LedgerTotals{Earned: decimal.Zero, Redeemed: decimal.Zero}
	for _, e := range m.store.creditLogs {
		if e.InfluencerID != influencerID {
			continue
		}
		switch e.Type {
		case model.CreditLogEarned:
			totals.Earned = totals.Earned.Add(e.Amount)
		case model.CreditLogRedeemed:
			totals.Redeemed = totals.Redeemed.Add(e.Amount)
		}
	}
	return totals, nil
}

// MockReferralRepository はテスト用のモックリポジトリです
type MockReferralRepository struct{ store *memStore }

func (m *MockReferralRepository) Create(ctx context.Context, r *model.ReferralBooking) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.referrals = append(m.store.referrals, *r)
	return nil
}

func (m *MockReferralRepository) FindPendingByGuestName(ctx context.Context, guestName string) (*model.ReferralBooking, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, r := range m.store.referrals {
		if r.GuestName == guestName && r.Status == model.ReferralStatusPendingVisit {
			return &r, nil
		}
	}
	return nil, model.ErrReferralNotFound
}

func (m *MockReferralRepository) MarkMatched(ctx context.Context, tx *sqlx.Tx, referralID, influencerID, bookingID uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for i, r := range m.store.referrals {
		if r.ID != referralID {
			continue
		}
		if r.Status != model.ReferralStatusPendingVisit || r.InfluencerID != influencerID {
			return model.ErrReferralConsumed
		}
		m.store.referrals[i].Status = model.ReferralStatusMatched
		m.store.referrals[i].MatchedBookingID = uuid.NullUUID{UUID: bookingID, Valid: true}
		return nil
	}
	return model.ErrReferralNotFound
}

// MockInvitationRepository はテスト用のモックリポジトリです
type MockInvitationRepository struct{ store *memStore }

func (m *MockInvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.invitations[inv.ID] = *inv
	return nil
}

func (m *MockInvitationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	inv, ok := m.store.invitations[id]
	if !ok {
		return nil, model.ErrInvitationNotFound
	}
	return &inv, nil
}

func (m *MockInvitationRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Invitation, error) {
	return m.Get(ctx, id)
}

func (m *MockInvitationRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.Invitation, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []model.Invitation{}
	for _, inv := range m.store.invitations {
		if inv.RestaurantID == restaurantID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *MockInvitationRepository) MarkAccepted(ctx context.Context, tx *sqlx.Tx, inv *model.Invitation) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cur, ok := m.store.invitations[inv.ID]
	if !ok {
		return model.ErrInvitationNotFound
	}
	if cur.Status == model.InvitationStatusAccepted {
		return model.ErrInvitationAccepted
	}
	m.store.invitations[inv.ID] = *inv
	return nil
}

func (m *MockInvitationRepository) FindAcceptedBy(ctx context.Context, influencerID uuid.UUID) (*model.Invitation, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, inv := range m.store.invitations {
		if inv.AcceptedBy.Valid && inv.AcceptedBy.UUID == influencerID {
			return &inv, nil
		}
	}
	return nil, model.ErrInvitationNotFound
}

// MockAccountRepository はテスト用のモックリポジトリです
type MockAccountRepository struct{ store *memStore }

func (m *MockAccountRepository) Create(ctx context.Context, tx *sqlx.Tx, a *model.Account) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	key := strings.ToLower(a.Email)
	if _, ok := m.store.accounts[key]; ok {
		return model.ErrEmailTaken
	}
	m.store.accounts[key] = *a
	return nil
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	a, ok := m.store.accounts[strings.ToLower(email)]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return &a, nil
}

// MockPublisher はテスト用のイベント発行です
type MockPublisher struct {
	mu     sync.Mutex
	events []model.Event
	err    error
}

func (m *MockPublisher) Publish(ctx context.Context, event model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Events() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Event(nil), m.events...)
}

// MockMailer はテスト用のメール送信です
type MockMailer struct {
	sent []mail.InvitationEmail
	err  error
}

func (m *MockMailer) SendInvitation(ctx context.Context, email mail.InvitationEmail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

// MockExtractor はテスト用の抽出処理です
type MockExtractor struct {
	extraction *model.BookingExtraction
	err        error
	delay      time.Duration
	input      gemini.Input
}

func (m *MockExtractor) ExtractBooking(ctx context.Context, in gemini.Input) (*model.BookingExtraction, error) {
	m.input = in
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.extraction, m.err
}

// MockTokenIssuer はテスト用のトークン発行です
type MockTokenIssuer struct{}

func (MockTokenIssuer) Issue(account model.Account) (string, time.Time, error) {
	return "token-" + account.ID.String(), time.Now().Add(time.Hour), nil
}

// testEnv はテスト用の依存一式です
type testEnv struct {
	store       *memStore
	tx          *MockTransactor
	restaurants *MockRestaurantRepository
	influencers *MockInfluencerRepository
	bookings    *MockBookingRepository
	creditLogs  *MockCreditLogRepository
	referrals   *MockReferralRepository
	invitations *MockInvitationRepository
	accounts    *MockAccountRepository
	publisher   *MockPublisher
}

func newTestEnv() *testEnv {
	store := newMemStore()
	return &testEnv{
		store:       store,
		tx:          &MockTransactor{store: store},
		restaurants: &MockRestaurantRepository{store: store},
		influencers: &MockInfluencerRepository{store: store},
		bookings:    &MockBookingRepository{store: store},
		creditLogs:  &MockCreditLogRepository{store: store},
		referrals:   &MockReferralRepository{store: store},
		invitations: &MockInvitationRepository{store: store},
		accounts:    &MockAccountRepository{store: store},
		publisher:   &MockPublisher{},
	}
}

func (e *testEnv) seedRestaurant(t *testing.T, defaultCommission decimal.NullDecimal) model.Restaurant {
	t.Helper()
	r := model.NewRestaurant("Trattoria", "owner@trattoria.example", "Via Roma 1", defaultCommission)
	e.store.restaurants[r.ID] = r
	return r
}

func (e *testEnv) seedInfluencer(t *testing.T, restaurantID uuid.UUID, available int64) model.Influencer {
	t.Helper()
	inf := model.NewInfluencer(model.InfluencerProfile{Name: "Giulia"}, restaurantID)
	inf.WalletBalance.Available = decimal.NewFromInt(available)
	inf.TotalCreditsEarned = decimal.NewFromInt(available)
	e.store.influencers[inf.ID] = inf
	return inf
}

func (e *testEnv) influencer(t *testing.T, id uuid.UUID) model.Influencer {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	inf, ok := e.store.influencers[id]
	if !ok {
		t.Fatalf("influencer %s not found", id)
	}
	return inf
}
