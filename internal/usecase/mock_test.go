//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
	"ai-caption-backend/internal/domain/ports/adapter"
	"ai-caption-backend/internal/domain/ports/repository"
)

// =============================
// Adapters
// =============================

// ---- Mock OrderGateway ----

type MockGateway struct {
	mu      sync.Mutex
	Created []adapter.Order

	CreateOrderFunc      func(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*adapter.Order, error)
	FetchOrderStatusFunc func(ctx context.Context, providerOrderID string) (*adapter.Order, error)
}

var _ adapter.OrderGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string { return "mock-gateway" }

func (g *MockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*adapter.Order, error) {
	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, amount, currency, receipt, notes)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	o := adapter.Order{
		ProviderOrderID: fmt.Sprintf("order_mock_%d", len(g.Created)+1),
		Amount:          amount,
		Currency:        currency,
		Status:          "created",
	}
	g.Created = append(g.Created, o)
	return &o, nil
}

func (g *MockGateway) FetchOrderStatus(ctx context.Context, providerOrderID string) (*adapter.Order, error) {
	if g.FetchOrderStatusFunc != nil {
		return g.FetchOrderStatusFunc(ctx, providerOrderID)
	}
	return &adapter.Order{ProviderOrderID: providerOrderID, Status: "created"}, nil
}

// ---- Mock SignatureVerifier ----

// MockVerifier accepts every signature unless Reject is set or a custom
// VerifyFunc is provided.
type MockVerifier struct {
	Reject     bool
	VerifyFunc func(orderID, paymentID, signature string) bool

	mu    sync.Mutex
	Calls int
}

var _ adapter.SignatureVerifier = (*MockVerifier)(nil)

func (v *MockVerifier) Verify(orderID, paymentID, signature string) bool {
	v.mu.Lock()
	v.Calls++
	v.mu.Unlock()
	if v.VerifyFunc != nil {
		return v.VerifyFunc(orderID, paymentID, signature)
	}
	return !v.Reject
}

// ---- Mock CaptionGenerator ----

type MockAI struct {
	mu    sync.Mutex
	Calls int

	GenerateFunc func(ctx context.Context, req adapter.GenerationRequest) (string, adapter.Usage, error)
}

var _ adapter.CaptionGenerator = (*MockAI)(nil)

func (a *MockAI) Name() string { return "mock-ai" }

func (a *MockAI) Generate(ctx context.Context, req adapter.GenerationRequest) (string, adapter.Usage, error) {
	a.mu.Lock()
	a.Calls++
	a.mu.Unlock()
	if a.GenerateFunc != nil {
		return a.GenerateFunc(ctx, req)
	}
	return "When the build finally passes on a Friday", adapter.Usage{PromptTokens: 20, CompletionTokens: 12, TotalTokens: 32}, nil
}

// =============================
// Repositories
// =============================

// ---- In-memory PaymentIntentRepository ----

type MockIntentRepo struct {
	mu      sync.Mutex
	byTxnID map[string]*model.PaymentIntent

	InsertFunc             func(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error
	MarkCreditsAppliedFunc func(ctx context.Context, tx repository.Tx, transactionID string) (bool, error)
}

var _ repository.PaymentIntentRepository = (*MockIntentRepo)(nil)

func NewMockIntentRepo() *MockIntentRepo {
	return &MockIntentRepo{byTxnID: map[string]*model.PaymentIntent{}}
}

func (r *MockIntentRepo) clone(p *model.PaymentIntent) *model.PaymentIntent {
	cp := *p
	return &cp
}

func (r *MockIntentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTxnID[p.TransactionID]; ok {
		return domain.ErrAlreadyExists
	}
	r.byTxnID[p.TransactionID] = r.clone(p)
	return nil
}

func (r *MockIntentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byTxnID[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.clone(p), nil
}

func (r *MockIntentRepo) FindByProviderOrderID(ctx context.Context, tx repository.Tx, providerOrderID string) (*model.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byTxnID {
		if p.ProviderOrderID == providerOrderID && providerOrderID != "" {
			return r.clone(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockIntentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentIntent
	for _, p := range r.byTxnID {
		if p.UserID == userID {
			out = append(out, r.clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockIntentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentIntent
	for _, p := range r.byTxnID {
		if p.Status == model.IntentStatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, r.clone(p))
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockIntentRepo) SetProviderOrderIfEmpty(ctx context.Context, tx repository.Tx, transactionID, providerOrderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byTxnID[transactionID]
	if !ok || p.Status != model.IntentStatusPending || p.ProviderOrderID != "" {
		return false, nil
	}
	p.ProviderOrderID = providerOrderID
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockIntentRepo) ClaimProcessing(ctx context.Context, tx repository.Tx, transactionID, providerPayID, providerSig string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byTxnID[transactionID]
	if !ok || p.Status != model.IntentStatusPending {
		return false, nil
	}
	p.Status = model.IntentStatusProcessing
	p.ProviderPayID = providerPayID
	p.ProviderSig = providerSig
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockIntentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byTxnID[transactionID]
	if !ok || p.Status != model.IntentStatusProcessing {
		return false, nil
	}
	p.Status = model.IntentStatusSuccess
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockIntentRepo) MarkFailedIfOpen(ctx context.Context, tx repository.Tx, transactionID, errorDescription string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byTxnID[transactionID]
	if !ok || p.IsTerminal() {
		return false, nil
	}
	p.Status = model.IntentStatusFailed
	p.ErrorDescription = errorDescription
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockIntentRepo) CancelIfPending(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byTxnID[transactionID]
	if !ok || p.Status != model.IntentStatusPending {
		return false, nil
	}
	p.Status = model.IntentStatusCancelled
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockIntentRepo) CancelPendingByUser(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.byTxnID {
		if p.UserID == userID && p.Status == model.IntentStatusPending {
			p.Status = model.IntentStatusCancelled
			p.ErrorDescription = "superseded by a newer purchase attempt"
			p.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (r *MockIntentRepo) MarkCreditsApplied(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	if r.MarkCreditsAppliedFunc != nil {
		return r.MarkCreditsAppliedFunc(ctx, tx, transactionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byTxnID[transactionID]
	if !ok || p.CreditsApplied {
		return false, nil
	}
	p.CreditsApplied = true
	p.UpdatedAt = time.Now()
	return true, nil
}

// Seed places an intent directly in the store, for arranging test state.
func (r *MockIntentRepo) Seed(p *model.PaymentIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTxnID[p.TransactionID] = r.clone(p)
}

// ---- In-memory CreditLedgerRepository ----

type MockLedgerRepo struct {
	mu       sync.Mutex
	balances map[string]int64

	ConsumeFunc    func(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredits, error)
	AddCreditsFunc func(ctx context.Context, tx repository.Tx, userID string, amount int64) (*model.UserCredits, error)
}

var _ repository.CreditLedgerRepository = (*MockLedgerRepo)(nil)

func NewMockLedgerRepo() *MockLedgerRepo {
	return &MockLedgerRepo{balances: map[string]int64{}}
}

func (r *MockLedgerRepo) Balance(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredits, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &model.UserCredits{UserID: userID, Credits: r.balances[userID]}, nil
}

func (r *MockLedgerRepo) Consume(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredits, error) {
	if r.ConsumeFunc != nil {
		return r.ConsumeFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[userID] < 1 {
		return nil, domain.ErrInsufficientCredits
	}
	r.balances[userID]--
	return &model.UserCredits{UserID: userID, Credits: r.balances[userID]}, nil
}

func (r *MockLedgerRepo) AddCredits(ctx context.Context, tx repository.Tx, userID string, amount int64) (*model.UserCredits, error) {
	if r.AddCreditsFunc != nil {
		return r.AddCreditsFunc(ctx, tx, userID, amount)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] += amount
	return &model.UserCredits{UserID: userID, Credits: r.balances[userID]}, nil
}

// Set overwrites a balance, for arranging test state.
func (r *MockLedgerRepo) Set(userID string, credits int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] = credits
}

// ---- In-memory CreditPackageRepository ----

type MockPackageRepo struct {
	mu   sync.Mutex
	pkgs map[string]*model.CreditPackage
}

var _ repository.CreditPackageRepository = (*MockPackageRepo)(nil)

func NewMockPackageRepo() *MockPackageRepo {
	return &MockPackageRepo{pkgs: map[string]*model.CreditPackage{}}
}

func (r *MockPackageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.CreditPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *pkg
	r.pkgs[pkg.ID] = &cp
	return nil
}

func (r *MockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CreditPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.pkgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pkg
	return &cp, nil
}

func (r *MockPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.CreditPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CreditPackage
	for _, pkg := range r.pkgs {
		if pkg.Active {
			cp := *pkg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceMinorUnits < out[j].PriceMinorUnits })
	return out, nil
}

// ---- In-memory CaptionRepository ----

type MockCaptionRepo struct {
	mu    sync.Mutex
	Saved []*model.Caption

	SaveFunc func(ctx context.Context, tx repository.Tx, c *model.Caption) error
}

var _ repository.CaptionRepository = (*MockCaptionRepo)(nil)

func NewMockCaptionRepo() *MockCaptionRepo {
	return &MockCaptionRepo{}
}

func (r *MockCaptionRepo) Save(ctx context.Context, tx repository.Tx, c *model.Caption) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.Saved = append(r.Saved, &cp)
	return nil
}

func (r *MockCaptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Caption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Caption
	for i := len(r.Saved) - 1; i >= 0; i-- {
		if r.Saved[i].UserID == userID {
			cp := *r.Saved[i]
			out = append(out, &cp)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ---- In-memory UsageQuotaTracker ----

type MockQuotaTracker struct {
	mu      sync.Mutex
	counts  map[string]int64
	Ceiling int64

	IsAllowedFunc func(ctx context.Context, deviceID string) (bool, error)
}

var _ repository.UsageQuotaTracker = (*MockQuotaTracker)(nil)

func NewMockQuotaTracker(ceiling int64) *MockQuotaTracker {
	return &MockQuotaTracker{counts: map[string]int64{}, Ceiling: ceiling}
}

func (q *MockQuotaTracker) Increment(ctx context.Context, deviceID string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counts[deviceID]++
	return q.counts[deviceID], nil
}

func (q *MockQuotaTracker) IsAllowed(ctx context.Context, deviceID string) (bool, error) {
	if q.IsAllowedFunc != nil {
		return q.IsAllowedFunc(ctx, deviceID)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[deviceID] < q.Ceiling, nil
}

func (q *MockQuotaTracker) Count(deviceID string) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[deviceID]
}

// =============================
// Infrastructure
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the function immediately without a real transaction. Assign
// WithTxFunc for tests that need to observe or fail the transactional path.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	TryLockErr error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.TryLockErr != nil {
		return "", l.TryLockErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	token := fmt.Sprintf("tok-%d", len(l.held)+1)
	l.held[key] = token
	return token, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
