package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/database/dbtest"
	"github.com/javajoker/storefront/internal/models"
)

type testEnv struct {
	db        *gorm.DB
	catalog   *CatalogService
	carts     *CartService
	gateway   *fakeGateway
	events    *recordingPublisher
	checkout  *CheckoutService
	payments  *PaymentService
	sweater   *models.Product
	tote      *models.Product
	otherItem *models.Product
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.Open(t)
	env := &testEnv{
		db:      db,
		catalog: NewCatalogService(db),
		gateway: newFakeGateway(),
		events:  &recordingPublisher{},
	}
	env.carts = NewCartService(db, env.catalog)
	env.checkout = NewCheckoutService(db, env.carts, env.gateway, env.events)
	env.payments = NewPaymentService(db, env.gateway, env.carts, env.events)

	env.sweater = dbtest.CreateProduct(t, db, "sweater", "10.00", "S", "M")
	env.tote = dbtest.CreateProduct(t, db, "tote", "5.00")
	env.otherItem = dbtest.CreateProduct(t, db, "scarf", "7.25", "OS")
	return env
}

// fakeGateway stands in for the hosted payment provider.
type fakeGateway struct {
	mu           sync.Mutex
	createErr    error
	parseErr     error
	notification *PaymentNotification
	sessions     map[string]*GatewaySession
	seq          int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*GatewaySession)}
}

func (g *fakeGateway) CreateSession(ctx context.Context, order *models.Order) (*GatewaySession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	session := &GatewaySession{
		ID:               fmt.Sprintf("cs_test_%d", g.seq),
		OrderID:          order.ID.String(),
		PaymentReference: fmt.Sprintf("pi_test_%d", g.seq),
		RedirectURL:      fmt.Sprintf("https://pay.example.com/cs_test_%d", g.seq),
	}
	g.sessions[session.ID] = session
	return session, nil
}

func (g *fakeGateway) ParseNotification(payload []byte, signature string) (*PaymentNotification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.notification, nil
}

func (g *fakeGateway) LookupSession(ctx context.Context, sessionID string) (*GatewaySession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	session, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such session %q", sessionID)
	}
	return session, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]OrderEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func validCheckout(provider models.PaymentProvider) *CheckoutRequest {
	return &CheckoutRequest{
		FirstName:       "Nino",
		LastName:        "Beridze",
		Email:           "nino@example.com",
		City:            "Tbilisi",
		PaymentProvider: provider,
	}
}

var errInjected = errors.New("injected update failure")

// failUpdates makes UPDATE statements against table fail while the returned
// switch is on.
func failUpdates(t *testing.T, db *gorm.DB, table string) *atomic.Bool {
	t.Helper()

	failing := &atomic.Bool{}
	err := db.Callback().Update().Before("gorm:update").Register("test:fail_"+table, func(tx *gorm.DB) {
		if failing.Load() && tx.Statement.Table == table {
			tx.AddError(errInjected)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return failing
}
