package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"PesaVault/internal/adapters/memstore"
	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/ports"
	"PesaVault/internal/notify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu   sync.Mutex
	sent map[string][]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{sent: make(map[string][]string)}
}

func (c *fakeClient) SendMessage(ctx context.Context, chatID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[chatID] = append(c.sent[chatID], text)
	return nil
}

func (c *fakeClient) last(chatID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.sent[chatID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

type fakeProvider struct {
	result ports.PushResult
	err    error
}

func (p *fakeProvider) InitiatePush(ctx context.Context, amount float64, phone string) (string, error) {
	return "REF-1", nil
}

func (p *fakeProvider) PollStatus(ctx context.Context, reference string) (ports.PushResult, error) {
	return p.result, p.err
}

func newDeps(t *testing.T, duration time.Duration) (*ledger.Service, *memstore.UserStore, *notify.Notifier, *fakeClient, *domain.SystemConfig) {
	t.Helper()
	store := memstore.NewUserStore()
	cfg := domain.NewSystemConfig(domain.Settings{
		EarningPercentage:  10,
		ReferralPercentage: 5,
		InvestmentDuration: duration,
		MinInvestment:      1000,
		MaxInvestment:      150000,
		MinWithdrawal:      1000,
		MaxWithdrawal:      1000000,
		SuperAdmin:         "0700000000",
		Admins:             []string{"0700000000"},
	})
	log := zerolog.Nop()
	svc := ledger.NewService(store, cfg, &log)
	client := newFakeClient()
	notifier := notify.New(store, client, cfg, &log)
	return svc, store, notifier, client, cfg
}

func TestMaturationSweepNotifiesCreditedUsers(t *testing.T) {
	// Zero duration matures investments on the very next sweep.
	svc, store, notifier, client, _ := newDeps(t, 0)

	_, err := svc.RegisterUser(context.Background(), ledger.RegistrationParams{
		ChatID: "c1", FirstName: "Jane", SecondName: "Doe", Phone: "0712345678",
		WithdrawalPIN: "1234", SecurityPIN: "5678",
	})
	require.NoError(t, err)
	_, err = svc.ConfirmAutomaticDeposit(context.Background(), "0712345678", 5000, "T")
	require.NoError(t, err)
	_, _, err = svc.Invest(context.Background(), "0712345678", 2000)
	require.NoError(t, err)

	log := zerolog.Nop()
	m := NewMaturation(svc, notifier, &log)
	m.sweep(context.Background())

	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, domain.InvestmentCompleted, user.Investments[0].Status)
	assert.Equal(t, 5200.0, user.AccountBalance)
	assert.Contains(t, client.last("c1"), "matured")

	// A second sweep finds nothing and sends nothing.
	before := len(client.sent["c1"])
	m.sweep(context.Background())
	assert.Equal(t, before, len(client.sent["c1"]))
}

func TestPollRegistryDeduplicatesReferences(t *testing.T) {
	svc, _, notifier, _, cfg := newDeps(t, time.Hour)
	log := zerolog.Nop()
	r := NewPollRegistry(svc, &fakeProvider{result: ports.PushResult{Status: ports.PushPending}}, notifier, cfg, &log)

	r.Watch("0712345678", "c1", 2000, "REF-1")
	r.Watch("0712345678", "c1", 2000, "REF-1")

	r.mu.Lock()
	assert.Len(t, r.pending, 1)
	r.mu.Unlock()

	r.Shutdown()
}

func TestPollRegistryShutdownStopsPromptly(t *testing.T) {
	svc, _, notifier, _, cfg := newDeps(t, time.Hour)
	log := zerolog.Nop()
	r := NewPollRegistry(svc, &fakeProvider{result: ports.PushResult{Status: ports.PushPending}}, notifier, cfg, &log)

	r.Watch("0712345678", "c1", 2000, "REF-1")

	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete in time")
	}

	// A closed registry refuses new work.
	r.Watch("0712345678", "c1", 2000, "REF-2")
	r.mu.Lock()
	assert.Empty(t, r.pending)
	r.mu.Unlock()
}
