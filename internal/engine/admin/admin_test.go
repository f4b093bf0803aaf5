package admin

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"PesaVault/internal/adapters/memstore"
	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
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

type fixture struct {
	proc   *Processor
	client *fakeClient
	store  *memstore.UserStore
	ledger *ledger.Service
	cfg    *domain.SystemConfig
	super  *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.NewUserStore()
	cfg := domain.NewSystemConfig(domain.Settings{
		EarningPercentage:  10,
		ReferralPercentage: 5,
		InvestmentDuration: time.Hour,
		MinInvestment:      1000,
		MaxInvestment:      150000,
		MinWithdrawal:      1000,
		MaxWithdrawal:      1000000,
		SuperAdmin:         "0700000000",
		Admins:             []string{"0700000000"},
	})
	log := zerolog.Nop()
	ledgerSvc := ledger.NewService(store, cfg, &log)
	client := newFakeClient()
	notifier := notify.New(store, client, cfg, &log)
	proc := New(ledgerSvc, store, cfg, client, notifier, &log)

	super, err := ledgerSvc.RegisterUser(context.Background(), ledger.RegistrationParams{
		ChatID: "admin-chat", FirstName: "Ada", SecondName: "Admin", Phone: "0700000000",
		WithdrawalPIN: "1234", SecurityPIN: "5678",
	})
	require.NoError(t, err)

	return &fixture{proc: proc, client: client, store: store, ledger: ledgerSvc, cfg: cfg, super: super}
}

func (f *fixture) addUser(t *testing.T, phone, chatID string) *domain.User {
	t.Helper()
	user, err := f.ledger.RegisterUser(context.Background(), ledger.RegistrationParams{
		ChatID: chatID, FirstName: "Test", SecondName: "User", Phone: phone,
		WithdrawalPIN: "1234", SecurityPIN: "5678",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) run(t *testing.T, caller *domain.User, line string) string {
	t.Helper()
	require.NoError(t, f.proc.Handle(context.Background(), caller, line))
	return f.client.last(caller.ChatID)
}

func TestHelp(t *testing.T) {
	f := newFixture(t)
	reply := f.run(t, f.super, "admin cmd")
	assert.Contains(t, reply, "Admin Commands")

	reply = f.run(t, f.super, "admin bogus")
	assert.Contains(t, reply, "Unknown command")
}

func TestApproveDepositCommand(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "0712345678", "u-chat")
	dep, err := f.ledger.RecordManualDeposit(context.Background(), "0712345678", 3000)
	require.NoError(t, err)

	reply := f.run(t, f.super, "admin approve deposit "+dep.ID)
	assert.Contains(t, reply, "approved")

	user, _ := f.store.Get(context.Background(), "0712345678")
	assert.Equal(t, 3000.0, user.AccountBalance)
	assert.Contains(t, f.client.last("u-chat"), "approved")

	// Settling twice reports but does not double-credit.
	reply = f.run(t, f.super, "admin approve deposit "+dep.ID)
	assert.Contains(t, reply, "already settled")
	user, _ = f.store.Get(context.Background(), "0712345678")
	assert.Equal(t, 3000.0, user.AccountBalance)
}

func TestRejectWithdrawalCommandRefunds(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "0712345678", "u-chat")
	_, err := f.ledger.ConfirmAutomaticDeposit(context.Background(), "0712345678", 5000, "T")
	require.NoError(t, err)
	wd, err := f.ledger.RequestWithdrawal(context.Background(), "0712345678", domain.SourceAccountBalance, 2000, "0799999999")
	require.NoError(t, err)

	reply := f.run(t, f.super, "admin reject withdrawal "+wd.ID+" wrong payout number")
	assert.Contains(t, reply, "rejected")

	user, _ := f.store.Get(context.Background(), "0712345678")
	assert.Equal(t, 5000.0, user.AccountBalance)
	assert.Contains(t, f.client.last("u-chat"), "wrong payout number")
}

func TestApproveUnknownID(t *testing.T) {
	f := newFixture(t)
	reply := f.run(t, f.super, "admin approve deposit DEP-MISSING1")
	assert.Contains(t, reply, "No transaction found")
}

func TestBanAndUnban(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "0712345678", "u-chat")

	reply := f.run(t, f.super, "admin ban 0712345678 chargeback fraud")
	assert.Contains(t, reply, "banned")

	user, _ := f.store.Get(context.Background(), "0712345678")
	assert.True(t, user.Banned)
	assert.Equal(t, "chargeback fraud", user.BannedReason)
	assert.Contains(t, f.client.last("u-chat"), "banned")

	reply = f.run(t, f.super, "admin unban 0712345678")
	assert.Contains(t, reply, "unbanned")
	user, _ = f.store.Get(context.Background(), "0712345678")
	assert.False(t, user.Banned)
}

func TestSuperAdminCannotBeBanned(t *testing.T) {
	f := newFixture(t)
	reply := f.run(t, f.super, "admin ban 0700000000 test")
	assert.Contains(t, reply, "cannot be banned")
}

func TestResetPIN(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "0712345678", "u-chat")

	reply := f.run(t, f.super, "admin resetpin 0712345678 9999")
	assert.Contains(t, reply, "PIN reset")
	user, _ := f.store.Get(context.Background(), "0712345678")
	assert.Equal(t, "9999", user.WithdrawalPIN)
	assert.Equal(t, "5678", user.SecurityPIN)

	reply = f.run(t, f.super, "admin resetpin 0712345678 1111 login")
	assert.Contains(t, reply, "PIN reset")
	user, _ = f.store.Get(context.Background(), "0712345678")
	assert.Equal(t, "1111", user.SecurityPIN)

	reply = f.run(t, f.super, "admin resetpin 0712345678 12345")
	assert.Contains(t, reply, "4 digits")
}

func TestSettingsCommands(t *testing.T) {
	f := newFixture(t)

	f.run(t, f.super, "admin setearn 12")
	f.run(t, f.super, "admin setreferral 7.5")
	f.run(t, f.super, "admin setduration 90")
	f.run(t, f.super, "admin setmininvestment 500")
	f.run(t, f.super, "admin setmaxwithdrawal 2000000")
	f.run(t, f.super, "admin setdeposit 0733000000 Pay via till 12345")

	st := f.cfg.Get()
	assert.Equal(t, 12.0, st.EarningPercentage)
	assert.Equal(t, 7.5, st.ReferralPercentage)
	assert.Equal(t, 90*time.Minute, st.InvestmentDuration)
	assert.Equal(t, 500.0, st.MinInvestment)
	assert.Equal(t, 2000000.0, st.MaxWithdrawal)
	assert.Equal(t, "0733000000", st.DepositNumber)
	assert.Equal(t, "Pay via till 12345", st.DepositInstructions)

	reply := f.run(t, f.super, "admin setearn 150")
	assert.Contains(t, reply, "between 0 and 100")
	assert.Equal(t, 12.0, f.cfg.Get().EarningPercentage)
}

func TestAdminListManagement(t *testing.T) {
	f := newFixture(t)
	other := f.addUser(t, "0712345678", "u-chat")

	// A plain admin cannot manage the list.
	f.cfg.Update(func(s *domain.Settings) { s.Admins = append(s.Admins, other.Phone) })
	reply := f.run(t, other, "admin addadmin 0722222222")
	assert.Contains(t, reply, "Only the super admin")

	reply = f.run(t, f.super, "admin addadmin 0722222222")
	assert.Contains(t, reply, "now an admin")
	assert.True(t, f.cfg.IsAdmin("0722222222"))

	reply = f.run(t, f.super, "admin removeadmin 0722222222")
	assert.Contains(t, reply, "no longer an admin")
	assert.False(t, f.cfg.IsAdmin("0722222222"))

	reply = f.run(t, f.super, "admin removeadmin 0700000000")
	assert.Contains(t, reply, "cannot be removed")
	assert.True(t, f.cfg.IsAdmin("0700000000"))
}

func TestBulkBroadcast(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "0712345678", "u1")
	f.addUser(t, "0722222222", "u2")
	banned := f.addUser(t, "0733333333", "u3")
	_, err := f.ledger.SetBanned(context.Background(), banned.Phone, true, "fraud")
	require.NoError(t, err)

	reply := f.run(t, f.super, "admin bulk System maintenance at midnight")
	// Super admin plus two active users; the banned one is skipped.
	assert.Contains(t, reply, "3 user(s)")
	assert.True(t, strings.Contains(f.client.last("u1"), "System maintenance"))
	assert.True(t, strings.Contains(f.client.last("u2"), "System maintenance"))
	assert.Empty(t, f.client.last("u3"))
}

func TestViewUsers(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "0712345678", "u-chat")

	reply := f.run(t, f.super, "admin view users")
	assert.Contains(t, reply, "0712345678")
	assert.Contains(t, reply, "0700000000")
}
