package ledger

import (
	"context"
	"testing"
	"time"

	"PesaVault/internal/adapters/memstore"
	"PesaVault/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *memstore.UserStore) {
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
	return NewService(store, cfg, &log), store
}

func register(t *testing.T, svc *Service, phone, referredBy string) *domain.User {
	t.Helper()
	user, err := svc.RegisterUser(context.Background(), RegistrationParams{
		ChatID:        "chat-" + phone,
		FirstName:     "Test",
		SecondName:    "User",
		Phone:         phone,
		WithdrawalPIN: "1234",
		SecurityPIN:   "5678",
		ReferredBy:    referredBy,
	})
	require.NoError(t, err)
	return user
}

func fund(t *testing.T, store *memstore.UserStore, phone string, amount float64) {
	t.Helper()
	user, err := store.Get(context.Background(), phone)
	require.NoError(t, err)
	require.NotNil(t, user)
	user.AccountBalance += amount
	require.NoError(t, store.Put(context.Background(), user))
}

func TestRegisterUser_DuplicatePhone(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "0712345678", "")

	_, err := svc.RegisterUser(context.Background(), RegistrationParams{
		Phone: "0712345678", FirstName: "Other",
	})
	assert.ErrorIs(t, err, ErrPhoneTaken)
}

func TestInvest_DebitsPrincipalAndComputesReturn(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")
	fund(t, store, "0712345678", 5000)

	inv, bonus, err := svc.Invest(context.Background(), "0712345678", 2000)
	require.NoError(t, err)
	assert.Nil(t, bonus)
	assert.Equal(t, 2000.0, inv.Amount)
	assert.Equal(t, 200.0, inv.ExpectedReturn)
	assert.Equal(t, domain.InvestmentActive, inv.Status)

	user, err := store.Get(context.Background(), "0712345678")
	require.NoError(t, err)
	assert.Equal(t, 3000.0, user.AccountBalance)
	assert.Len(t, user.Investments, 1)
}

func TestInvest_Bounds(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")
	fund(t, store, "0712345678", 500000)

	_, _, err := svc.Invest(context.Background(), "0712345678", 999)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, _, err = svc.Invest(context.Background(), "0712345678", 150001)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestInvest_InsufficientFunds(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")
	fund(t, store, "0712345678", 1500)

	_, _, err := svc.Invest(context.Background(), "0712345678", 2000)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Failed investment must not touch the balance.
	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, 1500.0, user.AccountBalance)
	assert.Empty(t, user.Investments)
}

func TestInvest_ReferralBonusFiresExactlyOnce(t *testing.T) {
	svc, store := newTestService(t)
	referrer := register(t, svc, "0711111111", "")
	register(t, svc, "0722222222", referrer.ReferralCode)
	fund(t, store, "0722222222", 10000)

	_, bonus, err := svc.Invest(context.Background(), "0722222222", 1000)
	require.NoError(t, err)
	require.NotNil(t, bonus)
	assert.Equal(t, 50.0, bonus.Amount) // 5% of 1000
	assert.Equal(t, "0711111111", bonus.Referrer.Phone)

	got, _ := store.Get(context.Background(), "0711111111")
	assert.Equal(t, 50.0, got.ReferralEarnings)
	assert.Equal(t, []string{"0722222222"}, got.Referrals)

	// Second investment: no bonus, earnings unchanged.
	_, bonus, err = svc.Invest(context.Background(), "0722222222", 1000)
	require.NoError(t, err)
	assert.Nil(t, bonus)

	got, _ = store.Get(context.Background(), "0711111111")
	assert.Equal(t, 50.0, got.ReferralEarnings)
	assert.Len(t, got.Referrals, 1)
}

func TestInvest_NoBonusForUnresolvableCode(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "ADMIN-XXXXX")
	fund(t, store, "0712345678", 5000)

	_, bonus, err := svc.Invest(context.Background(), "0712345678", 1000)
	require.NoError(t, err)
	assert.Nil(t, bonus)
}

func TestManualDeposit_CreditsOnlyOnApproval(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")

	dep, err := svc.RecordManualDeposit(context.Background(), "0712345678", 3000)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositUnderReview, dep.Status)

	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, 0.0, user.AccountBalance)

	_, approved, err := svc.ApproveDeposit(context.Background(), dep.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositApproved, approved.Status)

	user, _ = store.Get(context.Background(), "0712345678")
	assert.Equal(t, 3000.0, user.AccountBalance)

	// Approving again must not double-credit.
	_, _, err = svc.ApproveDeposit(context.Background(), dep.ID)
	assert.ErrorIs(t, err, ErrAlreadySettled)
	user, _ = store.Get(context.Background(), "0712345678")
	assert.Equal(t, 3000.0, user.AccountBalance)
}

func TestRejectDeposit_NoCredit(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")

	dep, err := svc.RecordManualDeposit(context.Background(), "0712345678", 3000)
	require.NoError(t, err)

	_, rejected, err := svc.RejectDeposit(context.Background(), dep.ID, "no payment received")
	require.NoError(t, err)
	assert.Equal(t, domain.DepositRejected, rejected.Status)
	assert.Equal(t, "no payment received", rejected.RejectReason)

	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, 0.0, user.AccountBalance)

	// A rejected deposit can no longer be approved.
	_, _, err = svc.ApproveDeposit(context.Background(), dep.ID)
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestConfirmAutomaticDeposit(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")

	dep, err := svc.ConfirmAutomaticDeposit(context.Background(), "0712345678", 2500, "MPESA-REF-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DepositApproved, dep.Status)
	assert.Equal(t, "MPESA-REF-1", dep.ProviderReference)

	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, 2500.0, user.AccountBalance)
}

func TestRequestWithdrawal_DebitsAtRequestTime(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")
	fund(t, store, "0712345678", 5000)

	wd, err := svc.RequestWithdrawal(context.Background(), "0712345678", domain.SourceAccountBalance, 2000, "0799999999")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, wd.Status)

	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, 3000.0, user.AccountBalance)

	// Approval only flips the status; no further debit.
	_, approved, err := svc.ApproveWithdrawal(context.Background(), wd.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, approved.Status)

	user, _ = store.Get(context.Background(), "0712345678")
	assert.Equal(t, 3000.0, user.AccountBalance)
}

func TestRequestWithdrawal_BucketIsolation(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")
	fund(t, store, "0712345678", 5000)

	// Account funds cannot back a referral-earnings withdrawal.
	_, err := svc.RequestWithdrawal(context.Background(), "0712345678", domain.SourceReferralEarnings, 1000, "0799999999")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, 5000.0, user.AccountBalance)
	assert.Equal(t, 0.0, user.ReferralEarnings)
}

func TestRejectWithdrawal_RefundsSourceBucket(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")
	fund(t, store, "0712345678", 5000)

	wd, err := svc.RequestWithdrawal(context.Background(), "0712345678", domain.SourceAccountBalance, 2000, "0799999999")
	require.NoError(t, err)

	_, rejected, err := svc.RejectWithdrawal(context.Background(), wd.ID, "suspicious activity")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, rejected.Status)

	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, 5000.0, user.AccountBalance)

	// A second reject must not refund again.
	_, _, err = svc.RejectWithdrawal(context.Background(), wd.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadySettled)
	user, _ = store.Get(context.Background(), "0712345678")
	assert.Equal(t, 5000.0, user.AccountBalance)
}

func TestMatureDue_CreditsExactlyOnce(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")
	fund(t, store, "0712345678", 5000)

	now := time.Now()
	svc.now = func() time.Time { return now }

	_, _, err := svc.Invest(context.Background(), "0712345678", 2000)
	require.NoError(t, err)

	// Not yet due.
	svc.now = func() time.Time { return now.Add(30 * time.Minute) }
	matured, err := svc.MatureDue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matured)

	// Due: principal plus earnings come back.
	svc.now = func() time.Time { return now.Add(61 * time.Minute) }
	matured, err = svc.MatureDue(context.Background())
	require.NoError(t, err)
	require.Len(t, matured, 1)
	assert.Equal(t, 2000.0, matured[0].Amount)
	assert.Equal(t, 200.0, matured[0].Earnings)
	assert.Equal(t, 2200.0, matured[0].Credited)

	user, _ := store.Get(context.Background(), "0712345678")
	assert.Equal(t, 5200.0, user.AccountBalance)
	assert.Equal(t, domain.InvestmentCompleted, user.Investments[0].Status)
	require.NotNil(t, user.Investments[0].MaturedAt)

	// A second sweep must be a no-op.
	matured, err = svc.MatureDue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matured)
	user, _ = store.Get(context.Background(), "0712345678")
	assert.Equal(t, 5200.0, user.AccountBalance)
}

func TestBindChatID_ReturnsPrevious(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "0712345678", "")

	previous, err := svc.BindChatID(context.Background(), "0712345678", "new-chat")
	require.NoError(t, err)
	assert.Equal(t, "chat-0712345678", previous)
}

func TestSetBanned(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "0712345678", "")

	_, err := svc.SetBanned(context.Background(), "0712345678", true, "fraud")
	require.NoError(t, err)
	user, _ := store.Get(context.Background(), "0712345678")
	assert.True(t, user.Banned)
	assert.Equal(t, "fraud", user.BannedReason)

	_, err = svc.SetBanned(context.Background(), "0712345678", false, "")
	require.NoError(t, err)
	user, _ = store.Get(context.Background(), "0712345678")
	assert.False(t, user.Banned)
	assert.Empty(t, user.BannedReason)
}

func TestIDFormats(t *testing.T) {
	assert.Regexp(t, `^INV-[A-Z0-9]{5}$`, NewReferralCode())
	assert.Regexp(t, `^ADMIN-[A-Z0-9]{5}$`, NewAdminReferralCode())
	assert.Regexp(t, `^DEP-[A-Z0-9]{8}$`, NewDepositID())
	assert.Regexp(t, `^WD-[A-Z0-9]{4}$`, NewWithdrawalID())
}
