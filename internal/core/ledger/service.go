package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ports"
	"PesaVault/internal/metrics"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrPhoneTaken        = errors.New("phone already registered")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAmountOutOfRange  = errors.New("amount out of range")
	ErrAlreadySettled    = errors.New("already settled")
)

// PINKind selects which of the two independent credentials an operation
// targets. The two are never interchangeable.
type PINKind string

const (
	PINWithdrawal PINKind = "withdrawal"
	PINLogin      PINKind = "login"
)

// ReferralBonus reports a bonus credited to a referrer as a side effect of
// a referee's first investment.
type ReferralBonus struct {
	Referrer *domain.User
	Amount   float64
}

// MaturedInvestment reports one investment completed by a sweep.
type MaturedInvestment struct {
	User     *domain.User
	Amount   float64
	Earnings float64
	Credited float64
}

// RegistrationParams carries the fields collected by the registration flow.
type RegistrationParams struct {
	ChatID        string
	FirstName     string
	SecondName    string
	Phone         string
	WithdrawalPIN string
	SecurityPIN   string
	ReferredBy    string
}

// Service owns every mutation of the user ledger. All operations are
// single read-modify-write transactions under the owning user's lock.
type Service struct {
	store ports.UserStore
	cfg   *domain.SystemConfig
	locks *keyedMutex
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates the ledger service.
func NewService(store ports.UserStore, cfg *domain.SystemConfig, baseLogger *zerolog.Logger) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		locks: newKeyedMutex(),
		log:   baseLogger.With().Str("component", "ledger").Logger(),
		now:   time.Now,
	}
}

// RegisterUser creates a new account with a fresh, unique referral code.
func (s *Service) RegisterUser(ctx context.Context, p RegistrationParams) (*domain.User, error) {
	unlock := s.locks.Lock(p.Phone)
	defer unlock()

	existing, err := s.store.Get(ctx, p.Phone)
	if err != nil {
		return nil, fmt.Errorf("check phone: %w", err)
	}
	if existing != nil {
		return nil, ErrPhoneTaken
	}

	code, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Phone:         p.Phone,
		ChatID:        p.ChatID,
		FirstName:     p.FirstName,
		SecondName:    p.SecondName,
		WithdrawalPIN: p.WithdrawalPIN,
		SecurityPIN:   p.SecurityPIN,
		ReferralCode:  code,
		ReferredBy:    p.ReferredBy,
		CreatedAt:     s.now(),
	}
	if err := s.store.Put(ctx, user); err != nil {
		return nil, fmt.Errorf("save new user: %w", err)
	}

	s.log.Info().Str("phone", p.Phone).Str("referral_code", code).Msg("User registered")
	metrics.LedgerOps.WithLabelValues("register", "ok").Inc()
	return user, nil
}

func (s *Service) uniqueReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < 10; i++ {
		code := NewReferralCode()
		owner, err := s.store.GetByReferralCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if owner == nil {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

// BindChatID points the account at a new chat identity (last login wins)
// and returns the previously bound identity.
func (s *Service) BindChatID(ctx context.Context, phone, chatID string) (previous string, err error) {
	unlock := s.locks.Lock(phone)
	defer unlock()

	user, err := s.store.Get(ctx, phone)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrNotFound
	}

	previous = user.ChatID
	user.ChatID = chatID
	if err := s.store.Put(ctx, user); err != nil {
		return "", fmt.Errorf("save chat binding: %w", err)
	}
	return previous, nil
}

// Invest debits the principal, appends an active investment and, on the
// user's first-ever investment, credits the referrer's bonus. The bonus
// never fires on a second or later investment.
func (s *Service) Invest(ctx context.Context, phone string, amount float64) (domain.Investment, *ReferralBonus, error) {
	st := s.cfg.Get()
	if amount < st.MinInvestment || amount > st.MaxInvestment {
		return domain.Investment{}, nil, ErrAmountOutOfRange
	}

	unlock := s.locks.Lock(phone)
	user, err := s.store.Get(ctx, phone)
	if err != nil {
		unlock()
		return domain.Investment{}, nil, err
	}
	if user == nil {
		unlock()
		return domain.Investment{}, nil, ErrNotFound
	}
	if user.AccountBalance < amount {
		unlock()
		metrics.LedgerOps.WithLabelValues("invest", "insufficient").Inc()
		return domain.Investment{}, nil, ErrInsufficientFunds
	}

	inv := domain.Investment{
		Amount:         amount,
		ExpectedReturn: amount * st.EarningPercentage / 100,
		Status:         domain.InvestmentActive,
		CreatedAt:      s.now(),
	}
	user.AccountBalance -= amount
	user.Investments = append(user.Investments, inv)
	firstInvestment := len(user.Investments) == 1

	if err := s.store.Put(ctx, user); err != nil {
		unlock()
		return domain.Investment{}, nil, fmt.Errorf("save investment: %w", err)
	}
	referredBy := user.ReferredBy
	unlock()

	s.log.Info().Str("phone", phone).Float64("amount", amount).Msg("Investment created")
	metrics.LedgerOps.WithLabelValues("invest", "ok").Inc()

	var bonus *ReferralBonus
	if firstInvestment && referredBy != "" {
		bonus, err = s.creditReferralBonus(ctx, referredBy, phone, amount, st.ReferralPercentage)
		if err != nil {
			// The investment itself stands; the bonus failure is logged.
			s.log.Error().Err(err).Str("referred_by", referredBy).Msg("Failed to credit referral bonus")
			return inv, nil, nil
		}
	}
	return inv, bonus, nil
}

// creditReferralBonus runs in its own critical section, after the
// investor's record has been committed, so the two user locks are never
// held at the same time.
func (s *Service) creditReferralBonus(ctx context.Context, code, refereePhone string, amount, pct float64) (*ReferralBonus, error) {
	referrer, err := s.store.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer == nil || referrer.Phone == refereePhone {
		// Admin/system codes resolve to no referrer; nothing to credit.
		return nil, nil
	}

	unlock := s.locks.Lock(referrer.Phone)
	defer unlock()

	referrer, err = s.store.Get(ctx, referrer.Phone)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, nil
	}

	bonus := amount * pct / 100
	referrer.ReferralEarnings += bonus
	referrer.Referrals = append(referrer.Referrals, refereePhone)
	if err := s.store.Put(ctx, referrer); err != nil {
		return nil, fmt.Errorf("save referral bonus: %w", err)
	}

	s.log.Info().Str("referrer", referrer.Phone).Float64("bonus", bonus).Msg("Referral bonus credited")
	metrics.LedgerOps.WithLabelValues("referral_bonus", "ok").Inc()
	return &ReferralBonus{Referrer: referrer, Amount: bonus}, nil
}

// RecordManualDeposit appends an under-review deposit. No balance change.
func (s *Service) RecordManualDeposit(ctx context.Context, phone string, amount float64) (domain.Deposit, error) {
	unlock := s.locks.Lock(phone)
	defer unlock()

	user, err := s.store.Get(ctx, phone)
	if err != nil {
		return domain.Deposit{}, err
	}
	if user == nil {
		return domain.Deposit{}, ErrNotFound
	}

	dep := domain.Deposit{
		ID:        NewDepositID(),
		Amount:    amount,
		Status:    domain.DepositUnderReview,
		CreatedAt: s.now(),
	}
	user.Deposits = append(user.Deposits, dep)
	if err := s.store.Put(ctx, user); err != nil {
		return domain.Deposit{}, fmt.Errorf("save deposit: %w", err)
	}

	metrics.LedgerOps.WithLabelValues("deposit_manual", "ok").Inc()
	return dep, nil
}

// ConfirmAutomaticDeposit records a provider-confirmed deposit as approved
// and credits the balance in the same transaction. The deposit record did
// not exist before confirmation, so there is nothing half-created to leak.
func (s *Service) ConfirmAutomaticDeposit(ctx context.Context, phone string, amount float64, providerRef string) (domain.Deposit, error) {
	unlock := s.locks.Lock(phone)
	defer unlock()

	user, err := s.store.Get(ctx, phone)
	if err != nil {
		return domain.Deposit{}, err
	}
	if user == nil {
		return domain.Deposit{}, ErrNotFound
	}

	dep := domain.Deposit{
		ID:                NewDepositID(),
		Amount:            amount,
		Status:            domain.DepositApproved,
		ProviderReference: providerRef,
		CreatedAt:         s.now(),
	}
	user.Deposits = append(user.Deposits, dep)
	user.AccountBalance += amount
	if err := s.store.Put(ctx, user); err != nil {
		return domain.Deposit{}, fmt.Errorf("save automatic deposit: %w", err)
	}

	s.log.Info().Str("phone", phone).Str("deposit_id", dep.ID).Msg("Automatic deposit confirmed")
	metrics.LedgerOps.WithLabelValues("deposit_auto", "ok").Inc()
	return dep, nil
}

// ApproveDeposit credits the owner's balance exactly once. Approving a
// deposit already in a terminal state returns ErrAlreadySettled.
func (s *Service) ApproveDeposit(ctx context.Context, depositID string) (*domain.User, domain.Deposit, error) {
	owner, err := s.findDepositOwner(ctx, depositID)
	if err != nil {
		return nil, domain.Deposit{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	user, err := s.store.Get(ctx, owner)
	if err != nil {
		return nil, domain.Deposit{}, err
	}
	if user == nil {
		return nil, domain.Deposit{}, ErrNotFound
	}
	dep := user.FindDeposit(depositID)
	if dep == nil {
		return nil, domain.Deposit{}, ErrNotFound
	}
	if dep.Status != domain.DepositUnderReview {
		return user, *dep, ErrAlreadySettled
	}

	dep.Status = domain.DepositApproved
	user.AccountBalance += dep.Amount
	if err := s.store.Put(ctx, user); err != nil {
		return nil, domain.Deposit{}, fmt.Errorf("save deposit approval: %w", err)
	}

	s.log.Info().Str("deposit_id", depositID).Str("phone", owner).Msg("Deposit approved")
	metrics.LedgerOps.WithLabelValues("deposit_approve", "ok").Inc()
	return user, *dep, nil
}

// RejectDeposit marks an under-review deposit rejected with a reason.
func (s *Service) RejectDeposit(ctx context.Context, depositID, reason string) (*domain.User, domain.Deposit, error) {
	owner, err := s.findDepositOwner(ctx, depositID)
	if err != nil {
		return nil, domain.Deposit{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	user, err := s.store.Get(ctx, owner)
	if err != nil {
		return nil, domain.Deposit{}, err
	}
	if user == nil {
		return nil, domain.Deposit{}, ErrNotFound
	}
	dep := user.FindDeposit(depositID)
	if dep == nil {
		return nil, domain.Deposit{}, ErrNotFound
	}
	if dep.Status != domain.DepositUnderReview {
		return user, *dep, ErrAlreadySettled
	}

	dep.Status = domain.DepositRejected
	dep.RejectReason = reason
	if err := s.store.Put(ctx, user); err != nil {
		return nil, domain.Deposit{}, fmt.Errorf("save deposit rejection: %w", err)
	}

	metrics.LedgerOps.WithLabelValues("deposit_reject", "ok").Inc()
	return user, *dep, nil
}

func (s *Service) findDepositOwner(ctx context.Context, depositID string) (string, error) {
	users, err := s.store.All(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.FindDeposit(depositID) != nil {
			return u.Phone, nil
		}
	}
	return "", ErrNotFound
}

// RequestWithdrawal debits the selected bucket immediately and appends a
// pending withdrawal.
func (s *Service) RequestWithdrawal(ctx context.Context, phone string, source domain.WithdrawalSource, amount float64, payout string) (domain.Withdrawal, error) {
	st := s.cfg.Get()
	if amount < st.MinWithdrawal || amount > st.MaxWithdrawal {
		return domain.Withdrawal{}, ErrAmountOutOfRange
	}

	unlock := s.locks.Lock(phone)
	defer unlock()

	user, err := s.store.Get(ctx, phone)
	if err != nil {
		return domain.Withdrawal{}, err
	}
	if user == nil {
		return domain.Withdrawal{}, ErrNotFound
	}

	switch source {
	case domain.SourceReferralEarnings:
		if user.ReferralEarnings < amount {
			return domain.Withdrawal{}, ErrInsufficientFunds
		}
		user.ReferralEarnings -= amount
	case domain.SourceAccountBalance:
		if user.AccountBalance < amount {
			return domain.Withdrawal{}, ErrInsufficientFunds
		}
		user.AccountBalance -= amount
	default:
		return domain.Withdrawal{}, fmt.Errorf("unknown withdrawal source %q", source)
	}

	wd := domain.Withdrawal{
		ID:        NewWithdrawalID(),
		Amount:    amount,
		Source:    source,
		Payout:    payout,
		Status:    domain.WithdrawalPending,
		CreatedAt: s.now(),
	}
	user.Withdrawals = append(user.Withdrawals, wd)
	if err := s.store.Put(ctx, user); err != nil {
		return domain.Withdrawal{}, fmt.Errorf("save withdrawal: %w", err)
	}

	s.log.Info().Str("phone", phone).Str("withdrawal_id", wd.ID).Msg("Withdrawal requested")
	metrics.LedgerOps.WithLabelValues("withdraw_request", "ok").Inc()
	return wd, nil
}

// ApproveWithdrawal settles a pending withdrawal. The funds left the
// bucket at request time, so approval only flips the status.
func (s *Service) ApproveWithdrawal(ctx context.Context, id string) (*domain.User, domain.Withdrawal, error) {
	owner, err := s.findWithdrawalOwner(ctx, id)
	if err != nil {
		return nil, domain.Withdrawal{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	user, err := s.store.Get(ctx, owner)
	if err != nil {
		return nil, domain.Withdrawal{}, err
	}
	if user == nil {
		return nil, domain.Withdrawal{}, ErrNotFound
	}
	wd := user.FindWithdrawal(id)
	if wd == nil {
		return nil, domain.Withdrawal{}, ErrNotFound
	}
	if wd.Status != domain.WithdrawalPending {
		return user, *wd, ErrAlreadySettled
	}

	wd.Status = domain.WithdrawalApproved
	if err := s.store.Put(ctx, user); err != nil {
		return nil, domain.Withdrawal{}, fmt.Errorf("save withdrawal approval: %w", err)
	}

	metrics.LedgerOps.WithLabelValues("withdraw_approve", "ok").Inc()
	return user, *wd, nil
}

// RejectWithdrawal flips a pending withdrawal to rejected and refunds the
// source bucket. The refund happens in the same critical section as the
// status flip, so a repeated reject cannot double-refund.
func (s *Service) RejectWithdrawal(ctx context.Context, id, reason string) (*domain.User, domain.Withdrawal, error) {
	owner, err := s.findWithdrawalOwner(ctx, id)
	if err != nil {
		return nil, domain.Withdrawal{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	user, err := s.store.Get(ctx, owner)
	if err != nil {
		return nil, domain.Withdrawal{}, err
	}
	if user == nil {
		return nil, domain.Withdrawal{}, ErrNotFound
	}
	wd := user.FindWithdrawal(id)
	if wd == nil {
		return nil, domain.Withdrawal{}, ErrNotFound
	}
	if wd.Status != domain.WithdrawalPending {
		return user, *wd, ErrAlreadySettled
	}

	wd.Status = domain.WithdrawalRejected
	wd.RejectReason = reason
	switch wd.Source {
	case domain.SourceReferralEarnings:
		user.ReferralEarnings += wd.Amount
	case domain.SourceAccountBalance:
		user.AccountBalance += wd.Amount
	}
	if err := s.store.Put(ctx, user); err != nil {
		return nil, domain.Withdrawal{}, fmt.Errorf("save withdrawal rejection: %w", err)
	}

	metrics.LedgerOps.WithLabelValues("withdraw_reject", "ok").Inc()
	return user, *wd, nil
}

func (s *Service) findWithdrawalOwner(ctx context.Context, id string) (string, error) {
	users, err := s.store.All(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.FindWithdrawal(id) != nil {
			return u.Phone, nil
		}
	}
	return "", ErrNotFound
}

// MatureDue completes every active investment whose age has reached the
// configured duration, crediting principal plus earnings exactly once per
// investment. An investment already completed is never touched again.
func (s *Service) MatureDue(ctx context.Context) ([]MaturedInvestment, error) {
	st := s.cfg.Get()
	users, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	var matured []MaturedInvestment
	now := s.now()
	for _, candidate := range users {
		unlock := s.locks.Lock(candidate.Phone)

		user, err := s.store.Get(ctx, candidate.Phone)
		if err != nil || user == nil {
			unlock()
			if err != nil {
				s.log.Error().Err(err).Str("phone", candidate.Phone).Msg("Sweep: failed to load user")
			}
			continue
		}

		changed := false
		for i := range user.Investments {
			inv := &user.Investments[i]
			if inv.Status != domain.InvestmentActive {
				continue
			}
			if now.Sub(inv.CreatedAt) < st.InvestmentDuration {
				continue
			}
			credited := inv.Amount + inv.ExpectedReturn
			user.AccountBalance += credited
			inv.Status = domain.InvestmentCompleted
			maturedAt := now
			inv.MaturedAt = &maturedAt
			changed = true
			matured = append(matured, MaturedInvestment{
				User:     user,
				Amount:   inv.Amount,
				Earnings: inv.ExpectedReturn,
				Credited: credited,
			})
			metrics.InvestmentsMatured.Inc()
		}

		if changed {
			if err := s.store.Put(ctx, user); err != nil {
				s.log.Error().Err(err).Str("phone", user.Phone).Msg("Sweep: failed to save matured investments")
				// Drop this user's notices; the credit did not commit and
				// the next sweep will retry.
				matured = trimUser(matured, user.Phone)
			}
		}
		unlock()
	}
	return matured, nil
}

func trimUser(list []MaturedInvestment, phone string) []MaturedInvestment {
	out := list[:0]
	for _, m := range list {
		if m.User.Phone != phone {
			out = append(out, m)
		}
	}
	return out
}

// SetPIN replaces one of the two credentials.
func (s *Service) SetPIN(ctx context.Context, phone string, kind PINKind, pin string) (*domain.User, error) {
	unlock := s.locks.Lock(phone)
	defer unlock()

	user, err := s.store.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	switch kind {
	case PINWithdrawal:
		user.WithdrawalPIN = pin
	case PINLogin:
		user.SecurityPIN = pin
	default:
		return nil, fmt.Errorf("unknown pin kind %q", kind)
	}
	if err := s.store.Put(ctx, user); err != nil {
		return nil, fmt.Errorf("save pin: %w", err)
	}
	return user, nil
}

// SetBanned flips the soft-disable flag. Accounts are never deleted.
func (s *Service) SetBanned(ctx context.Context, phone string, banned bool, reason string) (*domain.User, error) {
	unlock := s.locks.Lock(phone)
	defer unlock()

	user, err := s.store.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	user.Banned = banned
	if banned {
		user.BannedReason = reason
	} else {
		user.BannedReason = ""
	}
	if err := s.store.Put(ctx, user); err != nil {
		return nil, fmt.Errorf("save ban flag: %w", err)
	}
	return user, nil
}
