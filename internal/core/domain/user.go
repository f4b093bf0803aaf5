package domain

import "time"

// InvestmentStatus is a custom type for the investment lifecycle ENUM.
type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
)

// DepositStatus is a custom type for the deposit lifecycle ENUM.
type DepositStatus string

const (
	DepositUnderReview DepositStatus = "under_review"
	DepositApproved    DepositStatus = "approved"
	DepositRejected    DepositStatus = "rejected"
)

// WithdrawalStatus is a custom type for the withdrawal lifecycle ENUM.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// WithdrawalSource selects which balance bucket a withdrawal debits.
type WithdrawalSource string

const (
	SourceReferralEarnings WithdrawalSource = "referral_earnings"
	SourceAccountBalance   WithdrawalSource = "account_balance"
)

// Investment is a single principal locked for the configured duration.
// Principal is debited from AccountBalance at creation; principal plus
// ExpectedReturn is credited back exactly once at maturation.
type Investment struct {
	Amount         float64          `json:"amount"`
	ExpectedReturn float64          `json:"expected_return"`
	Status         InvestmentStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	MaturedAt      *time.Time       `json:"matured_at,omitempty"`
}

// Deposit is an inbound money request. AccountBalance is credited only on
// the transition into DepositApproved, never at creation.
type Deposit struct {
	ID                string        `json:"id"`
	Amount            float64       `json:"amount"`
	Status            DepositStatus `json:"status"`
	RejectReason      string        `json:"reject_reason,omitempty"`
	ProviderReference string        `json:"provider_reference,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Withdrawal is an outbound money request. The source bucket is debited at
// request time (optimistic debit); rejection refunds it.
type Withdrawal struct {
	ID           string           `json:"id"`
	Amount       float64          `json:"amount"`
	Source       WithdrawalSource `json:"source"`
	Payout       string           `json:"payout"`
	Status       WithdrawalStatus `json:"status"`
	RejectReason string           `json:"reject_reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// User represents a registered account, keyed by phone number.
// ChatID is the chat identity currently bound to this account; it is
// replaced on every successful login (last login wins).
type User struct {
	Phone            string       `json:"phone"`
	ChatID           string       `json:"chat_id"`
	FirstName        string       `json:"first_name"`
	SecondName       string       `json:"second_name"`
	WithdrawalPIN    string       `json:"withdrawal_pin"`
	SecurityPIN      string       `json:"security_pin"`
	ReferralCode     string       `json:"referral_code"`
	ReferredBy       string       `json:"referred_by,omitempty"` // referral code entered at registration
	Referrals        []string     `json:"referrals,omitempty"`   // phones of users this user referred
	AccountBalance   float64      `json:"account_balance"`
	ReferralEarnings float64      `json:"referral_earnings"`
	Investments      []Investment `json:"investments,omitempty"`
	Deposits         []Deposit    `json:"deposits,omitempty"`
	Withdrawals      []Withdrawal `json:"withdrawals,omitempty"`
	Banned           bool         `json:"banned"`
	BannedReason     string       `json:"banned_reason,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// FullName returns "First Second" for display in replies and admin views.
func (u *User) FullName() string {
	return u.FirstName + " " + u.SecondName
}

// FindDeposit returns the deposit with the given ID, or nil.
func (u *User) FindDeposit(id string) *Deposit {
	for i := range u.Deposits {
		if u.Deposits[i].ID == id {
			return &u.Deposits[i]
		}
	}
	return nil
}

// FindWithdrawal returns the withdrawal with the given ID, or nil.
func (u *User) FindWithdrawal(id string) *Withdrawal {
	for i := range u.Withdrawals {
		if u.Withdrawals[i].ID == id {
			return &u.Withdrawals[i]
		}
	}
	return nil
}
