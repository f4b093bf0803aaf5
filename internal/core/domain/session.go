package domain

// SessionState is a custom type for the conversation state machine ENUM.
type SessionState string

const (
	StateInit SessionState = "init"

	// Registration
	StateAwaitingFirstName     SessionState = "awaiting_first_name"
	StateAwaitingSecondName    SessionState = "awaiting_second_name"
	StateAwaitingReferralCode  SessionState = "awaiting_referral_code"
	StateAwaitingPhone         SessionState = "awaiting_phone"
	StateAwaitingWithdrawalPIN SessionState = "awaiting_withdrawal_pin"
	StateAwaitingSecurityPIN   SessionState = "awaiting_security_pin"

	// Login
	StateLoginPhone SessionState = "login_phone"
	StateLoginPIN   SessionState = "login_pin"

	// Forgot PIN
	StateForgotPIN SessionState = "forgot_pin"

	// Authenticated root
	StateMenu SessionState = "menu"

	// Invest
	StateInvest            SessionState = "invest"
	StateConfirmInvestment SessionState = "confirm_investment"

	// Balance
	StateCheckBalanceMenu SessionState = "check_balance_menu"

	// Withdraw
	StateWithdraw       SessionState = "withdraw"
	StateWithdrawAmount SessionState = "withdraw_amount"
	StateWithdrawPayout SessionState = "withdraw_payout"
	StateWithdrawPIN    SessionState = "withdraw_pin"

	// Deposit
	StateChooseDepositMethod SessionState = "choose_deposit_method"
	StateAutoDepositAmount   SessionState = "auto_deposit_amount"
	StateAutoDepositPhone    SessionState = "auto_deposit_phone"
	StateManualDepositAmount SessionState = "manual_deposit_amount"

	// Change PIN
	StateChangePIN SessionState = "change_pin"
	StateNewPIN    SessionState = "new_pin"
)

// Session holds the transient conversation state for one chat identity.
// The field bag has a fixed schema: each sub-flow reads and writes only its
// own fields and clears them when the flow completes or is cancelled.
type Session struct {
	ChatID string       `json:"chat_id"`
	State  SessionState `json:"state"`

	// Registration scratch
	FirstName     string `json:"first_name,omitempty"`
	SecondName    string `json:"second_name,omitempty"`
	ReferredBy    string `json:"referred_by,omitempty"`
	Phone         string `json:"phone,omitempty"`
	WithdrawalPIN string `json:"withdrawal_pin,omitempty"`

	// Login scratch
	LoginPhone string `json:"login_phone,omitempty"`

	// Invest scratch
	InvestAmount float64 `json:"invest_amount,omitempty"`

	// Withdraw scratch
	WithdrawSource WithdrawalSource `json:"withdraw_source,omitempty"`
	WithdrawAmount float64          `json:"withdraw_amount,omitempty"`
	PayoutNumber   string           `json:"payout_number,omitempty"`
	WrongPINCount  int              `json:"wrong_pin_count,omitempty"`

	// Deposit scratch
	DepositMethod string  `json:"deposit_method,omitempty"`
	DepositAmount float64 `json:"deposit_amount,omitempty"`
}

// ResetToMenu returns the session to the authenticated root state and
// clears all sub-flow scratch fields.
func (s *Session) ResetToMenu() {
	*s = Session{ChatID: s.ChatID, State: StateMenu}
}

// ResetToInit drops the session back to the unauthenticated entry state.
func (s *Session) ResetToInit() {
	*s = Session{ChatID: s.ChatID, State: StateInit}
}
