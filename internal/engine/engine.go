package engine

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/ports"
	"PesaVault/internal/engine/admin"
	"PesaVault/internal/metrics"
	"PesaVault/internal/notify"

	"github.com/rs/zerolog"
)

// DepositWatcher starts background status polling for an initiated push
// payment. Implemented by the scheduler's poll registry.
type DepositWatcher interface {
	Watch(phone, chatID string, amount float64, reference string)
}

// Engine is the conversation state machine. Every inbound message is
// resolved against the sender's session and dispatched to the handler for
// the session's current state.
type Engine struct {
	sessions ports.SessionStore
	users    ports.UserStore
	ledger   *ledger.Service
	cfg      *domain.SystemConfig
	client   ports.ChatClient
	notifier *notify.Notifier
	payments ports.PaymentProvider
	watcher  DepositWatcher
	admin    *admin.Processor
	log      zerolog.Logger
}

// New creates the engine.
func New(
	sessions ports.SessionStore,
	users ports.UserStore,
	ledgerSvc *ledger.Service,
	cfg *domain.SystemConfig,
	client ports.ChatClient,
	notifier *notify.Notifier,
	payments ports.PaymentProvider,
	watcher DepositWatcher,
	adminProc *admin.Processor,
	baseLogger *zerolog.Logger,
) *Engine {
	return &Engine{
		sessions: sessions,
		users:    users,
		ledger:   ledgerSvc,
		cfg:      cfg,
		client:   client,
		notifier: notifier,
		payments: payments,
		watcher:  watcher,
		admin:    adminProc,
		log:      baseLogger.With().Str("component", "engine").Logger(),
	}
}

// Handle processes one inbound message to completion. Malformed input
// never corrupts state: validation failures re-prompt in place.
func (e *Engine) Handle(ctx context.Context, msg ports.IncomingMessage) error {
	text := strings.TrimSpace(msg.Text)
	lower := strings.ToLower(text)

	log := e.log.With().Str("chat_id", msg.ChatID).Logger()
	ctx = log.WithContext(ctx)

	session, err := e.sessions.Get(ctx, msg.ChatID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load session")
		metrics.MessagesHandled.WithLabelValues("error").Inc()
		return e.send(ctx, msg.ChatID, "An internal error occurred. Please try again.")
	}
	if session == nil {
		session = &domain.Session{ChatID: msg.ChatID, State: domain.StateInit}
	}

	user, err := e.users.GetByChatID(ctx, msg.ChatID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load user")
		metrics.MessagesHandled.WithLabelValues("error").Inc()
		return e.send(ctx, msg.ChatID, "An internal error occurred. Please try again.")
	}

	if err := e.route(ctx, session, user, text, lower); err != nil {
		log.Error().Err(err).Str("state", string(session.State)).Msg("Handler failed")
		metrics.MessagesHandled.WithLabelValues("error").Inc()
		return err
	}

	if err := e.sessions.Put(ctx, session); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
		metrics.MessagesHandled.WithLabelValues("error").Inc()
		return err
	}
	metrics.MessagesHandled.WithLabelValues("ok").Inc()
	return nil
}

func (e *Engine) route(ctx context.Context, session *domain.Session, user *domain.User, text, lower string) error {
	// Banned accounts are refused everything.
	if user != nil && user.Banned {
		reason := user.BannedReason
		if reason == "" {
			reason = "Not specified"
		}
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("💔 You are banned.\nReason: %s\nContact support if you believe this is an error.", reason))
	}

	// Keyword entry points work from any state.
	switch lower {
	case "login":
		session.ResetToInit()
		session.State = domain.StateLoginPhone
		return e.send(ctx, session.ChatID, "🔑 Enter your registered phone number:")
	case "register":
		if user != nil {
			return e.send(ctx, session.ChatID, "You already have an account. Type \"00\" for the Main Menu.")
		}
		session.ResetToInit()
		session.State = domain.StateAwaitingFirstName
		return e.send(ctx, session.ChatID, "👋 Let's register! Enter your first name:")
	case "forgot pin":
		session.ResetToInit()
		session.State = domain.StateForgotPIN
		return e.send(ctx, session.ChatID, "😥 Enter your registered phone number for PIN reset:")
	case "block":
		return e.send(ctx, session.ChatID, "🚫 New device access blocked. Contact support immediately.")
	}

	// Referral deep link: "REF<code>" starts registration with the code
	// pre-seeded, provided it resolves.
	if user == nil && strings.HasPrefix(text, "REF") && len(text) > 3 {
		return e.handleReferralLink(ctx, session, text[3:])
	}

	// Global interrupts.
	if text == "00" {
		if user == nil {
			return e.send(ctx, session.ChatID, "❓ You are not logged in. Type \"register\" or \"login\" first.")
		}
		session.ResetToMenu()
		return e.send(ctx, session.ChatID, mainMenuText())
	}
	if text == "0" {
		if user == nil {
			return e.send(ctx, session.ChatID, "❓ Nothing to cancel. Type \"register\" or \"login\" first.")
		}
		session.ResetToMenu()
		return e.send(ctx, session.ChatID, "🔙 Operation cancelled. Type \"00\" for the Main Menu.")
	}

	// In-band admin command surface.
	if strings.HasPrefix(lower, "admin") && user != nil && e.cfg.IsAdmin(user.Phone) {
		return e.admin.Handle(ctx, user, text)
	}

	// Unauthenticated states.
	switch session.State {
	case domain.StateInit:
		return e.send(ctx, session.ChatID, "❓ Type \"register\" to begin or \"login\" if you have an account.")
	case domain.StateAwaitingFirstName, domain.StateAwaitingSecondName,
		domain.StateAwaitingReferralCode, domain.StateAwaitingPhone,
		domain.StateAwaitingWithdrawalPIN, domain.StateAwaitingSecurityPIN:
		return e.handleRegistration(ctx, session, text)
	case domain.StateLoginPhone, domain.StateLoginPIN:
		return e.handleLogin(ctx, session, text)
	case domain.StateForgotPIN:
		return e.handleForgotPIN(ctx, session, text)
	}

	// Everything below requires an authenticated user.
	if user == nil {
		session.ResetToInit()
		return e.send(ctx, session.ChatID, "❓ Please type \"login\" to access your account.")
	}

	switch session.State {
	case domain.StateMenu:
		return e.handleMenu(ctx, session, user, text)
	case domain.StateCheckBalanceMenu:
		return e.handleBalanceMenu(ctx, session, user, text)
	case domain.StateInvest, domain.StateConfirmInvestment:
		return e.handleInvest(ctx, session, user, text)
	case domain.StateWithdraw, domain.StateWithdrawAmount,
		domain.StateWithdrawPayout, domain.StateWithdrawPIN:
		return e.handleWithdraw(ctx, session, user, text)
	case domain.StateChooseDepositMethod, domain.StateAutoDepositAmount,
		domain.StateAutoDepositPhone, domain.StateManualDepositAmount:
		return e.handleDeposit(ctx, session, user, text)
	case domain.StateChangePIN, domain.StateNewPIN:
		return e.handleChangePIN(ctx, session, user, text)
	default:
		e.log.Warn().Str("state", string(session.State)).Msg("Message in unrecognized state")
		session.ResetToMenu()
		return e.send(ctx, session.ChatID, "😕 Unrecognized state. Type \"00\" for the Main Menu.")
	}
}

func (e *Engine) send(ctx context.Context, chatID, text string) error {
	return e.client.SendMessage(ctx, chatID, text)
}

// pinEqual compares PINs in constant time. It never reveals which of the
// two credentials was wrong.
func pinEqual(entered, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(entered), []byte(stored)) == 1
}

func mainMenuText() string {
	return "🌟 Main Menu 🌟\n" +
		"1. Invest 💰\n" +
		"2. Check Balance 🔍\n" +
		"3. Withdraw Earnings 💸\n" +
		"4. Deposit Funds 💵\n" +
		"5. Change PIN 🔑\n" +
		"6. My Referral Link 🔗\n" +
		"7. View Withdrawal Status 📋\n" +
		"8. View My Referrals 👥\n" +
		"Type the option number (or \"00\" to see this menu again)."
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}
