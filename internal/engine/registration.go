package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/validate"
)

// handleReferralLink starts registration from a "REF<code>" deep link.
// An unresolvable code falls through to the normal referral-code prompt.
func (e *Engine) handleReferralLink(ctx context.Context, session *domain.Session, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	session.ResetToInit()
	session.State = domain.StateAwaitingFirstName

	owner, err := e.users.GetByReferralCode(ctx, code)
	if err != nil {
		return err
	}
	if owner != nil {
		session.ReferredBy = code
	}
	return e.send(ctx, session.ChatID, "👋 Welcome! Let's register. Enter your first name:")
}

func (e *Engine) handleRegistration(ctx context.Context, session *domain.Session, text string) error {
	switch session.State {
	case domain.StateAwaitingFirstName:
		if text == "" {
			return e.send(ctx, session.ChatID, "❌ Please enter your first name.")
		}
		session.FirstName = text
		session.State = domain.StateAwaitingSecondName
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("✨ Great, %s! Now, enter your second name:", session.FirstName))

	case domain.StateAwaitingSecondName:
		if text == "" {
			return e.send(ctx, session.ChatID, "❌ Please enter your second name.")
		}
		session.SecondName = text
		if session.ReferredBy != "" {
			// Pre-seeded from a referral deep link; skip the code prompt.
			session.State = domain.StateAwaitingPhone
			return e.send(ctx, session.ChatID,
				"👍 Referral accepted!\nEnter your phone number (e.g. 070XXXXXXXX):")
		}
		session.State = domain.StateAwaitingReferralCode
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("🙏 Thanks, %s %s!\nEnter your referral code.\n(If you don't have one, type \"contact support\".)",
				session.FirstName, session.SecondName))

	case domain.StateAwaitingReferralCode:
		return e.handleReferralCode(ctx, session, text)

	case domain.StateAwaitingPhone:
		if !validate.Phone(text) {
			return e.send(ctx, session.ChatID,
				"❌ Invalid phone format. Must start with 07 or 01 and be 10 digits. Re-enter your phone number.")
		}
		existing, err := e.users.Get(ctx, text)
		if err != nil {
			return err
		}
		if existing != nil {
			// Registration aborts; redirect to the login entry point.
			session.ResetToInit()
			session.State = domain.StateLoginPhone
			return e.send(ctx, session.ChatID,
				"😮 This number is already registered!\n🔑 Enter your registered phone number to log in:")
		}
		session.Phone = text
		session.State = domain.StateAwaitingWithdrawalPIN
		return e.send(ctx, session.ChatID, "🔒 Create a 4-digit PIN for withdrawals:")

	case domain.StateAwaitingWithdrawalPIN:
		if !validate.PIN(text) {
			return e.send(ctx, session.ChatID, "❌ Please enter a valid 4-digit PIN.")
		}
		session.WithdrawalPIN = text
		session.State = domain.StateAwaitingSecurityPIN
		return e.send(ctx, session.ChatID, "Almost done! Create a 4-digit security PIN (for login):")

	case domain.StateAwaitingSecurityPIN:
		if !validate.PIN(text) {
			return e.send(ctx, session.ChatID, "❌ Invalid PIN! Enter a valid 4-digit security PIN.")
		}
		user, err := e.ledger.RegisterUser(ctx, ledger.RegistrationParams{
			ChatID:        session.ChatID,
			FirstName:     session.FirstName,
			SecondName:    session.SecondName,
			Phone:         session.Phone,
			WithdrawalPIN: session.WithdrawalPIN,
			SecurityPIN:   text,
			ReferredBy:    session.ReferredBy,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrPhoneTaken) {
				session.ResetToInit()
				session.State = domain.StateLoginPhone
				return e.send(ctx, session.ChatID,
					"😮 This number is already registered!\n🔑 Enter your registered phone number to log in:")
			}
			return err
		}
		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("✅ Registration successful, %s!\nYour referral code is: %s\nWelcome aboard! 🚀\nType \"00\" for the Main Menu.",
				user.FirstName, user.ReferralCode))
	}
	return nil
}

func (e *Engine) handleReferralCode(ctx context.Context, session *domain.Session, text string) error {
	if strings.EqualFold(text, "contact support") {
		e.notifier.Admins(ctx,
			fmt.Sprintf("⚠️ Support Ticket:\nChat %s requested a referral code.", session.ChatID))
		session.ResetToInit()
		return e.send(ctx, session.ChatID,
			"📞 A support ticket has been created. Our team will contact you with a referral code shortly.")
	}
	if text == "" {
		return e.send(ctx, session.ChatID, "❌ A referral code is required. Contact support to obtain one.")
	}

	code := strings.ToUpper(text)
	st := e.cfg.Get()
	if code != st.AdminReferralCode {
		owner, err := e.users.GetByReferralCode(ctx, code)
		if err != nil {
			return err
		}
		if owner == nil {
			return e.send(ctx, session.ChatID,
				"⚠️ Referral code not found. Contact support for a valid referral code.")
		}
	}
	session.ReferredBy = code
	session.State = domain.StateAwaitingPhone
	return e.send(ctx, session.ChatID, "👍 Referral accepted!\nEnter your phone number (e.g. 070XXXXXXXX):")
}
