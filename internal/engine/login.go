package engine

import (
	"context"
	"fmt"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/validate"
)

func (e *Engine) handleLogin(ctx context.Context, session *domain.Session, text string) error {
	switch session.State {
	case domain.StateLoginPhone:
		user, err := e.users.Get(ctx, text)
		if err != nil {
			return err
		}
		if user == nil {
			session.ResetToInit()
			return e.send(ctx, session.ChatID, "❌ No account found. Type \"register\" to create an account.")
		}
		session.LoginPhone = user.Phone
		session.State = domain.StateLoginPIN
		return e.send(ctx, session.ChatID, "🔑 Enter your security PIN:")

	case domain.StateLoginPIN:
		user, err := e.users.Get(ctx, session.LoginPhone)
		if err != nil {
			return err
		}
		if user == nil {
			session.ResetToInit()
			return e.send(ctx, session.ChatID, "❌ No account found. Type \"register\" to create an account.")
		}
		if !pinEqual(text, user.SecurityPIN) {
			// Retry in place.
			return e.send(ctx, session.ChatID, "❌ Incorrect PIN. Try again.")
		}

		// Last login wins: warn the previous device, then move the binding.
		previous, err := e.ledger.BindChatID(ctx, user.Phone, session.ChatID)
		if err != nil {
			return err
		}
		if previous != "" && previous != session.ChatID {
			e.notifier.Chat(ctx, previous,
				"🔔 Alert: Your account was accessed from a new device. If this wasn't you, type \"block\".")
		}

		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("😊 Welcome back, %s! You are now logged in. Type \"00\" for the Main Menu.\n🔔 If this wasn't you, type \"block\".",
				user.FirstName))
	}
	return nil
}

func (e *Engine) handleForgotPIN(ctx context.Context, session *domain.Session, text string) error {
	if !validate.Phone(text) {
		return e.send(ctx, session.ChatID, "❌ Invalid phone format. Re-enter your registered phone number.")
	}
	e.notifier.Admins(ctx, fmt.Sprintf("⚠️ Forgot PIN: User with phone %s requested a PIN reset.", text))
	session.ResetToInit()
	return e.send(ctx, session.ChatID, "🙏 Thank you. A support ticket has been created. Please wait for assistance.")
}
