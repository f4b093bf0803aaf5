package engine

import (
	"context"
	"fmt"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/validate"
)

func (e *Engine) handleDeposit(ctx context.Context, session *domain.Session, user *domain.User, text string) error {
	st := e.cfg.Get()
	switch session.State {
	case domain.StateChooseDepositMethod:
		switch text {
		case "1":
			session.DepositMethod = "automatic"
			session.State = domain.StateAutoDepositAmount
			return e.send(ctx, session.ChatID, "💵 Enter the deposit amount:")
		case "2":
			session.DepositMethod = "manual"
			session.State = domain.StateManualDepositAmount
			return e.send(ctx, session.ChatID, "💵 Enter the deposit amount:")
		default:
			return e.send(ctx, session.ChatID,
				"❓ Reply with 1 for automatic deposit or 2 for manual deposit instructions.")
		}

	case domain.StateAutoDepositAmount:
		amount, ok := validate.Amount(text)
		if !ok {
			return e.send(ctx, session.ChatID, "❌ Enter a valid deposit amount greater than zero.")
		}
		session.DepositAmount = amount
		session.State = domain.StateAutoDepositPhone
		return e.send(ctx, session.ChatID,
			"📱 Enter the phone number to charge (must start with 07 or 01, 10 digits):")

	case domain.StateAutoDepositPhone:
		if !validate.Phone(text) {
			return e.send(ctx, session.ChatID,
				"❌ Invalid phone number. Re-enter a valid 10-digit number starting with 07 or 01.")
		}

		reference, err := e.payments.InitiatePush(ctx, session.DepositAmount, text)
		if err != nil {
			// The provider being down must not strand the deposit; fall
			// back to the manual flow.
			e.log.Error().Err(err).Msg("Failed to initiate push payment")
			session.ResetToMenu()
			return e.send(ctx, session.ChatID,
				fmt.Sprintf("⚠️ Automatic deposit is unavailable right now. Please deposit manually:\nPay to: %s\n%s\nType \"00\" for the Main Menu.",
					st.DepositNumber, st.DepositInstructions))
		}

		e.watcher.Watch(user.Phone, session.ChatID, session.DepositAmount, reference)
		amount := session.DepositAmount
		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("🚀 Payment push of Ksh %.2f sent to %s. Enter your provider PIN on your phone to complete it.\nWe'll confirm automatically within a minute.",
				amount, text))

	case domain.StateManualDepositAmount:
		amount, ok := validate.Amount(text)
		if !ok {
			return e.send(ctx, session.ChatID, "❌ Enter a valid deposit amount greater than zero.")
		}

		dep, err := e.ledger.RecordManualDeposit(ctx, user.Phone, amount)
		if err != nil {
			return err
		}

		e.notifier.Admins(ctx,
			fmt.Sprintf("🔔 Manual Deposit:\nUser: %s (Phone: %s)\nAmount: Ksh %.2f\nID: %s\nAwaiting review.",
				user.FullName(), user.Phone, dep.Amount, dep.ID))
		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("💵 Deposit Request Received!\nID: %s\nAmount: Ksh %.2f\nPay to: %s\n%s\nStatus: Under review.\nType \"00\" for the Main Menu.",
				dep.ID, dep.Amount, st.DepositNumber, st.DepositInstructions))
	}
	return nil
}
