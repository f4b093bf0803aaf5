package engine

import (
	"context"
	"errors"
	"fmt"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/validate"
)

const maxWithdrawPINAttempts = 2

func (e *Engine) handleWithdraw(ctx context.Context, session *domain.Session, user *domain.User, text string) error {
	st := e.cfg.Get()
	switch session.State {
	case domain.StateWithdraw:
		switch text {
		case "1":
			session.WithdrawSource = domain.SourceReferralEarnings
		case "2":
			session.WithdrawSource = domain.SourceAccountBalance
		default:
			return e.send(ctx, session.ChatID,
				"❓ Reply with 1 for Referral Earnings or 2 for Account Balance.")
		}
		session.State = domain.StateWithdrawAmount
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("💸 Enter the amount you wish to withdraw (min: Ksh %.0f, max: Ksh %.0f):",
				st.MinWithdrawal, st.MaxWithdrawal))

	case domain.StateWithdrawAmount:
		amount, ok := validate.AmountInRange(text, st.MinWithdrawal, st.MaxWithdrawal)
		if !ok {
			return e.send(ctx, session.ChatID,
				fmt.Sprintf("❌ Enter an amount between Ksh %.0f and Ksh %.0f.", st.MinWithdrawal, st.MaxWithdrawal))
		}
		if session.WithdrawSource == domain.SourceReferralEarnings && user.ReferralEarnings < amount {
			session.ResetToMenu()
			return e.send(ctx, session.ChatID,
				fmt.Sprintf("⚠️ Insufficient referral earnings. You have Ksh %.2f.\nType \"00\" for the Main Menu.",
					user.ReferralEarnings))
		}
		if session.WithdrawSource == domain.SourceAccountBalance && user.AccountBalance < amount {
			session.ResetToMenu()
			return e.send(ctx, session.ChatID,
				fmt.Sprintf("⚠️ Insufficient account balance. You have Ksh %.2f.\nType \"00\" for the Main Menu.",
					user.AccountBalance))
		}
		session.WithdrawAmount = amount
		session.State = domain.StateWithdrawPayout
		return e.send(ctx, session.ChatID,
			"📱 Enter your payout number (must start with 07 or 01, 10 digits):")

	case domain.StateWithdrawPayout:
		if !validate.Phone(text) {
			return e.send(ctx, session.ChatID,
				"❌ Invalid payout number. Re-enter a valid 10-digit number starting with 07 or 01.")
		}
		session.PayoutNumber = text
		// Entering the PIN state afresh resets the retry counter.
		session.WrongPINCount = 0
		session.State = domain.StateWithdrawPIN
		return e.send(ctx, session.ChatID, "🔒 Enter your withdrawal PIN:")

	case domain.StateWithdrawPIN:
		if !pinEqual(text, user.WithdrawalPIN) {
			session.WrongPINCount++
			if session.WrongPINCount >= maxWithdrawPINAttempts {
				e.notifier.Admins(ctx,
					fmt.Sprintf("⚠️ Withdrawal PIN Alert:\nUser: %s (Phone: %s) entered an incorrect PIN twice.",
						user.FullName(), user.Phone))
				session.ResetToMenu()
				return e.send(ctx, session.ChatID,
					"❌ Incorrect PIN twice. The withdrawal has been cancelled and an alert sent to admin.")
			}
			return e.send(ctx, session.ChatID, "❌ Incorrect PIN. Try again:")
		}

		wd, err := e.ledger.RequestWithdrawal(ctx, user.Phone, session.WithdrawSource, session.WithdrawAmount, session.PayoutNumber)
		if err != nil {
			session.ResetToMenu()
			switch {
			case errors.Is(err, ledger.ErrInsufficientFunds):
				return e.send(ctx, session.ChatID,
					"⚠️ Insufficient balance for this withdrawal. Type \"00\" for the Main Menu.")
			case errors.Is(err, ledger.ErrAmountOutOfRange):
				return e.send(ctx, session.ChatID,
					"❌ The amount is outside the allowed withdrawal range. Type \"00\" for the Main Menu.")
			default:
				return err
			}
		}

		e.notifier.Admins(ctx,
			fmt.Sprintf("🔔 Withdrawal Request:\nUser: %s (Phone: %s)\nAmount: Ksh %.2f\nPayout: %s\nID: %s",
				user.FullName(), user.Phone, wd.Amount, wd.Payout, wd.ID))
		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("💸 Withdrawal Request Received!\nID: %s\nAmount: Ksh %.2f\nPayout: %s\nYour request is pending admin approval.\nType \"00\" for the Main Menu.",
				wd.ID, wd.Amount, wd.Payout))
	}
	return nil
}
