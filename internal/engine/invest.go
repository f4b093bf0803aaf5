package engine

import (
	"context"
	"errors"
	"fmt"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/validate"
)

func (e *Engine) handleInvest(ctx context.Context, session *domain.Session, user *domain.User, text string) error {
	st := e.cfg.Get()
	switch session.State {
	case domain.StateInvest:
		amount, ok := validate.AmountInRange(text, st.MinInvestment, st.MaxInvestment)
		if !ok {
			return e.send(ctx, session.ChatID,
				fmt.Sprintf("❌ Enter an amount between Ksh %.0f and Ksh %.0f.", st.MinInvestment, st.MaxInvestment))
		}
		if user.AccountBalance < amount {
			session.ResetToMenu()
			return e.send(ctx, session.ChatID,
				fmt.Sprintf("⚠️ Insufficient funds (Ksh %.2f). Please deposit funds. Type \"00\" for the Main Menu.",
					user.AccountBalance))
		}
		session.InvestAmount = amount
		session.State = domain.StateConfirmInvestment
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("🔒 Confirm your investment of Ksh %.2f by entering your 4-digit withdrawal PIN:", amount))

	case domain.StateConfirmInvestment:
		// The withdrawal PIN confirms transactions; the security PIN never does.
		if !pinEqual(text, user.WithdrawalPIN) {
			return e.send(ctx, session.ChatID, "❌ Incorrect PIN. Try again or type \"0\" to cancel.")
		}

		amount := session.InvestAmount
		inv, bonus, err := e.ledger.Invest(ctx, user.Phone, amount)
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrInsufficientFunds):
				session.ResetToMenu()
				return e.send(ctx, session.ChatID,
					"⚠️ Insufficient funds. Please deposit funds. Type \"00\" for the Main Menu.")
			case errors.Is(err, ledger.ErrAmountOutOfRange):
				session.State = domain.StateInvest
				return e.send(ctx, session.ChatID,
					fmt.Sprintf("❌ Enter an amount between Ksh %.0f and Ksh %.0f.", st.MinInvestment, st.MaxInvestment))
			default:
				return err
			}
		}

		if bonus != nil {
			e.notifier.User(ctx, bonus.Referrer,
				fmt.Sprintf("🎉 Hi %s, you earned a bonus of Ksh %.2f because %s invested!",
					bonus.Referrer.FirstName, bonus.Amount, user.FirstName))
		}
		e.notifier.Admins(ctx,
			fmt.Sprintf("🔔 Investment Alert:\nUser: %s (Phone: %s)\nInvested: Ksh %.2f",
				user.FullName(), user.Phone, amount))

		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("✅ Investment confirmed!\nInvested: Ksh %.2f\nExpected Earnings (@%.0f%%): Ksh %.2f\nIt will mature in %s.\nType \"00\" for the Main Menu.",
				amount, st.EarningPercentage, inv.ExpectedReturn, st.InvestmentDuration))
	}
	return nil
}
