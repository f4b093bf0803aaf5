package engine

import (
	"context"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/validate"
)

func (e *Engine) handleChangePIN(ctx context.Context, session *domain.Session, user *domain.User, text string) error {
	switch session.State {
	case domain.StateChangePIN:
		if !pinEqual(text, user.WithdrawalPIN) {
			return e.send(ctx, session.ChatID, "❌ Incorrect current PIN. Try again or type \"0\" to cancel.")
		}
		session.State = domain.StateNewPIN
		return e.send(ctx, session.ChatID, "🔑 Enter your new 4-digit withdrawal PIN:")

	case domain.StateNewPIN:
		if !validate.PIN(text) {
			return e.send(ctx, session.ChatID, "❌ Please enter a valid 4-digit PIN.")
		}
		if _, err := e.ledger.SetPIN(ctx, user.Phone, ledger.PINWithdrawal, text); err != nil {
			return err
		}
		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			"✅ Your withdrawal PIN has been changed successfully.\nType \"00\" for the Main Menu.")
	}
	return nil
}
