package engine

import (
	"context"
	"fmt"
	"strings"

	"PesaVault/internal/core/domain"
)

func (e *Engine) handleMenu(ctx context.Context, session *domain.Session, user *domain.User, text string) error {
	st := e.cfg.Get()
	switch text {
	case "1":
		session.State = domain.StateInvest
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("💰 Enter the investment amount (min: Ksh %.0f, max: Ksh %.0f):",
				st.MinInvestment, st.MaxInvestment))
	case "2":
		session.State = domain.StateCheckBalanceMenu
		return e.send(ctx, session.ChatID,
			"🔍 Balance Options:\n1. View Account Balance\n2. View Referral Earnings\n3. View Investment History\n4. View All Deposit Statuses\nReply with 1, 2, 3, or 4.")
	case "3":
		session.State = domain.StateWithdraw
		return e.send(ctx, session.ChatID,
			"💸 Withdrawal Options:\n1️⃣ Withdraw Referral Earnings\n2️⃣ Withdraw Account Balance")
	case "4":
		session.State = domain.StateChooseDepositMethod
		return e.send(ctx, session.ChatID,
			"💵 How would you like to deposit?\nReply with:\n1️⃣ Automatic deposit (push payment)\n2️⃣ Manual deposit instructions")
	case "5":
		session.State = domain.StateChangePIN
		return e.send(ctx, session.ChatID, "🔑 Enter your current 4-digit PIN to change it:")
	case "6":
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("🔗 Your Referral Code: %s\nShare the link below with friends to earn bonuses!\nREF%s\nType \"00\" for the Main Menu.",
				user.ReferralCode, user.ReferralCode))
	case "7":
		return e.sendWithdrawalStatus(ctx, session, user)
	case "8":
		return e.sendReferralList(ctx, session, user)
	default:
		return e.send(ctx, session.ChatID, "❓ Unrecognized option. Please enter a valid option number.")
	}
}

func (e *Engine) handleBalanceMenu(ctx context.Context, session *domain.Session, user *domain.User, text string) error {
	switch text {
	case "1":
		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("💼 Your account balance is Ksh %.2f.\nType \"00\" for the Main Menu.", user.AccountBalance))
	case "2":
		session.ResetToMenu()
		return e.send(ctx, session.ChatID,
			fmt.Sprintf("🎁 Your referral earnings are Ksh %.2f.\nType \"00\" for the Main Menu.", user.ReferralEarnings))
	case "3":
		session.ResetToMenu()
		if len(user.Investments) == 0 {
			return e.send(ctx, session.ChatID, "📄 You have no investments yet.\nType \"00\" for the Main Menu.")
		}
		var b strings.Builder
		b.WriteString("📋 Your Investments:\n")
		for i, inv := range user.Investments {
			fmt.Fprintf(&b, "%d. Ksh %.2f on %s, expected return Ksh %.2f, status: %s\n",
				i+1, inv.Amount, formatTime(inv.CreatedAt), inv.ExpectedReturn, inv.Status)
		}
		b.WriteString("Type \"00\" for the Main Menu.")
		return e.send(ctx, session.ChatID, b.String())
	case "4":
		session.ResetToMenu()
		if len(user.Deposits) == 0 {
			return e.send(ctx, session.ChatID, "📄 You have no deposits yet.\nType \"00\" for the Main Menu.")
		}
		var b strings.Builder
		b.WriteString("📋 Your Deposits:\n")
		for i, dep := range user.Deposits {
			fmt.Fprintf(&b, "%d. ID: %s, Ksh %.2f on %s, status: %s", i+1, dep.ID, dep.Amount, formatTime(dep.CreatedAt), dep.Status)
			if dep.RejectReason != "" {
				fmt.Fprintf(&b, " (%s)", dep.RejectReason)
			}
			b.WriteString("\n")
		}
		b.WriteString("Type \"00\" for the Main Menu.")
		return e.send(ctx, session.ChatID, b.String())
	default:
		return e.send(ctx, session.ChatID, "❓ Reply with 1, 2, 3, or 4.")
	}
}

func (e *Engine) sendWithdrawalStatus(ctx context.Context, session *domain.Session, user *domain.User) error {
	session.ResetToMenu()
	if len(user.Withdrawals) == 0 {
		return e.send(ctx, session.ChatID, "📄 You have no withdrawal requests.\nType \"00\" for the Main Menu.")
	}
	var b strings.Builder
	b.WriteString("📋 Your Withdrawal Requests:\n")
	for i, wd := range user.Withdrawals {
		fmt.Fprintf(&b, "%d. ID: %s, Amount: Ksh %.2f, Payout: %s, Date: %s, Status: %s",
			i+1, wd.ID, wd.Amount, wd.Payout, formatTime(wd.CreatedAt), wd.Status)
		if wd.RejectReason != "" {
			fmt.Fprintf(&b, " (%s)", wd.RejectReason)
		}
		b.WriteString("\n")
	}
	b.WriteString("Type \"00\" for the Main Menu.")
	return e.send(ctx, session.ChatID, b.String())
}

func (e *Engine) sendReferralList(ctx context.Context, session *domain.Session, user *domain.User) error {
	session.ResetToMenu()
	if len(user.Referrals) == 0 {
		return e.send(ctx, session.ChatID, "📄 You haven't referred anyone yet.\nType \"00\" for the Main Menu.")
	}
	var b strings.Builder
	b.WriteString("📋 Your Referrals:\n")
	for i, phone := range user.Referrals {
		referee, err := e.users.Get(ctx, phone)
		if err != nil {
			return err
		}
		if referee != nil {
			fmt.Fprintf(&b, "%d. %s\n", i+1, referee.FullName())
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, phone)
		}
	}
	b.WriteString("Type \"00\" for the Main Menu.")
	return e.send(ctx, session.ChatID, b.String())
}
