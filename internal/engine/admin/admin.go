package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/ports"
	"PesaVault/internal/core/validate"
	"PesaVault/internal/notify"

	"github.com/rs/zerolog"
)

// Processor executes in-band admin commands. The engine has already
// authorized the caller; super-admin-only commands re-check identity here.
type Processor struct {
	ledger   *ledger.Service
	users    ports.UserStore
	cfg      *domain.SystemConfig
	client   ports.ChatClient
	notifier *notify.Notifier
	log      zerolog.Logger
}

// New creates the admin command processor.
func New(
	ledgerSvc *ledger.Service,
	users ports.UserStore,
	cfg *domain.SystemConfig,
	client ports.ChatClient,
	notifier *notify.Notifier,
	baseLogger *zerolog.Logger,
) *Processor {
	return &Processor{
		ledger:   ledgerSvc,
		users:    users,
		cfg:      cfg,
		client:   client,
		notifier: notifier,
		log:      baseLogger.With().Str("component", "admin").Logger(),
	}
}

// Handle parses and executes one admin command line. Every command yields
// exactly one reply to the caller.
func (p *Processor) Handle(ctx context.Context, caller *domain.User, line string) error {
	fields := strings.Fields(line)
	// The engine routes here on the "admin" prefix; fields[0] is "admin".
	if len(fields) < 2 {
		return p.reply(ctx, caller, helpText())
	}

	cmd := strings.ToLower(fields[1])
	args := fields[2:]

	p.log.Info().Str("caller", caller.Phone).Str("cmd", cmd).Msg("Admin command")

	switch cmd {
	case "cmd", "help":
		return p.reply(ctx, caller, helpText())
	case "view":
		return p.handleView(ctx, caller, args)
	case "approve":
		return p.handleApprove(ctx, caller, args)
	case "reject":
		return p.handleReject(ctx, caller, args)
	case "ban":
		return p.handleBan(ctx, caller, args)
	case "unban":
		return p.handleUnban(ctx, caller, args)
	case "resetpin":
		return p.handleResetPIN(ctx, caller, args)
	case "setearn":
		return p.setPercentage(ctx, caller, args, "earning",
			func(s *domain.Settings, v float64) { s.EarningPercentage = v })
	case "setreferral":
		return p.setPercentage(ctx, caller, args, "referral",
			func(s *domain.Settings, v float64) { s.ReferralPercentage = v })
	case "setduration":
		return p.handleSetDuration(ctx, caller, args)
	case "setmininvestment":
		return p.setAmount(ctx, caller, args, "minimum investment",
			func(s *domain.Settings, v float64) { s.MinInvestment = v })
	case "setmaxinvestment":
		return p.setAmount(ctx, caller, args, "maximum investment",
			func(s *domain.Settings, v float64) { s.MaxInvestment = v })
	case "setminwithdrawal":
		return p.setAmount(ctx, caller, args, "minimum withdrawal",
			func(s *domain.Settings, v float64) { s.MinWithdrawal = v })
	case "setmaxwithdrawal":
		return p.setAmount(ctx, caller, args, "maximum withdrawal",
			func(s *domain.Settings, v float64) { s.MaxWithdrawal = v })
	case "setdeposit":
		return p.handleSetDeposit(ctx, caller, args)
	case "setwithdrawal":
		return p.handleSetWithdrawal(ctx, caller, args)
	case "addadmin":
		return p.handleAddAdmin(ctx, caller, args)
	case "removeadmin":
		return p.handleRemoveAdmin(ctx, caller, args)
	case "bulk":
		return p.handleBulk(ctx, caller, args)
	default:
		return p.reply(ctx, caller,
			fmt.Sprintf("❓ Unknown command %q. Type \"admin cmd\" for the command list.", cmd))
	}
}

func (p *Processor) handleView(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 1 {
		return p.reply(ctx, caller, "Usage: admin view users|investments|deposits|withdrawals|referrals")
	}

	users, err := p.users.All(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	switch strings.ToLower(args[0]) {
	case "users":
		b.WriteString("👥 Registered Users:\n")
		for i, u := range users {
			status := ""
			if u.Banned {
				status = " [BANNED]"
			}
			fmt.Fprintf(&b, "%d. %s (%s)%s, Balance: Ksh %.2f, Referral Earnings: Ksh %.2f\n",
				i+1, u.FullName(), u.Phone, status, u.AccountBalance, u.ReferralEarnings)
		}
		if len(users) == 0 {
			b.WriteString("No users registered yet.\n")
		}
	case "investments":
		b.WriteString("📈 Investments:\n")
		n := 0
		for _, u := range users {
			for _, inv := range u.Investments {
				n++
				fmt.Fprintf(&b, "%d. %s (%s): Ksh %.2f, return Ksh %.2f, status: %s\n",
					n, u.FullName(), u.Phone, inv.Amount, inv.ExpectedReturn, inv.Status)
			}
		}
		if n == 0 {
			b.WriteString("No investments yet.\n")
		}
	case "deposits":
		b.WriteString("💵 Deposits:\n")
		n := 0
		for _, u := range users {
			for _, dep := range u.Deposits {
				n++
				fmt.Fprintf(&b, "%d. %s: %s (%s), Ksh %.2f, status: %s\n",
					n, dep.ID, u.FullName(), u.Phone, dep.Amount, dep.Status)
			}
		}
		if n == 0 {
			b.WriteString("No deposits yet.\n")
		}
	case "withdrawals":
		b.WriteString("💸 Withdrawals:\n")
		n := 0
		for _, u := range users {
			for _, wd := range u.Withdrawals {
				n++
				fmt.Fprintf(&b, "%d. %s: %s (%s), Ksh %.2f to %s, status: %s\n",
					n, wd.ID, u.FullName(), u.Phone, wd.Amount, wd.Payout, wd.Status)
			}
		}
		if n == 0 {
			b.WriteString("No withdrawal requests yet.\n")
		}
	case "referrals":
		b.WriteString("🔗 Referrals:\n")
		n := 0
		for _, u := range users {
			if len(u.Referrals) == 0 {
				continue
			}
			n++
			fmt.Fprintf(&b, "%d. %s (%s) referred %d user(s)\n", n, u.FullName(), u.Phone, len(u.Referrals))
		}
		if n == 0 {
			b.WriteString("No referrals recorded yet.\n")
		}
	default:
		return p.reply(ctx, caller, "Usage: admin view users|investments|deposits|withdrawals|referrals")
	}
	return p.reply(ctx, caller, b.String())
}

func (p *Processor) handleApprove(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 2 {
		return p.reply(ctx, caller, "Usage: admin approve deposit|withdrawal <id>")
	}
	id := strings.ToUpper(args[1])

	switch strings.ToLower(args[0]) {
	case "deposit":
		user, dep, err := p.ledger.ApproveDeposit(ctx, id)
		if err != nil {
			return p.replySettleError(ctx, caller, id, err)
		}
		p.notifier.User(ctx, user,
			fmt.Sprintf("✅ Your deposit %s of Ksh %.2f has been approved and credited to your account balance.",
				dep.ID, dep.Amount))
		return p.reply(ctx, caller,
			fmt.Sprintf("✅ Deposit %s approved. Ksh %.2f credited to %s (%s).", dep.ID, dep.Amount, user.FullName(), user.Phone))
	case "withdrawal":
		user, wd, err := p.ledger.ApproveWithdrawal(ctx, id)
		if err != nil {
			return p.replySettleError(ctx, caller, id, err)
		}
		p.notifier.User(ctx, user,
			fmt.Sprintf("✅ Your withdrawal %s of Ksh %.2f to %s has been approved.", wd.ID, wd.Amount, wd.Payout))
		return p.reply(ctx, caller,
			fmt.Sprintf("✅ Withdrawal %s approved for %s (%s).", wd.ID, user.FullName(), user.Phone))
	default:
		return p.reply(ctx, caller, "Usage: admin approve deposit|withdrawal <id>")
	}
}

func (p *Processor) handleReject(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 3 {
		return p.reply(ctx, caller, "Usage: admin reject deposit|withdrawal <id> <reason>")
	}
	id := strings.ToUpper(args[1])
	reason := strings.Join(args[2:], " ")

	switch strings.ToLower(args[0]) {
	case "deposit":
		user, dep, err := p.ledger.RejectDeposit(ctx, id, reason)
		if err != nil {
			return p.replySettleError(ctx, caller, id, err)
		}
		p.notifier.User(ctx, user,
			fmt.Sprintf("❌ Your deposit %s of Ksh %.2f was rejected.\nReason: %s", dep.ID, dep.Amount, reason))
		return p.reply(ctx, caller, fmt.Sprintf("❌ Deposit %s rejected.", dep.ID))
	case "withdrawal":
		user, wd, err := p.ledger.RejectWithdrawal(ctx, id, reason)
		if err != nil {
			return p.replySettleError(ctx, caller, id, err)
		}
		p.notifier.User(ctx, user,
			fmt.Sprintf("❌ Your withdrawal %s of Ksh %.2f was rejected and the amount returned to your balance.\nReason: %s",
				wd.ID, wd.Amount, reason))
		return p.reply(ctx, caller, fmt.Sprintf("❌ Withdrawal %s rejected and refunded.", wd.ID))
	default:
		return p.reply(ctx, caller, "Usage: admin reject deposit|withdrawal <id> <reason>")
	}
}

func (p *Processor) replySettleError(ctx context.Context, caller *domain.User, id string, err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return p.reply(ctx, caller, fmt.Sprintf("❌ No transaction found with ID %s.", id))
	case errors.Is(err, ledger.ErrAlreadySettled):
		return p.reply(ctx, caller, fmt.Sprintf("⚠️ Transaction %s is already settled; nothing changed.", id))
	default:
		return err
	}
}

func (p *Processor) handleBan(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 2 {
		return p.reply(ctx, caller, "Usage: admin ban <phone> <reason>")
	}
	phone := args[0]
	reason := strings.Join(args[1:], " ")

	if p.cfg.IsSuperAdmin(phone) {
		return p.reply(ctx, caller, "🚫 The super admin cannot be banned.")
	}

	user, err := p.ledger.SetBanned(ctx, phone, true, reason)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return p.reply(ctx, caller, fmt.Sprintf("❌ No user found with phone %s.", phone))
		}
		return err
	}
	p.notifier.User(ctx, user,
		fmt.Sprintf("💔 Your account has been banned.\nReason: %s\nContact support if you believe this is an error.", reason))
	return p.reply(ctx, caller, fmt.Sprintf("✅ User %s (%s) has been banned.", user.FullName(), phone))
}

func (p *Processor) handleUnban(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 1 {
		return p.reply(ctx, caller, "Usage: admin unban <phone>")
	}
	phone := args[0]

	user, err := p.ledger.SetBanned(ctx, phone, false, "")
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return p.reply(ctx, caller, fmt.Sprintf("❌ No user found with phone %s.", phone))
		}
		return err
	}
	p.notifier.User(ctx, user, "🎉 Your account has been unbanned. Welcome back! Type \"00\" for the Main Menu.")
	return p.reply(ctx, caller, fmt.Sprintf("✅ User %s (%s) has been unbanned.", user.FullName(), phone))
}

func (p *Processor) handleResetPIN(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 2 {
		return p.reply(ctx, caller, "Usage: admin resetpin <phone> <pin> [withdrawal|login]")
	}
	phone, pin := args[0], args[1]
	if !validate.PIN(pin) {
		return p.reply(ctx, caller, "❌ The PIN must be exactly 4 digits.")
	}

	kind := ledger.PINWithdrawal
	if len(args) >= 3 && strings.EqualFold(args[2], "login") {
		kind = ledger.PINLogin
	}

	user, err := p.ledger.SetPIN(ctx, phone, kind, pin)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return p.reply(ctx, caller, fmt.Sprintf("❌ No user found with phone %s.", phone))
		}
		return err
	}
	p.notifier.User(ctx, user, "🔑 An admin has reset your PIN. Use your new PIN from now on.")
	return p.reply(ctx, caller, fmt.Sprintf("✅ PIN reset for %s (%s).", user.FullName(), phone))
}

func (p *Processor) setPercentage(ctx context.Context, caller *domain.User, args []string, name string, apply func(*domain.Settings, float64)) error {
	if len(args) < 1 {
		return p.reply(ctx, caller, fmt.Sprintf("Usage: admin set%s <percentage>", strings.ReplaceAll(name, " ", "")))
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v < 0 || v > 100 {
		return p.reply(ctx, caller, "❌ Enter a percentage between 0 and 100.")
	}
	p.cfg.Update(func(s *domain.Settings) { apply(s, v) })
	return p.reply(ctx, caller, fmt.Sprintf("✅ The %s percentage is now %.2f%%.", name, v))
}

func (p *Processor) setAmount(ctx context.Context, caller *domain.User, args []string, name string, apply func(*domain.Settings, float64)) error {
	if len(args) < 1 {
		return p.reply(ctx, caller, fmt.Sprintf("Usage: admin command requires the new %s amount", name))
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v <= 0 {
		return p.reply(ctx, caller, "❌ Enter a valid amount greater than zero.")
	}
	p.cfg.Update(func(s *domain.Settings) { apply(s, v) })
	return p.reply(ctx, caller, fmt.Sprintf("✅ The %s is now Ksh %.2f.", name, v))
}

func (p *Processor) handleSetDuration(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 1 {
		return p.reply(ctx, caller, "Usage: admin setduration <minutes>")
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes <= 0 {
		return p.reply(ctx, caller, "❌ Enter a whole number of minutes greater than zero.")
	}
	d := time.Duration(minutes) * time.Minute
	p.cfg.Update(func(s *domain.Settings) { s.InvestmentDuration = d })
	return p.reply(ctx, caller, fmt.Sprintf("✅ The investment duration is now %d minute(s).", minutes))
}

func (p *Processor) handleSetDeposit(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 2 {
		return p.reply(ctx, caller, "Usage: admin setdeposit <payment number> <instructions>")
	}
	number := args[0]
	instructions := strings.Join(args[1:], " ")
	p.cfg.Update(func(s *domain.Settings) {
		s.DepositNumber = number
		s.DepositInstructions = instructions
	})
	return p.reply(ctx, caller,
		fmt.Sprintf("✅ Deposit details updated.\nNumber: %s\nInstructions: %s", number, instructions))
}

func (p *Processor) handleSetWithdrawal(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 1 {
		return p.reply(ctx, caller, "Usage: admin setwithdrawal <instructions>")
	}
	instructions := strings.Join(args, " ")
	p.cfg.Update(func(s *domain.Settings) { s.WithdrawalInstructions = instructions })
	return p.reply(ctx, caller, fmt.Sprintf("✅ Withdrawal instructions updated:\n%s", instructions))
}

func (p *Processor) handleAddAdmin(ctx context.Context, caller *domain.User, args []string) error {
	if !p.cfg.IsSuperAdmin(caller.Phone) {
		return p.reply(ctx, caller, "🚫 Only the super admin can manage the admin list.")
	}
	if len(args) < 1 {
		return p.reply(ctx, caller, "Usage: admin addadmin <phone>")
	}
	phone := args[0]
	if !validate.Phone(phone) {
		return p.reply(ctx, caller, "❌ Invalid phone format. Must start with 07 or 01 and be 10 digits.")
	}

	if p.cfg.IsAdmin(phone) {
		return p.reply(ctx, caller, fmt.Sprintf("⚠️ %s is already an admin.", phone))
	}
	p.cfg.Update(func(s *domain.Settings) { s.Admins = append(s.Admins, phone) })

	user, err := p.users.Get(ctx, phone)
	if err != nil {
		return err
	}
	p.notifier.User(ctx, user, "🎉 You have been promoted to admin. Type \"admin cmd\" to see the command list.")
	return p.reply(ctx, caller, fmt.Sprintf("✅ %s is now an admin.", phone))
}

func (p *Processor) handleRemoveAdmin(ctx context.Context, caller *domain.User, args []string) error {
	if !p.cfg.IsSuperAdmin(caller.Phone) {
		return p.reply(ctx, caller, "🚫 Only the super admin can manage the admin list.")
	}
	if len(args) < 1 {
		return p.reply(ctx, caller, "Usage: admin removeadmin <phone>")
	}
	phone := args[0]
	if p.cfg.IsSuperAdmin(phone) {
		return p.reply(ctx, caller, "🚫 The super admin cannot be removed.")
	}
	if !p.cfg.IsAdmin(phone) {
		return p.reply(ctx, caller, fmt.Sprintf("⚠️ %s is not an admin.", phone))
	}

	p.cfg.Update(func(s *domain.Settings) {
		kept := s.Admins[:0]
		for _, a := range s.Admins {
			if a != phone {
				kept = append(kept, a)
			}
		}
		s.Admins = kept
	})
	return p.reply(ctx, caller, fmt.Sprintf("✅ %s is no longer an admin.", phone))
}

func (p *Processor) handleBulk(ctx context.Context, caller *domain.User, args []string) error {
	if len(args) < 1 {
		return p.reply(ctx, caller, "Usage: admin bulk <message>")
	}
	message := strings.Join(args, " ")

	users, err := p.users.All(ctx)
	if err != nil {
		return err
	}
	sent := 0
	for _, u := range users {
		if u.ChatID == "" || u.Banned {
			continue
		}
		if err := p.client.SendMessage(ctx, u.ChatID, "📢 "+message); err != nil {
			p.log.Error().Err(err).Str("phone", u.Phone).Msg("Bulk send failed")
			continue
		}
		sent++
	}
	return p.reply(ctx, caller, fmt.Sprintf("✅ Broadcast delivered to %d user(s).", sent))
}

func (p *Processor) reply(ctx context.Context, caller *domain.User, text string) error {
	return p.client.SendMessage(ctx, caller.ChatID, text)
}

func helpText() string {
	return "🛠️ Admin Commands:\n" +
		"admin view users|investments|deposits|withdrawals|referrals\n" +
		"admin approve deposit|withdrawal <id>\n" +
		"admin reject deposit|withdrawal <id> <reason>\n" +
		"admin ban <phone> <reason>\n" +
		"admin unban <phone>\n" +
		"admin resetpin <phone> <pin> [withdrawal|login]\n" +
		"admin setearn <pct>\n" +
		"admin setreferral <pct>\n" +
		"admin setduration <minutes>\n" +
		"admin setmininvestment <amount>\n" +
		"admin setmaxinvestment <amount>\n" +
		"admin setminwithdrawal <amount>\n" +
		"admin setmaxwithdrawal <amount>\n" +
		"admin setdeposit <number> <instructions>\n" +
		"admin setwithdrawal <instructions>\n" +
		"admin addadmin <phone> (super admin only)\n" +
		"admin removeadmin <phone> (super admin only)\n" +
		"admin bulk <message>"
}
