package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/ports"
	"PesaVault/internal/metrics"
	"PesaVault/internal/notify"

	"github.com/rs/zerolog"
)

const (
	pollInterval    = 5 * time.Second
	maxPollAttempts = 4
)

// PollRegistry tracks in-flight push payments and polls their status until
// a terminal outcome or the attempt budget runs out. One goroutine per
// watched payment; all of them stop when Shutdown is called.
type PollRegistry struct {
	ledger   *ledger.Service
	payments ports.PaymentProvider
	notifier *notify.Notifier
	cfg      *domain.SystemConfig
	log      zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
	pending map[string]struct{}
}

// NewPollRegistry creates the registry.
func NewPollRegistry(
	ledgerSvc *ledger.Service,
	payments ports.PaymentProvider,
	notifier *notify.Notifier,
	cfg *domain.SystemConfig,
	baseLogger *zerolog.Logger,
) *PollRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	return &PollRegistry{
		ledger:   ledgerSvc,
		payments: payments,
		notifier: notifier,
		cfg:      cfg,
		log:      baseLogger.With().Str("component", "deposit_poll").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]struct{}),
	}
}

// Watch starts polling the given payment reference. A reference already
// being watched is not watched twice.
func (r *PollRegistry) Watch(phone, chatID string, amount float64, reference string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, ok := r.pending[reference]; ok {
		return
	}
	r.pending[reference] = struct{}{}

	r.wg.Add(1)
	go r.poll(phone, chatID, amount, reference)
}

// Shutdown cancels every in-flight poll and waits for the goroutines.
func (r *PollRegistry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
	r.log.Info().Msg("Deposit poller stopped")
}

func (r *PollRegistry) poll(phone, chatID string, amount float64, reference string) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.pending, reference)
		r.mu.Unlock()
	}()

	log := r.log.With().Str("reference", reference).Str("phone", phone).Logger()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= maxPollAttempts; attempt++ {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}

		result, err := r.payments.PollStatus(r.ctx, reference)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("Status poll failed")
			metrics.DepositPolls.WithLabelValues("error").Inc()
			continue
		}

		switch result.Status {
		case ports.PushSuccess:
			metrics.DepositPolls.WithLabelValues("success").Inc()
			r.settle(phone, chatID, amount, result.ProviderReference)
			return
		case ports.PushFailed:
			metrics.DepositPolls.WithLabelValues("failed").Inc()
			log.Info().Msg("Push payment failed")
			r.fallback(chatID, "❌ Your payment was not completed.")
			return
		default:
			metrics.DepositPolls.WithLabelValues("pending").Inc()
		}
	}

	log.Info().Msg("Push payment unconfirmed after max attempts")
	r.fallback(chatID, "⏳ We could not confirm your payment in time.")
}

func (r *PollRegistry) settle(phone, chatID string, amount float64, providerRef string) {
	dep, err := r.ledger.ConfirmAutomaticDeposit(r.ctx, phone, amount, providerRef)
	if err != nil {
		r.log.Error().Err(err).Str("phone", phone).Msg("Failed to record confirmed deposit")
		r.notifier.Chat(r.ctx, chatID,
			"⚠️ Your payment succeeded but crediting failed. Support has been notified.")
		r.notifier.Admins(r.ctx,
			fmt.Sprintf("🚨 Confirmed payment could not be credited!\nPhone: %s\nAmount: Ksh %.2f\nProvider ref: %s",
				phone, amount, providerRef))
		return
	}

	r.notifier.Chat(r.ctx, chatID,
		fmt.Sprintf("✅ Payment confirmed!\nDeposit ID: %s\nKsh %.2f has been credited to your account balance.\nType \"00\" for the Main Menu.",
			dep.ID, dep.Amount))
	r.notifier.Admins(r.ctx,
		fmt.Sprintf("🔔 Automatic Deposit Confirmed:\nPhone: %s\nAmount: Ksh %.2f\nID: %s", phone, dep.Amount, dep.ID))
}

func (r *PollRegistry) fallback(chatID, prefix string) {
	st := r.cfg.Get()
	r.notifier.Chat(r.ctx, chatID,
		fmt.Sprintf("%s\nYou can deposit manually instead:\nPay to: %s\n%s\nType \"00\" for the Main Menu.",
			prefix, st.DepositNumber, st.DepositInstructions))
}
