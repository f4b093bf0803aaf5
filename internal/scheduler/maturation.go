package scheduler

import (
	"context"
	"fmt"

	"PesaVault/internal/core/ledger"
	"PesaVault/internal/metrics"
	"PesaVault/internal/notify"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Maturation runs the periodic sweep that completes due investments and
// notifies each credited user.
type Maturation struct {
	ledger   *ledger.Service
	notifier *notify.Notifier
	cron     *cron.Cron
	log      zerolog.Logger
}

// NewMaturation creates the sweep scheduler. Start must be called to begin
// sweeping.
func NewMaturation(ledgerSvc *ledger.Service, notifier *notify.Notifier, baseLogger *zerolog.Logger) *Maturation {
	return &Maturation{
		ledger:   ledgerSvc,
		notifier: notifier,
		cron:     cron.New(),
		log:      baseLogger.With().Str("component", "maturation").Logger(),
	}
}

// Start schedules the sweep every minute. Overlapping runs are skipped.
func (m *Maturation) Start(ctx context.Context) error {
	_, err := m.cron.AddJob("@every 1m", cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(
		cron.FuncJob(func() { m.sweep(ctx) }),
	))
	if err != nil {
		return fmt.Errorf("schedule maturation sweep: %w", err)
	}
	m.cron.Start()
	m.log.Info().Msg("Maturation sweep scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (m *Maturation) Stop() {
	<-m.cron.Stop().Done()
	m.log.Info().Msg("Maturation sweep stopped")
}

func (m *Maturation) sweep(ctx context.Context) {
	metrics.MaturationSweeps.Inc()

	matured, err := m.ledger.MatureDue(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("Maturation sweep failed")
		return
	}
	if len(matured) == 0 {
		return
	}

	m.log.Info().Int("count", len(matured)).Msg("Investments matured")
	for _, mi := range matured {
		m.notifier.User(ctx, mi.User,
			fmt.Sprintf("🎉 Your investment of Ksh %.2f has matured!\nEarnings: Ksh %.2f\nKsh %.2f has been credited to your account balance.\nType \"00\" for the Main Menu.",
				mi.Amount, mi.Earnings, mi.Credited))
	}
}
