package application

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// PollRunner agenda o PollNfseStatusService em intervalos com jitter. Um tick
// que encontra outro em execução é descartado, não enfileirado: o loop é
// idempotente e o próximo tick retoma o trabalho restante.
type PollRunner struct {
	poll    *PollNfseStatusService
	config  PollingConfig
	log     logger.Logger
	running atomic.Bool
}

// NewPollRunner cria uma nova instância de PollRunner
func NewPollRunner(poll *PollNfseStatusService, config PollingConfig, log logger.Logger) *PollRunner {
	return &PollRunner{
		poll:   poll,
		config: config,
		log:    log,
	}
}

// Start inicia o agendamento em uma goroutine própria até o contexto encerrar
func (r *PollRunner) Start(ctx context.Context) {
	if !r.config.Enabled {
		r.log.Info("Polling de NFS-e desabilitado")
		return
	}

	r.log.Info("Polling de NFS-e habilitado",
		"interval", r.config.Interval.String(),
		"jitter", r.config.Jitter.String())

	go func() {
		r.tick(ctx)

		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.tick(ctx)
			}
		}
	}()
}

func (r *PollRunner) tick(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	defer r.running.Store(false)

	if r.config.Jitter > 0 {
		jitter := time.Duration(rand.Int63n(int64(r.config.Jitter)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter):
		}
	}

	if err := r.poll.RunOnce(ctx, r.config.Limit, r.config.OlderThan); err != nil {
		r.log.Error("Tick de polling falhou", "error", err.Error())
	}
}
