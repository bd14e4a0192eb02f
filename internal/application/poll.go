package application

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// PollNfseStatusService reconcilia emissões PENDING consultando o provedor,
// avança o status, baixa artefatos quando autorizadas e aplica backoff
// exponencial limitado para falhas transitórias
type PollNfseStatusService struct {
	repo     emission.Repository
	provider provider.FiscalProvider
	config   PollingConfig
	log      logger.Logger
}

// NewPollNfseStatusService cria uma nova instância de PollNfseStatusService
func NewPollNfseStatusService(repo emission.Repository, fiscalProvider provider.FiscalProvider, config PollingConfig, log logger.Logger) *PollNfseStatusService {
	return &PollNfseStatusService{
		repo:     repo,
		provider: fiscalProvider,
		config:   config,
		log:      log,
	}
}

// ComputeNextPollAt calcula o próximo horário de polling para a tentativa
// informada: base * 2^(attempt-1), limitado ao máximo, mais jitter
func (s *PollNfseStatusService) ComputeNextPollAt(attempt int, now time.Time) time.Time {
	if attempt < 1 {
		attempt = 1
	}

	delay := s.config.BackoffBase
	for i := 1; i < attempt && delay < s.config.BackoffMax; i++ {
		delay *= 2
	}
	if delay > s.config.BackoffMax {
		delay = s.config.BackoffMax
	}

	var jitter time.Duration
	if s.config.BackoffJitter > 0 {
		jitter = time.Duration(rand.Int63n(int64(s.config.BackoffJitter)))
	}

	return now.Add(delay + jitter)
}

// RunOnce processa um lote de emissões pendentes. Falhas em uma emissão nunca
// interrompem o restante do lote nem se propagam ao agendador.
func (s *PollNfseStatusService) RunOnce(ctx context.Context, limit int, olderThan time.Duration) error {
	if limit <= 0 {
		limit = s.config.Limit
	}
	if olderThan <= 0 {
		olderThan = s.config.OlderThan
	}

	pending, err := s.repo.FindPending(ctx, emission.PendingFilter{
		Provider:  s.provider.ProviderName(),
		Limit:     limit,
		OlderThan: olderThan,
		Now:       time.Now(),
	})
	if err != nil {
		return err
	}

	for _, e := range pending {
		if e.ExternalID == "" {
			// Ainda sem identificador do provedor, nada a consultar
			continue
		}
		s.reconcile(ctx, e)
	}

	return nil
}

func (s *PollNfseStatusService) reconcile(ctx context.Context, e *emission.Emission) {
	providerName := s.provider.ProviderName()

	result, err := s.provider.ConsultarNfse(ctx, e.ExternalID)
	if err != nil {
		s.handlePollError(ctx, e, err)
		return
	}

	if result.Status == emission.StatusPending {
		if err := s.repo.UpdateByExternalID(ctx, emission.StatusUpdate{
			ExternalID:       e.ExternalID,
			Provider:         providerName,
			Status:           result.Status,
			ProviderResponse: result.Response,
		}); err != nil {
			s.log.Error("Falha ao registrar consulta pendente",
				"externalId", e.ExternalID,
				"error", err.Error())
		}
		return
	}

	if result.Status == emission.StatusAuthorized && s.config.StoreArtifacts {
		artifactID := ExtractArtifactID(result.Response, e.ExternalID)

		xml, pdf, err := s.downloadArtifacts(ctx, artifactID)
		if err != nil {
			s.handlePollError(ctx, e, err)
			return
		}

		if err := s.repo.UpdateByExternalID(ctx, emission.StatusUpdate{
			ExternalID:       e.ExternalID,
			Provider:         providerName,
			Status:           result.Status,
			ProviderResponse: result.Response,
			XMLBase64:        encodeBase64(xml),
			PDFBase64:        encodeBase64(pdf),
		}); err != nil {
			s.log.Error("Falha ao persistir artefatos",
				"externalId", e.ExternalID,
				"error", err.Error())
			return
		}

		s.log.Info("Emissão autorizada com artefatos armazenados",
			"externalId", e.ExternalID,
			"artifactId", artifactID)
		return
	}

	if err := s.repo.UpdateByExternalID(ctx, emission.StatusUpdate{
		ExternalID:       e.ExternalID,
		Provider:         providerName,
		Status:           result.Status,
		ProviderResponse: result.Response,
	}); err != nil {
		s.log.Error("Falha ao registrar status terminal",
			"externalId", e.ExternalID,
			"error", err.Error())
	}
}

// downloadArtifacts baixa XML e PDF concorrentemente
func (s *PollNfseStatusService) downloadArtifacts(ctx context.Context, artifactID string) ([]byte, []byte, error) {
	var (
		wg             sync.WaitGroup
		xml, pdf       []byte
		xmlErr, pdfErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		xml, xmlErr = s.provider.BaixarXMLNfse(ctx, artifactID)
	}()
	go func() {
		defer wg.Done()
		pdf, pdfErr = s.provider.BaixarPDFNfse(ctx, artifactID, nil)
	}()
	wg.Wait()

	if xmlErr != nil {
		return nil, nil, xmlErr
	}
	if pdfErr != nil {
		return nil, nil, pdfErr
	}
	return xml, pdf, nil
}

func (s *PollNfseStatusService) handlePollError(ctx context.Context, e *emission.Emission, pollErr error) {
	providerName := s.provider.ProviderName()
	message := pollErr.Error()

	if provider.IsTransient(pollErr) {
		attempts := e.PollAttempts + 1

		if attempts >= s.config.MaxAttempts {
			s.log.Error("Limite de tentativas de polling atingido",
				"externalId", e.ExternalID,
				"attempts", attempts,
				"error", message)
			if err := s.repo.UpdateByExternalID(ctx, emission.StatusUpdate{
				ExternalID: e.ExternalID,
				Provider:   providerName,
				Status:     emission.StatusError,
				Error:      message,
			}); err != nil {
				s.log.Error("Falha ao marcar emissão como ERROR",
					"externalId", e.ExternalID,
					"error", err.Error())
			}
			return
		}

		nextPollAt := s.ComputeNextPollAt(attempts, time.Now())
		s.log.Warn("Falha transitória de polling",
			"externalId", e.ExternalID,
			"attempts", attempts,
			"nextPollAt", nextPollAt.Format(time.RFC3339))

		if err := s.repo.MarkPollingTransientFailure(ctx, e.ExternalID, providerName, message, nextPollAt); err != nil {
			s.log.Error("Falha ao agendar próximo polling",
				"externalId", e.ExternalID,
				"error", err.Error())
		}
		return
	}

	s.log.Error("Falha fatal de polling",
		"externalId", e.ExternalID,
		"error", message)

	if err := s.repo.UpdateByExternalID(ctx, emission.StatusUpdate{
		ExternalID: e.ExternalID,
		Provider:   providerName,
		Status:     emission.StatusError,
		Error:      message,
	}); err != nil {
		s.log.Error("Falha ao marcar emissão como ERROR",
			"externalId", e.ExternalID,
			"error", err.Error())
	}
}
