package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// SyncNfseArtifactsInput identifica a emissão e quem solicitou a recuperação
type SyncNfseArtifactsInput struct {
	EmissionID  string
	RequestedBy string
	IP          string
}

// SyncNfseArtifactsResult é o resultado de uma sincronização manual
type SyncNfseArtifactsResult struct {
	Found      bool
	ID         string
	Status     emission.Status
	Synced     bool
	Reason     string
	ArtifactID string
	HasXML     bool
	HasPDF     bool
}

// SyncNfseArtifactsService recupera artefatos sob demanda, com intervalo
// mínimo entre tentativas e trilha de auditoria completa: cada desfecho,
// inclusive os bloqueados, gera exatamente uma entrada de auditoria.
type SyncNfseArtifactsService struct {
	repo     emission.Repository
	provider provider.FiscalProvider
	config   SyncConfig
	log      logger.Logger
}

// NewSyncNfseArtifactsService cria uma nova instância de SyncNfseArtifactsService
func NewSyncNfseArtifactsService(repo emission.Repository, fiscalProvider provider.FiscalProvider, config SyncConfig, log logger.Logger) *SyncNfseArtifactsService {
	return &SyncNfseArtifactsService{
		repo:     repo,
		provider: fiscalProvider,
		config:   config,
		log:      log,
	}
}

func (s *SyncNfseArtifactsService) audit(ctx context.Context, id string, entry emission.SyncAuditEntry, touchLastSync bool) {
	if err := s.repo.AppendArtifactSyncAudit(ctx, id, entry, touchLastSync); err != nil {
		s.log.Error("Falha ao registrar auditoria de sincronização",
			"emissionId", id,
			"error", err.Error())
	}
}

// Execute sincroniza os artefatos de uma emissão sob demanda
func (s *SyncNfseArtifactsService) Execute(ctx context.Context, input SyncNfseArtifactsInput) (*SyncNfseArtifactsResult, error) {
	now := time.Now()

	doc, err := s.repo.FindByID(ctx, input.EmissionID)
	if err != nil {
		if errors.Is(err, emission.ErrNotFound) {
			return &SyncNfseArtifactsResult{Found: false}, nil
		}
		return nil, err
	}

	if doc.HasArtifacts() {
		s.audit(ctx, doc.ID, emission.SyncAuditEntry{
			At:          now,
			Outcome:     emission.SyncOutcomeAlreadyPresent,
			RequestedBy: input.RequestedBy,
			IP:          input.IP,
		}, false)
		return &SyncNfseArtifactsResult{
			Found:  true,
			ID:     doc.ID,
			Status: doc.Status,
			Synced: false,
			Reason: "already_present",
			HasXML: true,
			HasPDF: true,
		}, nil
	}

	if doc.LastArtifactSyncAt != nil {
		elapsed := now.Sub(*doc.LastArtifactSyncAt)
		if elapsed < s.config.MinInterval {
			retryAfter := s.config.MinInterval - elapsed
			s.audit(ctx, doc.ID, emission.SyncAuditEntry{
				At:          now,
				Outcome:     emission.SyncOutcomeRateLimited,
				Message:     fmt.Sprintf("retry after %s", retryAfter),
				RequestedBy: input.RequestedBy,
				IP:          input.IP,
			}, false)
			return nil, &emission.RateLimitedError{RetryAfter: retryAfter}
		}
	}

	if doc.ExternalID == "" {
		s.audit(ctx, doc.ID, emission.SyncAuditEntry{
			At:          now,
			Outcome:     emission.SyncOutcomeMissingExternalID,
			RequestedBy: input.RequestedBy,
			IP:          input.IP,
		}, false)
		return nil, &emission.ValidationError{Fields: []string{"externalId"}}
	}

	result, err := s.provider.ConsultarNfse(ctx, doc.ExternalID)
	if err != nil {
		s.audit(ctx, doc.ID, emission.SyncAuditEntry{
			At:          now,
			Outcome:     emission.SyncOutcomeFailed,
			Message:     err.Error(),
			RequestedBy: input.RequestedBy,
			IP:          input.IP,
		}, true)
		return nil, err
	}

	if result.Status != emission.StatusAuthorized {
		// Caminho somente leitura: não avança o estado de polling
		s.audit(ctx, doc.ID, emission.SyncAuditEntry{
			At:          now,
			Outcome:     emission.SyncOutcomeNotAuthorized,
			Message:     fmt.Sprintf("provider status=%s", result.Status),
			RequestedBy: input.RequestedBy,
			IP:          input.IP,
		}, true)
		return &SyncNfseArtifactsResult{
			Found:  true,
			ID:     doc.ID,
			Status: result.Status,
			Synced: false,
			Reason: "not_authorized",
			HasXML: doc.XMLBase64 != "",
			HasPDF: doc.PDFBase64 != "",
		}, nil
	}

	artifactID := ExtractArtifactID(result.Response, doc.ExternalID)

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

	if xmlErr != nil || pdfErr != nil {
		downloadErr := xmlErr
		if downloadErr == nil {
			downloadErr = pdfErr
		}
		s.audit(ctx, doc.ID, emission.SyncAuditEntry{
			At:          now,
			Outcome:     emission.SyncOutcomeFailed,
			Message:     downloadErr.Error(),
			RequestedBy: input.RequestedBy,
			IP:          input.IP,
		}, true)
		return nil, downloadErr
	}

	if err := s.repo.SaveArtifacts(ctx, doc.ID, emission.StatusAuthorized, result.Response, encodeBase64(xml), encodeBase64(pdf)); err != nil {
		s.audit(ctx, doc.ID, emission.SyncAuditEntry{
			At:          now,
			Outcome:     emission.SyncOutcomeFailed,
			Message:     err.Error(),
			RequestedBy: input.RequestedBy,
			IP:          input.IP,
		}, true)
		return nil, err
	}

	s.audit(ctx, doc.ID, emission.SyncAuditEntry{
		At:          now,
		Outcome:     emission.SyncOutcomeSuccess,
		Message:     fmt.Sprintf("artifactId=%s", artifactID),
		RequestedBy: input.RequestedBy,
		IP:          input.IP,
	}, true)

	return &SyncNfseArtifactsResult{
		Found:      true,
		ID:         doc.ID,
		Status:     emission.StatusAuthorized,
		Synced:     true,
		Reason:     "ok",
		ArtifactID: artifactID,
		HasXML:     true,
		HasPDF:     true,
	}, nil
}
