package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// EmitirNfseOutput é o resultado da submissão de uma emissão
type EmitirNfseOutput struct {
	EmissionID       string
	Status           emission.Status
	ExternalID       string
	IdempotentReplay bool
}

// EmitirNfseService valida a requisição, garante idempotência por referência
// externa, submete ao provedor e registra o resultado
type EmitirNfseService struct {
	repo     emission.Repository
	provider provider.FiscalProvider
	log      logger.Logger
}

// NewEmitirNfseService cria uma nova instância de EmitirNfseService
func NewEmitirNfseService(repo emission.Repository, fiscalProvider provider.FiscalProvider, log logger.Logger) *EmitirNfseService {
	return &EmitirNfseService{
		repo:     repo,
		provider: fiscalProvider,
		log:      log,
	}
}

func replayOutput(e *emission.Emission) *EmitirNfseOutput {
	return &EmitirNfseOutput{
		EmissionID:       e.ID,
		Status:           e.Status,
		ExternalID:       e.ExternalID,
		IdempotentReplay: true,
	}
}

// Execute processa uma requisição de emissão de NFS-e.
//
// Uma requisição repetida com a mesma referência externa nunca é resubmetida ao
// provedor: a emissão existente é devolvida como replay. A corrida entre duas
// criações concorrentes com a mesma referência é resolvida pela restrição de
// unicidade do repositório, sem lock distribuído.
func (s *EmitirNfseService) Execute(ctx context.Context, input *emission.EmitirNfseInput) (*EmitirNfseOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	providerName := s.provider.ProviderName()
	reference := input.NormalizedReference()

	if reference != "" {
		existing, err := s.repo.FindByReference(ctx, providerName, reference)
		if err != nil && !errors.Is(err, emission.ErrNotFound) {
			return nil, fmt.Errorf("falha ao consultar referência externa: %w", err)
		}
		if existing != nil {
			s.log.Info("Requisição idempotente, retornando emissão existente",
				"emissionId", existing.ID,
				"referencia", reference)
			return replayOutput(existing), nil
		}
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("falha ao serializar requisição: %w", err)
	}

	record := emission.NewEmission(providerName, reference, payload)
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, emission.ErrDuplicateReference) && reference != "" {
			// Outra requisição venceu a corrida de criação com a mesma chave
			existing, findErr := s.repo.FindByReference(ctx, providerName, reference)
			if findErr != nil {
				return nil, fmt.Errorf("falha ao resolver corrida de criação: %w", findErr)
			}
			return replayOutput(existing), nil
		}
		return nil, fmt.Errorf("falha ao criar emissão: %w", err)
	}

	result, err := s.provider.EmitirNfse(ctx, input)
	if err != nil {
		message := err.Error()
		errorStatus := emission.StatusError
		if updateErr := s.repo.UpdateEmission(ctx, record.ID, emission.UpdatePatch{
			Status: &errorStatus,
			Error:  &message,
		}); updateErr != nil {
			s.log.Error("Falha ao registrar erro de emissão",
				"emissionId", record.ID,
				"error", updateErr.Error())
		}

		var apiErr *provider.APIError
		if errors.As(err, &apiErr) && apiErr.IsClientError() {
			return nil, &emission.ProviderRejectedError{
				Provider:   providerName,
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Body,
			}
		}
		return nil, err
	}

	status := result.Status
	if err := s.repo.UpdateEmission(ctx, record.ID, emission.UpdatePatch{
		Status:           &status,
		ExternalID:       &result.ExternalID,
		ProviderRequest:  result.Request,
		ProviderResponse: result.Response,
	}); err != nil {
		return nil, fmt.Errorf("falha ao registrar resultado da emissão: %w", err)
	}

	return &EmitirNfseOutput{
		EmissionID:       record.ID,
		Status:           result.Status,
		ExternalID:       result.ExternalID,
		IdempotentReplay: false,
	}, nil
}
