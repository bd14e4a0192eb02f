package emission

import (
	"context"
	"encoding/json"
	"time"
)

// UpdatePatch descreve uma atualização parcial de emissão. Campos nil são ignorados.
// Quando Status está presente, a atualização só é aplicada se o status armazenado
// ainda for PENDING ou já for igual ao status alvo.
type UpdatePatch struct {
	Status           *Status
	ExternalID       *string
	ProviderRequest  json.RawMessage
	ProviderResponse json.RawMessage
	Error            *string
}

// StatusUpdate descreve uma atualização de status endereçada pelo externalId.
// É o ponto de convergência entre polling e webhook: a mesma guarda condicional
// de status vale para os dois caminhos.
type StatusUpdate struct {
	ExternalID       string
	Provider         Provider
	Status           Status
	ProviderResponse json.RawMessage
	Error            string
	XMLBase64        string
	PDFBase64        string
}

// PendingFilter seleciona emissões elegíveis para polling
type PendingFilter struct {
	Provider  Provider
	Limit     int
	OlderThan time.Duration
	Now       time.Time
}

// ListFilter seleciona emissões para listagem paginada
type ListFilter struct {
	Provider string
	Status   *Status
	Page     int
	Limit    int
}

// Page é o resultado de uma listagem paginada
type Page struct {
	Items      []*Emission
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// Repository define a interface para operações de repositório de emissões
type Repository interface {
	// Create persiste uma nova emissão; retorna ErrDuplicateReference quando a
	// restrição de unicidade (provider, reference) é violada
	Create(ctx context.Context, e *Emission) error

	// FindByID busca uma emissão pelo ID; retorna ErrNotFound quando ausente
	FindByID(ctx context.Context, id string) (*Emission, error)

	// FindByExternalID busca uma emissão pelo identificador do provedor
	FindByExternalID(ctx context.Context, externalID string) (*Emission, error)

	// FindByReference busca uma emissão pela chave de idempotência do chamador
	FindByReference(ctx context.Context, provider Provider, reference string) (*Emission, error)

	// FindPending lista emissões PENDING elegíveis para polling, mais antigas primeiro
	FindPending(ctx context.Context, filter PendingFilter) ([]*Emission, error)

	// FindPaginated lista emissões com filtros opcionais de provedor e status
	FindPaginated(ctx context.Context, filter ListFilter) (*Page, error)

	// UpdateEmission aplica uma atualização parcial guardada por status
	UpdateEmission(ctx context.Context, id string, patch UpdatePatch) error

	// UpdateByExternalID aplica uma atualização de status guardada; status terminal
	// limpa o agendamento de polling
	UpdateByExternalID(ctx context.Context, update StatusUpdate) error

	// MarkPollingTransientFailure incrementa o contador de tentativas e agenda o
	// próximo polling sem alterar o status
	MarkPollingTransientFailure(ctx context.Context, externalID string, provider Provider, message string, nextPollAt time.Time) error

	// SaveArtifacts persiste XML/PDF e o status em uma única atualização; permite a
	// recuperação manual de emissões em ERROR
	SaveArtifacts(ctx context.Context, id string, status Status, providerResponse json.RawMessage, xmlBase64, pdfBase64 string) error

	// AppendArtifactSyncAudit adiciona uma entrada ao histórico limitado de
	// sincronizações; touchLastSync avança last_artifact_sync_at
	AppendArtifactSyncAudit(ctx context.Context, id string, entry SyncAuditEntry, touchLastSync bool) error
}
