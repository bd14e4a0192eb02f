package emission

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Provider identifica o provedor fiscal externo responsável pela emissão
type Provider string

const (
	ProviderNuvemFiscal Provider = "NUVEMFISCAL"
	ProviderPlugNotas   Provider = "PLUGNOTAS"
)

// Status representa o estado de uma emissão no ciclo de vida do provedor
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAuthorized Status = "AUTHORIZED"
	StatusRejected   Status = "REJECTED"
	StatusCanceled   Status = "CANCELED"
	StatusError      Status = "ERROR"
)

// IsTerminal indica se o status encerra a reconciliação automática
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAuthorized, StatusRejected, StatusCanceled, StatusError:
		return true
	}
	return false
}

// ParseStatus converte uma string no status do domínio, se válida
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPending, StatusAuthorized, StatusRejected, StatusCanceled, StatusError:
		return Status(value), true
	}
	return "", false
}

// SyncAuditLimit limita o histórico de sincronizações manuais por emissão
const SyncAuditLimit = 20

// Resultados possíveis de uma tentativa de sincronização manual de artefatos
const (
	SyncOutcomeSuccess           = "success"
	SyncOutcomeFailed            = "failed"
	SyncOutcomeAlreadyPresent    = "noop_already_present"
	SyncOutcomeRateLimited       = "blocked_rate_limited"
	SyncOutcomeMissingExternalID = "failed_missing_external_id"
	SyncOutcomeNotAuthorized     = "skipped_not_authorized"
)

// SyncAuditEntry registra uma tentativa de sincronização manual de artefatos
type SyncAuditEntry struct {
	At          time.Time `json:"at"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	IP          string    `json:"ip,omitempty"`
}

// Emission representa uma tentativa de emissão de NFS-e e seu ciclo de vida
type Emission struct {
	ID                 string           `json:"id"`
	Provider           Provider         `json:"provider"`
	Status             Status           `json:"status"`
	Reference          string           `json:"reference,omitempty"`
	Payload            json.RawMessage  `json:"payload"`
	ExternalID         string           `json:"external_id,omitempty"`
	ProviderRequest    json.RawMessage  `json:"provider_request,omitempty"`
	ProviderResponse   json.RawMessage  `json:"provider_response,omitempty"`
	Error              string           `json:"error,omitempty"`
	XMLBase64          string           `json:"-"`
	PDFBase64          string           `json:"-"`
	PollAttempts       int              `json:"poll_attempts"`
	LastPollError      string           `json:"last_poll_error,omitempty"`
	LastPolledAt       *time.Time       `json:"last_polled_at,omitempty"`
	NextPollAt         *time.Time       `json:"next_poll_at,omitempty"`
	LastArtifactSyncAt *time.Time       `json:"last_artifact_sync_at,omitempty"`
	ArtifactSyncAudit  []SyncAuditEntry `json:"artifact_sync_audit,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewEmission cria uma nova emissão com status PENDING e elegível para polling
func NewEmission(provider Provider, reference string, payload json.RawMessage) *Emission {
	now := time.Now()
	return &Emission{
		ID:           uuid.New().String(),
		Provider:     provider,
		Status:       StatusPending,
		Reference:    reference,
		Payload:      payload,
		PollAttempts: 0,
		LastPolledAt: &now,
		NextPollAt:   &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasArtifacts indica se XML e PDF já foram armazenados
func (e *Emission) HasArtifacts() bool {
	return e.XMLBase64 != "" && e.PDFBase64 != ""
}
