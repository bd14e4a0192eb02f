package dto

import (
	"encoding/json"
	"time"

	"github.com/hugohenrick/nfse-gateway/internal/application"
	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
)

// EmitirNfseResponse representa a resposta da submissão de uma NFS-e
type EmitirNfseResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	ExternalID       string `json:"externalId,omitempty"`
	IdempotentReplay bool   `json:"idempotentReplay"`
}

// ToEmitirNfseResponse converte o resultado da emissão para o DTO de resposta
func ToEmitirNfseResponse(out *application.EmitirNfseOutput) EmitirNfseResponse {
	return EmitirNfseResponse{
		ID:               out.EmissionID,
		Status:           string(out.Status),
		ExternalID:       out.ExternalID,
		IdempotentReplay: out.IdempotentReplay,
	}
}

// SyncAuditEntryResponse representa uma entrada do histórico de sincronizações
type SyncAuditEntryResponse struct {
	At          time.Time `json:"at"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message,omitempty"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	IP          string    `json:"ip,omitempty"`
}

// EmissionResponse representa uma emissão na listagem e na consulta por ID
type EmissionResponse struct {
	ID                 string                   `json:"id"`
	Provider           string                   `json:"provider"`
	Status             string                   `json:"status"`
	Reference          string                   `json:"reference,omitempty"`
	ExternalID         string                   `json:"externalId,omitempty"`
	Error              string                   `json:"error,omitempty"`
	HasXML             bool                     `json:"hasXml"`
	HasPDF             bool                     `json:"hasPdf"`
	PollAttempts       int                      `json:"pollAttempts"`
	LastPollError      string                   `json:"lastPollError,omitempty"`
	LastPolledAt       *time.Time               `json:"lastPolledAt,omitempty"`
	NextPollAt         *time.Time               `json:"nextPollAt,omitempty"`
	LastArtifactSyncAt *time.Time               `json:"lastArtifactSyncAt,omitempty"`
	ArtifactSyncAudit  []SyncAuditEntryResponse `json:"artifactSyncAudit,omitempty"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
}

// ToEmissionResponse converte uma emissão do domínio para o DTO de resposta.
// Os artefatos em si não são expostos aqui, apenas a indicação de presença.
func ToEmissionResponse(e *emission.Emission) EmissionResponse {
	resp := EmissionResponse{
		ID:                 e.ID,
		Provider:           string(e.Provider),
		Status:             string(e.Status),
		Reference:          e.Reference,
		ExternalID:         e.ExternalID,
		Error:              e.Error,
		HasXML:             e.XMLBase64 != "",
		HasPDF:             e.PDFBase64 != "",
		PollAttempts:       e.PollAttempts,
		LastPollError:      e.LastPollError,
		LastPolledAt:       e.LastPolledAt,
		NextPollAt:         e.NextPollAt,
		LastArtifactSyncAt: e.LastArtifactSyncAt,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}

	for _, entry := range e.ArtifactSyncAudit {
		resp.ArtifactSyncAudit = append(resp.ArtifactSyncAudit, SyncAuditEntryResponse{
			At:          entry.At,
			Outcome:     entry.Outcome,
			Message:     entry.Message,
			RequestedBy: entry.RequestedBy,
			IP:          entry.IP,
		})
	}

	return resp
}

// EmissionListResponse representa a resposta paginada de listagem de emissões
type EmissionListResponse struct {
	Items      []EmissionResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"totalPages"`
}

// ToEmissionListResponse converte uma página de emissões para o DTO de resposta
func ToEmissionListResponse(page *emission.Page) EmissionListResponse {
	items := make([]EmissionResponse, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, ToEmissionResponse(e))
	}

	return EmissionListResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
}

// ProviderResponseResponse expõe a última resposta bruta do provedor
type ProviderResponseResponse struct {
	ID               string          `json:"id"`
	Provider         string          `json:"provider"`
	Status           string          `json:"status"`
	ExternalID       string          `json:"externalId,omitempty"`
	ProviderResponse json.RawMessage `json:"providerResponse,omitempty"`
}

// ToProviderResponseResponse converte uma emissão para o DTO de resposta bruta
func ToProviderResponseResponse(e *emission.Emission) ProviderResponseResponse {
	return ProviderResponseResponse{
		ID:               e.ID,
		Provider:         string(e.Provider),
		Status:           string(e.Status),
		ExternalID:       e.ExternalID,
		ProviderResponse: e.ProviderResponse,
	}
}

// ArtifactsResponse informa a disponibilidade dos artefatos de uma emissão
type ArtifactsResponse struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	HasXML             bool       `json:"hasXml"`
	HasPDF             bool       `json:"hasPdf"`
	LastArtifactSyncAt *time.Time `json:"lastArtifactSyncAt,omitempty"`
}

// ToArtifactsResponse converte uma emissão para o DTO de artefatos
func ToArtifactsResponse(e *emission.Emission) ArtifactsResponse {
	return ArtifactsResponse{
		ID:                 e.ID,
		Status:             string(e.Status),
		HasXML:             e.XMLBase64 != "",
		HasPDF:             e.PDFBase64 != "",
		LastArtifactSyncAt: e.LastArtifactSyncAt,
	}
}

// SyncArtifactsResponse representa o resultado de uma sincronização manual
type SyncArtifactsResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Synced     bool   `json:"synced"`
	Reason     string `json:"reason,omitempty"`
	ArtifactID string `json:"artifactId,omitempty"`
	HasXML     bool   `json:"hasXml"`
	HasPDF     bool   `json:"hasPdf"`
}

// ToSyncArtifactsResponse converte o resultado da sincronização para o DTO de resposta
func ToSyncArtifactsResponse(result *application.SyncNfseArtifactsResult) SyncArtifactsResponse {
	return SyncArtifactsResponse{
		ID:         result.ID,
		Status:     string(result.Status),
		Synced:     result.Synced,
		Reason:     result.Reason,
		ArtifactID: result.ArtifactID,
		HasXML:     result.HasXML,
		HasPDF:     result.HasPDF,
	}
}
