package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSyncConfig() SyncConfig {
	return SyncConfig{MinInterval: 60 * time.Second}
}

func storedEmission(externalID string) *emission.Emission {
	e := emission.NewEmission(emission.ProviderNuvemFiscal, "", json.RawMessage(`{}`))
	e.ExternalID = externalID
	return e
}

func repoWithEmission(e *emission.Emission) *fakeRepository {
	return &fakeRepository{
		findByIDFn: func(ctx context.Context, id string) (*emission.Emission, error) {
			if id == e.ID {
				return e, nil
			}
			return nil, emission.ErrNotFound
		},
	}
}

func syncInput(id string) SyncNfseArtifactsInput {
	return SyncNfseArtifactsInput{
		EmissionID:  id,
		RequestedBy: "operador@example.com",
		IP:          "10.0.0.1",
	}
}

func TestSyncArtifactsNotFound(t *testing.T) {
	repo := &fakeRepository{}
	service := NewSyncNfseArtifactsService(repo, &fakeProvider{}, testSyncConfig(), testLogger())

	result, err := service.Execute(context.Background(), syncInput("inexistente"))
	require.NoError(t, err)

	assert.False(t, result.Found)
	assert.Empty(t, repo.auditEntries)
}

func TestSyncArtifactsAlreadyPresent(t *testing.T) {
	doc := storedEmission("nf-123")
	doc.Status = emission.StatusAuthorized
	doc.XMLBase64 = "eA=="
	doc.PDFBase64 = "eQ=="

	repo := repoWithEmission(doc)
	prov := &fakeProvider{}
	service := NewSyncNfseArtifactsService(repo, prov, testSyncConfig(), testLogger())

	result, err := service.Execute(context.Background(), syncInput(doc.ID))
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.False(t, result.Synced)
	assert.Equal(t, "already_present", result.Reason)

	// Nenhuma chamada ao provedor e registro de auditoria sem avançar o relógio
	assert.Empty(t, prov.consultedIDs)
	require.Len(t, repo.auditEntries, 1)
	assert.Equal(t, emission.SyncOutcomeAlreadyPresent, repo.auditEntries[0].Entry.Outcome)
	assert.False(t, repo.auditEntries[0].TouchLastSync)
	assert.Equal(t, "operador@example.com", repo.auditEntries[0].Entry.RequestedBy)
}

func TestSyncArtifactsRateLimited(t *testing.T) {
	doc := storedEmission("nf-123")
	lastSync := time.Now().Add(-30 * time.Second)
	doc.LastArtifactSyncAt = &lastSync

	repo := repoWithEmission(doc)
	prov := &fakeProvider{}
	service := NewSyncNfseArtifactsService(repo, prov, testSyncConfig(), testLogger())

	_, err := service.Execute(context.Background(), syncInput(doc.ID))

	var rateLimitedErr *emission.RateLimitedError
	require.ErrorAs(t, err, &rateLimitedErr)
	assert.Greater(t, rateLimitedErr.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, rateLimitedErr.RetryAfter, 30*time.Second+time.Second)

	// O bloqueio não estende a janela de limitação
	assert.Empty(t, prov.consultedIDs)
	require.Len(t, repo.auditEntries, 1)
	assert.Equal(t, emission.SyncOutcomeRateLimited, repo.auditEntries[0].Entry.Outcome)
	assert.False(t, repo.auditEntries[0].TouchLastSync)
}

func TestSyncArtifactsExpiredWindowAllows(t *testing.T) {
	doc := storedEmission("nf-123")
	lastSync := time.Now().Add(-61 * time.Second)
	doc.LastArtifactSyncAt = &lastSync

	repo := repoWithEmission(doc)
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return &provider.QueryResult{
				Status:   emission.StatusAuthorized,
				Response: json.RawMessage(`{"idNota":"id-9"}`),
			}, nil
		},
	}
	service := NewSyncNfseArtifactsService(repo, prov, testSyncConfig(), testLogger())

	result, err := service.Execute(context.Background(), syncInput(doc.ID))
	require.NoError(t, err)
	assert.True(t, result.Synced)
}

func TestSyncArtifactsMissingExternalID(t *testing.T) {
	doc := storedEmission("")

	repo := repoWithEmission(doc)
	service := NewSyncNfseArtifactsService(repo, &fakeProvider{}, testSyncConfig(), testLogger())

	_, err := service.Execute(context.Background(), syncInput(doc.ID))

	var validationErr *emission.ValidationError
	require.ErrorAs(t, err, &validationErr)

	require.Len(t, repo.auditEntries, 1)
	assert.Equal(t, emission.SyncOutcomeMissingExternalID, repo.auditEntries[0].Entry.Outcome)
	assert.False(t, repo.auditEntries[0].TouchLastSync)
}

func TestSyncArtifactsNotAuthorized(t *testing.T) {
	doc := storedEmission("nf-123")

	repo := repoWithEmission(doc)
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return &provider.QueryResult{
				Status:   emission.StatusPending,
				Response: json.RawMessage(`{"status":"processando"}`),
			}, nil
		},
	}
	service := NewSyncNfseArtifactsService(repo, prov, testSyncConfig(), testLogger())

	result, err := service.Execute(context.Background(), syncInput(doc.ID))
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.False(t, result.Synced)
	assert.Equal(t, "not_authorized", result.Reason)
	assert.Empty(t, prov.xmlIDs)

	// A consulta alcançou o provedor, então a janela de limitação avança
	require.Len(t, repo.auditEntries, 1)
	assert.Equal(t, emission.SyncOutcomeNotAuthorized, repo.auditEntries[0].Entry.Outcome)
	assert.True(t, repo.auditEntries[0].TouchLastSync)

	// Caminho somente leitura: o estado de polling não é alterado
	assert.Empty(t, repo.statusUpdates)
	assert.Empty(t, repo.savedArtifacts)
}

func TestSyncArtifactsSuccess(t *testing.T) {
	doc := storedEmission("nf-123")
	doc.Status = emission.StatusError
	doc.Error = "limite de tentativas de polling atingido"

	repo := repoWithEmission(doc)
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return &provider.QueryResult{
				Status:   emission.StatusAuthorized,
				Response: json.RawMessage(`{"documents":[{"idNota":"id-9"}]}`),
			}, nil
		},
	}
	service := NewSyncNfseArtifactsService(repo, prov, testSyncConfig(), testLogger())

	result, err := service.Execute(context.Background(), syncInput(doc.ID))
	require.NoError(t, err)

	assert.True(t, result.Synced)
	assert.Equal(t, emission.StatusAuthorized, result.Status)
	assert.Equal(t, "id-9", result.ArtifactID)
	assert.True(t, result.HasXML)
	assert.True(t, result.HasPDF)

	require.Len(t, repo.savedArtifacts, 1)
	saved := repo.savedArtifacts[0]
	assert.Equal(t, doc.ID, saved.ID)
	assert.Equal(t, emission.StatusAuthorized, saved.Status)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("<xml/>")), saved.XMLBase64)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), saved.PDFBase64)

	require.Len(t, repo.auditEntries, 1)
	assert.Equal(t, emission.SyncOutcomeSuccess, repo.auditEntries[0].Entry.Outcome)
	assert.True(t, repo.auditEntries[0].TouchLastSync)
}

func TestSyncArtifactsQueryFailureAudited(t *testing.T) {
	doc := storedEmission("nf-123")

	repo := repoWithEmission(doc)
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return nil, &provider.APIError{StatusCode: 503}
		},
	}
	service := NewSyncNfseArtifactsService(repo, prov, testSyncConfig(), testLogger())

	_, err := service.Execute(context.Background(), syncInput(doc.ID))
	require.Error(t, err)

	require.Len(t, repo.auditEntries, 1)
	assert.Equal(t, emission.SyncOutcomeFailed, repo.auditEntries[0].Entry.Outcome)
	assert.True(t, repo.auditEntries[0].TouchLastSync)
}
