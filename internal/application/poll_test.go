package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPollingConfig() PollingConfig {
	return PollingConfig{
		Limit:          50,
		OlderThan:      30 * time.Second,
		BackoffBase:    60 * time.Second,
		BackoffMax:     900 * time.Second,
		BackoffJitter:  0,
		MaxAttempts:    12,
		StoreArtifacts: true,
	}
}

func pendingEmission(externalID string, attempts int) *emission.Emission {
	e := emission.NewEmission(emission.ProviderNuvemFiscal, "", json.RawMessage(`{}`))
	e.ExternalID = externalID
	e.PollAttempts = attempts
	return e
}

func singlePendingRepo(e *emission.Emission) *fakeRepository {
	return &fakeRepository{
		findPendingFn: func(ctx context.Context, filter emission.PendingFilter) ([]*emission.Emission, error) {
			return []*emission.Emission{e}, nil
		},
	}
}

func TestPollAuthorizedStoresArtifacts(t *testing.T) {
	repo := singlePendingRepo(pendingEmission("nf-123", 0))
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return &provider.QueryResult{
				Status:   emission.StatusAuthorized,
				Response: json.RawMessage(`{"status":"autorizada","idNota":"id-9"}`),
			}, nil
		},
	}
	service := NewPollNfseStatusService(repo, prov, testPollingConfig(), testLogger())

	require.NoError(t, service.RunOnce(context.Background(), 0, 0))

	// O download usa o identificador de artefato da resposta, não o externalId
	require.Len(t, prov.xmlIDs, 1)
	assert.Equal(t, "id-9", prov.xmlIDs[0])
	require.Len(t, prov.pdfIDs, 1)
	assert.Equal(t, "id-9", prov.pdfIDs[0])

	require.Len(t, repo.statusUpdates, 1)
	update := repo.statusUpdates[0]
	assert.Equal(t, emission.StatusAuthorized, update.Status)
	assert.Equal(t, "nf-123", update.ExternalID)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("<xml/>")), update.XMLBase64)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), update.PDFBase64)
}

func TestPollPendingKeepsFollowing(t *testing.T) {
	repo := singlePendingRepo(pendingEmission("nf-123", 0))
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return &provider.QueryResult{
				Status:   emission.StatusPending,
				Response: json.RawMessage(`{"status":"processando"}`),
			}, nil
		},
	}
	service := NewPollNfseStatusService(repo, prov, testPollingConfig(), testLogger())

	require.NoError(t, service.RunOnce(context.Background(), 0, 0))

	require.Len(t, repo.statusUpdates, 1)
	assert.Equal(t, emission.StatusPending, repo.statusUpdates[0].Status)
	assert.Empty(t, prov.xmlIDs)
	assert.Empty(t, prov.pdfIDs)
}

func TestPollRejectedSkipsArtifacts(t *testing.T) {
	repo := singlePendingRepo(pendingEmission("nf-123", 0))
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return &provider.QueryResult{
				Status:   emission.StatusRejected,
				Response: json.RawMessage(`{"status":"rejeitada"}`),
			}, nil
		},
	}
	service := NewPollNfseStatusService(repo, prov, testPollingConfig(), testLogger())

	require.NoError(t, service.RunOnce(context.Background(), 0, 0))

	require.Len(t, repo.statusUpdates, 1)
	assert.Equal(t, emission.StatusRejected, repo.statusUpdates[0].Status)
	assert.Empty(t, prov.xmlIDs)
}

func TestPollSkipsEmissionWithoutExternalID(t *testing.T) {
	repo := singlePendingRepo(pendingEmission("", 0))
	prov := &fakeProvider{}
	service := NewPollNfseStatusService(repo, prov, testPollingConfig(), testLogger())

	require.NoError(t, service.RunOnce(context.Background(), 0, 0))

	assert.Empty(t, prov.consultedIDs)
	assert.Empty(t, repo.statusUpdates)
}

func TestPollTransientErrorSchedulesBackoff(t *testing.T) {
	repo := singlePendingRepo(pendingEmission("nf-123", 2))
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return nil, &provider.APIError{StatusCode: http.StatusServiceUnavailable}
		},
	}
	config := testPollingConfig()
	service := NewPollNfseStatusService(repo, prov, config, testLogger())

	before := time.Now()
	require.NoError(t, service.RunOnce(context.Background(), 0, 0))

	assert.Empty(t, repo.statusUpdates)
	require.Len(t, repo.transientFailures, 1)

	failure := repo.transientFailures[0]
	assert.Equal(t, "nf-123", failure.ExternalID)
	assert.NotEmpty(t, failure.Message)

	// Tentativa 3: base * 2^2 = 240s
	expectedDelay := 4 * config.BackoffBase
	assert.False(t, failure.NextPollAt.Before(before.Add(expectedDelay)))
	assert.False(t, failure.NextPollAt.After(time.Now().Add(expectedDelay+time.Second)))
}

func TestPollTransientErrorAtCeilingEscalates(t *testing.T) {
	config := testPollingConfig()
	repo := singlePendingRepo(pendingEmission("nf-123", config.MaxAttempts-1))
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return nil, &provider.APIError{StatusCode: http.StatusTooManyRequests}
		},
	}
	service := NewPollNfseStatusService(repo, prov, config, testLogger())

	require.NoError(t, service.RunOnce(context.Background(), 0, 0))

	assert.Empty(t, repo.transientFailures)
	require.Len(t, repo.statusUpdates, 1)
	update := repo.statusUpdates[0]
	assert.Equal(t, emission.StatusError, update.Status)
	assert.NotEmpty(t, update.Error)
}

func TestPollFatalErrorEscalatesImmediately(t *testing.T) {
	repo := singlePendingRepo(pendingEmission("nf-123", 0))
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return nil, &provider.APIError{StatusCode: http.StatusNotFound}
		},
	}
	service := NewPollNfseStatusService(repo, prov, testPollingConfig(), testLogger())

	require.NoError(t, service.RunOnce(context.Background(), 0, 0))

	assert.Empty(t, repo.transientFailures)
	require.Len(t, repo.statusUpdates, 1)
	assert.Equal(t, emission.StatusError, repo.statusUpdates[0].Status)
}

func TestPollArtifactDownloadFailureIsTransient(t *testing.T) {
	repo := singlePendingRepo(pendingEmission("nf-123", 0))
	prov := &fakeProvider{
		consultarFn: func(ctx context.Context, externalID string) (*provider.QueryResult, error) {
			return &provider.QueryResult{
				Status:   emission.StatusAuthorized,
				Response: json.RawMessage(`{"id":"nf-123"}`),
			}, nil
		},
		xmlFn: func(ctx context.Context, artifactID string) ([]byte, error) {
			return nil, &provider.APIError{StatusCode: http.StatusInternalServerError}
		},
	}
	service := NewPollNfseStatusService(repo, prov, testPollingConfig(), testLogger())

	require.NoError(t, service.RunOnce(context.Background(), 0, 0))

	// O status não avança: a emissão volta para a fila com backoff
	assert.Empty(t, repo.statusUpdates)
	require.Len(t, repo.transientFailures, 1)
}

func TestComputeNextPollAt(t *testing.T) {
	config := testPollingConfig()
	service := NewPollNfseStatusService(&fakeRepository{}, &fakeProvider{}, config, testLogger())
	now := time.Now()

	assert.Equal(t, now.Add(60*time.Second), service.ComputeNextPollAt(1, now))
	assert.Equal(t, now.Add(120*time.Second), service.ComputeNextPollAt(2, now))
	assert.Equal(t, now.Add(480*time.Second), service.ComputeNextPollAt(4, now))

	// A partir da quinta tentativa o teto domina
	assert.Equal(t, now.Add(config.BackoffMax), service.ComputeNextPollAt(5, now))
	assert.Equal(t, now.Add(config.BackoffMax), service.ComputeNextPollAt(50, now))

	// Tentativas inválidas contam como a primeira
	assert.Equal(t, now.Add(60*time.Second), service.ComputeNextPollAt(0, now))
}
