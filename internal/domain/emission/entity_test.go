package emission

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusAuthorized.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	status, ok := ParseStatus("AUTHORIZED")
	require.True(t, ok)
	assert.Equal(t, StatusAuthorized, status)

	_, ok = ParseStatus("authorized")
	assert.False(t, ok)

	_, ok = ParseStatus("PROCESSING")
	assert.False(t, ok)

	_, ok = ParseStatus("")
	assert.False(t, ok)
}

func TestNewEmissionStartsEligibleForPolling(t *testing.T) {
	e := NewEmission(ProviderPlugNotas, "ref-1", json.RawMessage(`{}`))

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, ProviderPlugNotas, e.Provider)
	assert.Equal(t, StatusPending, e.Status)
	assert.Equal(t, "ref-1", e.Reference)
	assert.Zero(t, e.PollAttempts)
	require.NotNil(t, e.NextPollAt)
	assert.False(t, e.NextPollAt.After(e.CreatedAt))
}

func TestHasArtifacts(t *testing.T) {
	e := NewEmission(ProviderNuvemFiscal, "", json.RawMessage(`{}`))
	assert.False(t, e.HasArtifacts())

	e.XMLBase64 = "eA=="
	assert.False(t, e.HasArtifacts())

	e.PDFBase64 = "eQ=="
	assert.True(t, e.HasArtifacts())
}
