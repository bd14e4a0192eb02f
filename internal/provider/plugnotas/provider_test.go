package plugnotas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClientConfig() provider.ClientConfig {
	return provider.ClientConfig{
		Timeout:      5 * time.Second,
		MaxRetries:   0,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}
}

func testProvider(serverURL string) *Provider {
	return NewProvider(Config{
		Environment:     Sandbox,
		BaseURL:         serverURL,
		APIKey:          "chave-teste",
		XMLPathTemplate: "/nfse/xml/{id}",
		PDFPathTemplate: "/nfse/pdf/{id}",
	}, testClientConfig(), logger.NewComponentLogger("test"))
}

func sampleInput() *emission.EmitirNfseInput {
	endereco := emission.Endereco{
		Logradouro: "Rua Exemplo",
		Numero:     "10",
		Bairro:     "Centro",
		Municipio:  "São Paulo",
		UF:         "SP",
		CEP:        "01000-000",
	}
	return &emission.EmitirNfseInput{
		Prestador: emission.Prestador{
			CNPJ:        "12.345.678/0001-90",
			RazaoSocial: "Prestadora LTDA",
			Endereco:    endereco,
		},
		Tomador: emission.Tomador{
			CPFCNPJ:     "123.456.789-09",
			RazaoSocial: "Tomador",
			Endereco:    endereco,
		},
		Servico: emission.Servico{
			Descricao: "Serviço de teste",
			Valor:     100,
		},
		ReferenciaExterna: "ref-1",
	}
}

func TestEmitirNfseSendsBatchWithAPIKey(t *testing.T) {
	var (
		gotAPIKey string
		gotBody   []map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/nfse", r.URL.Path)
		gotAPIKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"protocol":"prot-1","status":"PROCESSANDO"}`))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).EmitirNfse(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "chave-teste", gotAPIKey)
	assert.Equal(t, emission.StatusPending, result.Status)
	assert.Equal(t, "prot-1", result.ExternalID)

	// A emissão unitária viaja como lote de um elemento com documentos limpos
	require.Len(t, gotBody, 1)
	assert.Equal(t, "ref-1", gotBody[0]["idIntegracao"])
	prestador := gotBody[0]["prestador"].(map[string]any)
	assert.Equal(t, "12345678000190", prestador["cpfCnpj"])
	tomador := gotBody[0]["tomador"].(map[string]any)
	assert.Equal(t, "12345678909", tomador["cpfCnpj"])
}

func TestEmitirNfseSandboxErrorWithProtocolIsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"documento em homologação"},"protocol":"prot-sandbox"}`))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).EmitirNfse(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, emission.StatusPending, result.Status)
	assert.Equal(t, "prot-sandbox", result.ExternalID)
	assert.JSONEq(t, `{"error":{"message":"documento em homologação"},"protocol":"prot-sandbox"}`, string(result.Response))
}

func TestEmitirNfseErrorWithoutProtocolFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"cnpj inválido"}}`))
	}))
	defer server.Close()

	_, err := testProvider(server.URL).EmitirNfse(context.Background(), sampleInput())

	var apiErr *provider.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestConsultarNfse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nfse/prot-1", r.URL.Path)
		w.Write([]byte(`{"retorno":{"situacao":"CONCLUIDO"},"idNota":"id-9"}`))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).ConsultarNfse(context.Background(), "prot-1")
	require.NoError(t, err)

	assert.Equal(t, emission.StatusAuthorized, result.Status)
}

func TestBaixarArtefatosUsamTemplates(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte("conteudo"))
	}))
	defer server.Close()

	p := testProvider(server.URL)

	xml, err := p.BaixarXMLNfse(context.Background(), "id-9")
	require.NoError(t, err)
	assert.Equal(t, []byte("conteudo"), xml)

	_, err = p.BaixarPDFNfse(context.Background(), "id-9", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/nfse/xml/id-9", "/nfse/pdf/id-9"}, paths)
}
