package nuvemfiscal

import (
	"testing"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected emission.Status
	}{
		{"autorizada", emission.StatusAuthorized},
		{"AUTORIZADO", emission.StatusAuthorized},
		{"rejeitada", emission.StatusRejected},
		{"negada", emission.StatusRejected},
		{"cancelada", emission.StatusCanceled},
		{"erro", emission.StatusError},
		{"falha", emission.StatusError},
		{"processando", emission.StatusPending},
		{"", emission.StatusPending},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MapStatus(tt.raw), "status %q", tt.raw)
	}
}

func sampleInput(tomadorDoc string) *emission.EmitirNfseInput {
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
			CNPJ:               "12.345.678/0001-90",
			InscricaoMunicipal: "123456",
			RazaoSocial:        "Prestadora LTDA",
			Endereco:           endereco,
		},
		Tomador: emission.Tomador{
			CPFCNPJ:     tomadorDoc,
			RazaoSocial: "Tomador",
			Endereco:    endereco,
		},
		Servico: emission.Servico{
			CodigoNacional: "010701",
			Descricao:      "Serviço de teste",
			Valor:          250.75,
		},
		ReferenciaExterna: "ref-1",
	}
}

func TestBuildDpsRequestClassifiesTomadorDocument(t *testing.T) {
	// CPF tem 11 dígitos após a limpeza
	req := BuildDpsRequest(sampleInput("123.456.789-09"), Sandbox)
	require.NotNil(t, req.InfDPS.Toma)
	assert.Equal(t, "12345678909", req.InfDPS.Toma.CPF)
	assert.Empty(t, req.InfDPS.Toma.CNPJ)

	// Qualquer outro tamanho é tratado como CNPJ
	req = BuildDpsRequest(sampleInput("12.345.678/0001-90"), Sandbox)
	assert.Equal(t, "12345678000190", req.InfDPS.Toma.CNPJ)
	assert.Empty(t, req.InfDPS.Toma.CPF)
}

func TestBuildDpsRequestEnvironmentAndValues(t *testing.T) {
	req := BuildDpsRequest(sampleInput("123.456.789-09"), Sandbox)
	assert.Equal(t, AmbienteHomologacao, req.Ambiente)

	req = BuildDpsRequest(sampleInput("123.456.789-09"), Production)
	assert.Equal(t, AmbienteProducao, req.Ambiente)

	assert.Equal(t, "12345678000190", req.InfDPS.Prest.CNPJ)
	assert.Equal(t, "123456", req.InfDPS.Prest.IM)
	assert.Equal(t, "010701", req.InfDPS.Serv.CServ.CTribNac)
	assert.Equal(t, 250.75, req.InfDPS.Valores.VServPrest.VServ)
	assert.Equal(t, "ref-1", req.Referencia)
	assert.NotEmpty(t, req.InfDPS.DhEmi)
}
