package emission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *EmitirNfseInput {
	endereco := Endereco{
		Logradouro: "Rua Exemplo",
		Numero:     "10",
		Bairro:     "Centro",
		Municipio:  "São Paulo",
		UF:         "SP",
		CEP:        "01000-000",
	}
	return &EmitirNfseInput{
		Prestador: Prestador{
			CNPJ:        "12.345.678/0001-90",
			RazaoSocial: "Prestadora LTDA",
			Endereco:    endereco,
		},
		Tomador: Tomador{
			CPFCNPJ:     "123.456.789-09",
			RazaoSocial: "Tomador",
			Endereco:    endereco,
		},
		Servico: Servico{
			Descricao: "Serviço",
			Valor:     100,
		},
	}
}

func TestValidateAcceptsCompleteInput(t *testing.T) {
	assert.NoError(t, validInput().Validate())
}

func TestValidateCollectsAllMissingFields(t *testing.T) {
	input := validInput()
	input.Prestador.CNPJ = "   "
	input.Tomador.Endereco.CEP = ""
	input.Servico.Descricao = ""
	input.Servico.Valor = -10

	err := input.Validate()

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ElementsMatch(t, []string{
		"prestador.cnpj",
		"tomador.endereco.cep",
		"servico.descricao",
		"servico.valor",
	}, validationErr.Fields)
}

func TestNormalizedReference(t *testing.T) {
	input := validInput()
	input.ReferenciaExterna = "  pedido-1  "
	assert.Equal(t, "pedido-1", input.NormalizedReference())

	input.ReferenciaExterna = "   "
	assert.Empty(t, input.NormalizedReference())
}
