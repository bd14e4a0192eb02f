package nuvemfiscal

import (
	"os"
	"strings"
	"time"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
)

// MapStatus converte o vocabulário de status da NuvemFiscal para o domínio
func MapStatus(status string) emission.Status {
	s := strings.ToLower(status)

	switch {
	case strings.Contains(s, "autoriz"):
		return emission.StatusAuthorized
	case strings.Contains(s, "rejeit"), strings.Contains(s, "negad"):
		return emission.StatusRejected
	case strings.Contains(s, "cancel"):
		return emission.StatusCanceled
	case strings.Contains(s, "erro"), strings.Contains(s, "falh"):
		return emission.StatusError
	}

	return emission.StatusPending
}

func onlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildDpsRequest monta a requisição de DPS a partir da entrada canônica
func BuildDpsRequest(input *emission.EmitirNfseInput, environment Environment) *DpsRequest {
	ambiente := AmbienteHomologacao
	if environment == Production {
		ambiente = AmbienteProducao
	}

	tomadorDoc := onlyDigits(input.Tomador.CPFCNPJ)
	toma := &Toma{
		XNome: input.Tomador.RazaoSocial,
		Email: input.Tomador.Email,
		End: &End{
			XLgr:    input.Tomador.Endereco.Logradouro,
			Nro:     input.Tomador.Endereco.Numero,
			XBairro: input.Tomador.Endereco.Bairro,
			CMun:    os.Getenv("NFSE_CMUN_IBGE"),
			XMun:    input.Tomador.Endereco.Municipio,
			UF:      input.Tomador.Endereco.UF,
			CEP:     onlyDigits(input.Tomador.Endereco.CEP),
		},
	}
	if len(tomadorDoc) == 11 {
		toma.CPF = tomadorDoc
	} else {
		toma.CNPJ = tomadorDoc
	}

	return &DpsRequest{
		Ambiente:   ambiente,
		Referencia: input.NormalizedReference(),
		InfDPS: InfDPS{
			DhEmi: time.Now().Format(time.RFC3339),
			Prest: Prest{
				CNPJ:  onlyDigits(input.Prestador.CNPJ),
				IM:    input.Prestador.InscricaoMunicipal,
				XNome: input.Prestador.RazaoSocial,
			},
			Toma: toma,
			Serv: Serv{
				CServ: CServ{
					CTribNac:  input.Servico.CodigoNacional,
					XDescServ: input.Servico.Descricao,
				},
			},
			Valores: Valores{
				VServPrest: VServPrest{VServ: input.Servico.Valor},
			},
		},
	}
}
