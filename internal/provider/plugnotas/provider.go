package plugnotas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// Provider implementa provider.FiscalProvider para a PlugNotas
type Provider struct {
	config Config
	client *provider.Client
	log    logger.Logger
}

// NewProvider cria uma nova instância do provedor PlugNotas
func NewProvider(config Config, clientConfig provider.ClientConfig, log logger.Logger) *Provider {
	client := provider.NewClient("PlugNotas", clientConfig, func(ctx context.Context, req *http.Request) error {
		req.Header.Set("x-api-key", config.APIKey)
		return nil
	})

	return &Provider{
		config: config,
		client: client,
		log:    log,
	}
}

// ProviderName implementa provider.FiscalProvider
func (p *Provider) ProviderName() emission.Provider {
	return emission.ProviderPlugNotas
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

func buildNfseBody(input *emission.EmitirNfseInput) []map[string]any {
	servico := map[string]any{
		"discriminacao": input.Servico.Descricao,
		"valor": map[string]any{
			"servico": input.Servico.Valor,
		},
	}
	if input.Servico.CodigoMunicipal != "" {
		servico["codigo"] = input.Servico.CodigoMunicipal
	}
	if input.Servico.CodigoTributacao != "" {
		servico["codigoTributacao"] = input.Servico.CodigoTributacao
	}
	if input.Servico.CodigoNacional != "" {
		servico["cnae"] = input.Servico.CodigoNacional
	}

	// A PlugNotas recebe um lote de notas, mesmo para emissão unitária
	return []map[string]any{
		{
			"idIntegracao": input.NormalizedReference(),
			"prestador": map[string]any{
				"cpfCnpj": onlyDigits(input.Prestador.CNPJ),
			},
			"tomador": map[string]any{
				"cpfCnpj":     onlyDigits(input.Tomador.CPFCNPJ),
				"razaoSocial": input.Tomador.RazaoSocial,
				"email":       input.Tomador.Email,
				"endereco": map[string]any{
					"descricaoCidade": input.Tomador.Endereco.Municipio,
					"logradouro":      input.Tomador.Endereco.Logradouro,
					"numero":          input.Tomador.Endereco.Numero,
					"complemento":     input.Tomador.Endereco.Complemento,
					"bairro":          input.Tomador.Endereco.Bairro,
					"estado":          input.Tomador.Endereco.UF,
					"cep":             onlyDigits(input.Tomador.Endereco.CEP),
				},
			},
			"servico": []map[string]any{servico},
		},
	}
}

// EmitirNfse submete a nota à PlugNotas. O sandbox da PlugNotas sinaliza
// aceitação através de HTTP 400 com um protocolo válido no corpo; esse caso é
// tratado como submissão PENDING bem-sucedida, não como falha.
func (p *Provider) EmitirNfse(ctx context.Context, input *emission.EmitirNfseInput) (*provider.SubmitResult, error) {
	payload := buildNfseBody(input)

	request, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("falha ao serializar requisição PlugNotas: %w", err)
	}

	p.log.Info("Emitindo NFS-e via PlugNotas",
		"prestador", onlyDigits(input.Prestador.CNPJ),
		"referencia", input.NormalizedReference())

	body, err := p.client.Request(ctx, provider.RequestSpec{
		Method: http.MethodPost,
		URL:    p.config.BaseURL + "/nfse",
		Body:   payload,
	})
	if err != nil {
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) && apiErr.IsClientError() {
			if protocol := ExtractProtocol(apiErr.Body); protocol != "" {
				p.log.Warn("PlugNotas retornou erro HTTP com protocolo válido, tratando como aceita",
					"status", apiErr.StatusCode,
					"protocolo", protocol)
				return &provider.SubmitResult{
					Status:     emission.StatusPending,
					ExternalID: protocol,
					Request:    request,
					Response:   apiErr.Body,
				}, nil
			}
		}
		return nil, err
	}

	status := MapStatus(ExtractStatus(body))
	if !status.IsTerminal() {
		status = emission.StatusPending
	}

	return &provider.SubmitResult{
		Status:     status,
		ExternalID: ExtractProtocol(body),
		Request:    request,
		Response:   body,
	}, nil
}

// ConsultarNfse consulta a situação de uma nota pelo protocolo ou id
func (p *Provider) ConsultarNfse(ctx context.Context, externalID string) (*provider.QueryResult, error) {
	body, err := p.client.Request(ctx, provider.RequestSpec{
		Method: http.MethodGet,
		URL:    p.config.BaseURL + "/nfse/" + url.PathEscape(externalID),
	})
	if err != nil {
		return nil, err
	}

	return &provider.QueryResult{
		Status:   MapStatus(ExtractStatus(body)),
		Response: body,
	}, nil
}

func (p *Provider) artifactURL(template, artifactID string) string {
	return p.config.BaseURL + strings.Replace(template, "{id}", url.PathEscape(artifactID), 1)
}

// BaixarXMLNfse baixa o XML assinado
func (p *Provider) BaixarXMLNfse(ctx context.Context, artifactID string) ([]byte, error) {
	return p.client.Request(ctx, provider.RequestSpec{
		Method: http.MethodGet,
		URL:    p.artifactURL(p.config.XMLPathTemplate, artifactID),
	})
}

// BaixarPDFNfse baixa o PDF renderizado
func (p *Provider) BaixarPDFNfse(ctx context.Context, artifactID string, opts *provider.PDFOptions) ([]byte, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Logotipo {
			query.Set("logotipo", "true")
		}
		if opts.MensagemRodape != "" {
			query.Set("mensagem_rodape", opts.MensagemRodape)
		}
	}

	return p.client.Request(ctx, provider.RequestSpec{
		Method: http.MethodGet,
		URL:    p.artifactURL(p.config.PDFPathTemplate, artifactID),
		Query:  query,
	})
}
