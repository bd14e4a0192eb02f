package nuvemfiscal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// Provider implementa provider.FiscalProvider para a NuvemFiscal
type Provider struct {
	config Config
	client *provider.Client
	log    logger.Logger
}

// NewProvider cria uma nova instância do provedor NuvemFiscal
func NewProvider(config Config, clientConfig provider.ClientConfig, log logger.Logger) *Provider {
	tokens := NewTokenSource(config)

	client := provider.NewClient("NuvemFiscal", clientConfig, func(ctx context.Context, req *http.Request) error {
		token, err := tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
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
	return emission.ProviderNuvemFiscal
}

// EmitirNfse submete uma DPS à NuvemFiscal
func (p *Provider) EmitirNfse(ctx context.Context, input *emission.EmitirNfseInput) (*provider.SubmitResult, error) {
	dps := BuildDpsRequest(input, p.config.Environment)

	request, err := json.Marshal(dps)
	if err != nil {
		return nil, fmt.Errorf("falha ao serializar DPS: %w", err)
	}

	p.log.Info("Emitindo NFS-e via NuvemFiscal",
		"prestador", dps.InfDPS.Prest.CNPJ,
		"referencia", dps.Referencia)

	body, err := p.client.Request(ctx, provider.RequestSpec{
		Method: http.MethodPost,
		URL:    p.config.APIBaseURL + "/nfse/dps",
		Body:   dps,
	})
	if err != nil {
		return nil, err
	}

	var response NfseResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("falha ao decodificar resposta da NuvemFiscal: %w", err)
	}

	return &provider.SubmitResult{
		Status:     MapStatus(response.Status),
		ExternalID: response.ID,
		Request:    request,
		Response:   body,
	}, nil
}

// ConsultarNfse consulta a situação de uma NFS-e
func (p *Provider) ConsultarNfse(ctx context.Context, externalID string) (*provider.QueryResult, error) {
	body, err := p.client.Request(ctx, provider.RequestSpec{
		Method: http.MethodGet,
		URL:    p.config.APIBaseURL + "/nfse/" + url.PathEscape(externalID),
	})
	if err != nil {
		return nil, err
	}

	var response NfseResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("falha ao decodificar consulta da NuvemFiscal: %w", err)
	}

	return &provider.QueryResult{
		Status:   MapStatus(response.Status),
		Response: body,
	}, nil
}

// BaixarXMLNfse baixa o XML assinado
func (p *Provider) BaixarXMLNfse(ctx context.Context, artifactID string) ([]byte, error) {
	return p.client.Request(ctx, provider.RequestSpec{
		Method: http.MethodGet,
		URL:    p.config.APIBaseURL + "/nfse/" + url.PathEscape(artifactID) + "/xml",
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
		URL:    p.config.APIBaseURL + "/nfse/" + url.PathEscape(artifactID) + "/pdf",
		Query:  query,
	})
}
