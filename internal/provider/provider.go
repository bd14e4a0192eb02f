package provider

import (
	"context"
	"encoding/json"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
)

// SubmitResult é o resultado normalizado de uma emissão
type SubmitResult struct {
	Status     emission.Status
	ExternalID string
	Request    json.RawMessage
	Response   json.RawMessage
}

// QueryResult é o resultado normalizado de uma consulta de situação
type QueryResult struct {
	Status   emission.Status
	Response json.RawMessage
}

// PDFOptions controla a renderização do PDF quando o provedor suporta
type PDFOptions struct {
	Logotipo       bool
	MensagemRodape string
}

// FiscalProvider abstrai um provedor de certificação fiscal externo. Cada
// implementação é responsável pelo próprio contrato HTTP, autenticação e pelo
// mapeamento do vocabulário de status do provedor para o enum do domínio.
type FiscalProvider interface {
	// ProviderName identifica o provedor no registro de emissões
	ProviderName() emission.Provider

	// EmitirNfse submete a requisição canônica ao provedor
	EmitirNfse(ctx context.Context, input *emission.EmitirNfseInput) (*SubmitResult, error)

	// ConsultarNfse consulta a situação atual de uma emissão
	ConsultarNfse(ctx context.Context, externalID string) (*QueryResult, error)

	// BaixarXMLNfse baixa o XML assinado de uma nota autorizada
	BaixarXMLNfse(ctx context.Context, artifactID string) ([]byte, error)

	// BaixarPDFNfse baixa o PDF renderizado de uma nota autorizada
	BaixarPDFNfse(ctx context.Context, artifactID string, opts *PDFOptions) ([]byte, error)
}
