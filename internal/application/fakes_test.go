package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewComponentLogger("test")
}

// fakeRepository implementa emission.Repository com comportamento configurável
// por função e registro das chamadas recebidas
type fakeRepository struct {
	createFn          func(ctx context.Context, e *emission.Emission) error
	findByIDFn        func(ctx context.Context, id string) (*emission.Emission, error)
	findByReferenceFn func(ctx context.Context, p emission.Provider, ref string) (*emission.Emission, error)
	findPendingFn     func(ctx context.Context, filter emission.PendingFilter) ([]*emission.Emission, error)

	created           []*emission.Emission
	patches           []emission.UpdatePatch
	patchIDs          []string
	statusUpdates     []emission.StatusUpdate
	transientFailures []transientFailure
	savedArtifacts    []savedArtifact
	auditEntries      []auditCall
}

type transientFailure struct {
	ExternalID string
	Message    string
	NextPollAt time.Time
}

type savedArtifact struct {
	ID        string
	Status    emission.Status
	XMLBase64 string
	PDFBase64 string
}

type auditCall struct {
	ID            string
	Entry         emission.SyncAuditEntry
	TouchLastSync bool
}

func (r *fakeRepository) Create(ctx context.Context, e *emission.Emission) error {
	if r.createFn != nil {
		if err := r.createFn(ctx, e); err != nil {
			return err
		}
	}
	r.created = append(r.created, e)
	return nil
}

func (r *fakeRepository) FindByID(ctx context.Context, id string) (*emission.Emission, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, emission.ErrNotFound
}

func (r *fakeRepository) FindByExternalID(ctx context.Context, externalID string) (*emission.Emission, error) {
	return nil, emission.ErrNotFound
}

func (r *fakeRepository) FindByReference(ctx context.Context, p emission.Provider, ref string) (*emission.Emission, error) {
	if r.findByReferenceFn != nil {
		return r.findByReferenceFn(ctx, p, ref)
	}
	return nil, emission.ErrNotFound
}

func (r *fakeRepository) FindPending(ctx context.Context, filter emission.PendingFilter) ([]*emission.Emission, error) {
	if r.findPendingFn != nil {
		return r.findPendingFn(ctx, filter)
	}
	return nil, nil
}

func (r *fakeRepository) FindPaginated(ctx context.Context, filter emission.ListFilter) (*emission.Page, error) {
	return &emission.Page{}, nil
}

func (r *fakeRepository) UpdateEmission(ctx context.Context, id string, patch emission.UpdatePatch) error {
	r.patchIDs = append(r.patchIDs, id)
	r.patches = append(r.patches, patch)
	return nil
}

func (r *fakeRepository) UpdateByExternalID(ctx context.Context, update emission.StatusUpdate) error {
	r.statusUpdates = append(r.statusUpdates, update)
	return nil
}

func (r *fakeRepository) MarkPollingTransientFailure(ctx context.Context, externalID string, p emission.Provider, message string, nextPollAt time.Time) error {
	r.transientFailures = append(r.transientFailures, transientFailure{
		ExternalID: externalID,
		Message:    message,
		NextPollAt: nextPollAt,
	})
	return nil
}

func (r *fakeRepository) SaveArtifacts(ctx context.Context, id string, status emission.Status, providerResponse json.RawMessage, xmlBase64, pdfBase64 string) error {
	r.savedArtifacts = append(r.savedArtifacts, savedArtifact{
		ID:        id,
		Status:    status,
		XMLBase64: xmlBase64,
		PDFBase64: pdfBase64,
	})
	return nil
}

func (r *fakeRepository) AppendArtifactSyncAudit(ctx context.Context, id string, entry emission.SyncAuditEntry, touchLastSync bool) error {
	r.auditEntries = append(r.auditEntries, auditCall{
		ID:            id,
		Entry:         entry,
		TouchLastSync: touchLastSync,
	})
	return nil
}

// fakeProvider implementa provider.FiscalProvider com respostas configuráveis
type fakeProvider struct {
	name emission.Provider

	emitirFn    func(ctx context.Context, input *emission.EmitirNfseInput) (*provider.SubmitResult, error)
	consultarFn func(ctx context.Context, externalID string) (*provider.QueryResult, error)
	xmlFn       func(ctx context.Context, artifactID string) ([]byte, error)
	pdfFn       func(ctx context.Context, artifactID string, opts *provider.PDFOptions) ([]byte, error)

	consultedIDs []string
	xmlIDs       []string
	pdfIDs       []string
}

func (p *fakeProvider) ProviderName() emission.Provider {
	if p.name == "" {
		return emission.ProviderNuvemFiscal
	}
	return p.name
}

func (p *fakeProvider) EmitirNfse(ctx context.Context, input *emission.EmitirNfseInput) (*provider.SubmitResult, error) {
	if p.emitirFn != nil {
		return p.emitirFn(ctx, input)
	}
	return &provider.SubmitResult{Status: emission.StatusPending}, nil
}

func (p *fakeProvider) ConsultarNfse(ctx context.Context, externalID string) (*provider.QueryResult, error) {
	p.consultedIDs = append(p.consultedIDs, externalID)
	if p.consultarFn != nil {
		return p.consultarFn(ctx, externalID)
	}
	return &provider.QueryResult{Status: emission.StatusPending}, nil
}

func (p *fakeProvider) BaixarXMLNfse(ctx context.Context, artifactID string) ([]byte, error) {
	p.xmlIDs = append(p.xmlIDs, artifactID)
	if p.xmlFn != nil {
		return p.xmlFn(ctx, artifactID)
	}
	return []byte("<xml/>"), nil
}

func (p *fakeProvider) BaixarPDFNfse(ctx context.Context, artifactID string, opts *provider.PDFOptions) ([]byte, error) {
	p.pdfIDs = append(p.pdfIDs, artifactID)
	if p.pdfFn != nil {
		return p.pdfFn(ctx, artifactID, opts)
	}
	return []byte("%PDF-1.4"), nil
}

func validInput(reference string) *emission.EmitirNfseInput {
	endereco := emission.Endereco{
		Logradouro: "Rua das Laranjeiras",
		Numero:     "100",
		Bairro:     "Centro",
		Municipio:  "São Paulo",
		UF:         "SP",
		CEP:        "01000-000",
	}
	return &emission.EmitirNfseInput{
		Prestador: emission.Prestador{
			CNPJ:        "12.345.678/0001-90",
			RazaoSocial: "Prestadora Exemplo LTDA",
			Endereco:    endereco,
		},
		Tomador: emission.Tomador{
			CPFCNPJ:     "123.456.789-09",
			RazaoSocial: "Tomador Exemplo",
			Endereco:    endereco,
		},
		Servico: emission.Servico{
			Descricao: "Consultoria em tecnologia",
			Valor:     1500.50,
		},
		ReferenciaExterna: reference,
	}
}
