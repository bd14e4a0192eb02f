package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const emissionColumns = `
	id, provider, status, reference, payload, external_id,
	provider_request, provider_response, error, xml_base64, pdf_base64,
	poll_attempts, last_poll_error, last_polled_at, next_poll_at,
	last_artifact_sync_at, artifact_sync_audit, created_at, updated_at`

// EmissionRepository implementa a interface emission.Repository sobre PostgreSQL
type EmissionRepository struct {
	db *pgxpool.Pool
}

// NewEmissionRepository cria uma nova instância de EmissionRepository
func NewEmissionRepository(db *pgxpool.Pool) emission.Repository {
	return &EmissionRepository{
		db: db,
	}
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableJSON(value json.RawMessage) any {
	if len(value) == 0 {
		return nil
	}
	return value
}

// Create implementa o método Create da interface emission.Repository
func (r *EmissionRepository) Create(ctx context.Context, e *emission.Emission) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	query := `
		INSERT INTO nfse_emissions (
			id, provider, status, reference, payload,
			poll_attempts, last_polled_at, next_poll_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = conn.Exec(ctx, query,
		e.ID, e.Provider, e.Status, nullable(e.Reference), e.Payload,
		e.PollAttempts, e.LastPolledAt, e.NextPollAt, e.CreatedAt, e.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return emission.ErrDuplicateReference
		}
		return fmt.Errorf("falha ao inserir emissão: %w", err)
	}

	return nil
}

func scanEmission(row pgx.Row) (*emission.Emission, error) {
	var (
		e                     emission.Emission
		reference, externalID *string
		errMsg, lastPollError *string
		xmlBase64, pdfBase64  *string
		providerRequest       []byte
		providerResponse      []byte
		audit                 []byte
	)

	err := row.Scan(
		&e.ID, &e.Provider, &e.Status, &reference, &e.Payload, &externalID,
		&providerRequest, &providerResponse, &errMsg, &xmlBase64, &pdfBase64,
		&e.PollAttempts, &lastPollError, &e.LastPolledAt, &e.NextPollAt,
		&e.LastArtifactSyncAt, &audit, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if reference != nil {
		e.Reference = *reference
	}
	if externalID != nil {
		e.ExternalID = *externalID
	}
	if errMsg != nil {
		e.Error = *errMsg
	}
	if lastPollError != nil {
		e.LastPollError = *lastPollError
	}
	if xmlBase64 != nil {
		e.XMLBase64 = *xmlBase64
	}
	if pdfBase64 != nil {
		e.PDFBase64 = *pdfBase64
	}
	e.ProviderRequest = providerRequest
	e.ProviderResponse = providerResponse
	if len(audit) > 0 {
		if err := json.Unmarshal(audit, &e.ArtifactSyncAudit); err != nil {
			return nil, fmt.Errorf("falha ao decodificar auditoria de sincronização: %w", err)
		}
	}

	return &e, nil
}

func (r *EmissionRepository) findOne(ctx context.Context, where string, args ...any) (*emission.Emission, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf("SELECT %s FROM nfse_emissions WHERE %s", emissionColumns, where)

	e, err := scanEmission(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, emission.ErrNotFound
		}
		return nil, fmt.Errorf("falha ao buscar emissão: %w", err)
	}

	return e, nil
}

// FindByID implementa o método FindByID da interface emission.Repository
func (r *EmissionRepository) FindByID(ctx context.Context, id string) (*emission.Emission, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByExternalID implementa o método FindByExternalID da interface emission.Repository
func (r *EmissionRepository) FindByExternalID(ctx context.Context, externalID string) (*emission.Emission, error) {
	return r.findOne(ctx, "external_id = $1", externalID)
}

// FindByReference implementa o método FindByReference da interface emission.Repository
func (r *EmissionRepository) FindByReference(ctx context.Context, provider emission.Provider, reference string) (*emission.Emission, error) {
	return r.findOne(ctx, "provider = $1 AND reference = $2", provider, reference)
}

// FindPending implementa o método FindPending da interface emission.Repository
func (r *EmissionRepository) FindPending(ctx context.Context, filter emission.PendingFilter) ([]*emission.Emission, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM nfse_emissions
		WHERE status = $1
		  AND provider = $2
		  AND (next_poll_at IS NULL OR next_poll_at <= $3)
		  AND created_at <= $4
		ORDER BY created_at ASC
		LIMIT $5
	`, emissionColumns)

	rows, err := conn.Query(ctx, query,
		emission.StatusPending, filter.Provider, now, now.Add(-filter.OlderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("falha ao buscar emissões pendentes: %w", err)
	}
	defer rows.Close()

	emissions := []*emission.Emission{}
	for rows.Next() {
		e, err := scanEmission(rows)
		if err != nil {
			return nil, fmt.Errorf("falha ao ler emissão pendente: %w", err)
		}
		emissions = append(emissions, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar emissões pendentes: %w", err)
	}

	return emissions, nil
}

// FindPaginated implementa o método FindPaginated da interface emission.Repository
func (r *EmissionRepository) FindPaginated(ctx context.Context, filter emission.ListFilter) (*emission.Page, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	where := sq.And{}
	if filter.Provider != "" {
		where = append(where, sq.Eq{"provider": filter.Provider})
	}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": *filter.Status})
	}

	countQuery := builder.Select("COUNT(*)").From("nfse_emissions")
	if len(where) > 0 {
		countQuery = countQuery.Where(where)
	}

	countSQL, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, fmt.Errorf("falha ao montar consulta de contagem: %w", err)
	}

	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("falha ao contar emissões: %w", err)
	}

	listQuery := builder.Select(emissionColumns).
		From("nfse_emissions").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit))
	if len(where) > 0 {
		listQuery = listQuery.Where(where)
	}

	listSQL, listArgs, err := listQuery.ToSql()
	if err != nil {
		return nil, fmt.Errorf("falha ao montar consulta de listagem: %w", err)
	}

	rows, err := conn.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar emissões: %w", err)
	}
	defer rows.Close()

	items := []*emission.Emission{}
	for rows.Next() {
		e, err := scanEmission(rows)
		if err != nil {
			return nil, fmt.Errorf("falha ao ler emissão: %w", err)
		}
		items = append(items, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar emissões: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return &emission.Page{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateEmission implementa o método UpdateEmission da interface emission.Repository.
// Atualizações com status só são aplicadas quando o status armazenado ainda é
// PENDING ou já é o status alvo, tornando atualizações duplicadas convergentes.
func (r *EmissionRepository) UpdateEmission(ctx context.Context, id string, patch emission.UpdatePatch) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Update("nfse_emissions").
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id})

	if patch.Status != nil {
		builder = builder.Set("status", *patch.Status).
			Where(sq.Or{
				sq.Eq{"status": emission.StatusPending},
				sq.Eq{"status": *patch.Status},
			})
	}
	if patch.ExternalID != nil && *patch.ExternalID != "" {
		// external_id é definido no máximo uma vez e nunca limpo
		builder = builder.Set("external_id", sq.Expr("COALESCE(external_id, ?)", *patch.ExternalID))
	}
	if patch.ProviderRequest != nil {
		builder = builder.Set("provider_request", []byte(patch.ProviderRequest))
	}
	if patch.ProviderResponse != nil {
		builder = builder.Set("provider_response", []byte(patch.ProviderResponse))
	}
	if patch.Error != nil {
		builder = builder.Set("error", nullable(*patch.Error))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("falha ao montar atualização: %w", err)
	}

	if _, err := conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("falha ao atualizar emissão: %w", err)
	}

	return nil
}

// UpdateByExternalID implementa o método UpdateByExternalID da interface
// emission.Repository. É o ponto único de convergência entre polling e
// webhook; a mesma guarda condicional de status vale para ambos.
func (r *EmissionRepository) UpdateByExternalID(ctx context.Context, update emission.StatusUpdate) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Update("nfse_emissions").
		Set("status", update.Status).
		Set("last_polled_at", time.Now()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"external_id": update.ExternalID}).
		Where(sq.Or{
			sq.Eq{"status": emission.StatusPending},
			sq.Eq{"status": update.Status},
		})

	if update.Provider != "" {
		builder = builder.Where(sq.Eq{"provider": update.Provider})
	}
	if update.ProviderResponse != nil {
		builder = builder.Set("provider_response", []byte(update.ProviderResponse))
	}
	if update.Error != "" {
		builder = builder.Set("error", update.Error)
	}
	if update.XMLBase64 != "" {
		builder = builder.Set("xml_base64", update.XMLBase64)
	}
	if update.PDFBase64 != "" {
		builder = builder.Set("pdf_base64", update.PDFBase64)
	}
	if update.Status != emission.StatusPending {
		// Status terminal encerra o agendamento de polling
		builder = builder.Set("next_poll_at", nil).
			Set("last_poll_error", nil)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("falha ao montar atualização por externalId: %w", err)
	}

	if _, err := conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("falha ao atualizar emissão por externalId: %w", err)
	}

	return nil
}

// MarkPollingTransientFailure implementa o método correspondente da interface
// emission.Repository
func (r *EmissionRepository) MarkPollingTransientFailure(ctx context.Context, externalID string, provider emission.Provider, message string, nextPollAt time.Time) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	query := `
		UPDATE nfse_emissions SET
			poll_attempts = poll_attempts + 1,
			last_poll_error = $1,
			last_polled_at = $2,
			next_poll_at = $3,
			updated_at = $2
		WHERE external_id = $4 AND provider = $5 AND status = $6
	`

	_, err = conn.Exec(ctx, query,
		message, time.Now(), nextPollAt, externalID, provider, emission.StatusPending)
	if err != nil {
		return fmt.Errorf("falha ao registrar falha transitória de polling: %w", err)
	}

	return nil
}

// SaveArtifacts implementa o método SaveArtifacts da interface emission.Repository.
// Além de PENDING, aceita emissões em ERROR: a sincronização manual é o caminho
// documentado de recuperação de emissões escaladas.
func (r *EmissionRepository) SaveArtifacts(ctx context.Context, id string, status emission.Status, providerResponse json.RawMessage, xmlBase64, pdfBase64 string) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	query := `
		UPDATE nfse_emissions SET
			status = $1,
			provider_response = $2,
			xml_base64 = $3,
			pdf_base64 = $4,
			error = NULL,
			next_poll_at = NULL,
			last_poll_error = NULL,
			updated_at = $5
		WHERE id = $6
		  AND status IN ($7, $8, $1)
	`

	_, err = conn.Exec(ctx, query,
		status, nullableJSON(providerResponse), xmlBase64, pdfBase64, time.Now(),
		id, emission.StatusPending, emission.StatusError)
	if err != nil {
		return fmt.Errorf("falha ao salvar artefatos: %w", err)
	}

	return nil
}

// AppendArtifactSyncAudit implementa o método correspondente da interface
// emission.Repository. O histórico é um anel limitado: apenas as entradas mais
// recentes são mantidas.
func (r *EmissionRepository) AppendArtifactSyncAudit(ctx context.Context, id string, entry emission.SyncAuditEntry, touchLastSync bool) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("falha ao serializar entrada de auditoria: %w", err)
	}

	lastSync := "last_artifact_sync_at"
	if touchLastSync {
		lastSync = "$3"
	}

	query := fmt.Sprintf(`
		UPDATE nfse_emissions SET
			artifact_sync_audit = (
				SELECT COALESCE(jsonb_agg(elem ORDER BY ord), '[]'::jsonb)
				FROM (
					SELECT elem, ord
					FROM jsonb_array_elements(
						COALESCE(artifact_sync_audit, '[]'::jsonb) || jsonb_build_array($1::jsonb)
					) WITH ORDINALITY AS entries(elem, ord)
					ORDER BY ord DESC
					LIMIT %d
				) tail
			),
			last_artifact_sync_at = %s,
			updated_at = $3
		WHERE id = $2
	`, emission.SyncAuditLimit, lastSync)

	_, err = conn.Exec(ctx, query, encoded, id, time.Now())
	if err != nil {
		return fmt.Errorf("falha ao registrar auditoria de sincronização: %w", err)
	}

	return nil
}
