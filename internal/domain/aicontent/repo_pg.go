package aicontent

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hadadahealth/hadada/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cacheCols = `id, patient_id, content_type, discipline, content, tokens_used,
	generated_at, expires_at, usage_count, valid`

func (r *repoPG) GetEntry(ctx context.Context, patientID uuid.UUID, contentType, discipline string) (*CacheEntry, error) {
	var e CacheEntry
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+cacheCols+` FROM ai_content_cache
		 WHERE patient_id = $1 AND content_type = $2 AND discipline = $3`,
		patientID, contentType, discipline).
		Scan(&e.ID, &e.PatientID, &e.ContentType, &e.Discipline, &e.Content, &e.TokensUsed,
			&e.GeneratedAt, &e.ExpiresAt, &e.UsageCount, &e.Valid)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertEntry inserts or replaces the cache row for the entry's key. Last
// write wins; usage count resets on replace.
func (r *repoPG) UpsertEntry(ctx context.Context, e *CacheEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ai_content_cache (
			id, patient_id, content_type, discipline, content, tokens_used,
			generated_at, expires_at, usage_count, valid
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (patient_id, content_type, discipline) DO UPDATE SET
			content = EXCLUDED.content,
			tokens_used = EXCLUDED.tokens_used,
			generated_at = EXCLUDED.generated_at,
			expires_at = EXCLUDED.expires_at,
			usage_count = 0,
			valid = TRUE`,
		e.ID, e.PatientID, e.ContentType, e.Discipline, e.Content, e.TokensUsed,
		e.GeneratedAt, e.ExpiresAt, e.UsageCount, e.Valid,
	)
	return err
}

func (r *repoPG) CountHit(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE ai_content_cache SET usage_count = usage_count + 1 WHERE id = $1`, id)
	return err
}

func (r *repoPG) InvalidateEntry(ctx context.Context, patientID uuid.UUID, contentType, discipline string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE ai_content_cache SET valid = FALSE
		 WHERE patient_id = $1 AND content_type = $2 AND discipline = $3`,
		patientID, contentType, discipline)
	return err
}

func (r *repoPG) InvalidatePatient(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE ai_content_cache SET valid = FALSE WHERE patient_id = $1`, patientID)
	return err
}

func (r *repoPG) CreateAudit(ctx context.Context, a *GenerationAudit) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ai_generation_audit (id, patient_id, content_type, discipline, tokens_used, requested_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.PatientID, a.ContentType, a.Discipline, a.TokensUsed, a.RequestedBy,
	)
	return err
}

func (r *repoPG) ListAuditByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*GenerationAudit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM ai_generation_audit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, content_type, discipline, tokens_used, requested_by, created_at
		FROM ai_generation_audit WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var as []*GenerationAudit
	for rows.Next() {
		var a GenerationAudit
		if err := rows.Scan(&a.ID, &a.PatientID, &a.ContentType, &a.Discipline, &a.TokensUsed,
			&a.RequestedBy, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		as = append(as, &a)
	}
	return as, total, nil
}
