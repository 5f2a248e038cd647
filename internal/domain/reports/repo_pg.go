package reports

import (
	"context"
	"fmt"
	"time"

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

const reportCols = `id, patient_id, template_id, title, status, priority, disciplines,
	assigned_therapist_ids, deadline, content, content_version, ai_generated_keys,
	completed_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO report (
			id, patient_id, template_id, title, status, priority, disciplines,
			assigned_therapist_ids, deadline, content, content_version, ai_generated_keys
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rep.ID, rep.PatientID, rep.TemplateID, rep.Title, rep.Status, rep.Priority,
		rep.Disciplines, rep.AssignedTherapistIDs, rep.Deadline, rep.Content,
		rep.ContentVersion, rep.AIGeneratedKeys,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM report WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, rep *Report) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE report SET
			template_id=$2, title=$3, status=$4, priority=$5, disciplines=$6,
			assigned_therapist_ids=$7, deadline=$8, content=$9, content_version=$10,
			ai_generated_keys=$11, completed_at=$12, updated_at=NOW()
		WHERE id = $1`,
		rep.ID, rep.TemplateID, rep.Title, rep.Status, rep.Priority, rep.Disciplines,
		rep.AssignedTherapistIDs, rep.Deadline, rep.Content, rep.ContentVersion,
		rep.AIGeneratedKeys, rep.CompletedAt,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM report WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*Report, int, error) {
	where, args := "", []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM report`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+reportCols+` FROM report`+where+
			` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectReports(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM report WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportCols+` FROM report WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectReports(rows, total)
}

func (r *repoPG) ListByAssignee(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM report WHERE $1 = ANY(assigned_therapist_ids)`, therapistID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportCols+` FROM report WHERE $1 = ANY(assigned_therapist_ids)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		therapistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectReports(rows, total)
}

func (r *repoPG) ListOverdue(ctx context.Context, now time.Time) ([]*Report, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportCols+` FROM report
		 WHERE status IN ('pending', 'in_progress') AND deadline IS NOT NULL AND deadline < $1
		 ORDER BY deadline ASC`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reps, _, err := collectReports(rows, 0)
	return reps, err
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.PatientID, &rep.TemplateID, &rep.Title, &rep.Status,
		&rep.Priority, &rep.Disciplines, &rep.AssignedTherapistIDs, &rep.Deadline,
		&rep.Content, &rep.ContentVersion, &rep.AIGeneratedKeys, &rep.CompletedAt,
		&rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func collectReports(rows pgx.Rows, total int) ([]*Report, int, error) {
	var reps []*Report
	for rows.Next() {
		var rep Report
		err := rows.Scan(&rep.ID, &rep.PatientID, &rep.TemplateID, &rep.Title, &rep.Status,
			&rep.Priority, &rep.Disciplines, &rep.AssignedTherapistIDs, &rep.Deadline,
			&rep.Content, &rep.ContentVersion, &rep.AIGeneratedKeys, &rep.CompletedAt,
			&rep.CreatedAt, &rep.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		reps = append(reps, &rep)
	}
	return reps, total, nil
}

// -- Templates --

const templateCols = `id, name, discipline, fields, active, created_at, updated_at`

func (r *repoPG) CreateTemplate(ctx context.Context, t *ReportTemplate) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO report_template (id, name, discipline, fields, active)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Name, t.Discipline, t.Fields, t.Active,
	)
	return err
}

func (r *repoPG) GetTemplate(ctx context.Context, id uuid.UUID) (*ReportTemplate, error) {
	var t ReportTemplate
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM report_template WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Discipline, &t.Fields, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) UpdateTemplate(ctx context.Context, t *ReportTemplate) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE report_template SET name=$2, discipline=$3, fields=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Discipline, t.Fields, t.Active,
	)
	return err
}

func (r *repoPG) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM report_template WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListTemplates(ctx context.Context, activeOnly bool, limit, offset int) ([]*ReportTemplate, int, error) {
	where := ""
	if activeOnly {
		where = ` WHERE active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM report_template`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+templateCols+` FROM report_template`+where+` ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ts []*ReportTemplate
	for rows.Next() {
		var t ReportTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Discipline, &t.Fields, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		ts = append(ts, &t)
	}
	return ts, total, nil
}

// -- Notifications --

const notifCols = `id, report_id, recipient_id, message, read, created_at`

func (r *repoPG) CreateNotification(ctx context.Context, n *ReportNotification) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO report_notification (id, report_id, recipient_id, message, read)
		VALUES ($1,$2,$3,$4,$5)`,
		n.ID, n.ReportID, n.RecipientID, n.Message, n.Read,
	)
	return err
}

func (r *repoPG) ListNotificationsByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*ReportNotification, int, error) {
	where := ` WHERE recipient_id = $1`
	if unreadOnly {
		where += ` AND NOT read`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM report_notification`+where, recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+notifCols+` FROM report_notification`+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ns []*ReportNotification
	for rows.Next() {
		var n ReportNotification
		if err := rows.Scan(&n.ID, &n.ReportID, &n.RecipientID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		ns = append(ns, &n)
	}
	return ns, total, nil
}

func (r *repoPG) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE report_notification SET read = TRUE WHERE id = $1`, id)
	return err
}

func (r *repoPG) MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE report_notification SET read = TRUE WHERE recipient_id = $1 AND NOT read`, recipientID)
	return err
}
