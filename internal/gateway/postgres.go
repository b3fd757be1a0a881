package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"quarters/portal/internal/models"
)

type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

var _ Gateway = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool, queryTimeout time.Duration) *Postgres {
	return &Postgres{pool: pool, timeout: queryTimeout}
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Probe treats any answer from the server, including a SQL error, as
// reachable. Only transport failures count as down.
func (p *Postgres) Probe(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var one int
	err := p.pool.QueryRow(ctx, `SELECT 1 FROM users LIMIT 1`).Scan(&one)
	var pgErr *pgconn.PgError
	if err == nil || errors.Is(err, pgx.ErrNoRows) || errors.As(err, &pgErr) {
		return nil
	}
	return classify("probe", err)
}

func (p *Postgres) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const complaintsQuery = `
		SELECT id, employee_id, employee_name, employee_quarter, employee_area, employee_contact,
			type, description, status, department_id, department_name, assigned_at,
			estimated_resolution_date, completed_at, escalated_to_authority, escalated_authority_at,
			authority_resolution_date, authority_comments, created_at, updated_at
		FROM complaints
		ORDER BY created_at DESC
	`
	rows, err := p.pool.Query(ctx, complaintsQuery)
	if err != nil {
		return nil, classify("list complaints", err)
	}
	complaints, err := pgx.CollectRows(rows, scanComplaint)
	if err != nil {
		return nil, classify("list complaints", err)
	}

	const commentsQuery = `
		SELECT id, complaint_id, user_id, user_name, user_role, comment, created_at
		FROM complaint_comments
		ORDER BY created_at
	`
	rows, err = p.pool.Query(ctx, commentsQuery)
	if err != nil {
		return nil, classify("list comments", err)
	}
	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (commentRow, error) {
		var c commentRow
		err := row.Scan(&c.ID, &c.ComplaintID, &c.UserID, &c.UserName, &c.UserRole, &c.Comment.Comment, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, classify("list comments", err)
	}

	const historyQuery = `
		SELECT id, complaint_id, status, updated_by, COALESCE(comments, ''), created_at
		FROM complaint_status_history
		ORDER BY created_at
	`
	rows, err = p.pool.Query(ctx, historyQuery)
	if err != nil {
		return nil, classify("list status history", err)
	}
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (historyRow, error) {
		var h historyRow
		err := row.Scan(&h.ID, &h.ComplaintID, &h.Status, &h.UpdatedBy, &h.Comments, &h.CreatedAt)
		return h, err
	})
	if err != nil {
		return nil, classify("list status history", err)
	}

	return attachThreads(complaints, comments, history), nil
}

func scanComplaint(row pgx.CollectableRow) (models.Complaint, error) {
	var (
		c                                        models.Complaint
		deptID, deptName, authority, authComment *string
	)
	err := row.Scan(
		&c.ID,
		&c.EmployeeID,
		&c.EmployeeName,
		&c.EmployeeQuarter,
		&c.EmployeeArea,
		&c.EmployeeContact,
		&c.Type,
		&c.Description,
		&c.Status,
		&deptID,
		&deptName,
		&c.AssignedAt,
		&c.EstimatedResolutionDate,
		&c.CompletedAt,
		&authority,
		&c.EscalatedAuthorityAt,
		&c.AuthorityResolutionDate,
		&authComment,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	c.DepartmentID = deref(deptID)
	c.DepartmentName = deref(deptName)
	c.EscalatedToAuthority = deref(authority)
	c.AuthorityComments = deref(authComment)
	return c, err
}

func (p *Postgres) InsertComplaint(ctx context.Context, in ComplaintInsert) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO complaints (
			id, employee_id, employee_name, employee_quarter, employee_area, employee_contact,
			type, description, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
		)
	`
	_, err := p.pool.Exec(ctx, query,
		in.ID,
		in.EmployeeID,
		in.EmployeeName,
		in.EmployeeQuarter,
		in.EmployeeArea,
		in.EmployeeContact,
		string(in.Type),
		in.Description,
		string(in.Status),
		in.CreatedAt,
	)
	return classify("insert complaint", err)
}

func (p *Postgres) UpdateComplaint(ctx context.Context, id string, patch ComplaintPatch) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const query = `
		UPDATE complaints SET
			status = COALESCE($2, status),
			department_id = COALESCE($3, department_id),
			department_name = COALESCE($4, department_name),
			assigned_at = COALESCE($5, assigned_at),
			estimated_resolution_date = COALESCE($6, estimated_resolution_date),
			completed_at = COALESCE($7, completed_at),
			escalated_to_authority = COALESCE($8, escalated_to_authority),
			escalated_authority_at = COALESCE($9, escalated_authority_at),
			authority_resolution_date = COALESCE($10, authority_resolution_date),
			authority_comments = COALESCE($11, authority_comments),
			updated_at = $12
		WHERE id = $1
	`
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	cmd, err := p.pool.Exec(ctx, query,
		id,
		status,
		patch.DepartmentID,
		patch.DepartmentName,
		patch.AssignedAt,
		patch.EstimatedResolutionDate,
		patch.CompletedAt,
		patch.EscalatedToAuthority,
		patch.EscalatedAuthorityAt,
		patch.AuthorityResolutionDate,
		patch.AuthorityComments,
		patch.UpdatedAt,
	)
	if err != nil {
		return classify("update complaint", err)
	}
	if cmd.RowsAffected() == 0 {
		return notFound("update complaint", id)
	}
	return nil
}

func (p *Postgres) InsertComment(ctx context.Context, in CommentInsert) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO complaint_comments (id, complaint_id, user_id, user_name, user_role, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.pool.Exec(ctx, query, in.ID, in.ComplaintID, in.UserID, in.UserName, in.UserRole, in.Comment, in.CreatedAt)
	return classify("insert comment", err)
}

func (p *Postgres) InsertStatusHistory(ctx context.Context, in StatusHistoryInsert) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO complaint_status_history (id, complaint_id, status, updated_by, comments, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`
	_, err := p.pool.Exec(ctx, query, in.ID, in.ComplaintID, string(in.Status), in.UpdatedBy, in.Comments, in.CreatedAt)
	return classify("insert status history", err)
}

func (p *Postgres) CheckUserExists(ctx context.Context, email string) (RPCResult, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var out RPCResult
	err := p.pool.QueryRow(ctx, `SELECT check_demo_user_exists($1)`, email).Scan(&out)
	if err != nil {
		return RPCResult{}, classify("check_demo_user_exists", err)
	}
	return out, nil
}

func (p *Postgres) Authenticate(ctx context.Context, email, code string) (AuthResult, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var out AuthResult
	err := p.pool.QueryRow(ctx, `SELECT authenticate_demo_user($1, $2)`, email, code).Scan(&out)
	if err != nil {
		return AuthResult{}, classify("authenticate_demo_user", err)
	}
	return out, nil
}

func (p *Postgres) EndSession(ctx context.Context, email string) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	_, err := p.pool.Exec(ctx, `SELECT end_demo_session($1)`, email)
	return classify("end_demo_session", err)
}

func (p *Postgres) ListDepartments(ctx context.Context) ([]models.Department, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	rows, err := p.pool.Query(ctx, `SELECT id, name, email FROM departments ORDER BY name`)
	if err != nil {
		return nil, classify("list departments", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Department, error) {
		var d models.Department
		err := row.Scan(&d.ID, &d.Name, &d.Email)
		return d, err
	})
	return out, classify("list departments", err)
}

func (p *Postgres) ListAuthorities(ctx context.Context) ([]models.HigherAuthority, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const query = `
		SELECT id, name, title, department, email
		FROM higher_authorities
		ORDER BY department, name
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, classify("list authorities", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.HigherAuthority, error) {
		var a models.HigherAuthority
		err := row.Scan(&a.ID, &a.Name, &a.Title, &a.Department, &a.Email)
		return a, err
	})
	return out, classify("list authorities", err)
}

func (p *Postgres) ListUsers(ctx context.Context) ([]UserRecord, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const query = `
		SELECT id, COALESCE(name, ''), email, role, COALESCE(department, ''), created_at
		FROM users
		ORDER BY created_at DESC
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, classify("list users", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserRecord, error) {
		var u UserRecord
		err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.CreatedAt)
		return u, err
	})
	return out, classify("list users", err)
}

func (p *Postgres) InsertUser(ctx context.Context, in UserRecord) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO users (id, name, email, role, department, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6)
	`
	_, err := p.pool.Exec(ctx, query, in.ID, in.Name, in.Email, string(in.Role), in.Department, in.CreatedAt)
	return classify("insert user", err)
}

func (p *Postgres) UpdateUser(ctx context.Context, id string, patch UserPatch) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	const query = `
		UPDATE users SET
			name = COALESCE($2, name),
			role = COALESCE($3, role),
			department = CASE WHEN $4::text IS NULL THEN department ELSE NULLIF($4::text, '') END
		WHERE id = $1
	`
	var role *string
	if patch.Role != nil {
		r := string(*patch.Role)
		role = &r
	}
	cmd, err := p.pool.Exec(ctx, query, id, patch.Name, role, patch.Department)
	if err != nil {
		return classify("update user", err)
	}
	if cmd.RowsAffected() == 0 {
		return notFound("update user", id)
	}
	return nil
}

func (p *Postgres) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	cmd, err := p.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return classify("delete user", err)
	}
	if cmd.RowsAffected() == 0 {
		return notFound("delete user", id)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
