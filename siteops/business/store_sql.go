package business

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLStore implements Store on the libsql schema in siteops/db/migrations.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLStore creates a store over an already migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// where accumulates AND-ed predicates and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

func (s *SQLStore) newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// ---- projects ----

func (s *SQLStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	query := `SELECT id, name, client, location, status, start_date, end_date, created_at, updated_at FROM projects` +
		w.String() + ` ORDER BY updated_at DESC, rowid DESC` + limitClause(filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, client, location, status, start_date, end_date, created_at, updated_at FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *SQLStore) CreateProject(ctx context.Context, p *Project) error {
	now := s.now()
	p.ID = s.newID(p.ID)
	if p.Status == "" {
		p.Status = ProjectPlanned
	}
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, client, location, status, start_date, end_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Client, p.Location, p.Status, p.StartDate, p.EndDate, now.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateProjectStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`, status, s.now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	return requireAffected(res, "project", id)
}

// ---- materials ----

func (s *SQLStore) ListMaterials(ctx context.Context, filter MaterialFilter) ([]Material, error) {
	w := &where{}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		w.add("(lower(name) LIKE ? OR lower(category) LIKE ? OR lower(supplier) LIKE ?)", like, like, like)
	}
	if filter.LowStockOnly {
		w.add("quantity <= min_quantity")
	}
	query := `SELECT id, name, category, unit, quantity, min_quantity, supplier, updated_at FROM materials` +
		w.String() + ` ORDER BY name ASC` + limitClause(filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetMaterial(ctx context.Context, id string) (*Material, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, unit, quantity, min_quantity, supplier, updated_at FROM materials WHERE id = ?`, id)
	m, err := scanMaterial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("material %s: %w", id, ErrNotFound)
	}
	return m, err
}

func (s *SQLStore) CreateMaterial(ctx context.Context, m *Material) error {
	now := s.now()
	m.ID = s.newID(m.ID)
	m.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO materials (id, name, category, unit, quantity, min_quantity, supplier, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Category, m.Unit, m.Quantity, m.MinQuantity, m.Supplier, now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create material: %w", err)
	}
	return nil
}

func (s *SQLStore) SetMaterialQuantity(ctx context.Context, id string, quantity float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE materials SET quantity = ?, updated_at = ? WHERE id = ?`, quantity, s.now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update material quantity: %w", err)
	}
	return requireAffected(res, "material", id)
}

// ---- deliveries ----

func (s *SQLStore) ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]Delivery, error) {
	w := &where{}
	if filter.ProjectID != "" {
		w.add("project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	query := `SELECT id, project_id, material_id, quantity, supplier, scheduled_date, status, created_by, created_at FROM deliveries` +
		w.String() + ` ORDER BY scheduled_date ASC, rowid ASC` + limitClause(filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var created int64
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.MaterialID, &d.Quantity, &d.Supplier,
			&d.ScheduledDate, &d.Status, &d.CreatedBy, &created); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.CreatedAt = time.Unix(0, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateDelivery(ctx context.Context, d *Delivery) error {
	now := s.now()
	d.ID = s.newID(d.ID)
	if d.Status == "" {
		d.Status = DeliveryScheduled
	}
	d.CreatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, project_id, material_id, quantity, supplier, scheduled_date, status, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.MaterialID, d.Quantity, d.Supplier, d.ScheduledDate, d.Status, d.CreatedBy, now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

// ---- quality tests ----

func (s *SQLStore) ListQualityTests(ctx context.Context, filter QualityTestFilter) ([]QualityTest, error) {
	w := &where{}
	if filter.ProjectID != "" {
		w.add("project_id = ?", filter.ProjectID)
	}
	if filter.Result != "" {
		w.add("result = ?", filter.Result)
	}
	query := `SELECT id, project_id, test_type, value, result, notes, tested_by, tested_at FROM quality_tests` +
		w.String() + ` ORDER BY tested_at DESC, rowid DESC` + limitClause(filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quality tests: %w", err)
	}
	defer rows.Close()

	var out []QualityTest
	for rows.Next() {
		var q QualityTest
		var tested int64
		if err := rows.Scan(&q.ID, &q.ProjectID, &q.TestType, &q.Value, &q.Result, &q.Notes, &q.TestedBy, &tested); err != nil {
			return nil, fmt.Errorf("failed to scan quality test: %w", err)
		}
		q.TestedAt = time.Unix(0, tested)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateQualityTest(ctx context.Context, q *QualityTest) error {
	q.ID = s.newID(q.ID)
	if q.Result == "" {
		q.Result = TestPending
	}
	if q.TestedAt.IsZero() {
		q.TestedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quality_tests (id, project_id, test_type, value, result, notes, tested_by, tested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.ProjectID, q.TestType, q.Value, q.Result, q.Notes, q.TestedBy, q.TestedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record quality test: %w", err)
	}
	return nil
}

// ---- timesheets ----

func (s *SQLStore) ListTimesheets(ctx context.Context, filter TimesheetFilter) ([]TimesheetEntry, error) {
	w := &where{}
	if filter.WorkerName != "" {
		w.add("lower(worker_name) = lower(?)", filter.WorkerName)
	}
	if filter.ProjectID != "" {
		w.add("project_id = ?", filter.ProjectID)
	}
	if filter.From != "" {
		w.add("work_date >= ?", filter.From)
	}
	if filter.To != "" {
		w.add("work_date <= ?", filter.To)
	}
	query := `SELECT id, worker_name, project_id, work_date, start_time, end_time, hours_worked, overtime_hours, notes, created_by, created_at
		FROM timesheets` + w.String() + ` ORDER BY work_date ASC, start_time ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}
	defer rows.Close()

	var out []TimesheetEntry
	for rows.Next() {
		var e TimesheetEntry
		var end sql.NullString
		var hours, overtime sql.NullFloat64
		var created int64
		if err := rows.Scan(&e.ID, &e.WorkerName, &e.ProjectID, &e.WorkDate, &e.StartTime, &end,
			&hours, &overtime, &e.Notes, &e.CreatedBy, &created); err != nil {
			return nil, fmt.Errorf("failed to scan timesheet entry: %w", err)
		}
		if end.Valid {
			e.EndTime = &end.String
		}
		if hours.Valid {
			e.HoursWorked = &hours.Float64
		}
		if overtime.Valid {
			e.OvertimeHours = &overtime.Float64
		}
		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateTimesheetEntry(ctx context.Context, e *TimesheetEntry) error {
	now := s.now()
	e.ID = s.newID(e.ID)
	e.CreatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timesheets (id, worker_name, project_id, work_date, start_time, end_time, hours_worked, overtime_hours, notes, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.WorkerName, e.ProjectID, e.WorkDate, e.StartTime,
		nullString(e.EndTime), nullFloat(e.HoursWorked), nullFloat(e.OvertimeHours),
		e.Notes, e.CreatedBy, now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to log work hours: %w", err)
	}
	return nil
}

// ---- helpers ----

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &p.Client, &p.Location, &p.Status, &p.StartDate, &p.EndDate, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	p.CreatedAt = time.Unix(0, created)
	p.UpdatedAt = time.Unix(0, updated)
	return &p, nil
}

func scanMaterial(row scanner) (*Material, error) {
	var m Material
	var updated int64
	if err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Unit, &m.Quantity, &m.MinQuantity, &m.Supplier, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan material: %w", err)
	}
	m.UpdatedAt = time.Unix(0, updated)
	return &m, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

var _ Store = (*SQLStore)(nil)
