// Package pgstore is the PostgreSQL implementation of directory.Store.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/orgmark/internal/annotation"
	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// employeeColumns selects an employee row from alias e joined to its
// manager m. Every employee query ends in this shape so scanEmployee
// can read it.
const employeeColumns = `e.id, e.name, e.email, e.role, e.country, e.manager_id,
	COALESCE(m.name, ''), e.x0, e.x1, e.y0, e.y1, e.page, e.snippet`

// Store holds the connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{Pool: pool}, nil
}

// Initialize creates the tables if they do not exist.
func (s *Store) Initialize(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS managers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create managers table: %w", err)
	}

	_, err = s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS employees (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT 'India',
			manager_id BIGINT REFERENCES managers(id),
			x0 DOUBLE PRECISION,
			x1 DOUBLE PRECISION,
			y0 DOUBLE PRECISION,
			y1 DOUBLE PRECISION,
			page INTEGER,
			snippet TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create employees table: %w", err)
	}

	_, err = s.Pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS employees_manager_idx ON employees (manager_id)`)
	if err != nil {
		return fmt.Errorf("failed to create employees index: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, term string) ([]directory.Employee, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+employeeColumns+`
		FROM employees e
		LEFT JOIN managers m ON m.id = e.manager_id
		WHERE $1 = '' OR e.name ILIKE $2 OR m.name ILIKE $2
		ORDER BY e.id
	`, term, likePattern(term))
	if err != nil {
		return nil, fmt.Errorf("search employees: %w", mapError(err))
	}
	defer rows.Close()

	out := []directory.Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, *emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search employees: %w", mapError(err))
	}
	return out, nil
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (*directory.Employee, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+employeeColumns+`
		FROM employees e
		LEFT JOIN managers m ON m.id = e.manager_id
		WHERE e.id = $1
	`, id)
	return employeeResult(row, "get employee")
}

func (s *Store) CreateEmployee(ctx context.Context, in directory.EmployeeInput) (*directory.Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := s.Pool.QueryRow(ctx, `
		WITH e AS (
			INSERT INTO employees (name, email, role, country, manager_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		)
		SELECT `+employeeColumns+`
		FROM e LEFT JOIN managers m ON m.id = e.manager_id
	`, in.Name, in.Email, in.Role, in.Country, in.ManagerID)
	return employeeResult(row, "create employee")
}

// UpdateEmployee keeps the current manager when in.ManagerID is nil.
func (s *Store) UpdateEmployee(ctx context.Context, id int64, in directory.EmployeeInput) (*directory.Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := s.Pool.QueryRow(ctx, `
		WITH e AS (
			UPDATE employees
			SET name = $2, email = $3, role = $4, country = $5,
				manager_id = COALESCE($6, manager_id)
			WHERE id = $1
			RETURNING *
		)
		SELECT `+employeeColumns+`
		FROM e LEFT JOIN managers m ON m.id = e.manager_id
	`, id, in.Name, in.Email, in.Role, in.Country, in.ManagerID)
	return employeeResult(row, "update employee")
}

func (s *Store) DeleteEmployee(ctx context.Context, id int64) (*directory.Employee, error) {
	row := s.Pool.QueryRow(ctx, `
		WITH e AS (
			DELETE FROM employees WHERE id = $1 RETURNING *
		)
		SELECT `+employeeColumns+`
		FROM e LEFT JOIN managers m ON m.id = e.manager_id
	`, id)
	return employeeResult(row, "delete employee")
}

func (s *Store) ListManagers(ctx context.Context) ([]directory.Manager, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, email, role FROM managers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", mapError(err))
	}
	defer rows.Close()

	out := []directory.Manager{}
	for rows.Next() {
		var m directory.Manager
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Role); err != nil {
			return nil, fmt.Errorf("scan manager: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list managers: %w", mapError(err))
	}
	return out, nil
}

func (s *Store) GetManager(ctx context.Context, id int64) (*directory.Manager, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, name, email, role FROM managers WHERE id = $1`, id)
	return managerResult(row, "get manager")
}

func (s *Store) UpdateManager(ctx context.Context, id int64, in directory.ManagerInput) (*directory.Manager, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := s.Pool.QueryRow(ctx, `
		UPDATE managers SET name = $2, email = $3, role = $4
		WHERE id = $1
		RETURNING id, name, email, role
	`, id, in.Name, in.Email, in.Role)
	return managerResult(row, "update manager")
}

// EnsureManager inserts the manager on first sight. The no-op update on
// conflict makes RETURNING yield the existing row.
func (s *Store) EnsureManager(ctx context.Context, name string) (*directory.Manager, error) {
	name = strings.TrimSpace(name)
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO managers (name, email, role)
		VALUES ($1, $2, 'Manager')
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, email, role
	`, name, directory.ManagerEmail(name))
	return managerResult(row, "ensure manager")
}

func (s *Store) SaveAnnotation(ctx context.Context, rec annotation.Record) (*directory.Employee, error) {
	row := s.Pool.QueryRow(ctx, `
		WITH e AS (
			UPDATE employees
			SET x0 = $2, y0 = $3, x1 = $4, y1 = $5, page = $6, snippet = $7
			WHERE id = $1
			RETURNING *
		)
		SELECT `+employeeColumns+`
		FROM e LEFT JOIN managers m ON m.id = e.manager_id
	`, rec.EmployeeID, rec.X0, rec.Y0, rec.X1, rec.Y1, rec.Page, rec.Snippet)
	return employeeResult(row, "save annotation")
}

func (s *Store) Close() {
	s.Pool.Close()
}

func scanEmployee(row pgx.Row) (*directory.Employee, error) {
	var e directory.Employee
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &e.Country, &e.ManagerID,
		&e.ManagerName, &e.X0, &e.X1, &e.Y0, &e.Y1, &e.Page, &e.Snippet)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func employeeResult(row pgx.Row, op string) (*directory.Employee, error) {
	e, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return e, nil
}

func managerResult(row pgx.Row, op string) (*directory.Manager, error) {
	var m directory.Manager
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, directory.ErrManagerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &m, nil
}

// mapError translates driver errors into the directory sentinels.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w (%s)", directory.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return directory.ErrManagerNotFound
		case "57P01", "57P02", "57P03", "40001", "40P01":
			return fmt.Errorf("%w: %v", directory.ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", directory.ErrUnavailable, err)
	}
	return err
}

// likePattern builds an ILIKE substring pattern with wildcards in term
// escaped.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
