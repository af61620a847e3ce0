package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dgallion1/orgmark/internal/annotation"
	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/dgallion1/orgmark/internal/geometry"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "employees_email_key"}, directory.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, directory.ErrManagerNotFound},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, directory.ErrUnavailable},
		{"serialization", &pgconn.PgError{Code: "40001"}, directory.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	plain := errors.New("syntax")
	if got := mapError(plain); got != plain {
		t.Errorf("expected unknown errors to pass through, got %v", got)
	}
}

func TestLikePattern(t *testing.T) {
	tests := map[string]string{
		"":      "%%",
		"ann":   "%ann%",
		"50%":   `%50\%%`,
		"a_b":   `%a\_b%`,
		`c:\x`:  `%c:\\x%`,
	}
	for in, want := range tests {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestStore_RoundTrip runs against a live database named by
// TEST_DATABASE_URL. The tables are created if missing and the rows it
// inserts are removed afterwards.
func TestStore_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	mgr, err := s.EnsureManager(ctx, "Roundtrip Manager")
	if err != nil {
		t.Fatalf("ensure manager: %v", err)
	}
	again, err := s.EnsureManager(ctx, "Roundtrip Manager")
	if err != nil || again.ID != mgr.ID {
		t.Fatalf("expected idempotent manager, got %+v, %v", again, err)
	}

	emp, err := s.CreateEmployee(ctx, directory.EmployeeInput{
		Name: "Roundtrip Employee", Email: "roundtrip.employee@example.com", Role: "Dev", ManagerID: &mgr.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() {
		s.Pool.Exec(context.Background(), `DELETE FROM employees WHERE id = $1`, emp.ID)
		s.Pool.Exec(context.Background(), `DELETE FROM managers WHERE id = $1`, mgr.ID)
	})
	if emp.ManagerName != "Roundtrip Manager" || emp.Country != directory.DefaultCountry {
		t.Errorf("unexpected created employee %+v", emp)
	}

	_, err = s.CreateEmployee(ctx, directory.EmployeeInput{
		Name: "Dup", Email: "roundtrip.employee@example.com", Role: "Dev",
	})
	if !errors.Is(err, directory.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	found, err := s.Search(ctx, "roundtrip man")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) == 0 || found[0].ID != emp.ID {
		t.Errorf("expected search by manager name to find employee, got %+v", found)
	}

	rec := annotation.ToRecord(geometry.Normalize(10, 40, 5, 25), 2, emp.ID, "Roundtrip")
	saved, err := s.SaveAnnotation(ctx, rec)
	if err != nil {
		t.Fatalf("save annotation: %v", err)
	}
	if !annotation.HasAnnotation(saved.Annotation()) || *saved.Page != 2 {
		t.Errorf("expected annotation saved, got %+v", saved)
	}

	if _, err := s.DeleteEmployee(ctx, emp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetEmployee(ctx, emp.ID); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
