package shared

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"modernc.org/sqlite"
)

func TestIsSQLiteConflictError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("no such table"), false},
		{errors.New("SQLITE_BUSY: busy"), true},
		{fmt.Errorf("delete: %w", errors.New("database is locked (5)")), true},
	}
	for _, tt := range tests {
		if got := IsSQLiteConflictError(tt.err); got != tt.want {
			t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsSQLiteConflictErrorFromDriver(t *testing.T) {
	t.Parallel()

	dsn := "file:" + filepath.Join(t.TempDir(), "busy.db") + "?_pragma=busy_timeout(0)"
	holder, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	defer func() { _ = holder.Close() }()
	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer func() { _ = writer.Close() }()

	ctx := context.Background()
	if _, err := holder.ExecContext(ctx, `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	conn, err := holder.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer func() { _ = conn.Close() }()
	if _, err := conn.ExecContext(ctx, `BEGIN EXCLUSIVE`); err != nil {
		t.Fatalf("begin exclusive: %v", err)
	}
	defer func() { _, _ = conn.ExecContext(ctx, `ROLLBACK`) }()

	_, err = writer.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`)
	if err == nil {
		t.Fatal("Expected write to fail while another connection holds the lock")
	}

	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		t.Fatalf("Expected *sqlite.Error, got %T: %v", err, err)
	}
	wrapped := fmt.Errorf("save: %w", err)
	if !IsSQLiteBusyError(wrapped) || !IsSQLiteConflictError(wrapped) {
		t.Errorf("Expected driver error code %d to be retryable: %v", sqliteErr.Code(), err)
	}
}

func TestIsSQLiteConflictErrorIgnoresOtherDriverErrors(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "other.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(context.Background(), `SELECT * FROM missing`)
	if err == nil {
		t.Fatal("Expected error for missing table")
	}
	if IsSQLiteConflictError(err) {
		t.Errorf("Missing table should not be retryable: %v", err)
	}
}
