package settings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"veobatch/internal/sqlinline"
)

type stubExecutor struct {
	value string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{value: s.value, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	value string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.value
	return nil
}

func TestPostgresKVGet(t *testing.T) {
	kv := NewPostgresKV(&stubExecutor{value: `{"aspectRatio":"9:16"}`})
	v, ok, err := kv.Get(context.Background(), Key)
	if err != nil || !ok || v != `{"aspectRatio":"9:16"}` {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
}

func TestPostgresKVGetNoRows(t *testing.T) {
	kv := NewPostgresKV(&stubExecutor{err: pgx.ErrNoRows})
	_, ok, err := kv.Get(context.Background(), Key)
	if err != nil || ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
}

func TestPostgresKVSet(t *testing.T) {
	exec := &stubExecutor{}
	kv := NewPostgresKV(exec)
	if err := kv.Set(context.Background(), Key, "v"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if exec.exec.query != sqlinline.QUpsertSetting {
		t.Fatalf("unexpected query: %s", exec.exec.query)
	}
	if len(exec.exec.args) != 2 || exec.exec.args[0] != Key || exec.exec.args[1] != "v" {
		t.Fatalf("args = %#v", exec.exec.args)
	}
}

func TestPostgresKVEnsureSchema(t *testing.T) {
	exec := &stubExecutor{}
	if err := NewPostgresKV(exec).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}
	if !strings.Contains(exec.exec.query, "create table if not exists app_settings") {
		t.Fatalf("unexpected query: %s", exec.exec.query)
	}
}
