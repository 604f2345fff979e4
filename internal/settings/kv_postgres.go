package settings

import (
	"context"

	"veobatch/internal/infra"
	"veobatch/internal/sqlinline"
)

// PostgresKV stores settings in the shared app_settings table.
type PostgresKV struct {
	sql infra.SQLExecutor
}

func NewPostgresKV(sql infra.SQLExecutor) *PostgresKV {
	return &PostgresKV{sql: sql}
}

func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	_, err := p.sql.Exec(ctx, sqlinline.QCreateSettingsTable)
	return err
}

func (p *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	if err := p.sql.QueryRow(ctx, sqlinline.QSelectSetting, key).Scan(&value); err != nil {
		if infra.IsNoRows(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (p *PostgresKV) Set(ctx context.Context, key, value string) error {
	_, err := p.sql.Exec(ctx, sqlinline.QUpsertSetting, key, value)
	return err
}
