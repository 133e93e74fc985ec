package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/calhook/internal/model"
)

// PostgresSettingRepo はPostgreSQLを使用した連携設定リポジトリ。
type PostgresSettingRepo struct {
	db *sql.DB
}

// NewPostgresSettingRepo はPostgresSettingRepoを生成する。
func NewPostgresSettingRepo(db *sql.DB) *PostgresSettingRepo {
	return &PostgresSettingRepo{db: db}
}

// Create は連携設定を作成する。
func (r *PostgresSettingRepo) Create(ctx context.Context, setting *model.AutomationSetting) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO automation_settings (id, calendar_id, user_id, ifttt_event_id, ifttt_integration_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		setting.ID, setting.CalendarID, setting.UserID, setting.IFTTTEventID, setting.IFTTTIntegrationKey, setting.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create automation setting: %w", err)
	}
	return nil
}

// ListAll は全連携設定を作成日時の昇順で返す。
func (r *PostgresSettingRepo) ListAll(ctx context.Context) ([]*model.AutomationSetting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, calendar_id, user_id, ifttt_event_id, ifttt_integration_key, created_at
		 FROM automation_settings
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list automation settings: %w", err)
	}
	defer rows.Close()

	var settings []*model.AutomationSetting
	for rows.Next() {
		s := &model.AutomationSetting{}
		if err := rows.Scan(&s.ID, &s.CalendarID, &s.UserID, &s.IFTTTEventID, &s.IFTTTIntegrationKey, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan automation setting: %w", err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate automation settings: %w", err)
	}

	return settings, nil
}

// compile-time interface check
var _ SettingRepository = (*PostgresSettingRepo)(nil)
