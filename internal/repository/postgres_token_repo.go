package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/calhook/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したアクセストークンリポジトリ。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// FindByUserID は指定ユーザーのトークンを取得する。見つからない場合はnilを返す。
func (r *PostgresTokenRepo) FindByUserID(ctx context.Context, userID string) (*model.AccessToken, error) {
	token := &model.AccessToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, access_token, refresh_token, created_at, expired_at
		 FROM access_tokens
		 WHERE user_id = $1`,
		userID,
	).Scan(&token.UserID, &token.AccessToken, &token.RefreshToken, &token.CreatedAt, &token.ExpiredAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find access token: %w", err)
	}

	return token, nil
}

// Upsert はトークンを保存する。同一user_idの既存行は上書きする。
func (r *PostgresTokenRepo) Upsert(ctx context.Context, token *model.AccessToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (user_id, access_token, refresh_token, created_at, expired_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET access_token = EXCLUDED.access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     created_at = EXCLUDED.created_at,
		     expired_at = EXCLUDED.expired_at`,
		token.UserID, token.AccessToken, token.RefreshToken, token.CreatedAt, token.ExpiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert access token: %w", err)
	}
	return nil
}

// CreateIfAbsent は同一user_idの行が存在しない場合のみトークンを保存する。
// 既存行がある場合は何もせず正常終了する（条件不成立は意図的に無視する）。
func (r *PostgresTokenRepo) CreateIfAbsent(ctx context.Context, token *model.AccessToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (user_id, access_token, refresh_token, created_at, expired_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO NOTHING`,
		token.UserID, token.AccessToken, token.RefreshToken, token.CreatedAt, token.ExpiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
