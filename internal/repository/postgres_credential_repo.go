package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/calhook/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用した資格情報リポジトリ。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// FindByDomainID は指定ドメインの資格情報を取得する。見つからない場合はnilを返す。
func (r *PostgresCredentialRepo) FindByDomainID(ctx context.Context, domainID string) (*model.ClientCredential, error) {
	cred := &model.ClientCredential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT domain_id, client_id, client_secret, service_account, private_key, bot_id
		 FROM client_credentials
		 WHERE domain_id = $1`,
		domainID,
	).Scan(&cred.DomainID, &cred.ClientID, &cred.ClientSecret, &cred.ServiceAccount, &cred.PrivateKey, &cred.BotID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client credential: %w", err)
	}

	return cred, nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
