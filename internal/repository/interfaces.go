// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/calhook/internal/model"
)

// CredentialRepository はクライアント資格情報の読み取りインターフェース。
// 資格情報は手動プロビジョニングで投入されるため、書き込み操作は提供しない。
type CredentialRepository interface {
	// FindByDomainID は指定ドメインの資格情報を取得する。見つからない場合はnilを返す。
	FindByDomainID(ctx context.Context, domainID string) (*model.ClientCredential, error)
}

// TokenRepository はアクセストークンキャッシュの永続化インターフェース。
type TokenRepository interface {
	// FindByUserID は指定ユーザーのトークンを取得する。見つからない場合はnilを返す。
	// 期限切れ判定は行わない（呼び出し側がexpired_atを検査する）。
	FindByUserID(ctx context.Context, userID string) (*model.AccessToken, error)

	// Upsert はトークンを保存する。同一user_idの既存行は上書きする。
	Upsert(ctx context.Context, token *model.AccessToken) error

	// CreateIfAbsent は同一user_idの行が存在しない場合のみトークンを保存する。
	// 既存行がある場合は何もせず正常終了する（条件付き書き込み。
	// 条件不成立は意図的に無視する）。
	CreateIfAbsent(ctx context.Context, token *model.AccessToken) error
}

// SettingRepository は連携設定の永続化インターフェース。
type SettingRepository interface {
	// Create は連携設定を作成する。
	Create(ctx context.Context, setting *model.AutomationSetting) error

	// ListAll は全連携設定を作成日時の昇順で返す。
	// ポーラーが毎サイクル全件走査する。
	ListAll(ctx context.Context) ([]*model.AutomationSetting, error)
}
