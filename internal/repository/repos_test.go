package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/calhook/internal/model"
)

// PostgresCredentialRepoはCredentialRepositoryインターフェースを満たすことを検証
func TestPostgresCredentialRepo_ImplementsInterface(t *testing.T) {
	var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
}

// PostgresTokenRepoはTokenRepositoryインターフェースを満たすことを検証
func TestPostgresTokenRepo_ImplementsInterface(t *testing.T) {
	var _ TokenRepository = (*PostgresTokenRepo)(nil)
}

// PostgresSettingRepoはSettingRepositoryインターフェースを満たすことを検証
func TestPostgresSettingRepo_ImplementsInterface(t *testing.T) {
	var _ SettingRepository = (*PostgresSettingRepo)(nil)
}

// NewPostgresCredentialRepoが正しく初期化されることを検証
func TestNewPostgresCredentialRepo_Initializes(t *testing.T) {
	repo := NewPostgresCredentialRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresTokenRepoが正しく初期化されることを検証
func TestNewPostgresTokenRepo_Initializes(t *testing.T) {
	repo := NewPostgresTokenRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresSettingRepoが正しく初期化されることを検証
func TestNewPostgresSettingRepo_Initializes(t *testing.T) {
	repo := NewPostgresSettingRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ユニットテスト: AccessToken.Usableが境界値で正しく判定すること
// （expired_at >= now の間のみ利用可能）
func TestAccessToken_Usable_Boundary(t *testing.T) {
	now := time.Now().Unix()
	token := &model.AccessToken{
		UserID:      "u1",
		AccessToken: "tok",
		ExpiredAt:   now,
	}

	if !token.Usable(now) {
		t.Error("token with expired_at == now should be usable")
	}
	if token.Usable(now + 1) {
		t.Error("token with expired_at < now should not be usable")
	}
	if !token.Usable(now - 1) {
		t.Error("token with expired_at > now should be usable")
	}
}
