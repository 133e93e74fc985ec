package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/calhook/internal/model"
	"github.com/hitoshi/calhook/internal/repository"
)

// --- モック定義 ---

type mockTokenRepo struct {
	findByUserIDFn   func(ctx context.Context, userID string) (*model.AccessToken, error)
	upsertFn         func(ctx context.Context, token *model.AccessToken) error
	createIfAbsentFn func(ctx context.Context, token *model.AccessToken) error
}

func (m *mockTokenRepo) FindByUserID(ctx context.Context, userID string) (*model.AccessToken, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockTokenRepo) Upsert(ctx context.Context, token *model.AccessToken) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, token)
	}
	return nil
}

func (m *mockTokenRepo) CreateIfAbsent(ctx context.Context, token *model.AccessToken) error {
	if m.createIfAbsentFn != nil {
		return m.createIfAbsentFn(ctx, token)
	}
	return nil
}

type mockExchanger struct {
	exchangeFn func(ctx context.Context, cred *model.ClientCredential, now time.Time) (*TokenResponse, error)
	calls      int
}

func (m *mockExchanger) ExchangeAssertion(ctx context.Context, cred *model.ClientCredential, now time.Time) (*TokenResponse, error) {
	m.calls++
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, cred, now)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.TokenRepository = (*mockTokenRepo)(nil)
var _ ServiceAccountExchanger = (*mockExchanger)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testCredential() *model.ClientCredential {
	return &model.ClientCredential{
		DomainID:       "d1",
		ClientID:       "client-1",
		ClientSecret:   "secret-1",
		ServiceAccount: "sa@example",
		PrivateKey:     "unused-in-mock",
		BotID:          "bot-1",
	}
}

// --- テスト ---

// キャッシュが有効な間（expired_at >= now）はトークン交換を一切呼ばず、
// 保存済みのaccess_tokenをそのまま返すことを検証
func TestServiceAccountToken_CacheHit_NoExchange(t *testing.T) {
	now := time.Unix(1700000000, 0)

	repo := &mockTokenRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.AccessToken, error) {
			if userID != "sa@example" {
				t.Errorf("userID = %q, want %q", userID, "sa@example")
			}
			return &model.AccessToken{
				UserID:      "sa@example",
				AccessToken: "cached-token",
				ExpiredAt:   now.Unix() + 100,
			}, nil
		},
	}
	exchanger := &mockExchanger{}

	m := NewTokenManager(repo, exchanger, testLogger(), nil)
	m.SetNow(func() time.Time { return now })

	got, err := m.ServiceAccountToken(context.Background(), testCredential())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "cached-token" {
		t.Errorf("token = %q, want %q", got, "cached-token")
	}
	if exchanger.calls != 0 {
		t.Errorf("exchange calls = %d, want 0", exchanger.calls)
	}
}

// expired_at == now はちょうど境界だがキャッシュヒットであることを検証
func TestServiceAccountToken_ExpiryBoundary_IsHit(t *testing.T) {
	now := time.Unix(1700000000, 0)

	repo := &mockTokenRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.AccessToken, error) {
			return &model.AccessToken{
				UserID:      "sa@example",
				AccessToken: "boundary-token",
				ExpiredAt:   now.Unix(),
			}, nil
		},
	}
	exchanger := &mockExchanger{}

	m := NewTokenManager(repo, exchanger, testLogger(), nil)
	m.SetNow(func() time.Time { return now })

	got, err := m.ServiceAccountToken(context.Background(), testCredential())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "boundary-token" {
		t.Errorf("token = %q, want %q", got, "boundary-token")
	}
	if exchanger.calls != 0 {
		t.Errorf("exchange calls = %d, want 0", exchanger.calls)
	}
}

// キャッシュ不在時はトークン交換をちょうど1回行い、
// expired_at = now + expires_in のレコードを保存することを検証
func TestServiceAccountToken_CacheMiss_ExchangesOnceAndPersists(t *testing.T) {
	now := time.Unix(1700000000, 0)

	var saved *model.AccessToken
	repo := &mockTokenRepo{
		upsertFn: func(ctx context.Context, token *model.AccessToken) error {
			saved = token
			return nil
		},
	}
	exchanger := &mockExchanger{
		exchangeFn: func(ctx context.Context, cred *model.ClientCredential, exNow time.Time) (*TokenResponse, error) {
			if !exNow.Equal(now) {
				t.Errorf("exchange now = %v, want %v", exNow, now)
			}
			return &TokenResponse{
				AccessToken:  "fresh-token",
				RefreshToken: "fresh-refresh",
				ExpiresIn:    3600,
			}, nil
		},
	}

	m := NewTokenManager(repo, exchanger, testLogger(), nil)
	m.SetNow(func() time.Time { return now })

	got, err := m.ServiceAccountToken(context.Background(), testCredential())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fresh-token" {
		t.Errorf("token = %q, want %q", got, "fresh-token")
	}
	if exchanger.calls != 1 {
		t.Errorf("exchange calls = %d, want 1", exchanger.calls)
	}

	if saved == nil {
		t.Fatal("expected token to be persisted")
	}
	if saved.UserID != "sa@example" {
		t.Errorf("saved.UserID = %q, want %q", saved.UserID, "sa@example")
	}
	if saved.CreatedAt != now.Unix() {
		t.Errorf("saved.CreatedAt = %d, want %d", saved.CreatedAt, now.Unix())
	}
	if saved.ExpiredAt != now.Unix()+3600 {
		t.Errorf("saved.ExpiredAt = %d, want %d", saved.ExpiredAt, now.Unix()+3600)
	}
}

// 期限切れキャッシュ（expired_at < now）は再取得されることを検証
func TestServiceAccountToken_ExpiredCache_Exchanges(t *testing.T) {
	now := time.Unix(1700000000, 0)

	repo := &mockTokenRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.AccessToken, error) {
			return &model.AccessToken{
				UserID:      "sa@example",
				AccessToken: "stale-token",
				ExpiredAt:   now.Unix() - 1,
			}, nil
		},
	}
	exchanger := &mockExchanger{
		exchangeFn: func(ctx context.Context, cred *model.ClientCredential, exNow time.Time) (*TokenResponse, error) {
			return &TokenResponse{AccessToken: "fresh-token", ExpiresIn: 3600}, nil
		},
	}

	m := NewTokenManager(repo, exchanger, testLogger(), nil)
	m.SetNow(func() time.Time { return now })

	got, err := m.ServiceAccountToken(context.Background(), testCredential())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fresh-token" {
		t.Errorf("token = %q, want %q", got, "fresh-token")
	}
	if exchanger.calls != 1 {
		t.Errorf("exchange calls = %d, want 1", exchanger.calls)
	}
}

// トークン交換の失敗がそのまま伝播することを検証（リトライなし）
func TestServiceAccountToken_ExchangeError_Propagates(t *testing.T) {
	exchangeErr := errors.New("token exchange failed with status 400")
	exchanger := &mockExchanger{
		exchangeFn: func(ctx context.Context, cred *model.ClientCredential, now time.Time) (*TokenResponse, error) {
			return nil, exchangeErr
		},
	}

	m := NewTokenManager(&mockTokenRepo{}, exchanger, testLogger(), nil)

	_, err := m.ServiceAccountToken(context.Background(), testCredential())
	if !errors.Is(err, exchangeErr) {
		t.Errorf("err = %v, want %v", err, exchangeErr)
	}
}

// UserTokenはストアのトークンをそのまま返すことを検証（期限切れでも返す）
func TestUserToken_ReturnsStoredTokenAsIs(t *testing.T) {
	repo := &mockTokenRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.AccessToken, error) {
			return &model.AccessToken{
				UserID:      "u1",
				AccessToken: "user-token",
				ExpiredAt:   0, // とっくに期限切れ
			}, nil
		},
	}

	m := NewTokenManager(repo, &mockExchanger{}, testLogger(), nil)

	got, err := m.UserToken(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "user-token" {
		t.Errorf("token = %q, want %q", got, "user-token")
	}
}

// UserTokenはレコード不在時にエラーを返すことを検証
func TestUserToken_NotFound_ReturnsError(t *testing.T) {
	m := NewTokenManager(&mockTokenRepo{}, &mockExchanger{}, testLogger(), nil)

	_, err := m.UserToken(context.Background(), "unknown-user")
	if err == nil {
		t.Fatal("expected error for missing token")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTokenNotFound {
		t.Errorf("err = %v, want APIError with code %s", err, model.ErrCodeTokenNotFound)
	}
}
