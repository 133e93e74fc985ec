package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/calhook/internal/model"
	"github.com/hitoshi/calhook/internal/repository"
)

// TokenMetrics はトークンキャッシュのヒット/ミスを記録するインターフェース。
type TokenMetrics interface {
	RecordTokenCacheHit()
	RecordTokenCacheMiss()
}

// TokenManager はアクセストークンのキャッシュと再取得を管理する。
//
// サービスアカウントのトークンはストアにキャッシュし、expired_at >= now の間は
// ネットワーク呼び出しなしでそのまま返す。期限切れまたは不在の場合のみ
// JWTベアラーグラントで再取得し、キャッシュを上書きする。
//
// ユーザーのトークンはストアから取得したものをそのまま返す。
// リフレッシュは行わない（期限切れは上流APIの認証エラーとして顕在化する）。
type TokenManager struct {
	tokenRepo repository.TokenRepository
	exchanger ServiceAccountExchanger
	logger    *slog.Logger
	metrics   TokenMetrics
	now       func() time.Time
}

// NewTokenManager はTokenManagerの新しいインスタンスを生成する。
// metricsはnilでもよい（記録をスキップする）。
func NewTokenManager(
	tokenRepo repository.TokenRepository,
	exchanger ServiceAccountExchanger,
	logger *slog.Logger,
	metrics TokenMetrics,
) *TokenManager {
	return &TokenManager{
		tokenRepo: tokenRepo,
		exchanger: exchanger,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// SetNow は現在時刻の取得関数を差し替える。テスト用。
func (m *TokenManager) SetNow(now func() time.Time) {
	m.now = now
}

// ServiceAccountToken はサービスアカウントのBot用アクセストークンを返す。
// キャッシュのキーはservice_account（擬似ユーザーIDとして使用）。
// トークン交換の失敗はそのまま呼び出し元に伝播し、当該ポーリングサイクルを
// 中断させる（リトライなし）。
func (m *TokenManager) ServiceAccountToken(ctx context.Context, cred *model.ClientCredential) (string, error) {
	now := m.now()
	nowEpoch := now.Unix()

	cached, err := m.tokenRepo.FindByUserID(ctx, cred.ServiceAccount)
	if err != nil {
		return "", err
	}
	if cached != nil && cached.Usable(nowEpoch) {
		if m.metrics != nil {
			m.metrics.RecordTokenCacheHit()
		}
		return cached.AccessToken, nil
	}

	if m.metrics != nil {
		m.metrics.RecordTokenCacheMiss()
	}

	res, err := m.exchanger.ExchangeAssertion(ctx, cred, now)
	if err != nil {
		return "", err
	}

	token := &model.AccessToken{
		UserID:       cred.ServiceAccount,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		CreatedAt:    nowEpoch,
		ExpiredAt:    nowEpoch + res.ExpiresIn,
	}
	if err := m.tokenRepo.Upsert(ctx, token); err != nil {
		return "", err
	}

	m.logger.Info("サービスアカウントトークンを再取得しました",
		slog.String("service_account", cred.ServiceAccount),
		slog.Int64("expired_at", token.ExpiredAt),
	)

	return res.AccessToken, nil
}

// UserToken はユーザーのアクセストークンをストアから取得してそのまま返す。
// レコードが存在しない場合はエラーを返す。期限切れの検出は行わない。
func (m *TokenManager) UserToken(ctx context.Context, userID string) (string, error) {
	token, err := m.tokenRepo.FindByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if token == nil {
		return "", model.NewTokenNotFoundError(userID)
	}
	return token.AccessToken, nil
}
