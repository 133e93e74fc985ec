package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/calhook/internal/model"
	"github.com/hitoshi/calhook/internal/repository"
)

// IdentityFetcher はアクセストークンで認証済みユーザーの識別子を取得するインターフェース。
// カレンダープロバイダーのユーザーAPIへの依存を抽象化する。
type IdentityFetcher interface {
	// GetMe はトークンの持ち主のユーザーIDを返す。
	GetMe(ctx context.Context, accessToken string) (string, error)
}

// Service は認可Webフローのビジネスロジックを提供する。
// 資格情報はリクエストごとにストアから解決する（ドメインは1つのみ）。
type Service struct {
	domainID  string
	credRepo  repository.CredentialRepository
	tokenRepo repository.TokenRepository
	userAuth  *UserAccountAuth
	identity  IdentityFetcher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	domainID string,
	credRepo repository.CredentialRepository,
	tokenRepo repository.TokenRepository,
	userAuth *UserAccountAuth,
	identity IdentityFetcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		domainID:  domainID,
		credRepo:  credRepo,
		tokenRepo: tokenRepo,
		userAuth:  userAuth,
		identity:  identity,
		logger:    logger,
		now:       time.Now,
	}
}

// SetNow は現在時刻の取得関数を差し替える。テスト用。
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// AuthorizationURL はリクエストのHostヘッダーからコールバックURIを組み立て、
// ユーザー同意画面への認可URLを生成する。
// 資格情報が未登録の場合はエラーを返し、処理を中断する。
func (s *Service) AuthorizationURL(ctx context.Context, host string) (string, error) {
	cred, err := s.credRepo.FindByDomainID(ctx, s.domainID)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", model.NewCredentialNotFoundError(s.domainID)
	}

	redirectURI := RedirectURI(host)
	return s.userAuth.AuthURL(cred.ClientID, redirectURI), nil
}

// HandleCallback はOAuthコールバックを処理する。
// 認可コードをトークンに交換し、トークンの持ち主のユーザーIDを取得して、
// そのIDをキーにトークンレコードを保存する。保存後、ユーザーIDを返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (string, error) {
	cred, err := s.credRepo.FindByDomainID(ctx, s.domainID)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", model.NewCredentialNotFoundError(s.domainID)
	}

	res, err := s.userAuth.ExchangeCode(ctx, cred.ClientID, cred.ClientSecret, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	userID, err := s.identity.GetMe(ctx, res.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to fetch user identity: %w", err)
	}

	nowEpoch := s.now().Unix()
	token := &model.AccessToken{
		UserID:       userID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		CreatedAt:    nowEpoch,
		ExpiredAt:    nowEpoch + res.ExpiresIn,
	}
	if err := s.tokenRepo.Upsert(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store access token: %w", err)
	}

	s.logger.Info("user authorized",
		slog.String("user_id", userID),
		slog.Int64("expired_at", token.ExpiredAt),
	)

	return userID, nil
}
