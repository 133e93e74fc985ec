package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/calhook/internal/model"
)

// assertionLifetime は署名付きアサーションの有効期間。
const assertionLifetime = time.Hour

// jwtBearerGrantType はサービスアカウント認証のグラント種別（RFC 7523）。
const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// ServiceAccountExchanger はサービスアカウントのアサーション交換のインターフェース。
// トークンマネージャーがキャッシュミス時に使用する。
type ServiceAccountExchanger interface {
	// ExchangeAssertion は署名付きアサーションを組み立て、
	// JWTベアラーグラントでアクセストークンに交換する。
	ExchangeAssertion(ctx context.Context, cred *model.ClientCredential, now time.Time) (*TokenResponse, error)
}

// ServiceAccountAuth はサービスアカウント向けのJWTベアラーグラントを扱うクライアント。
type ServiceAccountAuth struct {
	httpClient *http.Client
	baseURL    string
}

// NewServiceAccountAuth はServiceAccountAuthの新しいインスタンスを生成する。
func NewServiceAccountAuth(httpClient *http.Client, baseURL string) *ServiceAccountAuth {
	return &ServiceAccountAuth{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// signAssertion はRS256で署名したアサーションJWTを生成する。
// iss=クライアントID、sub=サービスアカウント、iat=now、exp=now+1時間。
func signAssertion(cred *model.ClientCredential, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cred.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	claims := jwt.MapClaims{
		"iss": cred.ClientID,
		"sub": cred.ServiceAccount,
		"iat": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}

	return signed, nil
}

// ExchangeAssertion は署名付きアサーションをアクセストークンに交換する。
// スコープは常にBot操作（ScopeBot）。非2xxレスポンスはエラーとして返す。
func (a *ServiceAccountAuth) ExchangeAssertion(ctx context.Context, cred *model.ClientCredential, now time.Time) (*TokenResponse, error) {
	assertion, err := signAssertion(cred, now)
	if err != nil {
		return nil, err
	}

	data := url.Values{
		"assertion":     {assertion},
		"grant_type":    {jwtBearerGrantType},
		"client_id":     {cred.ClientID},
		"client_secret": {cred.ClientSecret},
		"scope":         {ScopeBot},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	return decodeTokenResponse(resp)
}

// compile-time interface check
var _ ServiceAccountExchanger = (*ServiceAccountAuth)(nil)
