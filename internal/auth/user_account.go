package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// authState は認可URLに埋め込む固定のstate値。
// TODO: コールバック側でのstate検証を実装する（現状は固定値を送るだけで検証していない）。
const authState = "state"

// UserAccountAuth はユーザー向けの認可コードグラントを扱うクライアント。
// クライアント資格情報はドメインごとにストアから取得されるため、
// 各メソッドの引数として受け取る。
type UserAccountAuth struct {
	httpClient *http.Client
	baseURL    string // 例: https://auth.worksmobile.com/oauth2/v2.0
}

// NewUserAccountAuth はUserAccountAuthの新しいインスタンスを生成する。
func NewUserAccountAuth(httpClient *http.Client, baseURL string) *UserAccountAuth {
	return &UserAccountAuth{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// RedirectURI はリクエストのHostヘッダーからOAuthコールバックURIを組み立てる。
func RedirectURI(host string) string {
	return fmt.Sprintf("https://%s/redirect", host)
}

// AuthURL はユーザー同意画面へ誘導する認可URLを生成する。
func (a *UserAccountAuth) AuthURL(clientID, redirectURI string) string {
	params := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"scope":         {ScopeUser},
		"response_type": {"code"},
		"state":         {authState},
	}
	return a.baseURL + "/authorize?" + params.Encode()
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (a *UserAccountAuth) ExchangeCode(ctx context.Context, clientID, clientSecret, code string) (*TokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
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
