// Package auth はLINE WORKSのOAuth認証フローとトークンのライフサイクル管理を提供する。
// ユーザー向けの認可コードグラントと、サービスアカウント向けの
// JWTベアラーグラント（署名付きアサーション）の2系統を扱う。
package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// スコープ定数。ユーザー認可はメールアドレス参照とカレンダー操作、
// サービスアカウントはBot操作のみ。
const (
	ScopeUser = "user.email.read,calendar"
	ScopeBot  = "bot"
)

// TokenResponse は認可サーバーのトークンエンドポイントのレスポンスを表す。
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// decodeTokenResponse はトークンエンドポイントのHTTPレスポンスを検証しデコードする。
// 非2xxレスポンスはエラーとして返す（リトライは行わない）。
func decodeTokenResponse(resp *http.Response) (*TokenResponse, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, nil
}
