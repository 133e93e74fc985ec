package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/calhook/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// --- モック定義 ---

type mockAuthFlow struct {
	authorizationURLFn func(ctx context.Context, host string) (string, error)
	handleCallbackFn   func(ctx context.Context, code string) (string, error)
}

func (m *mockAuthFlow) AuthorizationURL(ctx context.Context, host string) (string, error) {
	if m.authorizationURLFn != nil {
		return m.authorizationURLFn(ctx, host)
	}
	return "https://auth.example.com/authorize?client_id=c1", nil
}

func (m *mockAuthFlow) HandleCallback(ctx context.Context, code string) (string, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return "user-1", nil
}

var _ AuthFlowService = (*mockAuthFlow)(nil)

// --- テスト ---

// トップページに認可URLへのリンクが描画されることを検証
func TestIndex_RendersAuthURL(t *testing.T) {
	flow := &mockAuthFlow{
		authorizationURLFn: func(ctx context.Context, host string) (string, error) {
			if host != "svc.example.com" {
				t.Errorf("host = %q, want svc.example.com", host)
			}
			return "https://auth.example.com/authorize?client_id=c1", nil
		},
	}
	h := NewFlowHandler(flow, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "svc.example.com"
	rec := httptest.NewRecorder()
	h.Index(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "https://auth.example.com/authorize?client_id=c1") {
		t.Errorf("body does not contain auth URL:\n%s", rec.Body.String())
	}
}

// 資格情報未登録の場合にエラーページが表示されることを検証
func TestIndex_MissingCredential_RendersErrorPage(t *testing.T) {
	flow := &mockAuthFlow{
		authorizationURLFn: func(ctx context.Context, host string) (string, error) {
			return "", model.NewCredentialNotFoundError("d1")
		},
	}
	h := NewFlowHandler(flow, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Index(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "資格情報") {
		t.Errorf("body does not mention credential:\n%s", rec.Body.String())
	}
}

// コールバックが設定フォームへ302リダイレクトし、
// user_idがクエリに載ることを検証
func TestRedirect_RedirectsToSettings(t *testing.T) {
	flow := &mockAuthFlow{
		handleCallbackFn: func(ctx context.Context, code string) (string, error) {
			if code != "auth-code-1" {
				t.Errorf("code = %q, want auth-code-1", code)
			}
			return "user-42", nil
		},
	}
	h := NewFlowHandler(flow, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/redirect?code=auth-code-1", nil)
	rec := httptest.NewRecorder()
	h.Redirect(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/settings?user_id=user-42" {
		t.Errorf("Location = %q, want /settings?user_id=user-42", got)
	}
}

// codeパラメータ欠落が400になることを検証
func TestRedirect_MissingCode_Returns400(t *testing.T) {
	h := NewFlowHandler(&mockAuthFlow{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/redirect", nil)
	rec := httptest.NewRecorder()
	h.Redirect(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// コールバック処理の失敗がエラーページになることを検証
func TestRedirect_CallbackFailure_RendersErrorPage(t *testing.T) {
	flow := &mockAuthFlow{
		handleCallbackFn: func(ctx context.Context, code string) (string, error) {
			return "", errors.New("token exchange failed")
		},
	}
	h := NewFlowHandler(flow, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/redirect?code=bad-code", nil)
	rec := httptest.NewRecorder()
	h.Redirect(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// ハンドラーのエラーログが注入されたロガーへ出力されることを検証
func TestRedirect_CallbackFailure_LogsToInjectedLogger(t *testing.T) {
	flow := &mockAuthFlow{
		handleCallbackFn: func(ctx context.Context, code string) (string, error) {
			return "", errors.New("token exchange failed")
		},
	}

	var buf bytes.Buffer
	h := NewFlowHandler(flow, slog.New(slog.NewJSONHandler(&buf, nil)))

	req := httptest.NewRequest(http.MethodGet, "/redirect?code=bad-code", nil)
	rec := httptest.NewRecorder()
	h.Redirect(rec, req)

	if !strings.Contains(buf.String(), "token exchange failed") {
		t.Errorf("injected logger did not receive the error log: %s", buf.String())
	}
}
