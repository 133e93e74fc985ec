package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/calhook/internal/model"
)

// --- モック定義 ---

type mockRegistrar struct {
	registerFn func(ctx context.Context, userID, eventID, integrationKey, description string) (*model.AutomationSetting, error)
}

func (m *mockRegistrar) Register(ctx context.Context, userID, eventID, integrationKey, description string) (*model.AutomationSetting, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, userID, eventID, integrationKey, description)
	}
	return &model.AutomationSetting{
		ID:                  "setting-1",
		CalendarID:          "cal-1",
		UserID:              userID,
		IFTTTEventID:        eventID,
		IFTTTIntegrationKey: integrationKey,
		CreatedAt:           time.Now(),
	}, nil
}

var _ SettingRegistrar = (*mockRegistrar)(nil)

// --- テスト ---

// 設定フォームにuser_idが埋め込まれることを検証
func TestSettingsForm_EmbedsUserID(t *testing.T) {
	h := NewSettingsHandler(&mockRegistrar{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/settings?user_id=user-42", nil)
	rec := httptest.NewRecorder()
	h.SettingsForm(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="user-42"`) {
		t.Errorf("body does not embed user_id:\n%s", rec.Body.String())
	}
}

// user_id欠落の設定フォームが400になることを検証
func TestSettingsForm_MissingUserID_Returns400(t *testing.T) {
	h := NewSettingsHandler(&mockRegistrar{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	rec := httptest.NewRecorder()
	h.SettingsForm(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// フォーム送信が登録サービスに渡り、完了ページが描画されることを検証
func TestSettingsSubmit_RegistersAndRendersResult(t *testing.T) {
	registrar := &mockRegistrar{
		registerFn: func(ctx context.Context, userID, eventID, integrationKey, description string) (*model.AutomationSetting, error) {
			if userID != "user-42" || eventID != "my_event" || integrationKey != "key-1" {
				t.Errorf("register args = (%q, %q, %q)", userID, eventID, integrationKey)
			}
			if description != "毎朝の通知" {
				t.Errorf("description = %q", description)
			}
			return &model.AutomationSetting{
				ID:           "setting-1",
				CalendarID:   "cal-1",
				UserID:       userID,
				IFTTTEventID: eventID,
			}, nil
		},
	}
	h := NewSettingsHandler(registrar, testLogger())

	form := url.Values{
		"user_id":         {"user-42"},
		"event_id":        {"my_event"},
		"integration_key": {"key-1"},
		"description":     {"毎朝の通知"},
	}
	req := httptest.NewRequest(http.MethodPost, "/settings/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.SettingsSubmit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "integration: my_event") {
		t.Errorf("body does not mention calendar name:\n%s", body)
	}
	if !strings.Contains(body, "cal-1") {
		t.Errorf("body does not mention calendar id:\n%s", body)
	}
}

// バリデーションエラーが400のエラーページになることを検証
func TestSettingsSubmit_ValidationError_Returns400(t *testing.T) {
	registrar := &mockRegistrar{
		registerFn: func(ctx context.Context, userID, eventID, integrationKey, description string) (*model.AutomationSetting, error) {
			return nil, model.NewInvalidFormError("event_id")
		},
	}
	h := NewSettingsHandler(registrar, testLogger())

	form := url.Values{"user_id": {"user-42"}}
	req := httptest.NewRequest(http.MethodPost, "/settings/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.SettingsSubmit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// 未認可ユーザーの登録が401のエラーページになることを検証
func TestSettingsSubmit_MissingToken_Returns401(t *testing.T) {
	registrar := &mockRegistrar{
		registerFn: func(ctx context.Context, userID, eventID, integrationKey, description string) (*model.AutomationSetting, error) {
			return nil, model.NewTokenNotFoundError(userID)
		},
	}
	h := NewSettingsHandler(registrar, testLogger())

	form := url.Values{
		"user_id":         {"user-42"},
		"event_id":        {"my_event"},
		"integration_key": {"key-1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/settings/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.SettingsSubmit(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
