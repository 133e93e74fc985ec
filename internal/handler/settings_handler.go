package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/calhook/internal/model"
)

// SettingRegistrar は連携設定登録のサービスインターフェース。
type SettingRegistrar interface {
	Register(ctx context.Context, userID, eventID, integrationKey, description string) (*model.AutomationSetting, error)
}

// SettingsHandler は連携設定フォームのハンドラー。
type SettingsHandler struct {
	registrar SettingRegistrar
	logger    *slog.Logger
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(registrar SettingRegistrar, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{registrar: registrar, logger: logger}
}

// settingsPageData は設定フォームの描画データ。
type settingsPageData struct {
	UserID string
}

// SettingsForm は連携設定の入力フォームを表示する。
// GET /settings?user_id=xxx
func (h *SettingsHandler) SettingsForm(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeErrorPage(h.logger, w, model.NewInvalidFormError("user_id"))
		return
	}

	renderPage(h.logger, w, http.StatusOK, "settings.html", settingsPageData{UserID: userID})
}

// submitPageData は登録完了ページの描画データ。
type submitPageData struct {
	EventID    string
	CalendarID string
	SettingID  string
}

// SettingsSubmit はフォーム送信を受けて連携設定を登録する。
// POST /settings/submit
func (h *SettingsHandler) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrorPage(h.logger, w, model.NewInvalidFormError("form"))
		return
	}

	rec, err := h.registrar.Register(r.Context(),
		r.PostForm.Get("user_id"),
		r.PostForm.Get("event_id"),
		r.PostForm.Get("integration_key"),
		r.PostForm.Get("description"),
	)
	if err != nil {
		writeErrorPage(h.logger, w, err)
		return
	}

	renderPage(h.logger, w, http.StatusOK, "settings_submit.html", submitPageData{
		EventID:    rec.IFTTTEventID,
		CalendarID: rec.CalendarID,
		SettingID:  rec.ID,
	})
}
