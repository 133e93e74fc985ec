package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
)

// AuthFlowService は認可Webフローのサービスインターフェース。
type AuthFlowService interface {
	// AuthorizationURL はリクエストのHostヘッダーから認可URLを生成する。
	AuthorizationURL(ctx context.Context, host string) (string, error)
	// HandleCallback は認可コードを処理し、認可したユーザーのIDを返す。
	HandleCallback(ctx context.Context, code string) (string, error)
}

// FlowHandler は認可Webフローのハンドラー。
type FlowHandler struct {
	service AuthFlowService
	logger  *slog.Logger
}

// NewFlowHandler はFlowHandlerを生成する。
func NewFlowHandler(service AuthFlowService, logger *slog.Logger) *FlowHandler {
	return &FlowHandler{service: service, logger: logger}
}

// indexPageData はトップページの描画データ。
type indexPageData struct {
	AuthURL string
}

// Index はログインリンク付きのトップページを表示する。
// GET /
func (h *FlowHandler) Index(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.service.AuthorizationURL(r.Context(), r.Host)
	if err != nil {
		writeErrorPage(h.logger, w, err)
		return
	}

	renderPage(h.logger, w, http.StatusOK, "index.html", indexPageData{AuthURL: authURL})
}

// Redirect はOAuthコールバックを処理し、設定フォームへリダイレクトする。
// GET /redirect?code=xxx
func (h *FlowHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}

	userID, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		writeErrorPage(h.logger, w, err)
		return
	}

	q := url.Values{"user_id": {userID}}
	http.Redirect(w, r, "/settings?"+q.Encode(), http.StatusFound)
}
