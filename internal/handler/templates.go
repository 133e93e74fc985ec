// Package handler はHTTPハンドラーを提供する。
// 認可Webフローと連携設定フォームのページを描画する。
package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// renderPage は指定テンプレートをHTMLとして描画する。
func renderPage(logger *slog.Logger, w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		logger.Error("テンプレートの描画に失敗しました",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
	}
}
