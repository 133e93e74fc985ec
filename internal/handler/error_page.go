package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/calhook/internal/model"
)

// errorPageData はエラーページの描画データ。
type errorPageData struct {
	Message string
	Action  string
}

// writeErrorPage はエラーをユーザー向けのエラーページとして描画する。
// APIErrorはカテゴリに応じたステータスコードとメッセージ・対処方法を提示し、
// それ以外は詳細を伏せた500ページにする。
func writeErrorPage(logger *slog.Logger, w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusInternalServerError
		switch apiErr.Category {
		case "validation":
			status = http.StatusBadRequest
		case "auth":
			status = http.StatusUnauthorized
		}
		renderPage(logger, w, status, "error.html", errorPageData{
			Message: apiErr.Message,
			Action:  apiErr.Action,
		})
		return
	}

	logger.Error("リクエスト処理に失敗しました", slog.String("error", err.Error()))
	renderPage(logger, w, http.StatusInternalServerError, "error.html", errorPageData{
		Message: "サーバー内部でエラーが発生しました。",
		Action:  "時間をおいて再度お試しください。",
	})
}
