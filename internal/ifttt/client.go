// Package ifttt はIFTTT Webhooksサービスへのトリガー送信を提供する。
package ifttt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Client はIFTTT Webhooks APIのクライアント。
// インテグレーションキーは設定ごとに異なるため、呼び出しごとに受け取る。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClient の新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// Trigger は指定イベントのWebhookを発火する。
// payloadがnilでなければJSONボディとして送信する。非2xxはエラー。
func (c *Client) Trigger(ctx context.Context, eventID, integrationKey string, payload any) error {
	triggerURL := fmt.Sprintf("%s/trigger/%s/json/with/key/%s",
		c.baseURL, url.PathEscape(eventID), url.PathEscape(integrationKey))

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("ペイロードのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, triggerURL, reqBody)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("IFTTT Webhookの呼び出しに失敗しました",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("IFTTT Webhookがエラーステータスを返しました",
			slog.String("event_id", eventID),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return fmt.Errorf("IFTTT Webhookがステータス %d を返しました: %s", resp.StatusCode, eventID)
	}

	c.logger.Info("IFTTT Webhookを発火しました", slog.String("event_id", eventID))

	return nil
}
