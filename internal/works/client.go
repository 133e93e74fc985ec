// Package works はLINE WORKSのREST APIクライアントを提供する。
// ユーザー情報の取得、カレンダーの作成、イベント一覧の取得、
// Botメッセージの送信を含む。
package works

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// queryTimeLayout はイベント一覧APIのfromDateTime/untilDateTimeの形式。
const queryTimeLayout = "2006-01-02T15:04:05Z"

// Client はLINE WORKS APIのクライアント。
// Authorizationヘッダーは呼び出しごとに渡されたアクセストークンで設定する。
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

// doJSON はBearer認証付きのリクエストを実行し、2xx以外をエラーにする。
// outがnilでなければレスポンスボディをJSONデコードする。
func (c *Client) doJSON(ctx context.Context, method, apiPath, accessToken string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPath, reqBody)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("LINE WORKS APIの呼び出しに失敗しました",
			slog.String("path", apiPath),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("LINE WORKS APIがエラーステータスを返しました",
			slog.String("path", apiPath),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return fmt.Errorf("LINE WORKS APIがステータス %d を返しました: %s", resp.StatusCode, apiPath)
	}

	if out == nil {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return nil
}

// GetUser はユーザー情報を取得する。userIDに "me" を指定すると
// トークンの持ち主の情報を返す。
func (c *Client) GetUser(ctx context.Context, accessToken, userID string) (*User, error) {
	var user User
	path := fmt.Sprintf("/users/%s", url.PathEscape(userID))
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMe はトークンの持ち主のユーザーIDを返す。
func (c *Client) GetMe(ctx context.Context, accessToken string) (string, error) {
	user, err := c.GetUser(ctx, accessToken, "me")
	if err != nil {
		return "", err
	}
	return user.UserID, nil
}

// CreateCalendar はトークンの持ち主に新しいカレンダーを作成する。
func (c *Client) CreateCalendar(ctx context.Context, accessToken, name, description string) (*Calendar, error) {
	body := map[string]string{
		"calendarName": name,
		"description":  description,
	}

	var calendar Calendar
	if err := c.doJSON(ctx, http.MethodPost, "/calendars", accessToken, body, &calendar); err != nil {
		return nil, err
	}

	c.logger.Info("カレンダーを作成しました",
		slog.String("calendar_id", calendar.CalendarID),
		slog.String("calendar_name", calendar.CalendarName),
	)

	return &calendar, nil
}

// ListCalendarEvents は指定カレンダーのイベントコンポーネントを取得する。
// fromとuntilはUTCに変換してクエリパラメータに載せる。
// イベントごとのコンポーネントを平坦化した1つのリストとして返す。
func (c *Client) ListCalendarEvents(ctx context.Context, accessToken, userID, calendarID string, from, until time.Time) ([]EventComponent, error) {
	path := fmt.Sprintf("/users/%s/calendars/%s/events",
		url.PathEscape(userID), url.PathEscape(calendarID))

	q := url.Values{
		"fromDateTime":  {from.UTC().Format(queryTimeLayout)},
		"untilDateTime": {until.UTC().Format(queryTimeLayout)},
	}

	var res eventsResponse
	if err := c.doJSON(ctx, http.MethodGet, path+"?"+q.Encode(), accessToken, nil, &res); err != nil {
		return nil, err
	}

	var components []EventComponent
	for _, event := range res.Events {
		components = append(components, event.EventComponents...)
	}

	return components, nil
}

// SendBotMessage はBotから指定ユーザーへテキストメッセージを送信する。
func (c *Client) SendBotMessage(ctx context.Context, accessToken, botID, userID, text string) error {
	path := fmt.Sprintf("/bots/%s/users/%s/messages",
		url.PathEscape(botID), url.PathEscape(userID))

	body := map[string]any{
		"content": map[string]string{
			"type": "text",
			"text": text,
		},
	}

	return c.doJSON(ctx, http.MethodPost, path, accessToken, body, nil)
}
