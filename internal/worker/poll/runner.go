// Package poll はカレンダーのバックグラウンドポーリング処理を提供する。
// スケジューラとポーリングランナーを含む。
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/calhook/internal/model"
	"github.com/hitoshi/calhook/internal/repository"
	"github.com/hitoshi/calhook/internal/works"
)

// TokenProvider はポーリングに必要なアクセストークンを解決するインターフェース。
type TokenProvider interface {
	// ServiceAccountToken はBot操作用のサービスアカウントトークンを返す。
	ServiceAccountToken(ctx context.Context, cred *model.ClientCredential) (string, error)
	// UserToken はユーザーのトークンをストアから取得してそのまま返す。
	UserToken(ctx context.Context, userID string) (string, error)
}

// CalendarAPI はカレンダーイベントの取得とBotメッセージ送信のインターフェース。
type CalendarAPI interface {
	ListCalendarEvents(ctx context.Context, accessToken, userID, calendarID string, from, until time.Time) ([]works.EventComponent, error)
	SendBotMessage(ctx context.Context, accessToken, botID, userID, text string) error
}

// WebhookTrigger はIFTTT Webhookの発火インターフェース。
type WebhookTrigger interface {
	Trigger(ctx context.Context, eventID, integrationKey string, payload any) error
}

// Metrics はポーリングサイクルの観測値を記録するインターフェース。
type Metrics interface {
	RecordPollSuccess()
	RecordPollFailure()
	RecordEventsMatched(n int)
	RecordWebhookSent()
	RecordBotMessageSent()
}

// Runner はポーリングサイクル1回分の処理を実行する。
//
// 各サイクルは until = 現在時刻、from = until - window の時間窓を対象とし、
// 開始時刻が from より後かつ until 以下のイベントコンポーネントをマッチとする。
// マッチごとにWebhookを発火し、続けてBotメッセージを送信する。
//
// 設定は登録順に逐次処理し、最初のエラーでサイクル全体を中断する。
// リトライや送信済み記録は持たないため、同一の窓で再実行すると
// 同じイベントに対して通知が重複する。
type Runner struct {
	domainID    string
	window      time.Duration
	credRepo    repository.CredentialRepository
	settingRepo repository.SettingRepository
	tokens      TokenProvider
	calendars   CalendarAPI
	webhooks    WebhookTrigger
	metrics     Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewRunner はRunnerの新しいインスタンスを生成する。
// metricsはnilでもよい（記録をスキップする）。
func NewRunner(
	domainID string,
	window time.Duration,
	credRepo repository.CredentialRepository,
	settingRepo repository.SettingRepository,
	tokens TokenProvider,
	calendars CalendarAPI,
	webhooks WebhookTrigger,
	metrics Metrics,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		domainID:    domainID,
		window:      window,
		credRepo:    credRepo,
		settingRepo: settingRepo,
		tokens:      tokens,
		calendars:   calendars,
		webhooks:    webhooks,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// SetNow は現在時刻の取得関数を差し替える。テスト用。
func (r *Runner) SetNow(now func() time.Time) {
	r.now = now
}

// RunOnce はポーリングサイクルを1回実行する。
func (r *Runner) RunOnce(ctx context.Context) error {
	err := r.runOnce(ctx)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordPollFailure()
		}
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordPollSuccess()
	}
	return nil
}

func (r *Runner) runOnce(ctx context.Context) error {
	until := r.now()
	from := until.Add(-r.window)

	cred, err := r.credRepo.FindByDomainID(ctx, r.domainID)
	if err != nil {
		return err
	}
	if cred == nil {
		// 資格情報の不在は続行不能。サイクルを中断する。
		return model.NewCredentialNotFoundError(r.domainID)
	}

	botToken, err := r.tokens.ServiceAccountToken(ctx, cred)
	if err != nil {
		return err
	}

	settings, err := r.settingRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("ポーリングサイクルを開始します",
		slog.Int("setting_count", len(settings)),
		slog.Time("from", from),
		slog.Time("until", until),
	)

	matched := 0
	for _, s := range settings {
		n, err := r.processSetting(ctx, s, cred, botToken, from, until)
		if err != nil {
			r.logger.Error("ポーリングサイクルを中断します",
				slog.String("setting_id", s.ID),
				slog.String("error", err.Error()),
			)
			return err
		}
		matched += n
	}

	if r.metrics != nil {
		r.metrics.RecordEventsMatched(matched)
	}

	r.logger.Info("ポーリングサイクルが完了しました",
		slog.Int("setting_count", len(settings)),
		slog.Int("matched_count", matched),
	)

	return nil
}

// processSetting は1つの連携設定についてイベントを取得し、
// 時間窓にマッチしたコンポーネントごとに通知を送る。マッチ数を返す。
func (r *Runner) processSetting(ctx context.Context, s *model.AutomationSetting, cred *model.ClientCredential, botToken string, from, until time.Time) (int, error) {
	userToken, err := r.tokens.UserToken(ctx, s.UserID)
	if err != nil {
		return 0, err
	}

	components, err := r.calendars.ListCalendarEvents(ctx, userToken, s.UserID, s.CalendarID, from, until)
	if err != nil {
		return 0, err
	}

	matched := 0
	for i := range components {
		component := &components[i]

		start, err := component.StartTime()
		if err != nil {
			return matched, err
		}

		// 窓の判定: from < start <= until
		if !start.After(from) || start.After(until) {
			continue
		}

		if err := r.notify(ctx, s, cred, botToken, component); err != nil {
			return matched, err
		}
		matched++
	}

	return matched, nil
}

// notify はマッチしたコンポーネントについてWebhookを発火し、
// 続けて登録ユーザーへBotメッセージを送信する。
func (r *Runner) notify(ctx context.Context, s *model.AutomationSetting, cred *model.ClientCredential, botToken string, component *works.EventComponent) error {
	if err := r.webhooks.Trigger(ctx, s.IFTTTEventID, s.IFTTTIntegrationKey, component); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordWebhookSent()
	}

	text := fmt.Sprintf("Triggered event: %s", s.IFTTTEventID)
	if err := r.calendars.SendBotMessage(ctx, botToken, cred.BotID, s.UserID, text); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordBotMessageSent()
	}

	r.logger.Info("イベント通知を送信しました",
		slog.String("setting_id", s.ID),
		slog.String("ifttt_event_id", s.IFTTTEventID),
		slog.String("component_event_id", component.EventID),
	)

	return nil
}
