// Package setting は連携設定の登録ロジックを提供する。
package setting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/calhook/internal/model"
	"github.com/hitoshi/calhook/internal/repository"
	"github.com/hitoshi/calhook/internal/security"
	"github.com/hitoshi/calhook/internal/works"
)

// UserTokenSource は登録ユーザーのアクセストークンを解決するインターフェース。
type UserTokenSource interface {
	UserToken(ctx context.Context, userID string) (string, error)
}

// CalendarCreator は連携用カレンダーを作成するインターフェース。
type CalendarCreator interface {
	CreateCalendar(ctx context.Context, accessToken, name, description string) (*works.Calendar, error)
}

// Service は連携設定の登録を行う。
// 登録ごとに専用カレンダーを1つ作成し、そのIDを設定に紐づける。
type Service struct {
	settingRepo repository.SettingRepository
	tokens      UserTokenSource
	calendars   CalendarCreator
	sanitizer   security.TextSanitizerService
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	settingRepo repository.SettingRepository,
	tokens UserTokenSource,
	calendars CalendarCreator,
	sanitizer security.TextSanitizerService,
	logger *slog.Logger,
) *Service {
	return &Service{
		settingRepo: settingRepo,
		tokens:      tokens,
		calendars:   calendars,
		sanitizer:   sanitizer,
		logger:      logger,
		now:         time.Now,
	}
}

// SetNow は現在時刻の取得関数を差し替える。テスト用。
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// Register は連携設定を登録する。
//
// descriptionはサニタイズしてからカレンダーの説明として使用する。
// カレンダー名は "integration: {イベントID}" で固定。
// カレンダー作成に成功した場合のみ設定レコードを保存する。
func (s *Service) Register(ctx context.Context, userID, eventID, integrationKey, description string) (*model.AutomationSetting, error) {
	if userID == "" {
		return nil, model.NewInvalidFormError("user_id")
	}
	if eventID == "" {
		return nil, model.NewInvalidFormError("event_id")
	}
	if integrationKey == "" {
		return nil, model.NewInvalidFormError("integration_key")
	}

	sanitized := s.sanitizer.Sanitize(description)

	token, err := s.tokens.UserToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	calendarName := fmt.Sprintf("integration: %s", eventID)
	calendar, err := s.calendars.CreateCalendar(ctx, token, calendarName, sanitized)
	if err != nil {
		return nil, fmt.Errorf("連携用カレンダーの作成に失敗しました: %w", err)
	}

	rec := &model.AutomationSetting{
		ID:                  uuid.New().String(),
		CalendarID:          calendar.CalendarID,
		UserID:              userID,
		IFTTTEventID:        eventID,
		IFTTTIntegrationKey: integrationKey,
		CreatedAt:           s.now(),
	}
	if err := s.settingRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("連携設定の保存に失敗しました: %w", err)
	}

	s.logger.Info("連携設定を登録しました",
		slog.String("setting_id", rec.ID),
		slog.String("user_id", userID),
		slog.String("calendar_id", calendar.CalendarID),
		slog.String("ifttt_event_id", eventID),
	)

	return rec, nil
}
