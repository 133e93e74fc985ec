package model

import "time"

// AutomationSetting はカレンダーとIFTTTウェブフックの連携設定を表す。
// 設定フォームの送信ごとに新しいカレンダーと新しい行が作成される
// （更新・削除の経路は存在しない）。
type AutomationSetting struct {
	ID                  string
	CalendarID          string
	UserID              string
	IFTTTEventID        string
	IFTTTIntegrationKey string
	CreatedAt           time.Time
}
