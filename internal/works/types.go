package works

import (
	"fmt"
	"time"
)

// startTimeLayout はカレンダーAPIが返すイベント開始時刻の形式。
// タイムゾーン情報を含まないため、併記されるtimeZoneで解釈する。
const startTimeLayout = "2006-01-02T15:04:05"

// User はカレンダープロバイダーのユーザー情報。
type User struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Calendar は作成済みカレンダーの情報。
type Calendar struct {
	CalendarID   string `json:"calendarId"`
	CalendarName string `json:"calendarName"`
}

// EventTime はイベントの開始・終了時刻。
// dateTimeは壁時計の時刻で、timeZoneがその解釈を決める。
type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// EventComponent はイベントの1コンポーネント。
// 繰り返しイベントは複数のコンポーネントに展開される。
type EventComponent struct {
	EventID string    `json:"eventId"`
	Summary string    `json:"summary"`
	Start   EventTime `json:"start"`
}

// Event はカレンダーイベント。コンポーネントのリストを持つ。
type Event struct {
	EventComponents []EventComponent `json:"eventComponents"`
}

// eventsResponse はイベント一覧APIのレスポンス。
type eventsResponse struct {
	Events []Event `json:"events"`
}

// StartTime はコンポーネントの開始時刻を、併記されたタイムゾーンで
// 解釈したtime.Timeとして返す。
func (c *EventComponent) StartTime() (time.Time, error) {
	loc, err := time.LoadLocation(c.Start.TimeZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("タイムゾーンの解決に失敗しました %q: %w", c.Start.TimeZone, err)
	}

	t, err := time.ParseInLocation(startTimeLayout, c.Start.DateTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("開始時刻のパースに失敗しました %q: %w", c.Start.DateTime, err)
	}

	return t, nil
}
