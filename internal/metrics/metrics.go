// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はポーリングとトークンキャッシュのメトリクスを収集する。
// poll.Metricsとauth.TokenMetricsの両方を満たす。
type Collector struct {
	pollSuccess    prometheus.Counter
	pollFail       prometheus.Counter
	eventsMatched  prometheus.Counter
	webhooksSent   prometheus.Counter
	botMessages    prometheus.Counter
	tokenCacheHit  prometheus.Counter
	tokenCacheMiss prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pollSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calhook_poll_success_total",
			Help: "ポーリングサイクル成功の合計数",
		}),
		pollFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calhook_poll_fail_total",
			Help: "ポーリングサイクル失敗の合計数",
		}),
		eventsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calhook_events_matched_total",
			Help: "時間窓にマッチしたイベントコンポーネントの合計数",
		}),
		webhooksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calhook_webhooks_sent_total",
			Help: "発火したIFTTT Webhookの合計数",
		}),
		botMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calhook_bot_messages_sent_total",
			Help: "送信したBotメッセージの合計数",
		}),
		tokenCacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calhook_token_cache_hit_total",
			Help: "サービスアカウントトークンのキャッシュヒット数",
		}),
		tokenCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calhook_token_cache_miss_total",
			Help: "サービスアカウントトークンのキャッシュミス数",
		}),
	}

	reg.MustRegister(
		c.pollSuccess,
		c.pollFail,
		c.eventsMatched,
		c.webhooksSent,
		c.botMessages,
		c.tokenCacheHit,
		c.tokenCacheMiss,
	)

	return c
}

// RecordPollSuccess はポーリングサイクルの成功を記録する。
func (c *Collector) RecordPollSuccess() {
	c.pollSuccess.Inc()
}

// RecordPollFailure はポーリングサイクルの失敗を記録する。
func (c *Collector) RecordPollFailure() {
	c.pollFail.Inc()
}

// RecordEventsMatched はマッチしたイベント数を記録する。
func (c *Collector) RecordEventsMatched(count int) {
	c.eventsMatched.Add(float64(count))
}

// RecordWebhookSent はWebhookの発火を記録する。
func (c *Collector) RecordWebhookSent() {
	c.webhooksSent.Inc()
}

// RecordBotMessageSent はBotメッセージの送信を記録する。
func (c *Collector) RecordBotMessageSent() {
	c.botMessages.Inc()
}

// RecordTokenCacheHit はトークンキャッシュヒットを記録する。
func (c *Collector) RecordTokenCacheHit() {
	c.tokenCacheHit.Inc()
}

// RecordTokenCacheMiss はトークンキャッシュミスを記録する。
func (c *Collector) RecordTokenCacheMiss() {
	c.tokenCacheMiss.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
