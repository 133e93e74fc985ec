package poll

import (
	"context"
	"log/slog"
	"time"
)

// PollRunner はポーリングサイクル1回分の実行インターフェース。
type PollRunner interface {
	RunOnce(ctx context.Context) error
}

// Scheduler はポーリングサイクルを一定間隔で起動する。
// サイクル内の処理は逐次実行で、並行するサイクルは起動しない。
type Scheduler struct {
	runner PollRunner
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner PollRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
// サイクルの失敗はログに記録し、次のティックで再開する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ポーリングスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Error("ポーリングサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ポーリングスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.runner.RunOnce(ctx); err != nil {
				s.logger.Error("ポーリングサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
