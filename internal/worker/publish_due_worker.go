// Package worker - PublishDueWorker quét nội dung đã lên lịch đến hạn và thực hiện publish.
// An toàn khi chạy nhiều instance: version CAS trên content item là cơ chế điều phối duy nhất,
// instance thua cuộc đua claim đơn giản bỏ qua item đó.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	contentsvc "blog_press/internal/api/content/service"
	"blog_press/internal/logger"
)

// PublishDueWorker worker publish nội dung đến hạn theo chu kỳ.
type PublishDueWorker struct {
	schedulerService *contentsvc.SchedulerService
	interval         time.Duration // Khoảng thời gian giữa các lần quét (mặc định: 30s)
	batchSize        int           // Số item tối đa mỗi lần quét (mặc định: 50)
}

// NewPublishDueWorker tạo worker mới.
//
// Tham số:
//   - interval: Khoảng cách giữa các lần quét (mặc định: 30s)
//   - batchSize: Số item tối đa mỗi chu kỳ (mặc định: 50)
func NewPublishDueWorker(interval time.Duration, batchSize int) (*PublishDueWorker, error) {
	schedulerService, err := contentsvc.NewSchedulerService()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &PublishDueWorker{
		schedulerService: schedulerService,
		interval:         interval,
		batchSize:        batchSize,
	}, nil
}

// Start chạy worker trong vòng lặp.
func (w *PublishDueWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval":  w.interval.String(),
		"batchSize": w.batchSize,
	}).Info("🚀 [PUBLISH_DUE] Starting Publish Due Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🚀 [PUBLISH_DUE] Publish Due Worker stopped")
			return
		case <-ticker.C:
			w.runBatch(ctx, log)
		}
	}
}

// runBatch một chu kỳ quét: claim các item đến hạn rồi fire từng item.
func (w *PublishDueWorker) runBatch(ctx context.Context, log *logrus.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": r,
			}).Error("🚀 [PUBLISH_DUE] Panic khi xử lý, sẽ tiếp tục lần quét tiếp theo")
		}
	}()

	start := time.Now()
	due, err := w.schedulerService.ClaimDue(ctx, int64(w.batchSize))
	if err != nil {
		log.WithError(err).Error("🚀 [PUBLISH_DUE] Lỗi lấy danh sách nội dung đến hạn")
		return
	}
	if len(due) == 0 {
		return
	}

	published := 0
	for _, item := range due {
		fired, err := w.schedulerService.FireTimer(ctx, item)
		if err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"content_id": item.ID.Hex(),
				"retryCount": item.RetryCount,
			}).Warn("🚀 [PUBLISH_DUE] Publish thất bại, item chuyển sang retry/failed")
			logger.GetErrorLogger().WithError(err).WithFields(map[string]interface{}{
				"content_id": item.ID.Hex(),
			}).Error("Publish commit failed")
			continue
		}
		if fired {
			published++
		}
	}

	if published > 0 {
		log.WithFields(map[string]interface{}{
			"due":       len(due),
			"published": published,
		}).Info("🚀 [PUBLISH_DUE] Đã publish nội dung đến hạn")
		logger.GetPerformanceLogger().WithFields(map[string]interface{}{
			"batch":       len(due),
			"published":   published,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("publish_due_batch")
	}
}
