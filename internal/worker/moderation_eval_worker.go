// Package worker - ModerationEvalWorker chấm điểm các item đang chờ kiểm duyệt.
// Item chưa được đánh giá giữ trạng thái pending và không bao giờ được publish,
// nên worker này là đường đảm bảo mọi nội dung đều đi qua cổng kiểm duyệt.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	contentsvc "blog_press/internal/api/content/service"
	"blog_press/internal/common"
	"blog_press/internal/logger"
)

// ModerationEvalWorker worker đánh giá kiểm duyệt tự động theo chu kỳ.
type ModerationEvalWorker struct {
	moderationService *contentsvc.ModerationService
	itemService       *contentsvc.ContentItemService
	interval          time.Duration // Khoảng thời gian giữa các lần chạy (mặc định: 60s)
	batchSize         int           // Số item tối đa mỗi chu kỳ (mặc định: 100)
}

// NewModerationEvalWorker tạo worker mới.
func NewModerationEvalWorker(interval time.Duration, batchSize int) (*ModerationEvalWorker, error) {
	moderationService, err := contentsvc.NewModerationService()
	if err != nil {
		return nil, err
	}
	itemService, err := contentsvc.NewContentItemService()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ModerationEvalWorker{
		moderationService: moderationService,
		itemService:       itemService,
		interval:          interval,
		batchSize:         batchSize,
	}, nil
}

// Start chạy worker trong vòng lặp.
func (w *ModerationEvalWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval":  w.interval.String(),
		"batchSize": w.batchSize,
	}).Info("🛡️ [MODERATION_EVAL] Starting Moderation Eval Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🛡️ [MODERATION_EVAL] Moderation Eval Worker stopped")
			return
		case <-ticker.C:
			w.runBatch(ctx, log)
		}
	}
}

// runBatch một chu kỳ: lấy batch item pending rồi chấm điểm từng item.
func (w *ModerationEvalWorker) runBatch(ctx context.Context, log *logrus.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": r,
			}).Error("🛡️ [MODERATION_EVAL] Panic khi xử lý, sẽ tiếp tục lần chạy tiếp theo")
		}
	}()

	pending, err := w.itemService.FindPendingModeration(ctx, int64(w.batchSize))
	if err != nil {
		log.WithError(err).Error("🛡️ [MODERATION_EVAL] Lỗi lấy danh sách item chờ kiểm duyệt")
		return
	}
	if len(pending) == 0 {
		return
	}

	evaluated := 0
	for _, item := range pending {
		if _, err := w.moderationService.Evaluate(ctx, &item); err != nil {
			if err == common.ErrVersionConflict {
				// Item vừa bị sửa → sẽ được đánh giá lại ở chu kỳ sau
				continue
			}
			log.WithError(err).WithFields(map[string]interface{}{
				"content_id": item.ID.Hex(),
			}).Warn("🛡️ [MODERATION_EVAL] Đánh giá thất bại, bỏ qua")
			continue
		}
		evaluated++
	}

	if evaluated > 0 {
		log.WithFields(map[string]interface{}{
			"pending":   len(pending),
			"evaluated": evaluated,
		}).Info("🛡️ [MODERATION_EVAL] Đã đánh giá kiểm duyệt tự động")
	}
}
