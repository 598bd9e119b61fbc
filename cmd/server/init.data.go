package main

import (
	"context"

	"github.com/sirupsen/logrus"

	contentmodels "blog_press/internal/api/content/models"
	contentsvc "blog_press/internal/api/content/service"
	"blog_press/internal/api/events"
	"blog_press/internal/global"
	"blog_press/internal/logger"
)

// InitDefaultData seed chính sách trễ mặc định và đăng ký audit subscriber.
func InitDefaultData() {
	log := logger.GetAppLogger()
	log.Info("🔄 [INIT] Starting InitDefaultData...")

	initAuditSubscriber()
	log.Info("✅ [INIT] Audit subscriber registered")

	if err := seedDelayPolicies(); err != nil {
		log.Fatalf("Failed to seed delay policies: %v", err)
	}
	log.Info("✅ [INIT] Default delay policies seeded")
}

// initAuditSubscriber ghi audit log cho mọi thay đổi dữ liệu qua events bus.
// Bản ghi kiểm duyệt được tag riêng để truy vết quyết định moderation.
func initAuditSubscriber() {
	events.OnDataChanged(func(ctx context.Context, e events.DataChangeEvent) {
		fields := logrus.Fields{
			"collection":  e.CollectionName,
			"operation":   e.Operation,
			"resource_id": events.GetDocumentID(e.Document),
		}
		if e.CollectionName == global.MongoDB_ColNames.ContentModerationRecords {
			if record, ok := e.Document.(contentmodels.ModerationRecord); ok {
				fields["moderation_action"] = record.Action
				fields["content_id"] = record.ContentID.Hex()
				fields["new_status"] = record.NewStatus
			}
		}
		logger.GetAuditLogger().WithFields(fields).Info("Data change")
	})
}

// seedDelayPolicies tạo chính sách trễ mặc định theo kind (idempotent giữa các lần boot).
func seedDelayPolicies() error {
	policyService, err := contentsvc.NewDelayPolicyService()
	if err != nil {
		return err
	}

	cfg := global.MongoDB_ServerConfig
	defaults := []contentmodels.DelayPolicy{
		{
			Kind:               contentmodels.ContentKindPost,
			DelayHours:         float64(cfg.DefaultPostDelayHours),
			VerificationMethod: contentmodels.VerificationMethodNone,
			FlagThreshold:      cfg.AbuseFlagThreshold,
			VerifyThreshold:    cfg.AbuseVerifyThreshold,
		},
		{
			Kind:               contentmodels.ContentKindComment,
			DelayHours:         float64(cfg.DefaultCommentDelayHours),
			VerificationMethod: contentmodels.VerificationMethodNone,
			FlagThreshold:      cfg.AbuseFlagThreshold,
			VerifyThreshold:    cfg.AbuseVerifyThreshold,
		},
	}

	ctx := context.TODO()
	for _, policy := range defaults {
		// Chỉ seed khi chưa có để không ghi đè chỉnh sửa của admin
		if _, err := policyService.FindByKind(ctx, policy.Kind); err == nil {
			continue
		}
		if _, err := policyService.InsertOne(ctx, policy); err != nil {
			return err
		}
	}
	return nil
}
