// Package database - Index bổ sung cho nội dung (compound) không thể định nghĩa qua model tags.
package database

import (
	"context"
	"strings"

	"blog_press/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateContentIndexes tạo các index phục vụ quét nội dung đến hạn và tra cứu kiểm duyệt.
// Gọi một lần khi khởi động server.
func CreateContentIndexes(ctx context.Context, db *mongo.Database) error {
	// content_items: (status, moderationStatus, publishAt) — quét item đến hạn của worker
	contentItems := db.Collection(global.MongoDB_ColNames.ContentItems)
	if _, err := contentItems.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "moderationStatus", Value: 1},
			{Key: "publishAt", Value: 1},
		},
		Options: options.Index().SetName("content_item_due_scan"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// content_items: (originalItemId) sparse — tra cứu bản cập nhật chờ của item đã xuất bản
	if _, err := contentItems.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "originalItemId", Value: 1},
		},
		Options: options.Index().SetName("content_item_original").SetSparse(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// content_items: (author.userId, createdAt) sparse — liệt kê nội dung theo tác giả
	if _, err := contentItems.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "author.userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("content_item_author").SetSparse(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// content_moderation_records: (contentId, createdAt) — lịch sử kiểm duyệt theo item
	moderationRecords := db.Collection(global.MongoDB_ColNames.ContentModerationRecords)
	if _, err := moderationRecords.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "contentId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("moderation_record_content"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// content_delay_policies: (kind) unique — một policy cho mỗi loại nội dung
	delayPolicies := db.Collection(global.MongoDB_ColNames.ContentDelayPolicies)
	if _, err := delayPolicies.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "kind", Value: 1},
		},
		Options: options.Index().SetName("delay_policy_kind").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// content_delay_overrides: (contentId) unique — một override cho mỗi item
	delayOverrides := db.Collection(global.MongoDB_ColNames.ContentDelayOverrides)
	if _, err := delayOverrides.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "contentId", Value: 1},
		},
		Options: options.Index().SetName("delay_override_content").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	return nil
}

func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "already exists") || strings.Contains(s, "duplicate")
}
