package contentsvc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	contentmodels "blog_press/internal/api/content/models"
	basesvc "blog_press/internal/api/base/service"
	"blog_press/internal/common"
	"blog_press/internal/global"
)

// ContentItemService service quản lý content items (bài viết, bình luận, bản cập nhật chờ)
type ContentItemService struct {
	*basesvc.BaseServiceMongoImpl[contentmodels.ContentItem]
}

// NewContentItemService tạo mới ContentItemService
func NewContentItemService() (*ContentItemService, error) {
	collection, exists := global.RegistryCollections.Get(global.MongoDB_ColNames.ContentItems)
	if !exists {
		return nil, fmt.Errorf("failed to get content_items collection: %v", common.ErrNotFound)
	}
	return &ContentItemService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[contentmodels.ContentItem](collection),
	}, nil
}

// UpdateWithVersion ghi item với optimistic concurrency: filter theo (_id, version)
// và $inc version trong cùng một thao tác atomic.
// Version không khớp → ErrVersionConflict; item không tồn tại → ErrNotFound.
func (s *ContentItemService) UpdateWithVersion(ctx context.Context, id primitive.ObjectID, expectedVersion int64, update *basesvc.UpdateData) (contentmodels.ContentItem, error) {
	if update.Inc == nil {
		update.Inc = map[string]interface{}{}
	}
	update.Inc["version"] = int64(1)

	filter := bson.M{"_id": id, "version": expectedVersion}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	item, err := s.FindOneAndUpdate(ctx, filter, update, opts)
	if err == nil {
		return item, nil
	}
	if err != common.ErrNotFound {
		return item, err
	}

	// Phân biệt version lệch với item không tồn tại
	exists, existsErr := s.DocumentExists(ctx, bson.M{"_id": id})
	if existsErr != nil {
		return item, existsErr
	}
	if exists {
		return item, common.ErrVersionConflict
	}
	return item, common.ErrNotFound
}

// FindDue lấy các item đến hạn publish: status=scheduled, đã được duyệt,
// publishAt <= nowMs (strictly due), sắp theo publishAt tăng dần (FIFO theo giờ lên lịch).
func (s *ContentItemService) FindDue(ctx context.Context, nowMs int64, limit int64) ([]contentmodels.ContentItem, error) {
	filter := bson.M{
		"status":           contentmodels.ContentStatusScheduled,
		"moderationStatus": contentmodels.ModerationStatusApproved,
		"publishAt":        bson.M{"$lte": nowMs},
		// Item bắt buộc xác minh chỉ đủ điều kiện khi đã xác minh xong
		"$or": []bson.M{
			{"requiresVerification": false},
			{"verifiedAt": bson.M{"$ne": nil}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "publishAt", Value: 1}}).
		SetLimit(limit)
	return s.Find(ctx, filter, opts)
}

// FindPendingModeration lấy các item chưa được đánh giá kiểm duyệt
func (s *ContentItemService) FindPendingModeration(ctx context.Context, limit int64) ([]contentmodels.ContentItem, error) {
	filter := bson.M{"moderationStatus": contentmodels.ModerationStatusPending}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)
	return s.Find(ctx, filter, opts)
}

// FindPendingUpdate lấy bản cập nhật chờ của một item gốc (nếu có)
func (s *ContentItemService) FindPendingUpdate(ctx context.Context, originalID primitive.ObjectID) (contentmodels.ContentItem, error) {
	return s.FindOne(ctx, bson.M{"originalItemId": originalID}, nil)
}
