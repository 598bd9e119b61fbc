package contentsvc

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	contentmodels "blog_press/internal/api/content/models"
	basesvc "blog_press/internal/api/base/service"
	"blog_press/internal/common"
	"blog_press/internal/global"
)

// Scorer chấm điểm abuse cho một content item, trả về delta điểm (>= 0).
// Pluggable để có thể thay bằng scorer ML/external mà không đổi service.
type Scorer func(item *contentmodels.ContentItem) float64

// Các từ khóa spam cho scorer heuristic mặc định
var spamKeywords = []string{
	"mua ngay", "giảm giá sốc", "click here", "free money", "casino", "viagra",
}

// DefaultScorer scorer heuristic mặc định: đếm link, từ khóa spam,
// tỷ lệ viết hoa và tác giả ẩn danh.
func DefaultScorer(item *contentmodels.ContentItem) float64 {
	var delta float64
	body := strings.ToLower(item.Body)

	linkCount := strings.Count(body, "http://") + strings.Count(body, "https://")
	if linkCount > 0 {
		delta += float64(linkCount) * 1.5
	}

	for _, keyword := range spamKeywords {
		if strings.Contains(body, keyword) {
			delta += 2.0
		}
	}

	// Nội dung gào thét toàn chữ hoa
	var letters, uppers int
	for _, r := range item.Body {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters >= 20 && float64(uppers)/float64(letters) > 0.7 {
		delta += 3.0
	}

	// Khách ẩn danh kèm link là pattern spam phổ biến
	if item.Author.Kind == contentmodels.AuthorKindAnonymous && linkCount > 0 {
		delta += 1.0
	}

	return delta
}

// ModerationRecordService service quản lý bản ghi kiểm duyệt (append-only)
type ModerationRecordService struct {
	*basesvc.BaseServiceMongoImpl[contentmodels.ModerationRecord]
}

// NewModerationRecordService tạo mới ModerationRecordService
func NewModerationRecordService() (*ModerationRecordService, error) {
	collection, exists := global.RegistryCollections.Get(global.MongoDB_ColNames.ContentModerationRecords)
	if !exists {
		return nil, fmt.Errorf("failed to get content_moderation_records collection: %v", common.ErrNotFound)
	}
	return &ModerationRecordService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[contentmodels.ModerationRecord](collection),
	}, nil
}

// FindByContentID lấy lịch sử kiểm duyệt của một item, mới nhất trước
func (s *ModerationRecordService) FindByContentID(ctx context.Context, contentID primitive.ObjectID) ([]contentmodels.ModerationRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.Find(ctx, bson.M{"contentId": contentID}, opts)
}

// ModerationService cổng kiểm duyệt: chấm điểm tự động + quyết định thủ công.
// Mọi quyết định (tự động hay thủ công) đều tạo một ModerationRecord mới.
type ModerationService struct {
	itemService   *ContentItemService
	recordService *ModerationRecordService
	policyService *DelayPolicyService
	scorer        Scorer
}

// NewModerationService tạo mới ModerationService với scorer mặc định
func NewModerationService() (*ModerationService, error) {
	itemService, err := NewContentItemService()
	if err != nil {
		return nil, err
	}
	recordService, err := NewModerationRecordService()
	if err != nil {
		return nil, err
	}
	policyService, err := NewDelayPolicyService()
	if err != nil {
		return nil, err
	}
	return &ModerationService{
		itemService:   itemService,
		recordService: recordService,
		policyService: policyService,
		scorer:        DefaultScorer,
	}, nil
}

// SetScorer thay scorer heuristic mặc định (dùng cho test hoặc scorer external)
func (s *ModerationService) SetScorer(scorer Scorer) {
	if scorer != nil {
		s.scorer = scorer
	}
}

// flagThresholdForKind lấy ngưỡng gắn cờ từ policy của kind, fallback về config
func (s *ModerationService) flagThresholdForKind(ctx context.Context, kind string) float64 {
	policy, err := s.policyService.FindByKind(ctx, kind)
	if err == nil && policy.FlagThreshold > 0 {
		return policy.FlagThreshold
	}
	return global.MongoDB_ServerConfig.AbuseFlagThreshold
}

// Evaluate chấm điểm tự động một item đang pending.
// Điểm mới vượt ngưỡng gắn cờ → flagged (không bao giờ tự động reject),
// ngược lại → approved. Ghi một ModerationRecord cho quyết định.
func (s *ModerationService) Evaluate(ctx context.Context, item *contentmodels.ContentItem) (contentmodels.ContentItem, error) {
	delta := s.scorer(item)
	if delta < 0 {
		// Điểm abuse chỉ đi lên, trừ khi moderator reset
		delta = 0
	}

	newScore := item.AbuseScore + delta
	newStatus := contentmodels.ModerationStatusApproved
	if newScore >= s.flagThresholdForKind(ctx, item.Kind) {
		newStatus = contentmodels.ModerationStatusFlagged
	}

	nowMs := time.Now().UnixMilli()
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"moderationStatus": newStatus,
			"lastModeratedAt":  nowMs,
		},
		Inc: map[string]interface{}{
			"abuseScore": delta,
		},
	}
	updated, err := s.itemService.UpdateWithVersion(ctx, item.ID, item.Version, update)
	if err != nil {
		return updated, err
	}

	if err := s.appendRecord(ctx, item.ID, decisionAction(newStatus), nil, "automated evaluation", item.ModerationStatus, newStatus, delta); err != nil {
		return updated, err
	}
	return updated, nil
}

// decisionAction map trạng thái kiểm duyệt tự động sang action tương ứng
func decisionAction(newStatus string) string {
	if newStatus == contentmodels.ModerationStatusFlagged {
		return contentmodels.ModerationActionFlag
	}
	return contentmodels.ModerationActionApprove
}

// Moderate quyết định kiểm duyệt thủ công của moderator.
// reset_score là con đường duy nhất đưa điểm abuse xuống (về 0), không đổi trạng thái.
func (s *ModerationService) Moderate(ctx context.Context, id primitive.ObjectID, action string, reason string, moderatorID *primitive.ObjectID) (contentmodels.ContentItem, error) {
	item, err := s.itemService.FindOneById(ctx, id)
	if err != nil {
		return item, err
	}

	previousStatus := item.ModerationStatus
	newStatus := previousStatus
	var scoreDelta float64
	nowMs := time.Now().UnixMilli()

	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"lastModeratedAt": nowMs,
		},
	}

	switch action {
	case contentmodels.ModerationActionApprove:
		newStatus = contentmodels.ModerationStatusApproved
		update.Set["moderationStatus"] = newStatus
	case contentmodels.ModerationActionReject:
		newStatus = contentmodels.ModerationStatusRejected
		update.Set["moderationStatus"] = newStatus
	case contentmodels.ModerationActionFlag:
		newStatus = contentmodels.ModerationStatusFlagged
		update.Set["moderationStatus"] = newStatus
	case contentmodels.ModerationActionResetScore:
		scoreDelta = -item.AbuseScore
		update.Set["abuseScore"] = float64(0)
	default:
		return item, common.ErrInvalidOperation
	}

	updated, err := s.itemService.UpdateWithVersion(ctx, item.ID, item.Version, update)
	if err != nil {
		return updated, err
	}

	if err := s.appendRecord(ctx, item.ID, action, moderatorID, reason, previousStatus, newStatus, scoreDelta); err != nil {
		return updated, err
	}
	return updated, nil
}

// appendRecord ghi một bản ghi kiểm duyệt mới (append-only, không bao giờ sửa/xóa)
func (s *ModerationService) appendRecord(ctx context.Context, contentID primitive.ObjectID, action string, moderatorID *primitive.ObjectID, reason string, previousStatus string, newStatus string, scoreDelta float64) error {
	record := contentmodels.ModerationRecord{
		ContentID:      contentID,
		Action:         action,
		ModeratorID:    moderatorID,
		Reason:         reason,
		PreviousStatus: previousStatus,
		NewStatus:      newStatus,
		ScoreDelta:     scoreDelta,
	}
	_, err := s.recordService.InsertOne(ctx, record)
	return err
}
