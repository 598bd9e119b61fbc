package contentsvc

import (
	"context"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	contentmodels "blog_press/internal/api/content/models"
	basesvc "blog_press/internal/api/base/service"
	"blog_press/internal/common"
	"blog_press/internal/global"
)

// Tham số backoff khi retry publish thất bại
const (
	retryBackoffBase   = time.Minute     // Backoff lần retry đầu tiên
	retryBackoffCap    = 6 * time.Hour   // Trần backoff
	retryBackoffJitter = 0.2             // Jitter ±20% để tránh thundering herd
)

// EditPayload các trường được phép sửa qua Edit. Trường rỗng/nil = giữ nguyên.
type EditPayload struct {
	Title    string
	Body     string
	Timezone string
	Metadata map[string]interface{}
}

// contentItemStore phần của ContentItemService mà máy trạng thái cần.
// Tách interface để test máy trạng thái với store giả, không cần MongoDB.
type contentItemStore interface {
	FindOneById(ctx context.Context, id primitive.ObjectID) (contentmodels.ContentItem, error)
	InsertOne(ctx context.Context, item contentmodels.ContentItem) (contentmodels.ContentItem, error)
	UpdateWithVersion(ctx context.Context, id primitive.ObjectID, expectedVersion int64, update *basesvc.UpdateData) (contentmodels.ContentItem, error)
	DeleteById(ctx context.Context, id primitive.ObjectID) error
	FindDue(ctx context.Context, nowMs int64, limit int64) ([]contentmodels.ContentItem, error)
}

// publishDelayResolver phân giải trễ publish hiệu lực cho một item
type publishDelayResolver interface {
	Resolve(ctx context.Context, item *contentmodels.ContentItem, nowMs int64, requestedAtMs *int64) (EffectiveDelay, error)
}

// SchedulerService máy trạng thái vòng đời nội dung:
// draft → scheduled → publishing → published, cùng các nhánh failed/cancelled/archived.
// Mọi thao tác ghi đều đi qua version CAS của ContentItemService, không bao giờ auto-merge.
type SchedulerService struct {
	items       contentItemStore
	itemService *ContentItemService
	resolver    publishDelayResolver
}

// NewSchedulerService tạo mới SchedulerService
func NewSchedulerService() (*SchedulerService, error) {
	itemService, err := NewContentItemService()
	if err != nil {
		return nil, err
	}
	resolver, err := NewDelayResolver()
	if err != nil {
		return nil, err
	}
	return &SchedulerService{
		items:       itemService,
		itemService: itemService,
		resolver:    resolver,
	}, nil
}

// ItemService trả về service quản lý content items bên dưới (cho handler/worker dùng chung)
func (s *SchedulerService) ItemService() *ContentItemService {
	return s.itemService
}

// Create tạo nội dung mới ở trạng thái draft, chưa kiểm duyệt.
// Comment bắt buộc có parentId, post không được có.
func (s *SchedulerService) Create(ctx context.Context, item contentmodels.ContentItem) (contentmodels.ContentItem, error) {
	switch item.Kind {
	case contentmodels.ContentKindPost:
		if item.ParentID != nil {
			return item, common.NewError(common.ErrCodeValidationInput, "Bài viết không được có parentId", common.StatusBadRequest, nil)
		}
	case contentmodels.ContentKindComment:
		if item.ParentID == nil {
			return item, common.NewError(common.ErrCodeValidationInput, "Bình luận phải có parentId", common.StatusBadRequest, nil)
		}
		item.ParentType = contentmodels.ContentKindPost
	default:
		return item, common.NewError(common.ErrCodeValidationInput, "Loại nội dung không hợp lệ", common.StatusBadRequest, nil)
	}

	switch item.Author.Kind {
	case contentmodels.AuthorKindRegistered:
		if item.Author.UserID == nil {
			return item, common.NewError(common.ErrCodeValidationInput, "Tác giả registered phải có userId", common.StatusBadRequest, nil)
		}
	case contentmodels.AuthorKindAnonymous:
		if item.Author.DisplayName == "" {
			return item, common.NewError(common.ErrCodeValidationInput, "Tác giả anonymous phải có displayName", common.StatusBadRequest, nil)
		}
	default:
		return item, common.NewError(common.ErrCodeValidationInput, "Loại tác giả không hợp lệ", common.StatusBadRequest, nil)
	}

	item.ID = primitive.NilObjectID
	item.Status = contentmodels.ContentStatusDraft
	item.ModerationStatus = contentmodels.ModerationStatusPending
	item.Version = 1
	item.AbuseScore = 0
	item.PublishAt = nil
	item.RetryCount = 0
	if item.MaxRetries <= 0 {
		item.MaxRetries = global.MongoDB_ServerConfig.PublishMaxRetries
	}

	return s.items.InsertOne(ctx, item)
}

// Schedule lên lịch publish cho item ở trạng thái draft hoặc scheduled (đổi lịch).
// requestedAtMs nil nghĩa là "publish ngay" — hệ thống lấy thời điểm sớm nhất sàn trễ cho phép.
// Item bị reject không bao giờ được lên lịch.
func (s *SchedulerService) Schedule(ctx context.Context, id primitive.ObjectID, requestedAtMs *int64, expectedVersion int64) (contentmodels.ContentItem, error) {
	item, err := s.items.FindOneById(ctx, id)
	if err != nil {
		return item, err
	}

	if item.ModerationStatus == contentmodels.ModerationStatusRejected {
		return item, common.ErrModerationBlocked
	}
	if item.Status != contentmodels.ContentStatusDraft && item.Status != contentmodels.ContentStatusScheduled {
		return item, common.ErrInvalidState
	}

	nowMs := time.Now().UnixMilli()
	delay, err := s.resolver.Resolve(ctx, &item, nowMs, requestedAtMs)
	if err != nil {
		return item, err
	}

	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"status":               contentmodels.ContentStatusScheduled,
			"publishAt":            delay.EffectivePublishAt,
			"requiresVerification": delay.RequiresVerification,
		},
	}
	if delay.RequiresVerification {
		update.Set["verificationMethod"] = delay.VerificationMethod
	} else {
		// Yêu cầu xác minh đã hết hiệu lực → gỡ phương thức và dấu xác minh cũ,
		// nếu sau này yêu cầu quay lại thì phải xác minh lại từ đầu
		update.Unset = map[string]interface{}{
			"verificationMethod": "",
			"verifiedAt":         "",
		}
	}
	return s.items.UpdateWithVersion(ctx, id, expectedVersion, update)
}

// Verify xác nhận item đã qua bước xác minh (admin duyệt tay).
// Gỡ chặn cổng xác minh: item scheduled đến hạn sau đó sẽ được worker publish bình thường.
func (s *SchedulerService) Verify(ctx context.Context, id primitive.ObjectID, expectedVersion int64) (contentmodels.ContentItem, error) {
	item, err := s.items.FindOneById(ctx, id)
	if err != nil {
		return item, err
	}
	if err := canMarkVerified(&item); err != nil {
		return item, err
	}
	return s.items.UpdateWithVersion(ctx, id, expectedVersion, &basesvc.UpdateData{
		Set: map[string]interface{}{"verifiedAt": time.Now().UnixMilli()},
	})
}

// canMarkVerified kiểm tra item có đang chờ xác minh không
func canMarkVerified(item *contentmodels.ContentItem) error {
	if !item.RequiresVerification {
		// Không có gì để xác minh
		return common.ErrInvalidOperation
	}
	if item.VerifiedAt != nil {
		// Đã xác minh rồi, không làm lại để giữ nguyên thời điểm gốc
		return common.ErrInvalidOperation
	}
	return nil
}

// Edit sửa nội dung theo trạng thái hiện tại:
//   - draft/scheduled: sửa tại chỗ.
//   - published: tạo hoặc ghi đè bản cập nhật chờ (tối đa một), bản gốc giữ nguyên nội dung.
//   - các trạng thái còn lại: từ chối.
func (s *SchedulerService) Edit(ctx context.Context, id primitive.ObjectID, payload EditPayload, expectedVersion int64) (contentmodels.ContentItem, error) {
	item, err := s.items.FindOneById(ctx, id)
	if err != nil {
		return item, err
	}

	switch item.Status {
	case contentmodels.ContentStatusDraft, contentmodels.ContentStatusScheduled:
		update := &basesvc.UpdateData{Set: payloadToSet(payload)}
		// Nội dung thay đổi → kết quả kiểm duyệt cũ không còn giá trị
		update.Set["moderationStatus"] = contentmodels.ModerationStatusPending
		return s.items.UpdateWithVersion(ctx, id, expectedVersion, update)

	case contentmodels.ContentStatusPublished:
		return s.editPublished(ctx, item, payload, expectedVersion)

	default:
		return item, common.ErrInvalidState
	}
}

// editPublished tạo hoặc ghi đè bản cập nhật chờ của item đã publish.
// Bản gốc chỉ thay đổi hasActiveUpdate/pendingUpdateId, nội dung gốc giữ nguyên đến khi commit.
func (s *SchedulerService) editPublished(ctx context.Context, item contentmodels.ContentItem, payload EditPayload, expectedVersion int64) (contentmodels.ContentItem, error) {
	if item.PendingUpdateID != nil {
		// Đã có bản cập nhật chờ → ghi đè nội dung của nó
		pending, err := s.items.FindOneById(ctx, *item.PendingUpdateID)
		if err != nil {
			return item, err
		}
		update := &basesvc.UpdateData{Set: payloadToSet(payload)}
		update.Set["moderationStatus"] = contentmodels.ModerationStatusPending
		if _, err := s.items.UpdateWithVersion(ctx, pending.ID, pending.Version, update); err != nil {
			return item, err
		}
		// Version bản gốc vẫn phải khớp để người sửa biết mình đang sửa trên bản mới nhất
		return s.items.UpdateWithVersion(ctx, item.ID, expectedVersion, &basesvc.UpdateData{
			Set: map[string]interface{}{"hasActiveUpdate": true},
		})
	}

	// Chưa có → tạo bản cập nhật chờ mới (sibling trong cùng collection)
	sibling := contentmodels.ContentItem{
		Kind:             item.Kind,
		Title:            item.Title,
		Body:             item.Body,
		ParentID:         item.ParentID,
		ParentType:       item.ParentType,
		Author:           item.Author,
		Status:           contentmodels.ContentStatusDraft,
		Timezone:         item.Timezone,
		Version:          1,
		OriginalItemID:   &item.ID,
		ModerationStatus: contentmodels.ModerationStatusPending,
		MaxRetries:       item.MaxRetries,
		Metadata:         item.Metadata,
	}
	applyPayload(&sibling, payload)

	created, err := s.items.InsertOne(ctx, sibling)
	if err != nil {
		return item, err
	}

	return s.items.UpdateWithVersion(ctx, item.ID, expectedVersion, &basesvc.UpdateData{
		Set: map[string]interface{}{
			"hasActiveUpdate": true,
			"pendingUpdateId": created.ID,
		},
	})
}

// Cancel hủy lịch publish: scheduled → cancelled (terminal), gỡ publishAt
func (s *SchedulerService) Cancel(ctx context.Context, id primitive.ObjectID, expectedVersion int64) (contentmodels.ContentItem, error) {
	item, err := s.items.FindOneById(ctx, id)
	if err != nil {
		return item, err
	}
	if item.Status != contentmodels.ContentStatusScheduled {
		return item, common.ErrInvalidState
	}
	return s.items.UpdateWithVersion(ctx, id, expectedVersion, &basesvc.UpdateData{
		Set:   map[string]interface{}{"status": contentmodels.ContentStatusCancelled},
		Unset: map[string]interface{}{"publishAt": ""},
	})
}

// Retry đưa item failed quay lại scheduled với backoff lũy tiến.
// Vượt maxRetries → ErrRetryExhausted, cần can thiệp thủ công (sửa rồi schedule lại).
func (s *SchedulerService) Retry(ctx context.Context, id primitive.ObjectID, expectedVersion int64) (contentmodels.ContentItem, error) {
	item, err := s.items.FindOneById(ctx, id)
	if err != nil {
		return item, err
	}
	if item.Status != contentmodels.ContentStatusFailed {
		return item, common.ErrInvalidState
	}
	if item.RetryCount >= item.MaxRetries {
		return item, common.ErrRetryExhausted
	}

	nextAt := time.Now().UnixMilli() + nextRetryBackoff(item.RetryCount).Milliseconds()
	return s.items.UpdateWithVersion(ctx, id, expectedVersion, &basesvc.UpdateData{
		Set: map[string]interface{}{
			"status":    contentmodels.ContentStatusScheduled,
			"publishAt": nextAt,
		},
	})
}

// Archive lưu trữ item (terminal). Chỉ admin, enforce ở tầng handler.
func (s *SchedulerService) Archive(ctx context.Context, id primitive.ObjectID, expectedVersion int64) (contentmodels.ContentItem, error) {
	item, err := s.items.FindOneById(ctx, id)
	if err != nil {
		return item, err
	}
	if contentmodels.IsTerminalStatus(item.Status) {
		return item, common.ErrInvalidState
	}
	return s.items.UpdateWithVersion(ctx, id, expectedVersion, &basesvc.UpdateData{
		Set:   map[string]interface{}{"status": contentmodels.ContentStatusArchived},
		Unset: map[string]interface{}{"publishAt": ""},
	})
}

// ClaimDue lấy danh sách item đến hạn publish, FIFO theo publishAt.
// Chỉ trả về item scheduled + approved + (không cần xác minh hoặc đã xác minh).
func (s *SchedulerService) ClaimDue(ctx context.Context, limit int64) ([]contentmodels.ContentItem, error) {
	return s.items.FindDue(ctx, time.Now().UnixMilli(), limit)
}

// FireTimer xử lý một item đến hạn:
//  1. CAS scheduled → publishing; instance thua cuộc đua (hoặc item đã rời scheduled) bỏ qua.
//  2. Commit: bản cập nhật chờ ghi đè bản gốc tại chỗ rồi tự xóa; item thường → published.
//  3. Commit thất bại → retryCount+1; còn quota thì tự lên lịch lại với backoff,
//     hết quota thì nằm ở failed chờ xử lý thủ công.
//
// Idempotent theo content id: lần gọi thứ hai thấy status != scheduled và không làm gì.
func (s *SchedulerService) FireTimer(ctx context.Context, item contentmodels.ContentItem) (bool, error) {
	if item.Status != contentmodels.ContentStatusScheduled {
		return false, nil
	}

	claimed, err := s.items.UpdateWithVersion(ctx, item.ID, item.Version, &basesvc.UpdateData{
		Set: map[string]interface{}{"status": contentmodels.ContentStatusPublishing},
	})
	if err != nil {
		if err == common.ErrVersionConflict {
			// Instance khác đã claim hoặc item vừa bị sửa → nhường
			return false, nil
		}
		return false, err
	}

	if commitErr := s.commitPublish(ctx, claimed); commitErr != nil {
		return false, s.markFailed(ctx, claimed, commitErr)
	}
	return true, nil
}

// commitPublish hoàn tất publish cho item đã ở trạng thái publishing
func (s *SchedulerService) commitPublish(ctx context.Context, claimed contentmodels.ContentItem) error {
	if claimed.IsPendingUpdate() {
		return s.commitPendingUpdate(ctx, claimed)
	}
	_, err := s.items.UpdateWithVersion(ctx, claimed.ID, claimed.Version, &basesvc.UpdateData{
		Set: map[string]interface{}{"status": contentmodels.ContentStatusPublished},
	})
	return err
}

// commitPendingUpdate ghi đè bản gốc đã publish bằng nội dung của bản cập nhật chờ:
// cùng id, version gốc +1, gỡ link pendingUpdateId, rồi xóa bản cập nhật chờ.
func (s *SchedulerService) commitPendingUpdate(ctx context.Context, pending contentmodels.ContentItem) error {
	original, err := s.items.FindOneById(ctx, *pending.OriginalItemID)
	if err != nil {
		return err
	}

	if _, err := s.items.UpdateWithVersion(ctx, original.ID, original.Version, &basesvc.UpdateData{
		Set: map[string]interface{}{
			"title":           pending.Title,
			"body":            pending.Body,
			"timezone":        pending.Timezone,
			"metadata":        pending.Metadata,
			"hasActiveUpdate": false,
		},
		Unset: map[string]interface{}{"pendingUpdateId": ""},
	}); err != nil {
		return err
	}

	return s.items.DeleteById(ctx, pending.ID)
}

// markFailed ghi nhận lỗi publish và tự lên lịch retry nếu còn quota
func (s *SchedulerService) markFailed(ctx context.Context, claimed contentmodels.ContentItem, commitErr error) error {
	newRetryCount := claimed.RetryCount + 1
	set := map[string]interface{}{
		"status":    contentmodels.ContentStatusFailed,
		"lastError": commitErr.Error(),
	}
	if newRetryCount < claimed.MaxRetries {
		// Còn quota → tự quay lại scheduled với backoff, worker sẽ nhặt lại
		set["status"] = contentmodels.ContentStatusScheduled
		set["publishAt"] = time.Now().UnixMilli() + nextRetryBackoff(claimed.RetryCount).Milliseconds()
	}

	// claimed đang ở publishing với version đã +1 sau claim
	_, err := s.items.UpdateWithVersion(ctx, claimed.ID, claimed.Version, &basesvc.UpdateData{
		Set: set,
		Inc: map[string]interface{}{"retryCount": 1},
	})
	if err != nil {
		return err
	}
	return commitErr
}

// nextRetryBackoff tính thời gian chờ trước lần retry kế tiếp:
// base 1 phút, nhân đôi theo số lần đã thất bại, trần 6 giờ, jitter ±20%.
func nextRetryBackoff(retryCount int) time.Duration {
	backoff := retryBackoffBase
	for i := 0; i < retryCount && backoff < retryBackoffCap; i++ {
		backoff *= 2
	}
	if backoff > retryBackoffCap {
		backoff = retryBackoffCap
	}
	jitter := 1 + retryBackoffJitter*(2*rand.Float64()-1)
	return time.Duration(float64(backoff) * jitter)
}

// payloadToSet chuyển EditPayload thành map $set, bỏ qua trường rỗng
func payloadToSet(payload EditPayload) map[string]interface{} {
	set := map[string]interface{}{}
	if payload.Title != "" {
		set["title"] = payload.Title
	}
	if payload.Body != "" {
		set["body"] = payload.Body
	}
	if payload.Timezone != "" {
		set["timezone"] = payload.Timezone
	}
	if payload.Metadata != nil {
		set["metadata"] = payload.Metadata
	}
	return set
}

// applyPayload áp EditPayload lên model (dùng khi tạo bản cập nhật chờ mới)
func applyPayload(item *contentmodels.ContentItem, payload EditPayload) {
	if payload.Title != "" {
		item.Title = payload.Title
	}
	if payload.Body != "" {
		item.Body = payload.Body
	}
	if payload.Timezone != "" {
		item.Timezone = payload.Timezone
	}
	if payload.Metadata != nil {
		item.Metadata = payload.Metadata
	}
}
