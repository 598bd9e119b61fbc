// Package contentsvc - Test máy trạng thái vòng đời nội dung với store giả (không cần MongoDB):
// guard của Schedule/Verify, idempotence của FireTimer, bản cập nhật chờ khi sửa item đã publish.
package contentsvc

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	contentmodels "blog_press/internal/api/content/models"
	basesvc "blog_press/internal/api/base/service"
	"blog_press/internal/common"
)

// capturedUpdate một lần gọi UpdateWithVersion được ghi lại để assert
type capturedUpdate struct {
	id              primitive.ObjectID
	expectedVersion int64
	update          *basesvc.UpdateData
}

// fakeItemStore store giả in-memory, mô phỏng semantics version CAS của ContentItemService
type fakeItemStore struct {
	items    map[primitive.ObjectID]contentmodels.ContentItem
	inserted []contentmodels.ContentItem
	updates  []capturedUpdate
	deleted  []primitive.ObjectID
	casErrs  []error // lỗi ép sẵn cho các lần UpdateWithVersion kế tiếp (nil = hành xử bình thường)
}

func newFakeItemStore(items ...contentmodels.ContentItem) *fakeItemStore {
	f := &fakeItemStore{items: make(map[primitive.ObjectID]contentmodels.ContentItem)}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeItemStore) FindOneById(ctx context.Context, id primitive.ObjectID) (contentmodels.ContentItem, error) {
	item, ok := f.items[id]
	if !ok {
		return contentmodels.ContentItem{}, common.ErrNotFound
	}
	return item, nil
}

func (f *fakeItemStore) InsertOne(ctx context.Context, item contentmodels.ContentItem) (contentmodels.ContentItem, error) {
	item.ID = primitive.NewObjectID()
	f.items[item.ID] = item
	f.inserted = append(f.inserted, item)
	return item, nil
}

func (f *fakeItemStore) UpdateWithVersion(ctx context.Context, id primitive.ObjectID, expectedVersion int64, update *basesvc.UpdateData) (contentmodels.ContentItem, error) {
	if len(f.casErrs) > 0 {
		err := f.casErrs[0]
		f.casErrs = f.casErrs[1:]
		if err != nil {
			return contentmodels.ContentItem{}, err
		}
	}

	item, ok := f.items[id]
	if !ok {
		return contentmodels.ContentItem{}, common.ErrNotFound
	}
	if item.Version != expectedVersion {
		return contentmodels.ContentItem{}, common.ErrVersionConflict
	}

	f.updates = append(f.updates, capturedUpdate{id: id, expectedVersion: expectedVersion, update: update})
	applyFakeSet(&item, update.Set)
	applyFakeUnset(&item, update.Unset)
	if update.Inc != nil {
		if _, ok := update.Inc["retryCount"]; ok {
			item.RetryCount++
		}
	}
	item.Version++
	f.items[id] = item
	return item, nil
}

func (f *fakeItemStore) DeleteById(ctx context.Context, id primitive.ObjectID) error {
	delete(f.items, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeItemStore) FindDue(ctx context.Context, nowMs int64, limit int64) ([]contentmodels.ContentItem, error) {
	var due []contentmodels.ContentItem
	for _, item := range f.items {
		if item.Status == contentmodels.ContentStatusScheduled && item.PublishAt != nil && *item.PublishAt <= nowMs {
			due = append(due, item)
		}
	}
	return due, nil
}

func applyFakeSet(item *contentmodels.ContentItem, set map[string]interface{}) {
	for key, value := range set {
		switch key {
		case "status":
			item.Status = value.(string)
		case "publishAt":
			if v, ok := value.(int64); ok {
				item.PublishAt = &v
			}
		case "requiresVerification":
			item.RequiresVerification = value.(bool)
		case "verificationMethod":
			item.VerificationMethod = value.(string)
		case "verifiedAt":
			if v, ok := value.(int64); ok {
				item.VerifiedAt = &v
			}
		case "hasActiveUpdate":
			item.HasActiveUpdate = value.(bool)
		case "pendingUpdateId":
			if v, ok := value.(primitive.ObjectID); ok {
				item.PendingUpdateID = &v
			}
		case "moderationStatus":
			item.ModerationStatus = value.(string)
		case "title":
			item.Title = value.(string)
		case "body":
			item.Body = value.(string)
		case "timezone":
			item.Timezone = value.(string)
		case "lastError":
			item.LastError = value.(string)
		}
	}
}

func applyFakeUnset(item *contentmodels.ContentItem, unset map[string]interface{}) {
	for key := range unset {
		switch key {
		case "publishAt":
			item.PublishAt = nil
		case "verificationMethod":
			item.VerificationMethod = ""
		case "verifiedAt":
			item.VerifiedAt = nil
		case "pendingUpdateId":
			item.PendingUpdateID = nil
		}
	}
}

// fakeDelayResolver resolver giả trả kết quả cố định
type fakeDelayResolver struct {
	delay EffectiveDelay
	err   error
}

func (f *fakeDelayResolver) Resolve(ctx context.Context, item *contentmodels.ContentItem, nowMs int64, requestedAtMs *int64) (EffectiveDelay, error) {
	return f.delay, f.err
}

func newFakeScheduler(store *fakeItemStore, resolver publishDelayResolver) *SchedulerService {
	return &SchedulerService{items: store, resolver: resolver}
}

func registeredAuthor() contentmodels.AuthorRef {
	uid := primitive.NewObjectID()
	return contentmodels.AuthorRef{Kind: contentmodels.AuthorKindRegistered, UserID: &uid}
}

func scheduledItem(publishAt int64) contentmodels.ContentItem {
	return contentmodels.ContentItem{
		ID:               primitive.NewObjectID(),
		Kind:             contentmodels.ContentKindPost,
		Body:             "Nội dung",
		Author:           registeredAuthor(),
		Status:           contentmodels.ContentStatusScheduled,
		PublishAt:        &publishAt,
		Version:          2,
		ModerationStatus: contentmodels.ModerationStatusApproved,
		MaxRetries:       5,
	}
}

// ===== CREATE =====

func TestCreate_PostCoParentBiTuChoi(t *testing.T) {
	s := newFakeScheduler(newFakeItemStore(), nil)
	parent := primitive.NewObjectID()
	_, err := s.Create(context.Background(), contentmodels.ContentItem{
		Kind:     contentmodels.ContentKindPost,
		Body:     "x",
		ParentID: &parent,
		Author:   registeredAuthor(),
	})
	if err == nil {
		t.Fatal("bài viết có parentId phải bị từ chối")
	}
}

func TestCreate_CommentKhongCoParentBiTuChoi(t *testing.T) {
	s := newFakeScheduler(newFakeItemStore(), nil)
	_, err := s.Create(context.Background(), contentmodels.ContentItem{
		Kind:   contentmodels.ContentKindComment,
		Body:   "x",
		Author: registeredAuthor(),
	})
	if err == nil {
		t.Fatal("bình luận không có parentId phải bị từ chối")
	}
}

func TestCreate_TacGiaKhongHopLeBiTuChoi(t *testing.T) {
	s := newFakeScheduler(newFakeItemStore(), nil)

	// registered thiếu userId
	_, err := s.Create(context.Background(), contentmodels.ContentItem{
		Kind:   contentmodels.ContentKindPost,
		Body:   "x",
		Author: contentmodels.AuthorRef{Kind: contentmodels.AuthorKindRegistered},
	})
	if err == nil {
		t.Fatal("tác giả registered thiếu userId phải bị từ chối")
	}

	// anonymous thiếu displayName
	_, err = s.Create(context.Background(), contentmodels.ContentItem{
		Kind:   contentmodels.ContentKindPost,
		Body:   "x",
		Author: contentmodels.AuthorRef{Kind: contentmodels.AuthorKindAnonymous},
	})
	if err == nil {
		t.Fatal("tác giả anonymous thiếu displayName phải bị từ chối")
	}
}

// ===== SCHEDULE =====

func TestSchedule_ItemRejectedBiChan(t *testing.T) {
	item := scheduledItem(0)
	item.Status = contentmodels.ContentStatusDraft
	item.PublishAt = nil
	item.ModerationStatus = contentmodels.ModerationStatusRejected
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, &fakeDelayResolver{})

	_, err := s.Schedule(context.Background(), item.ID, nil, item.Version)
	if err != common.ErrModerationBlocked {
		t.Fatalf("item rejected phải trả ErrModerationBlocked, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Fatal("không được ghi gì khi schedule bị chặn")
	}
}

func TestSchedule_TrangThaiKhongChoPhep(t *testing.T) {
	item := scheduledItem(0)
	item.Status = contentmodels.ContentStatusPublished
	item.PublishAt = nil
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, &fakeDelayResolver{})

	_, err := s.Schedule(context.Background(), item.ID, nil, item.Version)
	if err != common.ErrInvalidState {
		t.Fatalf("published không được schedule, muốn ErrInvalidState, got %v", err)
	}
}

func TestSchedule_SnapshotYeuCauXacMinh(t *testing.T) {
	item := scheduledItem(0)
	item.Status = contentmodels.ContentStatusDraft
	item.PublishAt = nil
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, &fakeDelayResolver{delay: EffectiveDelay{
		EffectivePublishAt:   9_000,
		RequiresVerification: true,
		VerificationMethod:   contentmodels.VerificationMethodAdmin,
	}})

	updated, err := s.Schedule(context.Background(), item.ID, nil, item.Version)
	if err != nil {
		t.Fatalf("Schedule lỗi: %v", err)
	}
	if !updated.RequiresVerification || updated.VerificationMethod != contentmodels.VerificationMethodAdmin {
		t.Errorf("yêu cầu xác minh phải được chốt lên item: requires=%v method=%s",
			updated.RequiresVerification, updated.VerificationMethod)
	}
	if updated.PublishAt == nil || *updated.PublishAt != 9_000 {
		t.Errorf("publishAt phải lấy từ resolver, got %v", updated.PublishAt)
	}
}

func TestSchedule_GoXacMinhCuKhiHetYeuCau(t *testing.T) {
	// Item từng bị bắt xác minh, đổi lịch sau khi yêu cầu hết hiệu lực
	verifiedAt := int64(1_000)
	item := scheduledItem(5_000)
	item.RequiresVerification = true
	item.VerificationMethod = contentmodels.VerificationMethodAdmin
	item.VerifiedAt = &verifiedAt
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, &fakeDelayResolver{delay: EffectiveDelay{EffectivePublishAt: 9_000}})

	updated, err := s.Schedule(context.Background(), item.ID, nil, item.Version)
	if err != nil {
		t.Fatalf("Schedule lỗi: %v", err)
	}
	if updated.RequiresVerification {
		t.Error("requiresVerification phải về false khi resolver không còn yêu cầu")
	}
	if updated.VerificationMethod != "" {
		t.Errorf("verificationMethod cũ phải bị gỡ, còn %q", updated.VerificationMethod)
	}
	if updated.VerifiedAt != nil {
		t.Error("dấu xác minh cũ phải bị gỡ để lần yêu cầu sau xác minh lại từ đầu")
	}
}

// ===== VERIFY =====

func TestVerify_GoChanCongXacMinh(t *testing.T) {
	item := scheduledItem(5_000)
	item.RequiresVerification = true
	item.VerificationMethod = contentmodels.VerificationMethodAdmin
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, nil)

	updated, err := s.Verify(context.Background(), item.ID, item.Version)
	if err != nil {
		t.Fatalf("Verify lỗi: %v", err)
	}
	if updated.VerifiedAt == nil {
		t.Fatal("Verify phải ghi verifiedAt để worker nhặt item khi đến hạn")
	}
}

func TestVerify_KhongCoYeuCauXacMinh(t *testing.T) {
	item := scheduledItem(5_000)
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, nil)

	_, err := s.Verify(context.Background(), item.ID, item.Version)
	if err != common.ErrInvalidOperation {
		t.Fatalf("item không cần xác minh phải trả ErrInvalidOperation, got %v", err)
	}
}

func TestVerify_DaXacMinhRoi(t *testing.T) {
	verifiedAt := int64(1_000)
	item := scheduledItem(5_000)
	item.RequiresVerification = true
	item.VerifiedAt = &verifiedAt
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, nil)

	_, err := s.Verify(context.Background(), item.ID, item.Version)
	if err != common.ErrInvalidOperation {
		t.Fatalf("xác minh lại phải bị từ chối để giữ thời điểm gốc, got %v", err)
	}
}

// ===== FIRE TIMER =====

func TestFireTimer_BoQuaKhiKhongScheduled(t *testing.T) {
	item := scheduledItem(1_000)
	item.Status = contentmodels.ContentStatusPublished
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, nil)

	fired, err := s.FireTimer(context.Background(), item)
	if err != nil || fired {
		t.Fatalf("item không ở scheduled phải là no-op, got fired=%v err=%v", fired, err)
	}
	if len(store.updates) != 0 {
		t.Fatal("không được ghi gì khi bỏ qua")
	}
}

func TestFireTimer_ThuaCuocDuaClaim(t *testing.T) {
	item := scheduledItem(1_000)
	store := newFakeItemStore(item)
	store.casErrs = []error{common.ErrVersionConflict}
	s := newFakeScheduler(store, nil)

	fired, err := s.FireTimer(context.Background(), item)
	if err != nil || fired {
		t.Fatalf("thua cuộc đua claim phải nhường trong im lặng, got fired=%v err=%v", fired, err)
	}
}

func TestFireTimer_PublishThanhCong(t *testing.T) {
	item := scheduledItem(1_000)
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, nil)

	fired, err := s.FireTimer(context.Background(), item)
	if err != nil {
		t.Fatalf("FireTimer lỗi: %v", err)
	}
	if !fired {
		t.Fatal("item scheduled đến hạn phải được publish")
	}
	if got := store.items[item.ID].Status; got != contentmodels.ContentStatusPublished {
		t.Errorf("trạng thái cuối = %s, muốn published", got)
	}
}

func TestFireTimer_LanThuHaiVoiItemCuLaNoOp(t *testing.T) {
	item := scheduledItem(1_000)
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, nil)

	if _, err := s.FireTimer(context.Background(), item); err != nil {
		t.Fatalf("lần fire đầu lỗi: %v", err)
	}

	// Gọi lại với bản item cũ (version đã lỗi thời): CAS trượt → no-op, không đổi trạng thái
	fired, err := s.FireTimer(context.Background(), item)
	if err != nil || fired {
		t.Fatalf("fire lần hai phải là no-op, got fired=%v err=%v", fired, err)
	}
	if got := store.items[item.ID].Status; got != contentmodels.ContentStatusPublished {
		t.Errorf("trạng thái sau fire lần hai = %s, phải giữ published", got)
	}
}

func TestFireTimer_CommitLoiTuLenLichLai(t *testing.T) {
	item := scheduledItem(1_000)
	store := newFakeItemStore(item)
	// Claim thành công, commit publish thất bại
	store.casErrs = []error{nil, common.ErrNotFound}
	s := newFakeScheduler(store, nil)

	fired, err := s.FireTimer(context.Background(), item)
	if fired {
		t.Fatal("commit thất bại không được báo đã publish")
	}
	if err == nil {
		t.Fatal("lỗi commit phải được trả về")
	}

	final := store.items[item.ID]
	if final.Status != contentmodels.ContentStatusScheduled {
		t.Errorf("còn quota retry phải tự quay lại scheduled, got %s", final.Status)
	}
	if final.RetryCount != 1 {
		t.Errorf("retryCount = %d, muốn 1", final.RetryCount)
	}
	if final.PublishAt == nil {
		t.Error("lịch retry phải có publishAt mới (backoff)")
	}
}

// ===== EDIT ITEM ĐÃ PUBLISH =====

func TestEdit_StaleVersionTraConflict(t *testing.T) {
	item := scheduledItem(0)
	item.Status = contentmodels.ContentStatusDraft
	item.PublishAt = nil
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, nil)

	_, err := s.Edit(context.Background(), item.ID, EditPayload{Body: "mới"}, item.Version-1)
	if err != common.ErrVersionConflict {
		t.Fatalf("version lỗi thời phải trả ErrVersionConflict, got %v", err)
	}
}

func TestEdit_PublishedTaoBanCapNhatCho(t *testing.T) {
	item := scheduledItem(0)
	item.Status = contentmodels.ContentStatusPublished
	item.PublishAt = nil
	item.Title = "Tiêu đề gốc"
	store := newFakeItemStore(item)
	s := newFakeScheduler(store, nil)

	if _, err := s.Edit(context.Background(), item.ID, EditPayload{Title: "Tiêu đề mới"}, item.Version); err != nil {
		t.Fatalf("Edit lỗi: %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("phải tạo đúng một bản cập nhật chờ, got %d", len(store.inserted))
	}
	sibling := store.inserted[0]
	if sibling.Status != contentmodels.ContentStatusDraft {
		t.Errorf("bản cập nhật chờ phải ở draft, got %s", sibling.Status)
	}
	if sibling.OriginalItemID == nil || *sibling.OriginalItemID != item.ID {
		t.Error("bản cập nhật chờ phải trỏ về bản gốc qua originalItemId")
	}
	if sibling.Title != "Tiêu đề mới" {
		t.Errorf("nội dung mới phải nằm trên bản cập nhật chờ, got %q", sibling.Title)
	}
	if sibling.ModerationStatus != contentmodels.ModerationStatusPending {
		t.Error("bản cập nhật chờ phải được kiểm duyệt lại từ đầu")
	}

	original := store.items[item.ID]
	if original.Title != "Tiêu đề gốc" {
		t.Error("nội dung bản gốc phải giữ nguyên đến khi commit")
	}
	if !original.HasActiveUpdate || original.PendingUpdateID == nil || *original.PendingUpdateID != sibling.ID {
		t.Error("bản gốc phải link tới bản cập nhật chờ qua hasActiveUpdate/pendingUpdateId")
	}
}

func TestEdit_PublishedGhiDeBanChoDangCo(t *testing.T) {
	sibling := scheduledItem(0)
	sibling.Status = contentmodels.ContentStatusDraft
	sibling.PublishAt = nil
	sibling.Title = "Bản chờ cũ"
	sibling.Version = 1

	item := scheduledItem(0)
	item.Status = contentmodels.ContentStatusPublished
	item.PublishAt = nil
	item.HasActiveUpdate = true
	item.PendingUpdateID = &sibling.ID
	sibling.OriginalItemID = &item.ID

	store := newFakeItemStore(item, sibling)
	s := newFakeScheduler(store, nil)

	if _, err := s.Edit(context.Background(), item.ID, EditPayload{Title: "Bản chờ mới"}, item.Version); err != nil {
		t.Fatalf("Edit lỗi: %v", err)
	}

	if len(store.inserted) != 0 {
		t.Fatal("đã có bản chờ thì phải ghi đè, không tạo bản thứ hai")
	}
	if got := store.items[sibling.ID].Title; got != "Bản chờ mới" {
		t.Errorf("nội dung bản chờ phải bị ghi đè, got %q", got)
	}
	if got := store.items[item.ID].PendingUpdateID; got == nil || *got != sibling.ID {
		t.Error("bản gốc vẫn phải link tới cùng một bản chờ")
	}
}
