// Package syncclient là thư viện phía client: hàng đợi chỉnh sửa offline,
// reconciler đồng bộ theo version khi có mạng trở lại và registry đếm ngược publish.
// Không phụ thuộc server code — giao tiếp thuần qua REST API.
package syncclient

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SyncStatus trạng thái đồng bộ của một entry trong hàng đợi
const (
	SyncStatusPending    = "pending"    // Chờ gửi lên server
	SyncStatusProcessing = "processing" // Đang gửi (tối đa một in-flight mỗi content id)
	SyncStatusFailed     = "failed"     // Gửi thất bại, sẽ thử lại ở lần drain sau
	SyncStatusConflict   = "conflict"   // Server trả 409, chờ người dùng chọn hướng giải quyết
	SyncStatusSynced     = "synced"     // Đã đồng bộ thành công
)

// ContentSnapshot bản chụp nội dung chỉnh sửa local
type ContentSnapshot struct {
	ContentID string                 `json:"contentId"` // ID content item trên server
	Title     string                 `json:"title,omitempty"`
	Body      string                 `json:"body,omitempty"`
	Timezone  string                 `json:"timezone,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Version   int64                  `json:"version"` // Version server mà bản chỉnh sửa này dựa trên
}

// QueueEntry một mục trong hàng đợi đồng bộ
type QueueEntry struct {
	EntryID       string          `json:"entryId"`       // ID duy nhất của entry (uuid)
	ContentID     string          `json:"contentId"`     // Key của hàng đợi: mỗi content id một entry
	Snapshot      ContentSnapshot `json:"snapshot"`      // Nội dung local muốn đẩy lên
	SyncStatus    string          `json:"syncStatus"`    // pending, processing, failed, conflict, synced
	RetryCount    int             `json:"retryCount"`    // Số lần gửi thất bại
	MaxRetries    int             `json:"maxRetries"`    // Giới hạn thử lại tự động
	LastRetryAt   int64           `json:"lastRetryAt"`   // Lần gửi gần nhất (unix millis)
	LastError     string          `json:"lastError,omitempty"`
	ServerVersion int64           `json:"serverVersion"` // Version server biết được gần nhất
	CreatedAt     int64           `json:"createdAt"`
	UpdatedAt     int64           `json:"updatedAt"`
}

// Queue hàng đợi đồng bộ in-memory, keyed theo content id.
// Chỉnh sửa mới cho cùng content đè lên entry cũ (last-write-wins ở phía local).
type Queue struct {
	mu      sync.Mutex
	entries map[string]*QueueEntry
}

// NewQueue tạo hàng đợi rỗng
func NewQueue() *Queue {
	return &Queue{entries: make(map[string]*QueueEntry)}
}

// Put thêm hoặc ghi đè entry cho một content id, trả về entry sau khi ghi
func (q *Queue) Put(snapshot ContentSnapshot, maxRetries int) *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UnixMilli()
	existing, ok := q.entries[snapshot.ContentID]
	if ok {
		// Giữ entryId và createdAt, thay snapshot và reset trạng thái
		existing.Snapshot = snapshot
		existing.SyncStatus = SyncStatusPending
		existing.RetryCount = 0
		existing.LastError = ""
		existing.UpdatedAt = now
		return existing
	}

	entry := &QueueEntry{
		EntryID:    uuid.NewString(),
		ContentID:  snapshot.ContentID,
		Snapshot:   snapshot,
		SyncStatus: SyncStatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	q.entries[snapshot.ContentID] = entry
	return entry
}

// Get lấy entry theo content id
func (q *Queue) Get(contentID string) (*QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[contentID]
	return entry, ok
}

// List trả về toàn bộ entry theo thứ tự tạo (cũ nhất trước)
func (q *Queue) List() []*QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := make([]*QueueEntry, 0, len(q.entries))
	for _, entry := range q.entries {
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt < list[j].CreatedAt
	})
	return list
}

// SetStatus cập nhật trạng thái đồng bộ của một entry
func (q *Queue) SetStatus(contentID string, status string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if entry, ok := q.entries[contentID]; ok {
		entry.SyncStatus = status
		entry.UpdatedAt = time.Now().UnixMilli()
	}
}

// MarkSynced đánh dấu đồng bộ thành công với version mới server trả về
func (q *Queue) MarkSynced(contentID string, serverVersion int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if entry, ok := q.entries[contentID]; ok {
		entry.SyncStatus = SyncStatusSynced
		entry.ServerVersion = serverVersion
		entry.LastError = ""
		entry.UpdatedAt = time.Now().UnixMilli()
	}
}

// MarkFailed ghi nhận một lần gửi thất bại
func (q *Queue) MarkFailed(contentID string, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if entry, ok := q.entries[contentID]; ok {
		entry.SyncStatus = SyncStatusFailed
		entry.RetryCount++
		entry.LastError = errMsg
		entry.LastRetryAt = time.Now().UnixMilli()
		entry.UpdatedAt = entry.LastRetryAt
	}
}

// Restore nạp lại các entry từ storage (gọi khi khởi động client).
// Entry đang processing từ phiên trước được trả về pending để gửi lại.
func (q *Queue) Restore(entries map[string]*QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, entry := range entries {
		if entry.SyncStatus == SyncStatusProcessing {
			entry.SyncStatus = SyncStatusPending
		}
		q.entries[id] = entry
	}
}

// Snapshot trả về bản copy của toàn bộ entry (cho persistence)
func (q *Queue) Snapshot() map[string]*QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]*QueueEntry, len(q.entries))
	for id, entry := range q.entries {
		clone := *entry
		out[id] = &clone
	}
	return out
}

// AllSynced kiểm tra toàn bộ hàng đợi đã đồng bộ xong chưa
func (q *Queue) AllSynced() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.SyncStatus != SyncStatusSynced {
			return false
		}
	}
	return true
}

// Flush xóa toàn bộ hàng đợi (sau một lượt drain thành công trọn vẹn)
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[string]*QueueEntry)
}

// Len số entry hiện có
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
