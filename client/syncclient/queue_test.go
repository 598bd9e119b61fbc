// Package syncclient - Test hàng đợi đồng bộ in-memory.
package syncclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueuePut_MoiContentMotEntry(t *testing.T) {
	q := NewQueue()

	first := q.Put(ContentSnapshot{ContentID: "c1", Title: "Bản 1", Version: 3}, 5)
	second := q.Put(ContentSnapshot{ContentID: "c1", Title: "Bản 2", Version: 3}, 5)

	assert.Equal(t, 1, q.Len(), "cùng content id phải đè lên entry cũ")
	assert.Equal(t, first.EntryID, second.EntryID, "entryId phải giữ nguyên khi ghi đè")
	assert.Equal(t, "Bản 2", second.Snapshot.Title)
	assert.Equal(t, SyncStatusPending, second.SyncStatus)
}

func TestQueuePut_GhiDeResetTrangThai(t *testing.T) {
	q := NewQueue()
	q.Put(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	q.MarkFailed("c1", "timeout")

	entry := q.Put(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	assert.Equal(t, SyncStatusPending, entry.SyncStatus, "chỉnh sửa mới phải reset về pending")
	assert.Equal(t, 0, entry.RetryCount)
	assert.Empty(t, entry.LastError)
}

func TestQueueMarkFailed_TangRetryCount(t *testing.T) {
	q := NewQueue()
	q.Put(ContentSnapshot{ContentID: "c1", Version: 1}, 5)

	q.MarkFailed("c1", "lỗi 1")
	q.MarkFailed("c1", "lỗi 2")

	entry, ok := q.Get("c1")
	assert.True(t, ok)
	assert.Equal(t, 2, entry.RetryCount)
	assert.Equal(t, "lỗi 2", entry.LastError)
	assert.Equal(t, SyncStatusFailed, entry.SyncStatus)
}

func TestQueueRestore_ProcessingVePending(t *testing.T) {
	q := NewQueue()
	q.Restore(map[string]*QueueEntry{
		"c1": {EntryID: "e1", ContentID: "c1", SyncStatus: SyncStatusProcessing},
		"c2": {EntryID: "e2", ContentID: "c2", SyncStatus: SyncStatusConflict},
	})

	e1, _ := q.Get("c1")
	assert.Equal(t, SyncStatusPending, e1.SyncStatus, "entry đang gửi dở từ phiên trước phải về pending")

	e2, _ := q.Get("c2")
	assert.Equal(t, SyncStatusConflict, e2.SyncStatus, "trạng thái conflict phải giữ nguyên qua restart")
}

func TestQueueAllSynced(t *testing.T) {
	q := NewQueue()
	assert.True(t, q.AllSynced(), "hàng đợi rỗng coi như đã đồng bộ")

	q.Put(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	assert.False(t, q.AllSynced())

	q.MarkSynced("c1", 2)
	assert.True(t, q.AllSynced())

	entry, _ := q.Get("c1")
	assert.Equal(t, int64(2), entry.ServerVersion)
}

func TestQueueList_CuNhatTruoc(t *testing.T) {
	q := NewQueue()
	q.Restore(map[string]*QueueEntry{
		"c2": {ContentID: "c2", SyncStatus: SyncStatusPending, CreatedAt: 200},
		"c1": {ContentID: "c1", SyncStatus: SyncStatusPending, CreatedAt: 100},
	})

	list := q.List()
	assert.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ContentID, "entry cũ nhất phải đứng đầu")
}
