// Package syncclient - Test persistence hàng đợi xuống file JSON.
package syncclient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	entries := map[string]*QueueEntry{
		"c1": {
			EntryID:    "e1",
			ContentID:  "c1",
			Snapshot:   ContentSnapshot{ContentID: "c1", Title: "Tiêu đề", Version: 4},
			SyncStatus: SyncStatusPending,
			MaxRetries: 5,
		},
	}
	require.NoError(t, store.Save(entries))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded, "c1")
	assert.Equal(t, "e1", loaded["c1"].EntryID)
	assert.Equal(t, "Tiêu đề", loaded["c1"].Snapshot.Title)
	assert.Equal(t, int64(4), loaded["c1"].Snapshot.Version)
}

func TestFileStore_LoadFileChuaTonTai(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	entries, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, entries, "file chưa tồn tại phải trả về map rỗng, không lỗi")
}

func TestFileStore_SaveTaoThuMucCha(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "queue.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(map[string]*QueueEntry{}))
	_, err = os.Stat(path)
	assert.NoError(t, err, "file phải được tạo cùng thư mục cha")
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(map[string]*QueueEntry{"c1": {ContentID: "c1"}}))
	require.NoError(t, store.Clear())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "Clear phải xóa file")

	// Clear lần nữa khi file đã mất không được lỗi
	assert.NoError(t, store.Clear())
}

func TestFileStore_KhongGhiFileHongKhiSaveLoi(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(map[string]*QueueEntry{"c1": {ContentID: "c1"}}))

	// File tạm không được sót lại sau khi save thành công
	_, tmpErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(tmpErr))
}
