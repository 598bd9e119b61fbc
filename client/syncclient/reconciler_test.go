// Package syncclient - Test reconciler: drain khi online, conflict và giải quyết conflict.
package syncclient

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport transport giả lập cho test, điều khiển được lỗi theo content id
type fakeTransport struct {
	mu          sync.Mutex
	netDown     bool
	submitErr   map[string]error
	remote      map[string]*RemoteItem
	submitted   []ContentSnapshot
	submitCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		submitErr: make(map[string]error),
		remote:    make(map[string]*RemoteItem),
	}
}

func (f *fakeTransport) SubmitEdit(ctx context.Context, snapshot ContentSnapshot) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.netDown {
		return 0, ErrNetworkUnavailable
	}
	if err, ok := f.submitErr[snapshot.ContentID]; ok {
		return 0, err
	}
	f.submitted = append(f.submitted, snapshot)
	newVersion := snapshot.Version + 1
	f.remote[snapshot.ContentID] = &RemoteItem{
		ID:      snapshot.ContentID,
		Title:   snapshot.Title,
		Body:    snapshot.Body,
		Version: newVersion,
	}
	return newVersion, nil
}

func (f *fakeTransport) FetchItem(ctx context.Context, contentID string) (*RemoteItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.netDown {
		return nil, ErrNetworkUnavailable
	}
	item, ok := f.remote[contentID]
	if !ok {
		return nil, assert.AnError
	}
	return item, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestReconciler(t *testing.T, transport Transport) (*Reconciler, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	r, err := NewReconciler(NewQueue(), store, transport, quietLogger())
	require.NoError(t, err)
	return r, path
}

func TestDrain_ThanhCongXoaFileHangDoi(t *testing.T) {
	transport := newFakeTransport()
	r, path := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Title: "A", Version: 2}, 5)
	require.NoError(t, err)
	_, err = r.QueueEdit(ContentSnapshot{ContentID: "c2", Title: "B", Version: 7}, 5)
	require.NoError(t, err)

	// Offline → online kích hoạt drain ngay
	r.SetOnline(context.Background(), true)

	assert.Len(t, transport.submitted, 2, "cả hai entry phải được gửi")
	assert.Empty(t, r.Pending(), "sau drain thành công không còn entry chờ")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "drain trọn vẹn phải xóa file hàng đợi")
}

func TestDrain_KhongChayKhiOffline(t *testing.T) {
	transport := newFakeTransport()
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	require.NoError(t, err)

	err = r.Drain(context.Background())
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.Empty(t, transport.submitted, "offline không được gửi gì")
}

func TestDrain_ConflictGiuLaiChoNguoiDung(t *testing.T) {
	transport := newFakeTransport()
	transport.submitErr["c1"] = ErrConflict
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 3}, 5)
	require.NoError(t, err)
	_, err = r.QueueEdit(ContentSnapshot{ContentID: "c2", Version: 1}, 5)
	require.NoError(t, err)

	r.SetOnline(context.Background(), true)

	pending := r.Pending()
	require.Len(t, pending, 1, "entry conflict phải còn lại, entry kia đã synced")
	assert.Equal(t, "c1", pending[0].ContentID)
	assert.Equal(t, SyncStatusConflict, pending[0].SyncStatus)
}

func TestDrain_MatMangGiuaChung(t *testing.T) {
	transport := newFakeTransport()
	transport.netDown = true
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	require.NoError(t, err)

	r.SetOnline(context.Background(), true)

	assert.False(t, r.IsOnline(), "mất mạng giữa drain phải chuyển về offline")
	entry, ok := r.queue.Get("c1")
	require.True(t, ok)
	assert.Equal(t, SyncStatusPending, entry.SyncStatus, "entry giữ nguyên pending chờ reconnect")
}

func TestReconnect_DrainLaiEntryConDang(t *testing.T) {
	transport := newFakeTransport()
	transport.netDown = true
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	require.NoError(t, err)

	r.SetOnline(context.Background(), true) // thất bại vì mất mạng
	require.False(t, r.IsOnline())

	transport.mu.Lock()
	transport.netDown = false
	transport.mu.Unlock()

	r.SetOnline(context.Background(), true) // reconnect → drain lại
	assert.Empty(t, r.Pending())
}

func TestResolveConflict_Local_GuiLaiTrenVersionServer(t *testing.T) {
	transport := newFakeTransport()
	transport.submitErr["c1"] = ErrConflict
	transport.remote["c1"] = &RemoteItem{ID: "c1", Title: "Bản server", Version: 9}
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Title: "Bản local", Version: 3}, 5)
	require.NoError(t, err)
	r.SetOnline(context.Background(), true)

	// Server hết conflict khi người dùng quyết định giữ bản local
	transport.mu.Lock()
	delete(transport.submitErr, "c1")
	transport.mu.Unlock()

	require.NoError(t, r.ResolveConflict(context.Background(), "c1", ResolveLocal))

	require.Len(t, transport.submitted, 1)
	assert.Equal(t, int64(9), transport.submitted[0].Version, "phải gửi lại trên version hiện tại của server")
	assert.Equal(t, "Bản local", transport.submitted[0].Title, "nội dung local phải được giữ")

	entry, _ := r.queue.Get("c1")
	assert.Equal(t, SyncStatusSynced, entry.SyncStatus)
	assert.Equal(t, int64(10), entry.ServerVersion)
}

func TestResolveConflict_Server_LayBanServerVe(t *testing.T) {
	transport := newFakeTransport()
	transport.submitErr["c1"] = ErrConflict
	transport.remote["c1"] = &RemoteItem{ID: "c1", Title: "Bản server", Body: "Nội dung server", Version: 9}
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Title: "Bản local", Version: 3}, 5)
	require.NoError(t, err)
	r.SetOnline(context.Background(), true)

	require.NoError(t, r.ResolveConflict(context.Background(), "c1", ResolveServer))

	entry, _ := r.queue.Get("c1")
	assert.Equal(t, SyncStatusSynced, entry.SyncStatus)
	assert.Equal(t, "Bản server", entry.Snapshot.Title, "bản local phải bị thay bằng bản server")
	assert.Equal(t, int64(9), entry.Snapshot.Version)
}

func TestResolveConflict_HuongKhongHopLe(t *testing.T) {
	transport := newFakeTransport()
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	require.NoError(t, err)
	r.queue.SetStatus("c1", SyncStatusConflict)

	assert.Error(t, r.ResolveConflict(context.Background(), "c1", "merge"))
}

func TestResolveConflict_EntryKhongOConflict(t *testing.T) {
	transport := newFakeTransport()
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	require.NoError(t, err)

	assert.Error(t, r.ResolveConflict(context.Background(), "c1", ResolveLocal),
		"entry đang pending không được phép resolve")
}

func TestResendBackoff_NhanDoiVaCoTran(t *testing.T) {
	assert.Equal(t, 30*time.Second, resendBackoff(1))
	assert.Equal(t, time.Minute, resendBackoff(2))
	assert.Equal(t, 2*time.Minute, resendBackoff(3))
	assert.Equal(t, 15*time.Minute, resendBackoff(10), "backoff không được vượt trần 15 phút")
}

func TestRetryAllowed_TheoQuotaVaBackoff(t *testing.T) {
	nowMs := time.Now().UnixMilli()

	assert.False(t, retryAllowed(&QueueEntry{RetryCount: 3, MaxRetries: 3}, nowMs),
		"hết quota retry thì dừng gửi tự động")
	assert.True(t, retryAllowed(&QueueEntry{RetryCount: 1, MaxRetries: 3}, nowMs),
		"chưa từng retry (LastRetryAt = 0) thì gửi ngay")
	assert.False(t, retryAllowed(&QueueEntry{RetryCount: 1, MaxRetries: 3, LastRetryAt: nowMs}, nowMs),
		"vừa thất bại xong thì phải chờ đủ backoff")
	assert.True(t, retryAllowed(&QueueEntry{RetryCount: 1, MaxRetries: 3, LastRetryAt: nowMs - time.Hour.Milliseconds()}, nowMs),
		"đã chờ quá backoff thì được gửi lại")
}

func TestDrain_HetQuotaKhongTuGuiLai(t *testing.T) {
	transport := newFakeTransport()
	transport.submitErr["c1"] = assert.AnError
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 1}, 1)
	require.NoError(t, err)
	r.SetOnline(context.Background(), true) // lần gửi đầu thất bại, retryCount = 1

	// Hết quota (maxRetries = 1): drain thêm bao nhiêu lần cũng không gửi nữa
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Drain(context.Background()))
	}

	assert.Equal(t, 1, transport.submitCalls, "chỉ có đúng một lần gửi lên server")
	entry, ok := r.queue.Get("c1")
	require.True(t, ok)
	assert.Equal(t, SyncStatusFailed, entry.SyncStatus, "entry nằm lại ở failed chờ người dùng xử lý")
	assert.Equal(t, 1, entry.RetryCount)
}

func TestDrain_EntryFailedChoDuBackoffMoiGuiLai(t *testing.T) {
	transport := newFakeTransport()
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	require.NoError(t, err)
	r.queue.MarkFailed("c1", "lỗi tạm thời phía server")

	r.SetOnline(context.Background(), true)
	assert.Equal(t, 0, transport.submitCalls, "vừa thất bại xong, chưa đủ backoff thì không gửi")

	// Giả lập đã chờ quá backoff kể từ lần thất bại gần nhất
	entry, ok := r.queue.Get("c1")
	require.True(t, ok)
	entry.LastRetryAt = time.Now().Add(-2 * time.Minute).UnixMilli()

	require.NoError(t, r.Drain(context.Background()))
	assert.Equal(t, 1, transport.submitCalls, "đủ backoff thì entry failed được gửi lại")
	assert.Empty(t, r.Pending(), "entry đã đồng bộ xong")
}

func TestDrain_MatMangVanBaoLoiKhiGhiFileHong(t *testing.T) {
	transport := newFakeTransport()
	transport.netDown = true
	r, _ := newTestReconciler(t, transport)

	_, err := r.QueueEdit(ContentSnapshot{ContentID: "c1", Version: 1}, 5)
	require.NoError(t, err)

	// Làm hỏng đường ghi file: parent của path là một file thường
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	r.store.path = filepath.Join(blocker, "queue.json")

	r.online = true
	err = r.Drain(context.Background())
	assert.ErrorIs(t, err, ErrNetworkUnavailable, "lỗi mất mạng phải được trả về dù ghi file thất bại")
	assert.False(t, r.IsOnline())
	entry, ok := r.queue.Get("c1")
	require.True(t, ok)
	assert.Equal(t, SyncStatusPending, entry.SyncStatus, "entry vẫn còn trong bộ nhớ chờ reconnect")
}

func TestReconciler_NapLaiHangDoiTuFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(map[string]*QueueEntry{
		"c1": {EntryID: "e1", ContentID: "c1", SyncStatus: SyncStatusProcessing,
			Snapshot: ContentSnapshot{ContentID: "c1", Version: 2}},
	}))

	r, err := NewReconciler(NewQueue(), store, newFakeTransport(), quietLogger())
	require.NoError(t, err)

	entry, ok := r.queue.Get("c1")
	require.True(t, ok, "hàng đợi phải được nạp lại từ file")
	assert.Equal(t, SyncStatusPending, entry.SyncStatus, "entry gửi dở phiên trước phải về pending")
}
