package syncclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hướng giải quyết conflict do người dùng chọn
const (
	ResolveLocal  = "local"  // Giữ bản local, gửi đè lên version hiện tại của server
	ResolveServer = "server" // Bỏ bản local, lấy bản server về
)

// Backoff giữa các lần gửi lại entry failed
const (
	resendBackoffBase = 30 * time.Second
	resendBackoffCap  = 15 * time.Minute
)

// resendBackoff thời gian chờ tối thiểu trước khi gửi lại entry đã thất bại retryCount lần:
// 30s sau lần thất bại đầu, nhân đôi mỗi lần, trần 15 phút.
func resendBackoff(retryCount int) time.Duration {
	backoff := resendBackoffBase
	for i := 1; i < retryCount && backoff < resendBackoffCap; i++ {
		backoff *= 2
	}
	if backoff > resendBackoffCap {
		backoff = resendBackoffCap
	}
	return backoff
}

// retryAllowed kiểm tra entry failed còn được gửi lại tự động không:
// còn quota retry và đã chờ đủ backoff kể từ lần thất bại gần nhất.
// Hết quota thì entry nằm lại ở failed, chờ người dùng sửa tiếp (QueueEdit) hoặc resolve.
func retryAllowed(entry *QueueEntry, nowMs int64) bool {
	if entry.MaxRetries > 0 && entry.RetryCount >= entry.MaxRetries {
		return false
	}
	if entry.LastRetryAt == 0 {
		return true
	}
	return nowMs-entry.LastRetryAt >= resendBackoff(entry.RetryCount).Milliseconds()
}

// Reconciler điều phối đồng bộ hàng đợi chỉnh sửa offline với server.
// Drain chỉ chạy khi chuyển trạng thái offline → online; mỗi content id
// tối đa một request in-flight tại một thời điểm.
type Reconciler struct {
	queue     *Queue
	store     *FileStore
	transport Transport
	log       *logrus.Logger

	mu       sync.Mutex
	online   bool
	inflight map[string]bool
}

// NewReconciler tạo reconciler và nạp lại hàng đợi từ file (nếu có)
func NewReconciler(queue *Queue, store *FileStore, transport Transport, log *logrus.Logger) (*Reconciler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := &Reconciler{
		queue:     queue,
		store:     store,
		transport: transport,
		log:       log,
		inflight:  make(map[string]bool),
	}

	if store != nil {
		entries, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("nạp hàng đợi từ file: %w", err)
		}
		queue.Restore(entries)
		if len(entries) > 0 {
			log.Infof("📦 [SYNC] Nạp lại %d entry từ hàng đợi local", len(entries))
		}
	}

	return r, nil
}

// IsOnline trạng thái kết nối hiện tại
func (r *Reconciler) IsOnline() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

// SetOnline cập nhật trạng thái kết nối. Chuyển offline → online kích hoạt drain ngay.
func (r *Reconciler) SetOnline(ctx context.Context, online bool) {
	r.mu.Lock()
	wasOnline := r.online
	r.online = online
	r.mu.Unlock()

	if online && !wasOnline {
		r.log.Info("🔌 [SYNC] Đã kết nối lại, bắt đầu drain hàng đợi")
		if err := r.Drain(ctx); err != nil {
			r.log.Warnf("⚠️ [SYNC] Drain sau reconnect dừng giữa chừng: %v", err)
		}
	}
}

// QueueEdit ghi một bản chỉnh sửa vào hàng đợi và persist xuống file.
// Chỉnh sửa mới cho cùng content đè lên bản đang chờ.
func (r *Reconciler) QueueEdit(snapshot ContentSnapshot, maxRetries int) (*QueueEntry, error) {
	entry := r.queue.Put(snapshot, maxRetries)
	if err := r.persist(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Drain gửi lần lượt các entry chưa đồng bộ lên server (cũ nhất trước).
// Dừng sớm khi mất mạng giữa chừng; entry conflict giữ nguyên chờ ResolveConflict.
func (r *Reconciler) Drain(ctx context.Context) error {
	if !r.IsOnline() {
		return ErrNetworkUnavailable
	}

	nowMs := time.Now().UnixMilli()
	for _, entry := range r.queue.List() {
		switch entry.SyncStatus {
		case SyncStatusPending:
			// Gửi ngay
		case SyncStatusFailed:
			if !retryAllowed(entry, nowMs) {
				// Hết quota hoặc chưa đủ backoff → chờ
				continue
			}
		default:
			continue
		}
		if err := r.submit(ctx, entry.ContentID); err != nil {
			if errors.Is(err, ErrNetworkUnavailable) {
				// Mất mạng giữa lượt drain: chuyển về offline, phần còn lại chờ reconnect
				r.mu.Lock()
				r.online = false
				r.mu.Unlock()
				if perr := r.persist(); perr != nil {
					r.log.Warnf("⚠️ [SYNC] Không ghi được hàng đợi xuống file: %v", perr)
				}
				return err
			}
			// Conflict hoặc lỗi khác đã được ghi vào entry, tiếp tục entry kế
		}
	}

	if err := r.persist(); err != nil {
		return err
	}

	// Hàng đợi đã sạch: xóa file persistence
	if r.queue.AllSynced() && r.queue.Len() > 0 {
		r.log.Infof("✅ [SYNC] Drain hoàn tất, %d entry đã đồng bộ", r.queue.Len())
		r.queue.Flush()
		if r.store != nil {
			return r.store.Clear()
		}
	}
	return nil
}

// submit gửi một entry lên server, đảm bảo mỗi content id chỉ có một in-flight
func (r *Reconciler) submit(ctx context.Context, contentID string) error {
	r.mu.Lock()
	if r.inflight[contentID] {
		r.mu.Unlock()
		return nil
	}
	r.inflight[contentID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inflight, contentID)
		r.mu.Unlock()
	}()

	entry, ok := r.queue.Get(contentID)
	if !ok {
		return nil
	}

	r.queue.SetStatus(contentID, SyncStatusProcessing)
	serverVersion, err := r.transport.SubmitEdit(ctx, entry.Snapshot)
	if err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			r.queue.SetStatus(contentID, SyncStatusConflict)
			r.log.Warnf("⚔️ [SYNC] Conflict cho content %s, chờ người dùng giải quyết", contentID)
		case errors.Is(err, ErrNetworkUnavailable):
			// Trả về pending để gửi lại nguyên vẹn ở lần drain sau
			r.queue.SetStatus(contentID, SyncStatusPending)
		default:
			r.queue.MarkFailed(contentID, err.Error())
			r.log.Warnf("⚠️ [SYNC] Gửi content %s thất bại: %v", contentID, err)
		}
		return err
	}

	r.queue.MarkSynced(contentID, serverVersion)
	r.log.Infof("✅ [SYNC] Content %s đồng bộ xong, version server = %d", contentID, serverVersion)
	return nil
}

// ResolveConflict giải quyết entry đang ở trạng thái conflict theo lựa chọn của người dùng.
//   - local: lấy version hiện tại của server rồi gửi lại bản local đè lên
//   - server: bỏ bản local, lấy bản server về làm snapshot mới (đã đồng bộ)
func (r *Reconciler) ResolveConflict(ctx context.Context, contentID string, strategy string) error {
	entry, ok := r.queue.Get(contentID)
	if !ok {
		return fmt.Errorf("không tìm thấy entry cho content %s", contentID)
	}
	if entry.SyncStatus != SyncStatusConflict {
		return fmt.Errorf("entry %s không ở trạng thái conflict (hiện tại: %s)", contentID, entry.SyncStatus)
	}

	switch strategy {
	case ResolveLocal:
		remote, err := r.transport.FetchItem(ctx, contentID)
		if err != nil {
			return fmt.Errorf("lấy version hiện tại của server: %w", err)
		}
		// Gửi lại bản local dựa trên version mới nhất của server
		snapshot := entry.Snapshot
		snapshot.Version = remote.Version
		serverVersion, err := r.transport.SubmitEdit(ctx, snapshot)
		if err != nil {
			if errors.Is(err, ErrConflict) {
				// Server lại thay đổi tiếp trong lúc giải quyết, giữ trạng thái conflict
				return fmt.Errorf("server thay đổi trong lúc giải quyết conflict: %w", err)
			}
			return err
		}
		r.queue.MarkSynced(contentID, serverVersion)
		r.log.Infof("✅ [SYNC] Conflict %s giải quyết theo bản local, version server = %d", contentID, serverVersion)

	case ResolveServer:
		remote, err := r.transport.FetchItem(ctx, contentID)
		if err != nil {
			return fmt.Errorf("lấy bản server: %w", err)
		}
		// Lấy bản server làm bản chính thức của local
		r.mu.Lock()
		if e, ok := r.queue.Get(contentID); ok {
			e.Snapshot = ContentSnapshot{
				ContentID: contentID,
				Title:     remote.Title,
				Body:      remote.Body,
				Timezone:  remote.Timezone,
				Metadata:  remote.Metadata,
				Version:   remote.Version,
			}
		}
		r.mu.Unlock()
		r.queue.MarkSynced(contentID, remote.Version)
		r.log.Infof("✅ [SYNC] Conflict %s giải quyết theo bản server, version = %d", contentID, remote.Version)

	default:
		return fmt.Errorf("hướng giải quyết không hợp lệ: %s (chỉ chấp nhận local hoặc server)", strategy)
	}

	return r.persist()
}

// Pending trả về các entry chưa đồng bộ xong (để hiển thị cho người dùng)
func (r *Reconciler) Pending() []*QueueEntry {
	var out []*QueueEntry
	for _, entry := range r.queue.List() {
		if entry.SyncStatus != SyncStatusSynced {
			out = append(out, entry)
		}
	}
	return out
}

// persist ghi trạng thái hàng đợi hiện tại xuống file
func (r *Reconciler) persist() error {
	if r.store == nil {
		return nil
	}
	return r.store.Save(r.queue.Snapshot())
}
