package syncclient

import (
	"sync"
	"time"
)

// CountdownRegistry quản lý timer đếm ngược đến giờ publish cho từng content item
// phía client (hiển thị "sẽ đăng sau X phút"). Timer bị hủy khi item rời trạng thái
// scheduled (cancel, publish sớm, archive) để không bắn callback thừa.
type CountdownRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewCountdownRegistry tạo registry rỗng
func NewCountdownRegistry() *CountdownRegistry {
	return &CountdownRegistry{timers: make(map[string]*time.Timer)}
}

// Track đăng ký đếm ngược cho một content id, fn chạy khi đến giờ publish.
// Đăng ký lại cho cùng content id sẽ hủy timer cũ (trường hợp reschedule).
// publishAt trong quá khứ thì fn chạy ngay.
func (r *CountdownRegistry) Track(contentID string, publishAt time.Time, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[contentID]; ok {
		old.Stop()
	}

	delay := time.Until(publishAt)
	if delay < 0 {
		delay = 0
	}

	r.timers[contentID] = time.AfterFunc(delay, func() {
		// Tự dọn khỏi registry trước khi chạy callback
		r.mu.Lock()
		delete(r.timers, contentID)
		r.mu.Unlock()
		fn()
	})
}

// Cancel hủy đếm ngược của một content id, trả về true nếu có timer để hủy.
// Gọi khi item rời trạng thái scheduled.
func (r *CountdownRegistry) Cancel(contentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer, ok := r.timers[contentID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(r.timers, contentID)
	return true
}

// CancelAll hủy toàn bộ timer (khi client shutdown)
func (r *CountdownRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
}

// Active danh sách content id đang có đếm ngược
func (r *CountdownRegistry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.timers))
	for id := range r.timers {
		ids = append(ids, id)
	}
	return ids
}

// Len số timer đang hoạt động
func (r *CountdownRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}
