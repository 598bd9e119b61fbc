package syncclient

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore lưu hàng đợi đồng bộ xuống file JSON để sống sót qua restart client.
// Ghi theo kiểu atomic: ghi file tạm rồi rename để tránh file hỏng khi crash giữa chừng.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore tạo store với đường dẫn file cho trước, tạo thư mục cha nếu chưa có
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("đường dẫn file hàng đợi không được rỗng")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("tạo thư mục hàng đợi: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load đọc toàn bộ entry từ file. File chưa tồn tại trả về map rỗng.
func (s *FileStore) Load() (map[string]*QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*QueueEntry{}, nil
		}
		return nil, fmt.Errorf("đọc file hàng đợi: %w", err)
	}
	if len(data) == 0 {
		return map[string]*QueueEntry{}, nil
	}

	entries := make(map[string]*QueueEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse file hàng đợi: %w", err)
	}
	return entries, nil
}

// Save ghi toàn bộ entry xuống file (temp + rename)
func (s *FileStore) Save(entries map[string]*QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hàng đợi: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("ghi file tạm: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename file hàng đợi: %w", err)
	}
	return nil
}

// Clear xóa file hàng đợi (sau khi drain thành công trọn vẹn)
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("xóa file hàng đợi: %w", err)
	}
	return nil
}
