package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Lỗi đặc thù của tầng transport, reconciler dựa vào để quyết định bước tiếp theo
var (
	// ErrConflict server trả 409: version local đã cũ so với server
	ErrConflict = errors.New("version conflict: nội dung trên server đã thay đổi")

	// ErrNetworkUnavailable không kết nối được server (offline hoặc server down)
	ErrNetworkUnavailable = errors.New("network unavailable: không kết nối được server")
)

// RemoteItem phần dữ liệu server trả về mà client quan tâm
type RemoteItem struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Timezone string                 `json:"timezone"`
	Status   string                 `json:"status"`
	Version  int64                  `json:"version"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Transport giao tiếp với server API. Tách interface để test reconciler với fake transport.
type Transport interface {
	// SubmitEdit gửi bản chỉnh sửa với expected version, trả về version mới sau khi server áp dụng
	SubmitEdit(ctx context.Context, snapshot ContentSnapshot) (int64, error)

	// FetchItem lấy bản hiện tại của content item trên server
	FetchItem(ctx context.Context, contentID string) (*RemoteItem, error)
}

// HTTPTransport gọi REST API của server qua net/http
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPTransport tạo transport với base URL (vd http://localhost:3000) và JWT token
func NewHTTPTransport(baseURL string, token string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// apiEnvelope format response thống nhất của server
type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// SubmitEdit gọi POST /api/v1/content/items/:id/edit
func (t *HTTPTransport) SubmitEdit(ctx context.Context, snapshot ContentSnapshot) (int64, error) {
	payload := map[string]interface{}{
		"payload": map[string]interface{}{
			"title":    snapshot.Title,
			"body":     snapshot.Body,
			"timezone": snapshot.Timezone,
			"metadata": snapshot.Metadata,
		},
		"expectedVersion": snapshot.Version,
	}

	url := fmt.Sprintf("%s/api/v1/content/items/%s/edit", t.baseURL, snapshot.ContentID)
	data, err := t.doJSON(ctx, "POST", url, payload)
	if err != nil {
		return 0, err
	}

	var item RemoteItem
	if err := json.Unmarshal(data, &item); err != nil {
		return 0, fmt.Errorf("parse response edit: %w", err)
	}
	return item.Version, nil
}

// FetchItem gọi GET /api/v1/content/items/find-by-id/:id
func (t *HTTPTransport) FetchItem(ctx context.Context, contentID string) (*RemoteItem, error) {
	url := fmt.Sprintf("%s/api/v1/content/items/find-by-id/%s", t.baseURL, contentID)
	data, err := t.doJSON(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	var item RemoteItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("parse response find-by-id: %w", err)
	}
	return &item, nil
}

// doJSON gửi request JSON, xử lý envelope và map status code sang lỗi domain
func (t *HTTPTransport) doJSON(ctx context.Context, method string, url string, body interface{}) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("tạo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		// Lỗi tầng mạng (connection refused, timeout, DNS) → coi là offline
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("đọc response body: %w", err)
	}

	if resp.StatusCode == http.StatusConflict {
		return nil, ErrConflict
	}
	if resp.StatusCode >= 500 {
		// Server lỗi tạm thời, đáng để thử lại như mất mạng
		return nil, fmt.Errorf("%w: server trả %d", ErrNetworkUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API trả status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("parse response envelope: %w", err)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("API báo lỗi: %s", envelope.Message)
	}
	return envelope.Data, nil
}
