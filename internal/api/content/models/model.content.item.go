package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentKind định nghĩa các loại nội dung
const (
	ContentKindPost    = "post"    // Bài viết
	ContentKindComment = "comment" // Bình luận (gắn vào bài viết qua parentId)
)

// ContentStatus định nghĩa trạng thái vòng đời của nội dung
const (
	ContentStatusDraft      = "draft"      // Bản nháp, chưa lên lịch
	ContentStatusScheduled  = "scheduled"  // Đã lên lịch, chờ đến giờ publish
	ContentStatusPublishing = "publishing" // Worker đã claim, đang commit publish
	ContentStatusPublished  = "published"  // Đã publish thành công
	ContentStatusFailed     = "failed"     // Publish thất bại, có thể retry
	ContentStatusCancelled  = "cancelled"  // Tác giả/admin hủy lịch (terminal)
	ContentStatusArchived   = "archived"   // Đã lưu trữ (terminal)
)

// ModerationStatus định nghĩa trạng thái kiểm duyệt
const (
	ModerationStatusPending  = "pending"  // Chưa được đánh giá, không được publish
	ModerationStatusApproved = "approved" // Đã duyệt, đủ điều kiện publish
	ModerationStatusRejected = "rejected" // Bị từ chối, không bao giờ publish
	ModerationStatusFlagged  = "flagged"  // Bị gắn cờ do điểm abuse vượt ngưỡng, chờ moderator
)

// AuthorKind định nghĩa loại tác giả
const (
	AuthorKindRegistered = "registered" // User đã đăng ký (có userId)
	AuthorKindAnonymous  = "anonymous"  // Khách vãng lai (chỉ có displayName)
)

// AuthorRef tham chiếu tác giả của nội dung.
// Kind = registered thì UserID bắt buộc; kind = anonymous thì chỉ có DisplayName.
type AuthorRef struct {
	Kind        string              `json:"kind" bson:"kind"`                                       // Loại tác giả: registered, anonymous
	UserID      *primitive.ObjectID `json:"userId,omitempty" bson:"userId,omitempty"`               // ID user (bắt buộc khi registered)
	DisplayName string              `json:"displayName,omitempty" bson:"displayName,omitempty"`     // Tên hiển thị (bắt buộc khi anonymous)
}

// ContentItem đại diện cho một đơn vị nội dung (bài viết hoặc bình luận).
// Bản cập nhật chờ (pending update) của nội dung đã publish cũng là một ContentItem
// trong cùng collection, phân biệt qua OriginalItemID.
type ContentItem struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của content item

	// ===== CONTENT =====
	Kind       string              `json:"kind" bson:"kind" index:"single:1"`                             // Loại nội dung: post, comment
	Title      string              `json:"title,omitempty" bson:"title,omitempty" index:"text"`           // Tiêu đề (chỉ post)
	Body       string              `json:"body" bson:"body" index:"text"`                                 // Nội dung chính
	ParentID   *primitive.ObjectID `json:"parentId,omitempty" bson:"parentId,omitempty" index:"single:1"` // ID bài viết cha (chỉ comment)
	ParentType string              `json:"parentType,omitempty" bson:"parentType,omitempty"`              // Loại của parent (hiện chỉ post)

	// ===== AUTHOR =====
	Author AuthorRef `json:"author" bson:"author"` // Tác giả (registered hoặc anonymous)

	// ===== LIFECYCLE =====
	Status    string `json:"status" bson:"status" index:"single:1"`                               // Trạng thái: draft, scheduled, publishing, published, failed, cancelled, archived
	PublishAt *int64 `json:"publishAt,omitempty" bson:"publishAt,omitempty" index:"single:1"`     // Thời điểm publish dự kiến (unix millis), chỉ có khi scheduled/publishing/published/failed
	Timezone  string `json:"timezone,omitempty" bson:"timezone,omitempty"`                        // Múi giờ IANA chỉ để hiển thị, mọi tính toán dùng UTC
	Version   int64  `json:"version" bson:"version"`                                              // Phiên bản cho optimistic concurrency, bắt đầu từ 1, +1 mỗi lần ghi thành công

	// ===== PENDING UPDATE =====
	HasActiveUpdate bool                `json:"hasActiveUpdate" bson:"hasActiveUpdate"`                                       // Nội dung đã publish đang có bản cập nhật chờ
	PendingUpdateID *primitive.ObjectID `json:"pendingUpdateId,omitempty" bson:"pendingUpdateId,omitempty"`                   // ID của bản cập nhật chờ (tối đa một)
	OriginalItemID  *primitive.ObjectID `json:"originalItemId,omitempty" bson:"originalItemId,omitempty" index:"single:1"`    // Nếu đây là bản cập nhật chờ: ID của bản gốc đã publish

	// ===== VERIFICATION =====
	RequiresVerification bool   `json:"requiresVerification" bson:"requiresVerification"`              // Phải xác minh trước khi publish (chốt tại thời điểm lên lịch)
	VerificationMethod   string `json:"verificationMethod,omitempty" bson:"verificationMethod,omitempty"` // Phương thức xác minh: none, email, admin
	VerifiedAt           *int64 `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`              // Thời điểm xác minh xong (unix millis), nil = chưa xác minh

	// ===== MODERATION =====
	ModerationStatus string  `json:"moderationStatus" bson:"moderationStatus" index:"single:1"` // Trạng thái kiểm duyệt: pending, approved, rejected, flagged
	AbuseScore       float64 `json:"abuseScore" bson:"abuseScore"`                              // Điểm abuse tích lũy, chỉ giảm khi moderator reset
	LastModeratedAt  *int64  `json:"lastModeratedAt,omitempty" bson:"lastModeratedAt,omitempty"` // Lần kiểm duyệt gần nhất (unix millis)

	// ===== RETRY =====
	RetryCount int    `json:"retryCount" bson:"retryCount"`                     // Số lần publish thất bại liên tiếp
	MaxRetries int    `json:"maxRetries" bson:"maxRetries" default:"5"`         // Giới hạn retry tự động trước khi cần can thiệp thủ công
	LastError  string `json:"lastError,omitempty" bson:"lastError,omitempty"`   // Lỗi của lần publish thất bại gần nhất

	// ===== METADATA =====
	Metadata  map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"` // Metadata bổ sung (tùy chọn)
	CreatedAt int64                  `json:"createdAt" bson:"createdAt"`                   // Thời gian tạo
	UpdatedAt int64                  `json:"updatedAt" bson:"updatedAt"`                   // Thời gian cập nhật
}

// IsTerminalStatus kiểm tra trạng thái không còn chuyển tiếp được nữa
func IsTerminalStatus(status string) bool {
	return status == ContentStatusCancelled || status == ContentStatusArchived
}

// IsPendingUpdate kiểm tra item có phải bản cập nhật chờ của một bản gốc đã publish không
func (c *ContentItem) IsPendingUpdate() bool {
	return c.OriginalItemID != nil
}
