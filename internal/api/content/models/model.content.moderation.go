package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModerationAction định nghĩa các hành động kiểm duyệt
const (
	ModerationActionApprove    = "approve"     // Duyệt nội dung
	ModerationActionReject     = "reject"      // Từ chối nội dung
	ModerationActionFlag       = "flag"        // Gắn cờ chờ xem xét
	ModerationActionResetScore = "reset_score" // Đưa điểm abuse về 0 (cách duy nhất để giảm điểm)
)

// ModerationRecord bản ghi kiểm duyệt append-only.
// Mỗi quyết định (tự động hay thủ công) tạo một bản ghi mới, không bao giờ sửa hay xóa.
type ModerationRecord struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của bản ghi

	// ===== TARGET =====
	ContentID primitive.ObjectID `json:"contentId" bson:"contentId" index:"single:1"` // ID nội dung được kiểm duyệt

	// ===== DECISION =====
	Action         string              `json:"action" bson:"action" index:"single:1"`          // Hành động: approve, reject, flag, reset_score
	ModeratorID    *primitive.ObjectID `json:"moderatorId,omitempty" bson:"moderatorId,omitempty"` // ID moderator, nil nếu là quyết định tự động
	Reason         string              `json:"reason,omitempty" bson:"reason,omitempty"`       // Lý do quyết định
	PreviousStatus string              `json:"previousStatus" bson:"previousStatus"`           // Trạng thái kiểm duyệt trước quyết định
	NewStatus      string              `json:"newStatus" bson:"newStatus"`                     // Trạng thái kiểm duyệt sau quyết định
	ScoreDelta     float64             `json:"scoreDelta" bson:"scoreDelta"`                   // Mức thay đổi điểm abuse của quyết định này

	// ===== TIMESTAMPS =====
	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1"` // Thời gian tạo
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`                  // Thời gian cập nhật (luôn bằng createdAt vì append-only)
}
