package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerificationMethod định nghĩa phương thức xác minh trước khi publish
const (
	VerificationMethodNone  = "none"  // Không yêu cầu xác minh
	VerificationMethodEmail = "email" // Xác minh qua email
	VerificationMethodAdmin = "admin" // Admin xác nhận thủ công
)

// DelayPolicy chính sách trễ publish mặc định theo loại nội dung.
// Mỗi kind có đúng một document, ghi qua upsert theo kind.
type DelayPolicy struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của chính sách

	// ===== POLICY =====
	Kind                 string  `json:"kind" bson:"kind" index:"unique"`                   // Loại nội dung áp dụng: post, comment
	DelayHours           float64 `json:"delayHours" bson:"delayHours"`                      // Số giờ trễ tối thiểu trước khi được publish
	RequiresVerification bool    `json:"requiresVerification" bson:"requiresVerification"`  // Luôn yêu cầu xác minh với loại nội dung này
	VerificationMethod   string  `json:"verificationMethod" bson:"verificationMethod" default:"none"` // Phương thức xác minh: none, email, admin

	// ===== ABUSE THRESHOLDS =====
	FlagThreshold   float64 `json:"flagThreshold" bson:"flagThreshold" default:"10"`     // Điểm abuse tự động chuyển sang flagged
	VerifyThreshold float64 `json:"verifyThreshold" bson:"verifyThreshold" default:"5"`  // Điểm abuse bắt buộc xác minh trước publish

	// ===== TIMESTAMPS =====
	CreatedAt int64 `json:"createdAt" bson:"createdAt"` // Thời gian tạo
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"` // Thời gian cập nhật
}

// DelayOverride override thời gian trễ cho một content item cụ thể.
// Override thay thế hoàn toàn delay mặc định của chính sách, không cộng dồn.
type DelayOverride struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của override

	// ===== TARGET =====
	ContentID primitive.ObjectID `json:"contentId" bson:"contentId" index:"unique"` // ID nội dung được override (mỗi item tối đa một override)

	// ===== OVERRIDE =====
	DelayHours float64             `json:"delayHours" bson:"delayHours"`                   // Số giờ trễ thay thế cho mặc định
	Reason     string              `json:"reason,omitempty" bson:"reason,omitempty"`       // Lý do override
	CreatedBy  *primitive.ObjectID `json:"createdBy,omitempty" bson:"createdBy,omitempty"` // Admin tạo override

	// ===== TIMESTAMPS =====
	CreatedAt int64 `json:"createdAt" bson:"createdAt"` // Thời gian tạo
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"` // Thời gian cập nhật
}
