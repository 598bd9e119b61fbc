package contentdto

// ModerationRecordCreateInput dữ liệu đầu vào khi ghi bản ghi kiểm duyệt.
// Chỉ dùng nội bộ qua service; API ngoài dùng ModerateInput.
type ModerationRecordCreateInput struct {
	ContentID      string  `json:"contentId" validate:"required" transform:"str_objectid"`
	Action         string  `json:"action" validate:"required,oneof=approve reject flag reset_score"`
	ModeratorID    string  `json:"moderatorId,omitempty" transform:"str_objectid_ptr,optional"`
	Reason         string  `json:"reason,omitempty" validate:"omitempty,max=500,no_xss"`
	PreviousStatus string  `json:"previousStatus" validate:"required"`
	NewStatus      string  `json:"newStatus" validate:"required"`
	ScoreDelta     float64 `json:"scoreDelta,omitempty"`
}

// ModerationRecordUpdateInput bản ghi kiểm duyệt là append-only, không có trường cập nhật
type ModerationRecordUpdateInput struct {
}

// ModerateInput dữ liệu đầu vào khi moderator ra quyết định thủ công
type ModerateInput struct {
	Action string `json:"action" validate:"required,oneof=approve reject flag reset_score"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500,no_xss"`
}
