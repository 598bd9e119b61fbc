package contentdto

// AuthorRefInput tham chiếu tác giả trong request tạo nội dung
type AuthorRefInput struct {
	Kind        string `json:"kind" validate:"required,oneof=registered anonymous"`
	UserID      string `json:"userId,omitempty" transform:"str_objectid_ptr,optional"`
	DisplayName string `json:"displayName,omitempty" validate:"omitempty,max=100,no_xss"`
}

// ContentItemCreateInput dữ liệu đầu vào khi tạo content item (luôn là draft)
type ContentItemCreateInput struct {
	Kind     string                 `json:"kind" validate:"required,oneof=post comment"`
	Title    string                 `json:"title,omitempty" validate:"omitempty,max=300,no_xss"`
	Body     string                 `json:"body" validate:"required,no_xss"`
	ParentID string                 `json:"parentId,omitempty" transform:"str_objectid_ptr,optional"`
	Author   AuthorRefInput         `json:"author" validate:"required"`
	Timezone string                 `json:"timezone,omitempty" validate:"omitempty,iana_tz"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ContentItemUpdateInput dữ liệu đầu vào khi cập nhật nội dung (qua Edit, không ghi thẳng)
type ContentItemUpdateInput struct {
	Title    string                 `json:"title,omitempty" validate:"omitempty,max=300,no_xss"`
	Body     string                 `json:"body,omitempty" validate:"omitempty,no_xss"`
	Timezone string                 `json:"timezone,omitempty" validate:"omitempty,iana_tz"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ContentItemIDParams params từ URL cho các action theo id
type ContentItemIDParams struct {
	ID string `uri:"id" validate:"required"`
}

// ScheduleInput dữ liệu đầu vào khi lên lịch publish.
// RequestedPublishAt bỏ trống nghĩa là "publish ngay" — hệ thống tự clamp lên sàn trễ sớm nhất.
type ScheduleInput struct {
	RequestedPublishAt *int64 `json:"requestedPublishAt,omitempty" validate:"omitempty,gt=0"`
	ExpectedVersion    int64  `json:"expectedVersion" validate:"required,gt=0"`
}

// EditInput dữ liệu đầu vào khi sửa nội dung kèm version kiểm tra
type EditInput struct {
	Payload         ContentItemUpdateInput `json:"payload" validate:"required"`
	ExpectedVersion int64                  `json:"expectedVersion" validate:"required,gt=0"`
}

// VersionedActionInput dữ liệu đầu vào cho các action chỉ cần version (cancel, retry, archive)
type VersionedActionInput struct {
	ExpectedVersion int64 `json:"expectedVersion" validate:"required,gt=0"`
}
