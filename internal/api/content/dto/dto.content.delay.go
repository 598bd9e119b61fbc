package contentdto

// DelayPolicyCreateInput dữ liệu đầu vào khi upsert chính sách trễ theo kind
type DelayPolicyCreateInput struct {
	Kind                 string  `json:"kind" validate:"required,oneof=post comment"`
	DelayHours           float64 `json:"delayHours" validate:"gte=0"`
	RequiresVerification bool    `json:"requiresVerification,omitempty"`
	VerificationMethod   string  `json:"verificationMethod,omitempty" validate:"omitempty,oneof=none email admin" transform:"string,default=none"`
	FlagThreshold        float64 `json:"flagThreshold,omitempty" validate:"omitempty,gt=0"`
	VerifyThreshold      float64 `json:"verifyThreshold,omitempty" validate:"omitempty,gt=0"`
}

// DelayPolicyUpdateInput dữ liệu đầu vào khi cập nhật chính sách trễ
type DelayPolicyUpdateInput struct {
	DelayHours           float64 `json:"delayHours,omitempty" validate:"omitempty,gte=0"`
	RequiresVerification bool    `json:"requiresVerification,omitempty"`
	VerificationMethod   string  `json:"verificationMethod,omitempty" validate:"omitempty,oneof=none email admin"`
	FlagThreshold        float64 `json:"flagThreshold,omitempty" validate:"omitempty,gt=0"`
	VerifyThreshold      float64 `json:"verifyThreshold,omitempty" validate:"omitempty,gt=0"`
}

// DelayOverrideCreateInput dữ liệu đầu vào khi tạo override trễ cho một item
type DelayOverrideCreateInput struct {
	ContentID  string  `json:"contentId" validate:"required" transform:"str_objectid"`
	DelayHours float64 `json:"delayHours" validate:"gte=0"`
	Reason     string  `json:"reason,omitempty" validate:"omitempty,max=500,no_xss"`
	CreatedBy  string  `json:"createdBy,omitempty" transform:"str_objectid_ptr,optional"`
}

// DelayOverrideUpdateInput dữ liệu đầu vào khi cập nhật override trễ
type DelayOverrideUpdateInput struct {
	DelayHours float64 `json:"delayHours,omitempty" validate:"omitempty,gte=0"`
	Reason     string  `json:"reason,omitempty" validate:"omitempty,max=500,no_xss"`
}
