package contenthdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	contentdto "blog_press/internal/api/content/dto"
	contentmodels "blog_press/internal/api/content/models"
	contentsvc "blog_press/internal/api/content/service"
	basehdl "blog_press/internal/api/base/handler"
	"blog_press/internal/logger"
)

// DelayPolicyHandler xử lý các request quản lý chính sách trễ theo loại nội dung
type DelayPolicyHandler struct {
	*basehdl.BaseHandler[contentmodels.DelayPolicy, contentdto.DelayPolicyCreateInput, contentdto.DelayPolicyUpdateInput]
	DelayPolicyService *contentsvc.DelayPolicyService
}

// NewDelayPolicyHandler tạo mới DelayPolicyHandler
func NewDelayPolicyHandler() (*DelayPolicyHandler, error) {
	policyService, err := contentsvc.NewDelayPolicyService()
	if err != nil {
		return nil, fmt.Errorf("failed to create delay policy service: %v", err)
	}
	hdl := &DelayPolicyHandler{
		DelayPolicyService: policyService,
	}
	hdl.BaseHandler = basehdl.NewBaseHandler[contentmodels.DelayPolicy, contentdto.DelayPolicyCreateInput, contentdto.DelayPolicyUpdateInput](policyService.BaseServiceMongoImpl)
	return hdl, nil
}

// DelayOverrideHandler xử lý các request quản lý override trễ theo từng item
type DelayOverrideHandler struct {
	*basehdl.BaseHandler[contentmodels.DelayOverride, contentdto.DelayOverrideCreateInput, contentdto.DelayOverrideUpdateInput]
	DelayOverrideService *contentsvc.DelayOverrideService
	ContentItemService   *contentsvc.ContentItemService
}

// NewDelayOverrideHandler tạo mới DelayOverrideHandler
func NewDelayOverrideHandler() (*DelayOverrideHandler, error) {
	overrideService, err := contentsvc.NewDelayOverrideService()
	if err != nil {
		return nil, fmt.Errorf("failed to create delay override service: %v", err)
	}
	itemService, err := contentsvc.NewContentItemService()
	if err != nil {
		return nil, fmt.Errorf("failed to create content item service: %v", err)
	}
	hdl := &DelayOverrideHandler{
		DelayOverrideService: overrideService,
		ContentItemService:   itemService,
	}
	hdl.BaseHandler = basehdl.NewBaseHandler[contentmodels.DelayOverride, contentdto.DelayOverrideCreateInput, contentdto.DelayOverrideUpdateInput](overrideService.BaseServiceMongoImpl)
	return hdl, nil
}

// InsertOne tạo override trễ cho một item.
// Override trỏ tới content id không tồn tại vẫn được ghi nhận nhưng cảnh báo —
// nó không có tác dụng cho đến khi item đó xuất hiện.
func (h *DelayOverrideHandler) InsertOne(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		input := new(contentdto.DelayOverrideCreateInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		model, err := h.TransformCreateInputToModel(input)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		exists, err := h.ContentItemService.DocumentExists(c.Context(), bson.M{"_id": model.ContentID})
		if err == nil && !exists {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"content_id": model.ContentID.Hex(),
			}).Warn("⚠️ [DELAY] Override trỏ tới content item không tồn tại, sẽ không có tác dụng")
		}

		created, err := h.DelayOverrideService.InsertOne(c.Context(), *model)
		if err == nil {
			logger.LogCRUD("insert", "content_delay_override", created.ID.Hex(), c, map[string]interface{}{
				"content_id":  created.ContentID.Hex(),
				"delay_hours": created.DelayHours,
			})
		}
		h.HandleResponse(c, created, err)
		return nil
	})
}
