package contenthdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	contentdto "blog_press/internal/api/content/dto"
	contentmodels "blog_press/internal/api/content/models"
	contentsvc "blog_press/internal/api/content/service"
	basehdl "blog_press/internal/api/base/handler"
	"blog_press/internal/api/middleware"
	"blog_press/internal/common"
	"blog_press/internal/logger"
	"blog_press/internal/utility"
)

// ContentItemHandler xử lý các request liên quan đến content items
// (bài viết, bình luận và vòng đời publish của chúng)
type ContentItemHandler struct {
	*basehdl.BaseHandler[contentmodels.ContentItem, contentdto.ContentItemCreateInput, contentdto.ContentItemUpdateInput]
	SchedulerService  *contentsvc.SchedulerService
	ModerationService *contentsvc.ModerationService
}

// NewContentItemHandler tạo mới ContentItemHandler
func NewContentItemHandler() (*ContentItemHandler, error) {
	schedulerService, err := contentsvc.NewSchedulerService()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler service: %v", err)
	}
	moderationService, err := contentsvc.NewModerationService()
	if err != nil {
		return nil, fmt.Errorf("failed to create moderation service: %v", err)
	}
	hdl := &ContentItemHandler{
		SchedulerService:  schedulerService,
		ModerationService: moderationService,
	}
	hdl.BaseHandler = basehdl.NewBaseHandler[contentmodels.ContentItem, contentdto.ContentItemCreateInput, contentdto.ContentItemUpdateInput](schedulerService.ItemService())
	hdl.SetFilterOptions(basehdl.FilterOptions{
		DeniedFields:     []string{"password", "token", "secret", "key", "hash"},
		AllowedOperators: []string{"$eq", "$gt", "$gte", "$lt", "$lte", "$in", "$nin", "$exists"},
		MaxFields:        10,
	})
	return hdl, nil
}

// InsertOne tạo nội dung mới (luôn ở trạng thái draft, chưa kiểm duyệt).
// Ghi đè InsertOne của base handler để đi qua máy trạng thái thay vì ghi thẳng collection.
func (h *ContentItemHandler) InsertOne(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		input := new(contentdto.ContentItemCreateInput)
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
		// Author là struct lồng nhau, transform tag không xử lý → map thủ công
		author, err := toAuthorRef(input.Author)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		model.Author = author

		created, err := h.SchedulerService.Create(c.Context(), *model)
		h.HandleResponse(c, created, err)
		return nil
	})
}

// Schedule lên lịch publish cho một item (draft hoặc đổi lịch khi đang scheduled).
// Bỏ trống requestedPublishAt nghĩa là "publish ngay" — sẽ bị clamp lên sàn trễ.
func (h *ContentItemHandler) Schedule(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.parseItemID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		input := new(contentdto.ScheduleInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		item, err := h.SchedulerService.Schedule(c.Context(), id, input.RequestedPublishAt, input.ExpectedVersion)
		h.HandleResponse(c, item, err)
		return nil
	})
}

// Edit sửa nội dung: draft/scheduled sửa tại chỗ, published tạo bản cập nhật chờ
func (h *ContentItemHandler) Edit(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.parseItemID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		input := new(contentdto.EditInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		payload := contentsvc.EditPayload{
			Title:    input.Payload.Title,
			Body:     input.Payload.Body,
			Timezone: input.Payload.Timezone,
			Metadata: input.Payload.Metadata,
		}
		item, err := h.SchedulerService.Edit(c.Context(), id, payload, input.ExpectedVersion)
		h.HandleResponse(c, item, err)
		return nil
	})
}

// Cancel hủy lịch publish. Chỉ tác giả của item hoặc admin được hủy.
func (h *ContentItemHandler) Cancel(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.parseItemID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		input := new(contentdto.VersionedActionInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		if err := h.requireOwnerOrAdmin(c, id); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		item, err := h.SchedulerService.Cancel(c.Context(), id, input.ExpectedVersion)
		h.HandleResponse(c, item, err)
		return nil
	})
}

// Retry thử publish lại item failed với backoff lũy tiến
func (h *ContentItemHandler) Retry(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.parseItemID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		input := new(contentdto.VersionedActionInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		item, err := h.SchedulerService.Retry(c.Context(), id, input.ExpectedVersion)
		h.HandleResponse(c, item, err)
		return nil
	})
}

// Archive lưu trữ item. Chỉ admin.
func (h *ContentItemHandler) Archive(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		if role, _ := c.Locals("user_role").(string); role != middleware.RoleAdmin {
			h.HandleResponse(c, nil, common.ErrRoleForbidden)
			return nil
		}

		id, err := h.parseItemID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		input := new(contentdto.VersionedActionInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		item, err := h.SchedulerService.Archive(c.Context(), id, input.ExpectedVersion)
		h.HandleResponse(c, item, err)
		return nil
	})
}

// Verify xác nhận item đã qua bước xác minh, gỡ chặn cổng xác minh trước publish. Chỉ admin.
func (h *ContentItemHandler) Verify(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		if role, _ := c.Locals("user_role").(string); role != middleware.RoleAdmin {
			h.HandleResponse(c, nil, common.ErrRoleForbidden)
			return nil
		}

		id, err := h.parseItemID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		input := new(contentdto.VersionedActionInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		item, err := h.SchedulerService.Verify(c.Context(), id, input.ExpectedVersion)
		if err == nil {
			logger.LogAction("content_verify", c, map[string]interface{}{
				"content_id": id.Hex(),
			})
		}
		h.HandleResponse(c, item, err)
		return nil
	})
}

// Moderate quyết định kiểm duyệt thủ công (approve/reject/flag/reset_score)
func (h *ContentItemHandler) Moderate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.parseItemID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		input := new(contentdto.ModerateInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var moderatorID *primitive.ObjectID
		if uid, _ := c.Locals("user_id").(string); uid != "" && primitive.IsValidObjectID(uid) {
			oid := utility.String2ObjectID(uid)
			moderatorID = &oid
		}

		item, err := h.ModerationService.Moderate(c.Context(), id, input.Action, input.Reason, moderatorID)
		if err == nil {
			logger.LogModeration(input.Action, id.Hex(), c, map[string]interface{}{
				"reason":     input.Reason,
				"new_status": item.ModerationStatus,
			})
		}
		h.HandleResponse(c, item, err)
		return nil
	})
}

// parseItemID lấy và validate ObjectID từ URL param :id
func (h *ContentItemHandler) parseItemID(c fiber.Ctx) (primitive.ObjectID, error) {
	id := h.GetIDFromContext(c)
	if id == "" || !primitive.IsValidObjectID(id) {
		return primitive.NilObjectID, common.NewError(common.ErrCodeValidationFormat, "ID không hợp lệ", common.StatusBadRequest, nil)
	}
	return utility.String2ObjectID(id), nil
}

// requireOwnerOrAdmin kiểm tra người gọi là tác giả của item hoặc admin
func (h *ContentItemHandler) requireOwnerOrAdmin(c fiber.Ctx, id primitive.ObjectID) error {
	role, _ := c.Locals("user_role").(string)
	if role == middleware.RoleAdmin {
		return nil
	}
	item, err := h.SchedulerService.ItemService().FindOneById(c.Context(), id)
	if err != nil {
		return err
	}
	uid, _ := c.Locals("user_id").(string)
	if item.Author.UserID == nil || item.Author.UserID.Hex() != uid {
		return common.ErrRoleForbidden
	}
	return nil
}

// toAuthorRef chuyển AuthorRefInput (DTO) sang AuthorRef (model)
func toAuthorRef(input contentdto.AuthorRefInput) (contentmodels.AuthorRef, error) {
	ref := contentmodels.AuthorRef{
		Kind:        input.Kind,
		DisplayName: input.DisplayName,
	}
	if input.UserID != "" {
		if !primitive.IsValidObjectID(input.UserID) {
			return ref, common.NewError(common.ErrCodeValidationFormat, "userId không hợp lệ", common.StatusBadRequest, nil)
		}
		oid := utility.String2ObjectID(input.UserID)
		ref.UserID = &oid
	}
	return ref, nil
}
