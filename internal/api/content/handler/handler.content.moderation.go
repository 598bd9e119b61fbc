package contenthdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	contentdto "blog_press/internal/api/content/dto"
	contentmodels "blog_press/internal/api/content/models"
	contentsvc "blog_press/internal/api/content/service"
	basehdl "blog_press/internal/api/base/handler"
	"blog_press/internal/common"
	"blog_press/internal/utility"
)

// ModerationRecordHandler xử lý các request đọc bản ghi kiểm duyệt.
// Bản ghi là append-only, chỉ expose các route đọc.
type ModerationRecordHandler struct {
	*basehdl.BaseHandler[contentmodels.ModerationRecord, contentdto.ModerationRecordCreateInput, contentdto.ModerationRecordUpdateInput]
	ModerationRecordService *contentsvc.ModerationRecordService
}

// NewModerationRecordHandler tạo mới ModerationRecordHandler
func NewModerationRecordHandler() (*ModerationRecordHandler, error) {
	recordService, err := contentsvc.NewModerationRecordService()
	if err != nil {
		return nil, fmt.Errorf("failed to create moderation record service: %v", err)
	}
	hdl := &ModerationRecordHandler{
		ModerationRecordService: recordService,
	}
	hdl.BaseHandler = basehdl.NewBaseHandler[contentmodels.ModerationRecord, contentdto.ModerationRecordCreateInput, contentdto.ModerationRecordUpdateInput](recordService.BaseServiceMongoImpl)
	return hdl, nil
}

// History lấy toàn bộ lịch sử kiểm duyệt của một content item, mới nhất trước
func (h *ModerationRecordHandler) History(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id := h.GetIDFromContext(c)
		if id == "" || !primitive.IsValidObjectID(id) {
			h.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationFormat, "ID không hợp lệ", common.StatusBadRequest, nil))
			return nil
		}

		records, err := h.ModerationRecordService.FindByContentID(c.Context(), utility.String2ObjectID(id))
		if records == nil {
			records = []contentmodels.ModerationRecord{}
		}
		h.HandleResponse(c, records, err)
		return nil
	})
}
