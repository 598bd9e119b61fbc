// Package router đăng ký các route thuộc domain Content: items, moderation records, delay policies/overrides.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	contenthdl "blog_press/internal/api/content/handler"
	"blog_press/internal/api/middleware"
	apirouter "blog_press/internal/api/router"
)

// Register đăng ký tất cả route content lên v1.
func Register(v1 fiber.Router, r *apirouter.Router) error {
	itemHandler, err := contenthdl.NewContentItemHandler()
	if err != nil {
		return fmt.Errorf("create content item handler: %w", err)
	}
	r.RegisterCRUDRoutes(v1, "/content/items", itemHandler, apirouter.ReadWriteConfig, "Content")

	// Các action vòng đời: mọi thao tác ghi đều kèm expectedVersion (optimistic concurrency)
	contentUpdateMiddleware := middleware.AuthMiddleware("Content.Update")
	apirouter.RegisterRouteWithMiddleware(v1, "/content/items", "POST", "/:id/schedule", []fiber.Handler{contentUpdateMiddleware}, itemHandler.Schedule)
	apirouter.RegisterRouteWithMiddleware(v1, "/content/items", "POST", "/:id/edit", []fiber.Handler{contentUpdateMiddleware}, itemHandler.Edit)
	apirouter.RegisterRouteWithMiddleware(v1, "/content/items", "POST", "/:id/cancel", []fiber.Handler{contentUpdateMiddleware}, itemHandler.Cancel)
	apirouter.RegisterRouteWithMiddleware(v1, "/content/items", "POST", "/:id/retry", []fiber.Handler{contentUpdateMiddleware}, itemHandler.Retry)
	apirouter.RegisterRouteWithMiddleware(v1, "/content/items", "POST", "/:id/archive", []fiber.Handler{contentUpdateMiddleware}, itemHandler.Archive)
	apirouter.RegisterRouteWithMiddleware(v1, "/content/items", "POST", "/:id/verify", []fiber.Handler{contentUpdateMiddleware}, itemHandler.Verify)

	// Kiểm duyệt thủ công: chỉ moderator/admin
	moderateMiddleware := middleware.AuthMiddleware("Moderation.Update")
	apirouter.RegisterRouteWithMiddleware(v1, "/content/items", "POST", "/:id/moderate", []fiber.Handler{moderateMiddleware}, itemHandler.Moderate)

	moderationRecordHandler, err := contenthdl.NewModerationRecordHandler()
	if err != nil {
		return fmt.Errorf("create moderation record handler: %w", err)
	}
	// Bản ghi kiểm duyệt append-only → chỉ đọc qua API
	r.RegisterCRUDRoutes(v1, "/content/moderation-records", moderationRecordHandler, apirouter.ReadOnlyConfig, "Moderation")
	moderationReadMiddleware := middleware.AuthMiddleware("Moderation.Read")
	apirouter.RegisterRouteWithMiddleware(v1, "/content/moderation-records", "GET", "/history/:id", []fiber.Handler{moderationReadMiddleware}, moderationRecordHandler.History)

	delayPolicyHandler, err := contenthdl.NewDelayPolicyHandler()
	if err != nil {
		return fmt.Errorf("create delay policy handler: %w", err)
	}
	r.RegisterCRUDRoutes(v1, "/content/delay-policies", delayPolicyHandler, apirouter.DelayPolicyConfig, "DelayPolicy")

	delayOverrideHandler, err := contenthdl.NewDelayOverrideHandler()
	if err != nil {
		return fmt.Errorf("create delay override handler: %w", err)
	}
	r.RegisterCRUDRoutes(v1, "/content/delay-overrides", delayOverrideHandler, apirouter.ReadWriteConfig, "DelayPolicy")

	return nil
}
