package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"blog_press/internal/common"
	"blog_press/internal/global"
	"blog_press/internal/logger"
)

// Các role của hệ thống. Scope quyền được suy ra từ role trong JWT claims,
// không cần query database cho mỗi request.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleAuthor    = "author"
)

// TokenClaims là claims của JWT token do hệ thống phát hành.
type TokenClaims struct {
	UserID      string `json:"uid"`
	Role        string `json:"role"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// roleHasPermission kiểm tra role có permission yêu cầu không.
// Permission có dạng "<Domain>.<Action>", ví dụ "Content.Insert", "Moderation.Update".
func roleHasPermission(role string, permission string) bool {
	switch role {
	case RoleAdmin:
		// Admin có toàn quyền
		return true
	case RoleModerator:
		// Moderator: toàn quyền kiểm duyệt + đọc nội dung và chính sách trễ
		if strings.HasPrefix(permission, "Moderation.") {
			return true
		}
		return strings.HasSuffix(permission, ".Read")
	case RoleAuthor:
		// Author: thao tác nội dung của mình, không được kiểm duyệt và không sửa chính sách trễ
		if strings.HasPrefix(permission, "Moderation.") {
			return false
		}
		if strings.HasPrefix(permission, "DelayPolicy.") && !strings.HasSuffix(permission, ".Read") {
			return false
		}
		return true
	default:
		return false
	}
}

// parseToken parse và verify JWT token với secret từ config.
func parseToken(tokenStr string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		// Chỉ chấp nhận HMAC để tránh tấn công đổi thuật toán
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrTokenInvalid
		}
		return []byte(global.MongoDB_ServerConfig.JwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, common.ErrTokenInvalid
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, common.ErrTokenInvalid
	}
	return claims, nil
}

// AuthMiddleware middleware xác thực cho Fiber.
// Verify JWT bearer token, lưu user_id/user_role vào context và kiểm tra permission theo role.
// requirePermission rỗng nghĩa là chỉ cần đăng nhập.
func AuthMiddleware(requirePermission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		// Lấy token từ header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			// Chỉ log khi thiếu token (lỗi quan trọng)
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path":   c.Path(),
				"method": c.Method(),
			}).Warn("❌ [AUTH] Missing Authorization header")
			HandleErrorResponse(c, common.ErrTokenMissing)
			return nil
		}

		// Kiểm tra định dạng token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		// Verify chữ ký và hạn token
		claims, err := parseToken(parts[1])
		if err != nil {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path": c.Path(),
			}).Warn("❌ [AUTH] Token không hợp lệ hoặc đã hết hạn")
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		// Lưu thông tin user vào context
		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		if claims.DisplayName != "" {
			c.Locals("user_name", claims.DisplayName)
		}

		// Nếu không yêu cầu permission cụ thể, cho phép truy cập ngay
		if requirePermission == "" {
			return c.Next()
		}

		// Kiểm tra permission theo role trong claims
		if !roleHasPermission(claims.Role, requirePermission) {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"user_id":             claims.UserID,
				"user_role":           claims.Role,
				"required_permission": requirePermission,
				"path":                c.Path(),
			}).Warn("❌ [AUTH] User không có quyền yêu cầu")
			HandleErrorResponse(c, common.ErrRoleForbidden)
			return nil
		}

		// Lưu permission name vào context để handler sử dụng
		c.Locals("permission_name", requirePermission)
		return c.Next()
	}
}
