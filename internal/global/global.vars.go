package global

import (
	"blog_press/config"
	"blog_press/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_Content_CollectionName chứa tên các collection trong MongoDB
type MongoDB_Content_CollectionName struct {
	ContentItems             string // Tên collection cho nội dung (bài viết, bình luận và bản cập nhật chờ)
	ContentModerationRecords string // Tên collection cho bản ghi kiểm duyệt (append-only)
	ContentDelayPolicies     string // Tên collection cho chính sách trễ theo loại nội dung
	ContentDelayOverrides    string // Tên collection cho override trễ theo từng item
}

// Các biến toàn cục
var Validate *validator.Validate                                                        // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client                                                       // Phiên kết nối tới MongoDB
var MongoDB_ServerConfig *config.Configuration                                          // Cấu hình của server
var MongoDB_ColNames MongoDB_Content_CollectionName = *new(MongoDB_Content_CollectionName) // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
