package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"blog_press/config"
	"blog_press/internal/database"
	"blog_press/internal/global"
)

// Hàm khởi tạo các biến toàn cục
func InitGlobal() {
	initColNames()         // Khởi tạo tên các collection trong database
	initConfig()           // Khởi tạo cấu hình server
	initValidator()        // Khởi tạo validator (cần collection names cho rule exists)
	initDatabase_MongoDB() // Khởi tạo kết nối database
}

// Hàm khởi tạo tên các collection trong database
func initColNames() {
	global.MongoDB_ColNames.ContentItems = "content_items"
	global.MongoDB_ColNames.ContentModerationRecords = "content_moderation_records"
	global.MongoDB_ColNames.ContentDelayPolicies = "content_delay_policies"
	global.MongoDB_ColNames.ContentDelayOverrides = "content_delay_overrides"

	logrus.Info("Initialized collection names")
}

// Hàm khởi tạo validator (global.InitValidator đăng ký custom validators: no_xss, exists, iana_tz)
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// Hàm khởi tạo cấu hình server
func initConfig() {
	global.MongoDB_ServerConfig = config.NewConfig()
	if global.MongoDB_ServerConfig == nil {
		logrus.Fatalf("Failed to initialize config: config is nil")
	}
	logrus.Info("Initialized server config")
}

// Hàm khởi tạo kết nối database và các index
func initDatabase_MongoDB() {
	var err error
	global.MongoDB_Session, err = database.GetInstance(global.MongoDB_ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to get database instance: %v", err)
	}
	logrus.Info("Connected to MongoDB")

	// Index phục vụ quét nội dung đến hạn, tra cứu kiểm duyệt và ràng buộc unique
	db := global.MongoDB_Session.Database(global.MongoDB_ServerConfig.MongoDB_DBName_Data)
	if err := database.CreateContentIndexes(context.TODO(), db); err != nil {
		logrus.Fatalf("Failed to create content indexes: %v", err)
	}
	logrus.Info("Created content indexes")
}
