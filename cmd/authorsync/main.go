// authorsync là CLI phía tác giả: quản lý hàng đợi chỉnh sửa offline và đồng bộ
// lên server khi có mạng.
//
// Cấu hình qua biến môi trường:
//
//	SYNC_SERVER_URL  địa chỉ server (mặc định http://localhost:3000)
//	SYNC_TOKEN       JWT token của tác giả
//	SYNC_QUEUE_FILE  file hàng đợi local (mặc định ~/.blogpress/sync_queue.json)
//
// Lệnh:
//
//	authorsync status                      xem hàng đợi hiện tại
//	authorsync drain                       kết nối và đẩy toàn bộ hàng đợi lên server
//	authorsync resolve <id> local|server   giải quyết conflict cho một content
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env"
	"github.com/sirupsen/logrus"

	"blog_press/client/syncclient"
)

type syncConfig struct {
	ServerURL string `env:"SYNC_SERVER_URL" envDefault:"http://localhost:3000"`
	Token     string `env:"SYNC_TOKEN"`
	QueueFile string `env:"SYNC_QUEUE_FILE"`
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := syncConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Đọc cấu hình từ biến môi trường thất bại: %v", err)
	}
	if cfg.QueueFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Không xác định được thư mục home: %v", err)
		}
		cfg.QueueFile = filepath.Join(home, ".blogpress", "sync_queue.json")
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	store, err := syncclient.NewFileStore(cfg.QueueFile)
	if err != nil {
		log.Fatalf("Mở file hàng đợi thất bại: %v", err)
	}
	transport := syncclient.NewHTTPTransport(cfg.ServerURL, cfg.Token)
	reconciler, err := syncclient.NewReconciler(syncclient.NewQueue(), store, transport, log)
	if err != nil {
		log.Fatalf("Khởi tạo reconciler thất bại: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "status":
		runStatus(reconciler)

	case "drain":
		// Đánh dấu online: chuyển trạng thái kích hoạt drain ngay
		reconciler.SetOnline(ctx, true)
		runStatus(reconciler)

	case "resolve":
		if len(os.Args) < 4 {
			usage()
			os.Exit(2)
		}
		contentID, strategy := os.Args[2], os.Args[3]
		reconciler.SetOnline(ctx, true)
		if err := reconciler.ResolveConflict(ctx, contentID, strategy); err != nil {
			log.Fatalf("Giải quyết conflict thất bại: %v", err)
		}
		log.Infof("Đã giải quyết conflict cho %s theo hướng %s", contentID, strategy)

	default:
		usage()
		os.Exit(2)
	}
}

func runStatus(reconciler *syncclient.Reconciler) {
	pending := reconciler.Pending()
	if len(pending) == 0 {
		fmt.Println("Hàng đợi trống, mọi chỉnh sửa đã đồng bộ.")
		return
	}
	fmt.Printf("%d chỉnh sửa chưa đồng bộ:\n", len(pending))
	for _, entry := range pending {
		line := fmt.Sprintf("  %s  [%s]  version local %d, thử lại %d lần",
			entry.ContentID, entry.SyncStatus, entry.Snapshot.Version, entry.RetryCount)
		if entry.LastError != "" {
			line += "  lỗi: " + entry.LastError
		}
		fmt.Println(line)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Cách dùng: authorsync <status|drain|resolve <content-id> <local|server>>")
}
