// Package contentsvc - Test backoff retry và các helper áp payload chỉnh sửa.
package contentsvc

import (
	"testing"
	"time"

	contentmodels "blog_press/internal/api/content/models"
)

func TestNextRetryBackoff_LanDauQuanhBase(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := nextRetryBackoff(0)
		min := time.Duration(float64(retryBackoffBase) * (1 - retryBackoffJitter))
		max := time.Duration(float64(retryBackoffBase) * (1 + retryBackoffJitter))
		if got < min || got > max {
			t.Fatalf("backoff lần đầu = %v, phải trong [%v, %v]", got, min, max)
		}
	}
}

func TestNextRetryBackoff_NhanDoiTheoSoLanThatBai(t *testing.T) {
	// retryCount 2 → base * 4, jitter ±20%
	for i := 0; i < 50; i++ {
		got := nextRetryBackoff(2)
		center := 4 * retryBackoffBase
		min := time.Duration(float64(center) * (1 - retryBackoffJitter))
		max := time.Duration(float64(center) * (1 + retryBackoffJitter))
		if got < min || got > max {
			t.Fatalf("backoff retryCount=2 là %v, phải trong [%v, %v]", got, min, max)
		}
	}
}

func TestNextRetryBackoff_KhongVuotTran(t *testing.T) {
	maxAllowed := time.Duration(float64(retryBackoffCap) * (1 + retryBackoffJitter))
	for i := 0; i < 50; i++ {
		got := nextRetryBackoff(100)
		if got > maxAllowed {
			t.Fatalf("backoff vượt trần + jitter: %v > %v", got, maxAllowed)
		}
	}
}

func TestPayloadToSet_BoQuaTruongRong(t *testing.T) {
	set := payloadToSet(EditPayload{Title: "Tiêu đề mới"})
	if _, ok := set["body"]; ok {
		t.Error("body rỗng không được đưa vào $set")
	}
	if _, ok := set["timezone"]; ok {
		t.Error("timezone rỗng không được đưa vào $set")
	}
	if set["title"] != "Tiêu đề mới" {
		t.Errorf("title = %v, muốn 'Tiêu đề mới'", set["title"])
	}
}

func TestApplyPayload_ChiGhiDeTruongCoGiaTri(t *testing.T) {
	item := contentmodels.ContentItem{
		Title:    "Tiêu đề cũ",
		Body:     "Nội dung cũ",
		Timezone: "Asia/Ho_Chi_Minh",
	}
	applyPayload(&item, EditPayload{Body: "Nội dung mới"})

	if item.Title != "Tiêu đề cũ" {
		t.Errorf("title không được đổi, got %q", item.Title)
	}
	if item.Body != "Nội dung mới" {
		t.Errorf("body = %q, muốn 'Nội dung mới'", item.Body)
	}
	if item.Timezone != "Asia/Ho_Chi_Minh" {
		t.Errorf("timezone không được đổi, got %q", item.Timezone)
	}
}

func TestIsTerminalStatus(t *testing.T) {
	terminal := []string{
		contentmodels.ContentStatusCancelled,
		contentmodels.ContentStatusArchived,
	}
	for _, st := range terminal {
		if !contentmodels.IsTerminalStatus(st) {
			t.Errorf("%s phải là terminal", st)
		}
	}
	nonTerminal := []string{
		contentmodels.ContentStatusDraft,
		contentmodels.ContentStatusScheduled,
		contentmodels.ContentStatusPublishing,
		contentmodels.ContentStatusPublished,
		contentmodels.ContentStatusFailed,
	}
	for _, st := range nonTerminal {
		if contentmodels.IsTerminalStatus(st) {
			t.Errorf("%s không được là terminal", st)
		}
	}
}
