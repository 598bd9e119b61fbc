// Package contentsvc - Test scorer heuristic mặc định và map quyết định kiểm duyệt.
package contentsvc

import (
	"testing"

	contentmodels "blog_press/internal/api/content/models"
)

func TestDefaultScorer_NoiDungSach_KhongCongDiem(t *testing.T) {
	item := &contentmodels.ContentItem{
		Body:   "Hôm nay trời đẹp, mình viết một bài chia sẻ về Go.",
		Author: contentmodels.AuthorRef{Kind: contentmodels.AuthorKindRegistered},
	}
	if got := DefaultScorer(item); got != 0 {
		t.Errorf("nội dung sạch phải 0 điểm, got %v", got)
	}
}

func TestDefaultScorer_DemLink(t *testing.T) {
	item := &contentmodels.ContentItem{
		Body:   "Xem tại https://a.example và http://b.example nhé",
		Author: contentmodels.AuthorRef{Kind: contentmodels.AuthorKindRegistered},
	}
	if got := DefaultScorer(item); got != 3.0 {
		t.Errorf("2 link phải được 3.0 điểm (2 × 1.5), got %v", got)
	}
}

func TestDefaultScorer_TuKhoaSpam(t *testing.T) {
	item := &contentmodels.ContentItem{
		Body:   "MUA NGAY kẻo hết hàng",
		Author: contentmodels.AuthorRef{Kind: contentmodels.AuthorKindRegistered},
	}
	if got := DefaultScorer(item); got < 2.0 {
		t.Errorf("từ khóa spam phải cộng ít nhất 2.0, got %v", got)
	}
}

func TestDefaultScorer_ToanChuHoa(t *testing.T) {
	item := &contentmodels.ContentItem{
		Body:   "THIS IS ALL CAPS SHOUTING CONTENT HERE",
		Author: contentmodels.AuthorRef{Kind: contentmodels.AuthorKindRegistered},
	}
	if got := DefaultScorer(item); got < 3.0 {
		t.Errorf("nội dung toàn chữ hoa phải cộng ít nhất 3.0, got %v", got)
	}
}

func TestDefaultScorer_AnDanhKemLink_CongThem(t *testing.T) {
	body := "Ghé thăm https://spam.example"
	registered := &contentmodels.ContentItem{
		Body:   body,
		Author: contentmodels.AuthorRef{Kind: contentmodels.AuthorKindRegistered},
	}
	anonymous := &contentmodels.ContentItem{
		Body:   body,
		Author: contentmodels.AuthorRef{Kind: contentmodels.AuthorKindAnonymous},
	}
	if DefaultScorer(anonymous) <= DefaultScorer(registered) {
		t.Errorf("ẩn danh kèm link phải bị chấm cao hơn registered: %v vs %v",
			DefaultScorer(anonymous), DefaultScorer(registered))
	}
}

func TestDecisionAction_MapTheoTrangThai(t *testing.T) {
	if got := decisionAction(contentmodels.ModerationStatusFlagged); got != contentmodels.ModerationActionFlag {
		t.Errorf("flagged phải map sang action flag, got %s", got)
	}
	if got := decisionAction(contentmodels.ModerationStatusApproved); got != contentmodels.ModerationActionApprove {
		t.Errorf("approved phải map sang action approve, got %s", got)
	}
}
