// Package syncclient - Test registry đếm ngược publish phía client.
package syncclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountdown_DenGioThiChayCallback(t *testing.T) {
	reg := NewCountdownRegistry()
	fired := make(chan struct{})

	reg.Track("c1", time.Now().Add(10*time.Millisecond), func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback không chạy sau khi đến giờ")
	}

	// Timer đã chạy phải tự dọn khỏi registry
	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCountdown_CancelChanCallback(t *testing.T) {
	reg := NewCountdownRegistry()
	fired := make(chan struct{}, 1)

	reg.Track("c1", time.Now().Add(50*time.Millisecond), func() {
		fired <- struct{}{}
	})
	assert.True(t, reg.Cancel("c1"), "Cancel phải trả true khi có timer")

	select {
	case <-fired:
		t.Fatal("callback vẫn chạy sau khi Cancel")
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, 0, reg.Len())
}

func TestCountdown_CancelKhongCoTimer(t *testing.T) {
	reg := NewCountdownRegistry()
	assert.False(t, reg.Cancel("khong-ton-tai"))
}

func TestCountdown_TrackLaiThayTimerCu(t *testing.T) {
	reg := NewCountdownRegistry()
	firstFired := make(chan struct{}, 1)
	secondFired := make(chan struct{}, 1)

	// Reschedule: đăng ký lại cùng content id phải hủy timer cũ
	reg.Track("c1", time.Now().Add(30*time.Millisecond), func() {
		firstFired <- struct{}{}
	})
	reg.Track("c1", time.Now().Add(60*time.Millisecond), func() {
		secondFired <- struct{}{}
	})

	select {
	case <-firstFired:
		t.Fatal("timer cũ vẫn chạy sau khi reschedule")
	case <-secondFired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer mới không chạy")
	}
}

func TestCountdown_GioTrongQuaKhuChayNgay(t *testing.T) {
	reg := NewCountdownRegistry()
	fired := make(chan struct{})

	reg.Track("c1", time.Now().Add(-time.Hour), func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("publishAt trong quá khứ phải chạy callback ngay")
	}
}

func TestCountdown_CancelAll(t *testing.T) {
	reg := NewCountdownRegistry()
	reg.Track("c1", time.Now().Add(time.Hour), func() {})
	reg.Track("c2", time.Now().Add(time.Hour), func() {})

	assert.Equal(t, 2, reg.Len())
	assert.ElementsMatch(t, []string{"c1", "c2"}, reg.Active())

	reg.CancelAll()
	assert.Equal(t, 0, reg.Len())
}
