// Package contentsvc - Test phân giải trễ publish (hàm thuần ComputeEffectiveDelay).
package contentsvc

import (
	"testing"

	contentmodels "blog_press/internal/api/content/models"
)

func basePolicy() *contentmodels.DelayPolicy {
	return &contentmodels.DelayPolicy{
		Kind:               contentmodels.ContentKindPost,
		DelayHours:         24,
		VerificationMethod: contentmodels.VerificationMethodNone,
		FlagThreshold:      10,
		VerifyThreshold:    5,
	}
}

func TestComputeEffectiveDelay_NilRequested_LayDungSan(t *testing.T) {
	now := int64(1_700_000_000_000)
	d := ComputeEffectiveDelay(basePolicy(), nil, 0, now, nil)

	wantMin := now + 24*MillisPerHour
	if d.MinimumPublishAt != wantMin {
		t.Errorf("MinimumPublishAt = %d, muốn %d", d.MinimumPublishAt, wantMin)
	}
	if d.EffectivePublishAt != wantMin {
		t.Errorf("requested nil phải lấy đúng sàn, EffectivePublishAt = %d, muốn %d", d.EffectivePublishAt, wantMin)
	}
}

func TestComputeEffectiveDelay_RequestedSomHonSan_BiClampLenSan(t *testing.T) {
	now := int64(1_700_000_000_000)
	requested := now + 1*MillisPerHour // sớm hơn sàn 24h
	d := ComputeEffectiveDelay(basePolicy(), nil, 0, now, &requested)

	if d.EffectivePublishAt != d.MinimumPublishAt {
		t.Errorf("requested sớm hơn sàn phải bị clamp, EffectivePublishAt = %d, sàn = %d", d.EffectivePublishAt, d.MinimumPublishAt)
	}
}

func TestComputeEffectiveDelay_RequestedMuonHonSan_GiuNguyen(t *testing.T) {
	now := int64(1_700_000_000_000)
	requested := now + 48*MillisPerHour
	d := ComputeEffectiveDelay(basePolicy(), nil, 0, now, &requested)

	if d.EffectivePublishAt != requested {
		t.Errorf("requested muộn hơn sàn phải giữ nguyên, EffectivePublishAt = %d, muốn %d", d.EffectivePublishAt, requested)
	}
}

func TestComputeEffectiveDelay_OverrideThayTheKhongCongDon(t *testing.T) {
	now := int64(1_700_000_000_000)
	override := &contentmodels.DelayOverride{DelayHours: 2}
	d := ComputeEffectiveDelay(basePolicy(), override, 0, now, nil)

	wantMin := now + 2*MillisPerHour
	if d.MinimumPublishAt != wantMin {
		t.Errorf("override phải thay thế delay của policy (không cộng dồn), sàn = %d, muốn %d", d.MinimumPublishAt, wantMin)
	}
}

func TestComputeEffectiveDelay_OverrideDaiHonPolicy(t *testing.T) {
	now := int64(1_700_000_000_000)
	override := &contentmodels.DelayOverride{DelayHours: 72}
	d := ComputeEffectiveDelay(basePolicy(), override, 0, now, nil)

	if d.MinimumPublishAt != now+72*MillisPerHour {
		t.Errorf("override dài hơn policy vẫn thay thế, sàn = %d", d.MinimumPublishAt)
	}
}

func TestComputeEffectiveDelay_AbuseScoreVuotNguong_BatXacMinh(t *testing.T) {
	now := int64(1_700_000_000_000)
	d := ComputeEffectiveDelay(basePolicy(), nil, 5, now, nil) // == VerifyThreshold

	if !d.RequiresVerification {
		t.Error("abuseScore đạt ngưỡng phải bật xác minh")
	}
	// Policy không khai báo phương thức → admin duyệt tay
	if d.VerificationMethod != contentmodels.VerificationMethodAdmin {
		t.Errorf("VerificationMethod = %s, muốn %s", d.VerificationMethod, contentmodels.VerificationMethodAdmin)
	}
}

func TestComputeEffectiveDelay_XacMinhKhongKeoDaiTre(t *testing.T) {
	now := int64(1_700_000_000_000)
	withVerify := ComputeEffectiveDelay(basePolicy(), nil, 100, now, nil)
	withoutVerify := ComputeEffectiveDelay(basePolicy(), nil, 0, now, nil)

	if withVerify.EffectivePublishAt != withoutVerify.EffectivePublishAt {
		t.Errorf("xác minh chỉ chặn publish, không được kéo dài trễ: %d != %d",
			withVerify.EffectivePublishAt, withoutVerify.EffectivePublishAt)
	}
}

func TestComputeEffectiveDelay_PolicyYeuCauXacMinhGiuPhuongThuc(t *testing.T) {
	policy := basePolicy()
	policy.RequiresVerification = true
	policy.VerificationMethod = contentmodels.VerificationMethodEmail

	d := ComputeEffectiveDelay(policy, nil, 0, 0, nil)
	if !d.RequiresVerification {
		t.Error("policy yêu cầu xác minh nhưng kết quả không bật")
	}
	if d.VerificationMethod != contentmodels.VerificationMethodEmail {
		t.Errorf("phương thức đã khai báo phải giữ nguyên, got %s", d.VerificationMethod)
	}
}
