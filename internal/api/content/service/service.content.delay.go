package contentsvc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	contentmodels "blog_press/internal/api/content/models"
	basesvc "blog_press/internal/api/base/service"
	"blog_press/internal/common"
	"blog_press/internal/global"
)

// MillisPerHour số millisecond trong một giờ, dùng cho tính toán trễ
const MillisPerHour = int64(3600 * 1000)

// EffectiveDelay kết quả phân giải trễ publish cho một item tại một thời điểm
type EffectiveDelay struct {
	MinimumPublishAt     int64  // Thời điểm sớm nhất được phép publish (sàn trễ, unix millis)
	EffectivePublishAt   int64  // Thời điểm publish thực tế sau khi clamp requested lên sàn
	RequiresVerification bool   // Phải xác minh trước khi publish (chặn, không phải trễ thêm)
	VerificationMethod   string // Phương thức xác minh khi bắt buộc
}

// ComputeEffectiveDelay phân giải trễ publish. Hàm thuần, mọi thời gian là unix millis UTC.
//
// Quy tắc:
//   - Override (nếu có) thay thế hoàn toàn delay mặc định của policy, không cộng dồn.
//   - Trễ là sàn: requested sớm hơn sàn thì bị clamp lên sàn, muộn hơn thì giữ nguyên.
//   - requestedAt nil nghĩa là "publish ngay" → lấy đúng sàn.
//   - Xác minh bắt buộc khi policy yêu cầu hoặc abuseScore >= verifyThreshold;
//     xác minh chỉ chặn publish, không bao giờ kéo dài trễ.
func ComputeEffectiveDelay(policy *contentmodels.DelayPolicy, override *contentmodels.DelayOverride, abuseScore float64, nowMs int64, requestedAtMs *int64) EffectiveDelay {
	delayHours := policy.DelayHours
	if override != nil {
		delayHours = override.DelayHours
	}

	minimum := nowMs + int64(delayHours*float64(MillisPerHour))
	effective := minimum
	if requestedAtMs != nil && *requestedAtMs > minimum {
		effective = *requestedAtMs
	}

	requiresVerification := policy.RequiresVerification || abuseScore >= policy.VerifyThreshold
	method := policy.VerificationMethod
	if method == "" {
		method = contentmodels.VerificationMethodNone
	}
	if requiresVerification && method == contentmodels.VerificationMethodNone {
		// Policy bắt xác minh nhưng không khai báo phương thức → admin duyệt tay
		method = contentmodels.VerificationMethodAdmin
	}

	return EffectiveDelay{
		MinimumPublishAt:     minimum,
		EffectivePublishAt:   effective,
		RequiresVerification: requiresVerification,
		VerificationMethod:   method,
	}
}

// DelayPolicyService service quản lý chính sách trễ theo loại nội dung
type DelayPolicyService struct {
	*basesvc.BaseServiceMongoImpl[contentmodels.DelayPolicy]
}

// NewDelayPolicyService tạo mới DelayPolicyService
func NewDelayPolicyService() (*DelayPolicyService, error) {
	collection, exists := global.RegistryCollections.Get(global.MongoDB_ColNames.ContentDelayPolicies)
	if !exists {
		return nil, fmt.Errorf("failed to get content_delay_policies collection: %v", common.ErrNotFound)
	}
	return &DelayPolicyService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[contentmodels.DelayPolicy](collection),
	}, nil
}

// FindByKind lấy chính sách trễ của một loại nội dung
func (s *DelayPolicyService) FindByKind(ctx context.Context, kind string) (contentmodels.DelayPolicy, error) {
	return s.FindOne(ctx, bson.M{"kind": kind}, nil)
}

// DelayOverrideService service quản lý override trễ theo từng item
type DelayOverrideService struct {
	*basesvc.BaseServiceMongoImpl[contentmodels.DelayOverride]
}

// NewDelayOverrideService tạo mới DelayOverrideService
func NewDelayOverrideService() (*DelayOverrideService, error) {
	collection, exists := global.RegistryCollections.Get(global.MongoDB_ColNames.ContentDelayOverrides)
	if !exists {
		return nil, fmt.Errorf("failed to get content_delay_overrides collection: %v", common.ErrNotFound)
	}
	return &DelayOverrideService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[contentmodels.DelayOverride](collection),
	}, nil
}

// FindByContentID lấy override trễ của một content item (nếu có)
func (s *DelayOverrideService) FindByContentID(ctx context.Context, contentID primitive.ObjectID) (contentmodels.DelayOverride, error) {
	return s.FindOne(ctx, bson.M{"contentId": contentID}, nil)
}

// DelayResolver gom policy + override + điểm abuse của item thành trễ hiệu lực
type DelayResolver struct {
	policyService   *DelayPolicyService
	overrideService *DelayOverrideService
}

// NewDelayResolver tạo mới DelayResolver
func NewDelayResolver() (*DelayResolver, error) {
	policyService, err := NewDelayPolicyService()
	if err != nil {
		return nil, err
	}
	overrideService, err := NewDelayOverrideService()
	if err != nil {
		return nil, err
	}
	return &DelayResolver{
		policyService:   policyService,
		overrideService: overrideService,
	}, nil
}

// Resolve tính trễ hiệu lực cho một content item tại thời điểm nowMs.
// Không tìm thấy policy cho kind → dùng trễ mặc định trong config server.
// Override trỏ tới item không tồn tại đã bị chặn từ tầng ghi, ở đây chỉ đọc.
func (r *DelayResolver) Resolve(ctx context.Context, item *contentmodels.ContentItem, nowMs int64, requestedAtMs *int64) (EffectiveDelay, error) {
	policy, err := r.policyService.FindByKind(ctx, item.Kind)
	if err != nil {
		if err != common.ErrNotFound {
			return EffectiveDelay{}, err
		}
		// Fallback khi chưa seed policy: lấy mặc định từ config
		policy = defaultPolicyForKind(item.Kind)
	}

	var override *contentmodels.DelayOverride
	found, err := r.overrideService.FindByContentID(ctx, item.ID)
	if err == nil {
		override = &found
	} else if err != common.ErrNotFound {
		return EffectiveDelay{}, err
	}

	return ComputeEffectiveDelay(&policy, override, item.AbuseScore, nowMs, requestedAtMs), nil
}

// defaultPolicyForKind dựng policy in-memory từ config khi collection chưa được seed
func defaultPolicyForKind(kind string) contentmodels.DelayPolicy {
	cfg := global.MongoDB_ServerConfig
	delayHours := float64(cfg.DefaultPostDelayHours)
	if kind == contentmodels.ContentKindComment {
		delayHours = float64(cfg.DefaultCommentDelayHours)
	}
	return contentmodels.DelayPolicy{
		Kind:               kind,
		DelayHours:         delayHours,
		VerificationMethod: contentmodels.VerificationMethodNone,
		FlagThreshold:      cfg.AbuseFlagThreshold,
		VerifyThreshold:    cfg.AbuseVerifyThreshold,
	}
}
