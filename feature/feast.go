// Package feature 提供冷启动用户画像的外部补充源。
//
// 全新用户没有任何行为，混合策略会降级到流行度榜单；如果部署了
// Feast Feature Store（离线算好的类目偏好灌入在线存储），服务层可以
// 在兜底之上按类目偏好微调榜单排序，让冷启动结果不至于千人一面。
package feature

import (
	"context"
	"fmt"
	"strings"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"
)

// ProfileLoader 提供用户的类目偏好画像：category → weight（0-1）。
// 查不到画像时返回空 map，而不是错误。
type ProfileLoader interface {
	CategoryPreferences(ctx context.Context, userID string) (map[string]float64, error)
	Close() error
}

// FeastProfileLoader 是基于官方 Feast Go SDK 的 ProfileLoader 实现。
//
// 特征命名约定："<feature_view>:pref_<category>"，
// 例如 "user_profile:pref_electronics" → category "electronics"。
type FeastProfileLoader struct {
	client    *feastsdk.GrpcClient
	project   string
	features  []string
	entityKey string
}

// NewFeastProfileLoader 连接 Feast Feature Server。
// port 为 0 时使用默认 gRPC 端口 6565；entityKey 固定为 "user_id"。
func NewFeastProfileLoader(host string, port int, project string, features []string) (*FeastProfileLoader, error) {
	if port == 0 {
		port = 6565
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("feature: no feast features configured")
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feature: feast grpc client: %w", err)
	}
	return &FeastProfileLoader{
		client:    client,
		project:   project,
		features:  features,
		entityKey: "user_id",
	}, nil
}

var _ ProfileLoader = (*FeastProfileLoader)(nil)

func (l *FeastProfileLoader) CategoryPreferences(ctx context.Context, userID string) (map[string]float64, error) {
	req := feastsdk.OnlineFeaturesRequest{
		Features: l.features,
		Entities: []feastsdk.Row{
			{l.entityKey: feastsdk.StrVal(userID)},
		},
		Project: l.project,
	}

	resp, err := l.client.GetOnlineFeatures(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("feature: feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return map[string]float64{}, nil
	}

	prefs := make(map[string]float64, len(l.features))
	for _, featureName := range l.features {
		val, ok := rows[0][featureName]
		if !ok {
			continue
		}
		weight, ok := valueToFloat(val)
		if !ok || weight <= 0 {
			continue
		}
		prefs[categoryOf(featureName)] = weight
	}
	return prefs, nil
}

func (l *FeastProfileLoader) Close() error {
	// 官方 SDK 的 gRPC 连接由库自身管理，这里只释放引用
	l.client = nil
	return nil
}

// categoryOf 从特征名提取类目："user_profile:pref_electronics" → "electronics"。
func categoryOf(featureName string) string {
	name := featureName
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "pref_")
}

// valueToFloat 从 Feast protobuf Value 提取数值特征。
func valueToFloat(v *feasttypes.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch x := v.GetVal().(type) {
	case *feasttypes.Value_DoubleVal:
		return x.DoubleVal, true
	case *feasttypes.Value_FloatVal:
		return float64(x.FloatVal), true
	case *feasttypes.Value_Int64Val:
		return float64(x.Int64Val), true
	case *feasttypes.Value_Int32Val:
		return float64(x.Int32Val), true
	}
	return 0, false
}
