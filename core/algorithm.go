package core

// Algorithm 是推荐策略的封闭枚举。
// 服务层按枚举分发到对应的召回源，避免字符串判断散落在各调用点。
type Algorithm string

const (
	AlgorithmHybrid        Algorithm = "hybrid"        // 协同+内容加权融合（默认）
	AlgorithmCollaborative Algorithm = "collaborative" // 基于用户的协同过滤
	AlgorithmContent       Algorithm = "content"       // 基于内容（TF-IDF）
	AlgorithmPopular       Algorithm = "popular"       // 流行度排序
)

// ParseAlgorithm 解析算法名；空串回落到 hybrid，未知名称返回 VALIDATION 错误。
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgorithmHybrid, AlgorithmCollaborative, AlgorithmContent, AlgorithmPopular:
		return Algorithm(s), nil
	case "":
		return AlgorithmHybrid, nil
	}
	return "", NewValidationError(ModuleService, "algorithm", "unknown algorithm: "+s)
}
