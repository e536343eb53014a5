// Package vectormath 提供稀疏向量（map 表示）的相似度计算。
// 协同过滤（用户行为向量）与内容推荐（TF-IDF 词项向量）共用同一套实现，
// 保证两条链路的余弦语义一致。
package vectormath

import "math"

// Dot 计算两个稀疏向量的点积。
func Dot(a, b map[string]float64) float64 {
	// 遍历较小的向量
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, va := range a {
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	return dot
}

// Norm 计算稀疏向量的 L2 范数。
func Norm(a map[string]float64) float64 {
	var sum float64
	for _, v := range a {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Cosine 计算两个稀疏向量的余弦相似度：dot / (‖a‖·‖b‖)。
// 任一向量为零向量时返回 0（零范数用户/物品被排除在相似度计算之外）。
func Cosine(a, b map[string]float64) float64 {
	normA := Norm(a)
	normB := Norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return Dot(a, b) / (normA * normB)
}
