package model

import (
	"math"
	"strings"
	"unicode"

	"github.com/rushteam/shoprec/core"
)

// stopwords 是英文停用词表的精简子集，够用即可。
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "were": {}, "will": {}, "with": {}, "you": {}, "your": {},
	"this": {}, "these": {}, "our": {},
}

// ContentIndex 是商品内容的 TF-IDF 索引：每个商品一个词项-权重向量，
// 由标题+描述（外加类别词）分词得到。
//
// 词表与文档频率在构建时冻结：构建后出现的新词在查询中权重为零，
// 周期内不做增量词表扩张。
type ContentIndex struct {
	vectors map[string]map[string]float64 // productID -> term -> weight
	docFreq map[string]int                // term -> 含该词的文档数
	numDocs int
}

// BuildContentIndex 从目录全量构建内容索引。
func BuildContentIndex(products []*core.Product) *ContentIndex {
	idx := &ContentIndex{
		vectors: make(map[string]map[string]float64, len(products)),
		docFreq: make(map[string]int),
		numDocs: len(products),
	}

	// 第一遍：词频与文档频率
	termCounts := make(map[string]map[string]int, len(products))
	for _, p := range products {
		if p == nil || p.ID == "" {
			continue
		}
		counts := termCount(tokenize(p.Title + " " + p.Category + " " + p.Description))
		termCounts[p.ID] = counts
		for term := range counts {
			idx.docFreq[term]++
		}
	}

	// 第二遍：TF-IDF 权重
	for pid, counts := range termCounts {
		vec := make(map[string]float64, len(counts))
		for term, tf := range counts {
			vec[term] = float64(tf) * idx.idf(term)
		}
		idx.vectors[pid] = vec
	}
	return idx
}

// idf = ln(N/df) + 1。df == N 时权重为 1（常见词被压低但不归零），
// 词表外的词 df == 0，权重为 0。
func (idx *ContentIndex) idf(term string) float64 {
	df := idx.docFreq[term]
	if df == 0 || idx.numDocs == 0 {
		return 0
	}
	return math.Log(float64(idx.numDocs)/float64(df)) + 1
}

// Vector 返回某商品的词项向量；不在索引中返回 nil。
// 返回值是内部数据，调用方只读。
func (idx *ContentIndex) Vector(productID string) map[string]float64 {
	return idx.vectors[productID]
}

// Products 返回索引中全部商品 ID（无序）。
func (idx *ContentIndex) Products() []string {
	out := make([]string, 0, len(idx.vectors))
	for pid := range idx.vectors {
		out = append(out, pid)
	}
	return out
}

// VocabularySize 返回冻结词表的大小。
func (idx *ContentIndex) VocabularySize() int { return len(idx.docFreq) }

// NumDocs 返回构建时的文档数。
func (idx *ContentIndex) NumDocs() int { return idx.numDocs }

// tokenize 将文本切分为小写词项：非字母数字为分隔符，
// 丢弃长度 < 2 的词与停用词。
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

func termCount(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}
