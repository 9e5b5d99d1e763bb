package cache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter 记录曾经持久化过的短码。
//
// 用在 Generator 的存在性检查上：新分配的 ID 编码出的短码绝大多数
// 从未出现过，MightExist 返回 false 就能跳过一次数据库查询。
// 误判只会导致多查一次库，不影响正确性。
type BloomFilter struct {
	filter *bloom.BloomFilter
	mu     sync.RWMutex
}

// NewBloomFilter 构造布隆过滤器。
// expectedItems：预期短码总量；falsePositiveRate：误判率（建议 0.01）。
func NewBloomFilter(expectedItems uint, falsePositiveRate float64) *BloomFilter {
	return &BloomFilter{
		filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate),
	}
}

func (b *BloomFilter) Add(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter.AddString(code)
}

// MightExist 返回 false 表示短码一定没被占用过；true 表示可能占用（有误判率）。
func (b *BloomFilter) MightExist(code string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.TestString(code)
}
