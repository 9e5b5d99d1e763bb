package shortener

import "sync/atomic"

// Allocator 产生严格递增的短链 ID 序列。
//
// 设计原因：
// - ID 序列是进程级共享可变状态：显式做成一个对象注入给 Generator，
//   而不是藏在包级全局变量里（便于测试，也便于以后换成号段/雪花方案）
// - atomic.Uint64 保证并发调用下每个调用者拿到的值互不相同且单调递增
//
// 前 offset 个值保留不用（默认 1000，与历史数据兼容），offset 在 Allocator
// 生命周期内固定。uint64 溢出不在本层处理：按当前分配速率不可能到达。
type Allocator struct {
	next atomic.Uint64
}

// NewAllocator 构造分配器，第一次 Next() 返回 offset+1。
func NewAllocator(offset uint64) *Allocator {
	a := &Allocator{}
	a.next.Store(offset)
	return a
}

func (a *Allocator) Next() uint64 {
	return a.next.Add(1)
}
