// Unit counter for rxswitch
// 未结束单元计数：外层流与激活的内层流各占一个单元
package rxswitch

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
)

// unitCounter 统计组合流中尚未结束的单元数量。
//
// 一个单元要么是"外层流还没有完成"，要么是"某个内层流仍然处于激活状态、尚未被拆除"。
// 计数从1开始（外层单元），归零恰好发生一次。
type unitCounter struct {
	pending atomic.Int64
}

func newUnitCounter() *unitCounter {
	c := &unitCounter{}
	c.pending.Store(1)
	return c
}

// RegisterUnit 登记一个新的单元
func (c *unitCounter) RegisterUnit() {
	c.pending.Inc()
}

// RetireUnit 注销一个单元，当且仅当这是最后一个单元时返回true
func (c *unitCounter) RetireUnit() bool {
	remaining := c.pending.Dec()
	if remaining < 0 {
		panic(errors.AssertionFailedf("unit counter underflow: %d", remaining))
	}
	return remaining == 0
}

// PredictLast 在调用方自己的单元尚未注销时判断它是否是最后一个单元。
//
// 只有当此后不会再有新的单元登记时结论才成立：外层流已经完成，所以计数只能由调用方
// 自己即将发生的RetireUnit归零。
func (c *unitCounter) PredictLast() bool {
	return c.pending.Load() == 1
}

// Pending 返回当前未结束的单元数量
func (c *unitCounter) Pending() int64 {
	return c.pending.Load()
}
