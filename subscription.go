// Hierarchical cancellation scopes for rxswitch
// 层级式订阅（取消作用域）：父作用域取消时所有子作用域随之取消
package rxswitch

import (
	"sync"

	"go.uber.org/atomic"
)

// CompositeSubscription 组合式订阅，是一棵取消作用域树中的一个节点。
//
// 取消一个节点时，先把它从父节点上摘下，再深度优先取消所有子节点，最后按注册顺序
// 执行它自己的teardown。每个teardown恰好执行一次。
//
// 取消只阻止此后开始的投递：另一个goroutine上已经通过存活检查、正在进行中的一次投递
// 不会被打断，所以Unsubscribe返回后最多还可能有一个在途通知到达下游。需要严格截断的
// 调用方应在同一个goroutine上串行化投递与取消。
type CompositeSubscription struct {
	mu           sync.Mutex
	unsubscribed atomic.Bool
	parent       *CompositeSubscription
	children     []*CompositeSubscription
	teardowns    []func()
}

// NewCompositeSubscription 创建新的根作用域
func NewCompositeSubscription() *CompositeSubscription {
	return &CompositeSubscription{}
}

// EmptySubscription 返回一个已经取消的作用域
func EmptySubscription() *CompositeSubscription {
	s := &CompositeSubscription{}
	s.unsubscribed.Store(true)
	return s
}

// Child 创建子作用域，父作用域已取消时子作用域生来即已取消
func (s *CompositeSubscription) Child() *CompositeSubscription {
	child := &CompositeSubscription{parent: s}

	s.mu.Lock()
	if s.unsubscribed.Load() {
		s.mu.Unlock()
		child.unsubscribed.Store(true)
		return child
	}
	s.children = append(s.children, child)
	s.mu.Unlock()

	return child
}

// Add 注册teardown；作用域已取消时立即执行
func (s *CompositeSubscription) Add(teardown func()) {
	if teardown == nil {
		return
	}

	s.mu.Lock()
	if s.unsubscribed.Load() {
		s.mu.Unlock()
		teardown()
		return
	}
	s.teardowns = append(s.teardowns, teardown)
	s.mu.Unlock()
}

// AddSubscription 把任意Subscription绑定到当前作用域
func (s *CompositeSubscription) AddSubscription(subscription Subscription) {
	if subscription == nil {
		return
	}
	s.Add(subscription.Unsubscribe)
}

// Unsubscribe 取消订阅，可重复调用
func (s *CompositeSubscription) Unsubscribe() {
	s.mu.Lock()
	if !s.unsubscribed.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return
	}
	children := s.children
	teardowns := s.teardowns
	s.children = nil
	s.teardowns = nil
	parent := s.parent
	s.parent = nil
	s.mu.Unlock()

	if parent != nil {
		parent.removeChild(s)
	}

	for _, child := range children {
		child.Unsubscribe()
	}
	for _, teardown := range teardowns {
		teardown()
	}
}

// IsUnsubscribed 检查是否已取消订阅
func (s *CompositeSubscription) IsUnsubscribed() bool {
	return s.unsubscribed.Load()
}

// Dispose 实现Disposable
func (s *CompositeSubscription) Dispose() {
	s.Unsubscribe()
}

// IsDisposed 实现Disposable
func (s *CompositeSubscription) IsDisposed() bool {
	return s.IsUnsubscribed()
}

// ChildCount 返回当前仍然存活的子作用域数量
func (s *CompositeSubscription) ChildCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.children)
}

func (s *CompositeSubscription) removeChild(child *CompositeSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}
