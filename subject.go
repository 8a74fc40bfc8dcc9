// Subject implementations for rxswitch
// 实现PublishSubject：既是Observable又是观察者
package rxswitch

import (
	"sync"

	"go.uber.org/atomic"
)

// PublishSubject 发布主题，只向当前订阅者发送新的值。
//
// 终止之后订阅的订阅者会同步收到同样的终止通知。
type PublishSubject struct {
	Observable

	mu          sync.RWMutex
	subscribers []*Subscriber
	terminated  bool
	err         error
	disposed    atomic.Bool
}

// NewPublishSubject 创建新的发布主题
func NewPublishSubject(options ...Option) *PublishSubject {
	ps := &PublishSubject{}
	ps.Observable = NewObservable(ps.subscribe, options...)
	return ps
}

// subscribe 注册订阅者，订阅者的作用域取消时自动移除
func (ps *PublishSubject) subscribe(subscriber *Subscriber) {
	if ps.disposed.Load() {
		subscriber.Unsubscribe()
		return
	}

	ps.mu.Lock()
	if ps.terminated {
		err := ps.err
		ps.mu.Unlock()

		if err != nil {
			subscriber.OnError(err)
		} else {
			subscriber.OnComplete()
		}
		return
	}
	ps.subscribers = append(ps.subscribers, subscriber)
	ps.mu.Unlock()

	subscriber.Subscription().Add(func() {
		ps.removeSubscriber(subscriber)
	})
}

// OnNext 发送下一个值
func (ps *PublishSubject) OnNext(value interface{}) {
	for _, subscriber := range ps.snapshot(false, nil) {
		subscriber.OnNext(value)
	}
}

// OnError 发送错误
func (ps *PublishSubject) OnError(err error) {
	for _, subscriber := range ps.snapshot(true, err) {
		subscriber.OnError(err)
	}
}

// OnComplete 发送完成信号
func (ps *PublishSubject) OnComplete() {
	for _, subscriber := range ps.snapshot(true, nil) {
		subscriber.OnComplete()
	}
}

// Call 实现Observer函数类型
func (ps *PublishSubject) Call(item Item) {
	switch {
	case item.IsError():
		ps.OnError(item.Error)
	case item.IsComplete():
		ps.OnComplete()
	default:
		ps.OnNext(item.Value)
	}
}

// AsObserver 返回Observer函数
func (ps *PublishSubject) AsObserver() Observer {
	return ps.Call
}

// HasObservers 检查是否有观察者
func (ps *PublishSubject) HasObservers() bool {
	return ps.ObserverCount() > 0
}

// ObserverCount 获取观察者数量
func (ps *PublishSubject) ObserverCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers)
}

// IsDisposed 检查是否已释放
func (ps *PublishSubject) IsDisposed() bool {
	return ps.disposed.Load()
}

// Dispose 释放资源，取消所有订阅者
func (ps *PublishSubject) Dispose() {
	if !ps.disposed.CompareAndSwap(false, true) {
		return
	}

	ps.mu.Lock()
	subscribers := ps.subscribers
	ps.subscribers = nil
	ps.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber.Unsubscribe()
	}
}

// snapshot 复制当前订阅者列表；terminal为true时同时标记终止并清空列表
func (ps *PublishSubject) snapshot(terminal bool, err error) []*Subscriber {
	if ps.disposed.Load() {
		return nil
	}

	if !terminal {
		ps.mu.RLock()
		defer ps.mu.RUnlock()
		if ps.terminated {
			return nil
		}
		subscribers := make([]*Subscriber, len(ps.subscribers))
		copy(subscribers, ps.subscribers)
		return subscribers
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.terminated {
		return nil
	}
	ps.terminated = true
	ps.err = err
	subscribers := ps.subscribers
	ps.subscribers = nil
	return subscribers
}

// removeSubscriber 移除订阅者
func (ps *PublishSubject) removeSubscriber(subscriber *Subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, s := range ps.subscribers {
		if s == subscriber {
			ps.subscribers = append(ps.subscribers[:i], ps.subscribers[i+1:]...)
			return
		}
	}
}
