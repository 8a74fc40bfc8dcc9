// Subscriber implementation for rxswitch
// 订阅者：把观察者回调绑定到一个取消作用域上
package rxswitch

import (
	"go.uber.org/atomic"
)

// Subscriber 订阅者，持有自己的取消作用域。
//
// 作用域取消后不再转发任何通知；OnError/OnComplete最多只会有一个被转发，
// 终止回调返回后作用域会被自动取消。
type Subscriber struct {
	subscription *CompositeSubscription
	onNext       OnNext
	onError      OnError
	onComplete   OnComplete
	terminated   atomic.Bool
}

// NewSubscriber 创建订阅者，subscription为nil时创建新的根作用域
func NewSubscriber(subscription *CompositeSubscription, onNext OnNext, onError OnError, onComplete OnComplete) *Subscriber {
	if subscription == nil {
		subscription = NewCompositeSubscription()
	}
	return &Subscriber{
		subscription: subscription,
		onNext:       onNext,
		onError:      onError,
		onComplete:   onComplete,
	}
}

// NewObserverSubscriber 用Observer函数创建订阅者
func NewObserverSubscriber(subscription *CompositeSubscription, observer Observer) *Subscriber {
	return NewSubscriber(subscription,
		func(value interface{}) { observer(CreateItem(value)) },
		func(err error) { observer(CreateErrorItem(err)) },
		func() { observer(CreateCompleteItem()) },
	)
}

// Subscription 返回订阅者的取消作用域
func (s *Subscriber) Subscription() *CompositeSubscription {
	return s.subscription
}

// IsUnsubscribed 检查是否已取消订阅或已终止
func (s *Subscriber) IsUnsubscribed() bool {
	return s.terminated.Load() || s.subscription.IsUnsubscribed()
}

// Unsubscribe 取消订阅
func (s *Subscriber) Unsubscribe() {
	s.subscription.Unsubscribe()
}

// OnNext 发送下一个值；作用域在检查之后被并发取消时，这一个值仍会送达
func (s *Subscriber) OnNext(value interface{}) {
	if s.IsUnsubscribed() {
		return
	}
	if s.onNext != nil {
		s.onNext(value)
	}
}

// OnError 发送错误
func (s *Subscriber) OnError(err error) {
	if !s.terminate() {
		return
	}
	defer s.subscription.Unsubscribe()

	if s.onError != nil {
		s.onError(err)
	}
}

// OnComplete 发送完成信号
func (s *Subscriber) OnComplete() {
	if !s.terminate() {
		return
	}
	defer s.subscription.Unsubscribe()

	if s.onComplete != nil {
		s.onComplete()
	}
}

// Call 实现Observer函数类型
func (s *Subscriber) Call(item Item) {
	switch {
	case item.IsError():
		s.OnError(item.Error)
	case item.IsComplete():
		s.OnComplete()
	default:
		s.OnNext(item.Value)
	}
}

// AsObserver 返回Observer函数
func (s *Subscriber) AsObserver() Observer {
	return s.Call
}

// terminate 抢占唯一的终止通知权
func (s *Subscriber) terminate() bool {
	if s.subscription.IsUnsubscribed() {
		return false
	}
	return s.terminated.CompareAndSwap(false, true)
}
