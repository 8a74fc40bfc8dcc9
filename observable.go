// Observable implementation for rxswitch
// Observable核心实现：订阅、操作符提升与基础操作符
package rxswitch

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ============================================================================
// Observable 核心接口
// ============================================================================

// Operator 操作符：接收下游订阅者，返回安装到上游的订阅者
type Operator func(downstream *Subscriber) *Subscriber

// Observable 可观察序列的核心接口
type Observable interface {
	// SubscribeWith 把订阅者安装到该流上
	SubscribeWith(subscriber *Subscriber)

	// Subscribe 订阅观察者
	Subscribe(observer Observer) Subscription

	// SubscribeWithCallbacks 使用回调函数订阅
	SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Subscription

	// SubscribeOn 指定订阅时使用的调度器
	SubscribeOn(scheduler Scheduler) Observable

	// ObserveOn 指定观察时使用的调度器
	ObserveOn(scheduler Scheduler) Observable

	// Lift 用操作符构造新的Observable
	Lift(operator Operator) Observable

	// 转换操作符
	Map(transformer Transformer) Observable
	Filter(predicate Predicate) Observable
	Take(count int) Observable
	DoOnNext(action OnNext) Observable

	// 切换操作符
	SwitchOnNext(options ...Option) Observable
	SwitchMap(project func(interface{}) Observable, options ...Option) Observable

	// 阻塞操作
	BlockingSubscribe(observer Observer)
	ToSlice(ctx context.Context) ([]interface{}, error)
}

// ============================================================================
// Observable 核心实现
// ============================================================================

// observableImpl Observable的核心实现
type observableImpl struct {
	source func(subscriber *Subscriber)
	config *Config
}

// NewObservable 创建新的Observable
func NewObservable(source func(subscriber *Subscriber), options ...Option) Observable {
	return &observableImpl{
		source: source,
		config: newConfig(options),
	}
}

// derive 基于当前配置创建新的Observable，调度器只作用于最初的数据源
func (o *observableImpl) derive(source func(subscriber *Subscriber)) Observable {
	config := *o.config
	config.Scheduler = NewImmediateScheduler()
	return &observableImpl{
		source: source,
		config: &config,
	}
}

// SubscribeWith 把订阅者安装到该流上。
//
// source在Config.Scheduler上执行，默认的立即调度器在当前goroutine中同步执行；
// source中的panic会转换为错误通知。
func (o *observableImpl) SubscribeWith(subscriber *Subscriber) {
	if subscriber.IsUnsubscribed() {
		return
	}

	bindContext(o.config.Context, subscriber.Subscription())

	disposable := o.config.Scheduler.Schedule(func() {
		if subscriber.IsUnsubscribed() {
			return
		}
		if err := SafeExecute(func() { o.source(subscriber) }); err != nil {
			o.config.Logger.Debug("observable source panicked", zap.Error(err))
			subscriber.OnError(err)
		}
	})
	subscriber.Subscription().Add(disposable.Dispose)
}

// bindContext ctx取消时取消scope
func bindContext(ctx context.Context, scope *CompositeSubscription) {
	if ctx == nil || ctx.Done() == nil {
		return
	}
	stop := context.AfterFunc(ctx, scope.Unsubscribe)
	scope.Add(func() { stop() })
}

// Subscribe 订阅观察者
func (o *observableImpl) Subscribe(observer Observer) Subscription {
	subscriber := NewObserverSubscriber(nil, observer)
	o.SubscribeWith(subscriber)
	return subscriber.Subscription()
}

// SubscribeWithCallbacks 使用回调函数订阅
func (o *observableImpl) SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Subscription {
	subscriber := NewSubscriber(nil, onNext, onError, onComplete)
	o.SubscribeWith(subscriber)
	return subscriber.Subscription()
}

// Lift 用操作符构造新的Observable
func (o *observableImpl) Lift(operator Operator) Observable {
	return o.derive(func(downstream *Subscriber) {
		upstream := operator(downstream)
		if upstream == nil {
			return
		}
		o.SubscribeWith(upstream)
	})
}

// SubscribeOn 指定订阅时使用的调度器
func (o *observableImpl) SubscribeOn(scheduler Scheduler) Observable {
	return o.derive(func(subscriber *Subscriber) {
		disposable := scheduler.Schedule(func() {
			o.SubscribeWith(subscriber)
		})
		subscriber.Subscription().Add(disposable.Dispose)
	})
}

// ObserveOn 指定观察时使用的调度器，同一订阅的通知按顺序逐个投递
func (o *observableImpl) ObserveOn(scheduler Scheduler) Observable {
	return o.Lift(func(downstream *Subscriber) *Subscriber {
		queue := newSerialQueue(scheduler, downstream.Call, o.config.BufferSize)
		return NewSubscriber(downstream.Subscription().Child(),
			func(value interface{}) { queue.push(CreateItem(value)) },
			func(err error) { queue.push(CreateErrorItem(err)) },
			func() { queue.push(CreateCompleteItem()) },
		)
	})
}

// ============================================================================
// 转换操作符
// ============================================================================

// Map 转换操作符，转换函数返回错误时终止流
func (o *observableImpl) Map(transformer Transformer) Observable {
	return o.Lift(func(downstream *Subscriber) *Subscriber {
		return NewSubscriber(downstream.Subscription().Child(),
			func(value interface{}) {
				result, err := transformer(value)
				if err != nil {
					downstream.OnError(err)
					return
				}
				downstream.OnNext(result)
			},
			downstream.OnError,
			downstream.OnComplete,
		)
	})
}

// Filter 过滤操作符
func (o *observableImpl) Filter(predicate Predicate) Observable {
	return o.Lift(func(downstream *Subscriber) *Subscriber {
		return NewSubscriber(downstream.Subscription().Child(),
			func(value interface{}) {
				if predicate(value) {
					downstream.OnNext(value)
				}
			},
			downstream.OnError,
			downstream.OnComplete,
		)
	})
}

// Take 取前N个元素，然后完成并取消上游
func (o *observableImpl) Take(count int) Observable {
	return o.Lift(func(downstream *Subscriber) *Subscriber {
		if count <= 0 {
			downstream.OnComplete()
			return nil
		}

		taken := 0
		return NewSubscriber(downstream.Subscription().Child(),
			func(value interface{}) {
				taken++
				downstream.OnNext(value)
				if taken == count {
					downstream.OnComplete()
				}
			},
			downstream.OnError,
			downstream.OnComplete,
		)
	})
}

// DoOnNext 在每个值发射前执行副作用
func (o *observableImpl) DoOnNext(action OnNext) Observable {
	return o.Lift(func(downstream *Subscriber) *Subscriber {
		return NewSubscriber(downstream.Subscription().Child(),
			func(value interface{}) {
				action(value)
				downstream.OnNext(value)
			},
			downstream.OnError,
			downstream.OnComplete,
		)
	})
}

// ============================================================================
// 阻塞操作
// ============================================================================

// BlockingSubscribe 阻塞订阅，直到终止或被取消
func (o *observableImpl) BlockingSubscribe(observer Observer) {
	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	subscriber := NewObserverSubscriber(nil, observer)
	subscriber.Subscription().Add(finish)
	o.SubscribeWith(subscriber)

	<-done
}

// ToSlice 收集所有值，直到完成、出错或ctx被取消
func (o *observableImpl) ToSlice(ctx context.Context) ([]interface{}, error) {
	var (
		mu     sync.Mutex
		values []interface{}
		result error
	)
	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	subscriber := NewSubscriber(nil,
		func(value interface{}) {
			mu.Lock()
			values = append(values, value)
			mu.Unlock()
		},
		func(err error) {
			mu.Lock()
			result = err
			mu.Unlock()
		},
		nil,
	)
	subscriber.Subscription().Add(finish)
	o.SubscribeWith(subscriber)

	select {
	case <-done:
	case <-ctx.Done():
		subscriber.Unsubscribe()
		return nil, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return values, result
}

// ============================================================================
// 串行投递队列
// ============================================================================

// serialQueue 保证同一订阅的通知在调度器上逐个、按序投递
type serialQueue struct {
	mu        sync.Mutex
	items     []Item
	draining  bool
	scheduler Scheduler
	target    Observer
}

func newSerialQueue(scheduler Scheduler, target Observer, capacity int) *serialQueue {
	return &serialQueue{
		items:     make([]Item, 0, capacity),
		scheduler: scheduler,
		target:    target,
	}
}

func (q *serialQueue) push(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	q.scheduler.Schedule(q.drain)
}

func (q *serialQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.target(item)
	}
}
