// Factory functions for rxswitch
// 工厂函数，提供符合Go习惯的API设计
package rxswitch

import (
	"time"
)

// ============================================================================
// 基础工厂函数
// ============================================================================

// Create 用发射函数创建Observable
func Create(emitter func(subscriber *Subscriber), options ...Option) Observable {
	return NewObservable(emitter, options...)
}

// Just 从给定的值创建Observable，订阅时同步发射
func Just(values ...interface{}) Observable {
	return FromSlice(values)
}

// FromSlice 从切片创建Observable
func FromSlice(slice []interface{}, options ...Option) Observable {
	return NewObservable(func(subscriber *Subscriber) {
		for _, value := range slice {
			if subscriber.IsUnsubscribed() {
				return
			}
			subscriber.OnNext(value)
		}
		subscriber.OnComplete()
	}, options...)
}

// Empty 创建一个空的Observable，立即完成
func Empty() Observable {
	return NewObservable(func(subscriber *Subscriber) {
		subscriber.OnComplete()
	})
}

// Never 创建一个永不发射任何通知的Observable
func Never() Observable {
	return NewObservable(func(subscriber *Subscriber) {})
}

// Error 创建一个立即发射错误的Observable
func Error(err error) Observable {
	return NewObservable(func(subscriber *Subscriber) {
		subscriber.OnError(err)
	})
}

// Range 创建发射指定范围整数的Observable
func Range(start, count int) Observable {
	return NewObservable(func(subscriber *Subscriber) {
		for i := 0; i < count; i++ {
			if subscriber.IsUnsubscribed() {
				return
			}
			subscriber.OnNext(start + i)
		}
		subscriber.OnComplete()
	})
}

// ============================================================================
// 异步数据源
// ============================================================================

// FromChannel 从Go channel创建Observable，channel关闭时完成
func FromChannel(ch <-chan interface{}, options ...Option) Observable {
	return NewObservable(func(subscriber *Subscriber) {
		done := make(chan struct{})
		subscriber.Subscription().Add(func() { close(done) })

		go func() {
			for {
				select {
				case <-done:
					return
				case value, ok := <-ch:
					if !ok {
						subscriber.OnComplete()
						return
					}
					subscriber.OnNext(value)
				}
			}
		}()
	}, options...)
}

// Interval 创建定期发射递增整数的Observable
func Interval(period time.Duration) Observable {
	return NewObservable(func(subscriber *Subscriber) {
		ticker := time.NewTicker(period)
		done := make(chan struct{})
		subscriber.Subscription().Add(func() {
			ticker.Stop()
			close(done)
		})

		go func() {
			counter := 0
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					subscriber.OnNext(counter)
					counter++
				}
			}
		}()
	})
}

// Timer 创建在指定延迟后发射0并完成的Observable
func Timer(delay time.Duration) Observable {
	return NewObservable(func(subscriber *Subscriber) {
		timer := time.AfterFunc(delay, func() {
			subscriber.OnNext(0)
			subscriber.OnComplete()
		})
		subscriber.Subscription().Add(func() { timer.Stop() })
	})
}
