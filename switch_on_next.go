// SwitchOnNext operator for rxswitch
// 切换到最新流：只转发最近一次发射的内层流的数据
package rxswitch

import (
	"go.uber.org/zap"
)

// SwitchOnNextOperator 返回SwitchOnNext操作符。
//
// 外层流的每个值都必须是Observable。每当外层流发射新的内层流时，先前的内层订阅被取消，
// 之后只有新的内层流的值会转发给下游。外层流与当前内层流都完成后，下游恰好收到一次完成通知。
// 任何一侧的错误都会立即原样转发给下游并终止整个组合。
//
// WithLogger设置日志；WithContext取消时整个组合随之取消；WithScheduler决定在哪个调度器上
// 订阅内层流。WithBufferSize只对ObserveOn有意义，这里不使用。
func SwitchOnNextOperator(options ...Option) Operator {
	config := newConfig(options)
	logger := config.Logger.With(zap.String("operator", "switch_on_next"))

	return func(downstream *Subscriber) *Subscriber {
		bindContext(config.Context, downstream.Subscription())
		upstream, _ := newSwitchSubscriber(downstream, config.Scheduler, logger)
		return upstream
	}
}

// newSwitchSubscriber 创建共享状态并返回安装到外层流上的订阅者
func newSwitchSubscriber(downstream *Subscriber, scheduler Scheduler, logger *zap.Logger) (*Subscriber, *switchRef) {
	state := newSwitchState(downstream, scheduler, logger)
	ref := newSwitchRef(state)

	outer := downstream.Subscription().Child()
	outer.Add(ref.release)

	return NewSubscriber(outer,
		func(value interface{}) { state.switchTo(ref, value) },
		downstream.OnError,
		state.onOuterComplete,
	), ref
}

// SwitchOnNext 把发射Observable的外层流展开为只跟随最新内层流的流
func SwitchOnNext(outer Observable, options ...Option) Observable {
	return outer.Lift(SwitchOnNextOperator(options...))
}

// SwitchOnNext 切换到最新的内层流
func (o *observableImpl) SwitchOnNext(options ...Option) Observable {
	return o.Lift(SwitchOnNextOperator(options...))
}

// SwitchMap 把每个值映射为Observable，然后只跟随最新的那一个
func (o *observableImpl) SwitchMap(project func(interface{}) Observable, options ...Option) Observable {
	return o.Map(func(value interface{}) (interface{}, error) {
		return project(value), nil
	}).SwitchOnNext(options...)
}
