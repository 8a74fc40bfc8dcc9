// Shared state of the switch-on-next operator
// SwitchOnNext的共享状态：单元计数器与当前内层作用域
package rxswitch

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// switchState 一次SwitchOnNext订阅的共享状态。
//
// units由外层路径与内层拆除路径并发访问，只通过原子操作修改；currentInner只在
// 外层OnNext中被替换，外层通知按上游约定是串行的。被替换的内层流如果与切换并发投递，
// 已在途的那一个值仍可能到达下游（见CompositeSubscription）。
type switchState struct {
	units        *unitCounter
	currentInner *CompositeSubscription
	downstream   *Subscriber
	scheduler    Scheduler
	logger       *zap.Logger
	switches     atomic.Int64
}

// innerUnit 一个内层流的单元
type innerUnit struct {
	id        int64
	completed atomic.Bool
	predicted atomic.Bool
}

func newSwitchState(downstream *Subscriber, scheduler Scheduler, logger *zap.Logger) *switchState {
	if scheduler == nil {
		scheduler = NewImmediateScheduler()
	}
	return &switchState{
		units:        newUnitCounter(),
		currentInner: EmptySubscription(),
		downstream:   downstream,
		scheduler:    scheduler,
		logger:       logger,
	}
}

// switchTo 外层流发射了新的内层流
func (s *switchState) switchTo(ref *switchRef, value interface{}) {
	inner, ok := value.(Observable)
	if !ok {
		s.downstream.OnError(errors.Wrapf(ErrNotObservable, "got %T", value))
		return
	}
	if s.downstream.IsUnsubscribed() || ref.retain() == nil {
		return
	}

	// 先登记新单元再拆除旧的内层流，被替换的内层流并发完成时不会读到计数1
	s.units.RegisterUnit()
	s.currentInner.Unsubscribe()

	scope := s.downstream.Subscription().Child()
	s.currentInner = scope
	unit := &innerUnit{id: s.switches.Inc()}
	scope.Add(func() {
		if state := ref.lookup(); state != nil {
			state.retireInner(unit)
		}
	})
	scope.Add(ref.release)

	s.logger.Debug("switched to inner stream",
		zap.Int64("inner", unit.id),
		zap.Int64("pending", s.units.Pending()),
	)

	subscriber := NewSubscriber(scope,
		s.downstream.OnNext,
		s.downstream.OnError,
		func() { s.onInnerComplete(unit) },
	)
	disposable := s.scheduler.Schedule(func() {
		// 值为nil指针的Observable（如(*PublishSubject)(nil)）在订阅时panic
		if err := SafeExecute(func() { inner.SubscribeWith(subscriber) }); err != nil {
			s.downstream.OnError(errors.Mark(errors.Wrapf(err, "subscribing to %T", value), ErrNotObservable))
		}
	})
	scope.Add(disposable.Dispose)
}

// onInnerComplete 当前内层流正常完成
func (s *switchState) onInnerComplete(unit *innerUnit) {
	unit.completed.Store(true)

	// 本单元的递减在回调返回后的teardown中执行，计数为1说明它就是归零的那一次
	if s.units.PredictLast() {
		unit.predicted.Store(true)
		s.logger.Debug("inner stream completed last", zap.Int64("inner", unit.id))
		s.downstream.OnComplete()
	}
}

// onOuterComplete 外层流完成
func (s *switchState) onOuterComplete() {
	if s.units.RetireUnit() {
		s.logger.Debug("outer stream completed last")
		s.downstream.OnComplete()
	}
}

// retireInner 内层作用域拆除时注销对应单元
func (s *switchState) retireInner(unit *innerUnit) {
	last := s.units.RetireUnit()

	switch {
	case unit.predicted.Load():
		if !last {
			s.logger.DPanic("predicted final decrement did not reach zero",
				zap.Error(errors.AssertionFailedf("inner %d retired with %d units pending", unit.id, s.units.Pending())),
			)
		}
	case last && unit.completed.Load():
		// 外层完成恰好发生在内层完成与其拆除之间
		s.logger.Debug("inner stream teardown completed last", zap.Int64("inner", unit.id))
		s.downstream.OnComplete()
	}
}

// ============================================================================
// 非拥有的回引用
// ============================================================================

// switchRef 共享状态的引用计数持有者。
//
// 外层订阅和每个内层订阅各持有一个强引用（retain/release）；注册在内层作用域上的
// 拆除动作只通过lookup做弱查找，最后一个强引用释放后lookup返回nil，拆除动作变为空操作。
type switchRef struct {
	refs  atomic.Int32
	state atomic.Pointer[switchState]
}

func newSwitchRef(state *switchState) *switchRef {
	r := &switchRef{}
	r.refs.Store(1)
	r.state.Store(state)
	return r
}

// retain 获取一个强引用，状态已释放时返回nil
func (r *switchRef) retain() *switchState {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return nil
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return r.state.Load()
		}
	}
}

// release 释放一个强引用
func (r *switchRef) release() {
	if r.refs.Dec() == 0 {
		r.state.Store(nil)
	}
}

// lookup 弱查找
func (r *switchRef) lookup() *switchState {
	return r.state.Load()
}
