// Switch state tests for rxswitch
// SwitchOnNext共享状态与回引用的测试
package rxswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSwitchRef(t *testing.T) {
	t.Run("lookup resolves until the last owner releases", func(t *testing.T) {
		state := newSwitchState(NewSubscriber(nil, nil, nil, nil), nil, zap.NewNop())
		ref := newSwitchRef(state)

		require.Same(t, state, ref.retain())
		ref.release()
		assert.Same(t, state, ref.lookup())

		ref.release()
		assert.Nil(t, ref.lookup())
	})

	t.Run("retain after release fails", func(t *testing.T) {
		ref := newSwitchRef(newSwitchState(NewSubscriber(nil, nil, nil, nil), nil, zap.NewNop()))
		ref.release()

		assert.Nil(t, ref.retain())
		assert.Nil(t, ref.lookup())
	})

	t.Run("state is released once outer and inner are torn down", func(t *testing.T) {
		outer := NewPublishSubject()
		inner := NewPublishSubject()
		r := newRecorder()
		downstream := r.subscriber()

		upstream, ref := newSwitchSubscriber(downstream, nil, zap.NewNop())
		outer.SubscribeWith(upstream)

		outer.OnNext(inner)
		outer.OnComplete()
		require.NotNil(t, ref.lookup(), "active inner keeps the state alive")

		inner.OnComplete()
		r.assertEvents(t, "completed")
		assert.Nil(t, ref.lookup())
		assert.Equal(t, 0, downstream.Subscription().ChildCount())
	})

	t.Run("downstream cancellation releases state", func(t *testing.T) {
		outer := NewPublishSubject()
		r := newRecorder()
		downstream := r.subscriber()

		upstream, ref := newSwitchSubscriber(downstream, nil, zap.NewNop())
		outer.SubscribeWith(upstream)
		outer.OnNext(NewPublishSubject())

		downstream.Unsubscribe()
		assert.Nil(t, ref.lookup())

		// 状态释放后迟到的外层通知不会产生任何效果
		outer.OnNext(NewPublishSubject())
		r.assertEvents(t)
	})
}

func TestSwitchStateTermination(t *testing.T) {
	t.Run("teardown completes when outer completion interleaves", func(t *testing.T) {
		r := newRecorder()
		state := newSwitchState(r.subscriber(), nil, zap.NewNop())
		state.units.RegisterUnit()
		unit := &innerUnit{id: 1}

		// 内层完成时外层仍然存活
		state.onInnerComplete(unit)
		r.assertEvents(t)

		// 外层在内层拆除之前完成
		state.onOuterComplete()
		r.assertEvents(t)

		state.retireInner(unit)
		r.assertEvents(t, "completed")
	})

	t.Run("predicted completion is not repeated by teardown", func(t *testing.T) {
		r := newRecorder()
		downstream := NewSubscriber(NewCompositeSubscription(), r.onNext, r.onError, r.onComplete)
		state := newSwitchState(downstream, nil, zap.NewNop())
		state.units.RegisterUnit()
		state.onOuterComplete()

		unit := &innerUnit{id: 1}
		state.onInnerComplete(unit)
		assert.True(t, unit.predicted.Load())
		state.retireInner(unit)

		completes, _ := r.terminals()
		assert.Equal(t, 1, completes)
		assert.Equal(t, int64(0), state.units.Pending())
	})

	t.Run("superseded inner teardown never completes", func(t *testing.T) {
		r := newRecorder()
		state := newSwitchState(r.subscriber(), nil, zap.NewNop())
		state.units.RegisterUnit()
		unit := &innerUnit{id: 1}

		state.retireInner(unit)
		r.assertEvents(t)
		assert.Equal(t, int64(1), state.units.Pending())
	})

	t.Run("broken prediction is reported", func(t *testing.T) {
		logger, logs := observedLogger()
		state := newSwitchState(NewSubscriber(nil, nil, nil, nil), nil, logger)
		state.units.RegisterUnit()
		state.units.RegisterUnit()

		unit := &innerUnit{id: 7}
		unit.predicted.Store(true)
		state.retireInner(unit)

		violations := logs.FilterLevelExact(zapcore.DPanicLevel).All()
		require.Len(t, violations, 1)
		assert.Contains(t, violations[0].ContextMap()["error"], "inner 7")
	})
}
