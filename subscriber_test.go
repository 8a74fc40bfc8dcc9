// Subscriber tests for rxswitch
// 订阅者终止语义与数据项的测试
package rxswitch

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriber(t *testing.T) {
	t.Run("at most one terminal notification", func(t *testing.T) {
		r := newRecorder()
		sub := r.subscriber()

		sub.OnNext(1)
		sub.OnComplete()
		sub.OnError(errors.New("late"))
		sub.OnComplete()
		sub.OnNext(2)

		r.assertEvents(t, "next(1)", "completed")
		assert.True(t, sub.Subscription().IsUnsubscribed())
	})

	t.Run("error wins over later completion", func(t *testing.T) {
		r := newRecorder()
		sub := r.subscriber()
		boom := errors.New("boom")

		sub.OnError(boom)
		sub.OnComplete()

		r.assertEvents(t, "error(boom)")
		require.ErrorIs(t, r.err, boom)
	})

	t.Run("cancelled scope drops everything", func(t *testing.T) {
		r := newRecorder()
		sub := r.subscriber()
		sub.Unsubscribe()

		sub.OnNext(1)
		sub.OnComplete()
		r.assertEvents(t)
	})

	t.Run("cancellation lets the delivery in flight finish", func(t *testing.T) {
		r := newRecorder()
		var sub *Subscriber
		sub = NewSubscriber(nil, func(value interface{}) {
			sub.Unsubscribe()
			r.onNext(value)
		}, r.onError, r.onComplete)

		sub.OnNext(1)
		sub.OnNext(2)
		r.assertEvents(t, "next(1)")
	})

	t.Run("terminal runs teardowns after the callback", func(t *testing.T) {
		var order []string
		sub := NewSubscriber(nil, nil, nil, func() { order = append(order, "complete") })
		sub.Subscription().Add(func() { order = append(order, "teardown") })

		sub.OnComplete()
		assert.Equal(t, []string{"complete", "teardown"}, order)
	})

	t.Run("call dispatches items", func(t *testing.T) {
		r := newRecorder()
		observer := r.subscriber().AsObserver()

		observer(CreateItem(nil))
		observer(CreateItem("a"))
		observer(CreateCompleteItem())

		r.assertEvents(t, "next(<nil>)", "next(a)", "completed")
	})

	t.Run("nil callbacks are no-ops", func(t *testing.T) {
		sub := NewSubscriber(nil, nil, nil, nil)
		sub.OnNext(1)
		sub.OnError(errors.New("ignored"))
		assert.True(t, sub.IsUnsubscribed())
	})
}

func TestItem(t *testing.T) {
	assert.True(t, CreateErrorItem(errors.New("x")).IsError())
	assert.True(t, CreateCompleteItem().IsComplete())
	assert.Nil(t, CreateCompleteItem().GetValue())
	assert.Equal(t, 3, CreateItem(3).GetValue())
	assert.False(t, CreateItem(nil).IsComplete())
}

func TestSafeExecute(t *testing.T) {
	require.NoError(t, SafeExecute(func() {}))

	err := SafeExecute(func() { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	sentinel := errors.New("sentinel")
	err = SafeExecute(func() { panic(sentinel) })
	assert.ErrorIs(t, err, sentinel)
}
