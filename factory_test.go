// Factory tests for rxswitch
// 工厂函数的测试
package rxswitch

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactories(t *testing.T) {
	t.Run("just", func(t *testing.T) {
		r := newRecorder()
		Just("a", "b").SubscribeWith(r.subscriber())
		r.assertEvents(t, "next(a)", "next(b)", "completed")
	})

	t.Run("range", func(t *testing.T) {
		values, err := Range(5, 3).ToSlice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []interface{}{5, 6, 7}, values)
	})

	t.Run("empty and error", func(t *testing.T) {
		r := newRecorder()
		Empty().SubscribeWith(r.subscriber())
		r.assertEvents(t, "completed")

		boom := errors.New("boom")
		_, err := Error(boom).ToSlice(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("never", func(t *testing.T) {
		r := newRecorder()
		subscription := Never().SubscribeWithCallbacks(r.onNext, r.onError, r.onComplete)
		r.assertEvents(t)
		assert.False(t, subscription.IsUnsubscribed())
		subscription.Unsubscribe()
	})

	t.Run("from channel", func(t *testing.T) {
		ch := make(chan interface{}, 3)
		ch <- 1
		ch <- 2
		close(ch)

		values, err := FromChannel(ch).ToSlice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 2}, values)
	})

	t.Run("from channel drops values after unsubscribe", func(t *testing.T) {
		ch := make(chan interface{})
		r := newRecorder()
		subscription := FromChannel(ch).SubscribeWithCallbacks(r.onNext, r.onError, r.onComplete)

		ch <- 1
		require.Eventually(t, func() bool { return len(r.snapshot()) == 1 }, time.Second, time.Millisecond)
		subscription.Unsubscribe()

		select {
		case ch <- 2:
		case <-time.After(20 * time.Millisecond):
		}
		assert.True(t, subscription.IsUnsubscribed())
		r.assertEvents(t, "next(1)")
	})

	t.Run("timer", func(t *testing.T) {
		values, err := Timer(time.Millisecond).ToSlice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []interface{}{0}, values)
	})

	t.Run("interval", func(t *testing.T) {
		values, err := Interval(time.Millisecond).Take(3).ToSlice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []interface{}{0, 1, 2}, values)
	})
}
