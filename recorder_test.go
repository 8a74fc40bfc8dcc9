// Test recorder for rxswitch
// 记录下游通知的测试辅助工具
package rxswitch

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// recorder 记录下游收到的所有通知，供测试断言
type recorder struct {
	mu        sync.Mutex
	events    []string
	values    []interface{}
	err       error
	completes int
	errors    int
	done      chan struct{}
	once      sync.Once
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) subscriber() *Subscriber {
	return NewSubscriber(nil, r.onNext, r.onError, r.onComplete)
}

func (r *recorder) onNext(value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
	r.events = append(r.events, fmt.Sprintf("next(%v)", value))
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.err = err
	r.errors++
	r.events = append(r.events, fmt.Sprintf("error(%v)", err))
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) onComplete() {
	r.mu.Lock()
	r.completes++
	r.events = append(r.events, "completed")
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) terminals() (completes, errors int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completes, r.errors
}

func (r *recorder) assertEvents(t *testing.T, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	got := r.snapshot()
	if got == nil {
		got = []string{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func (r *recorder) await(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for terminal notification, events so far: %v", r.snapshot())
	}
}
