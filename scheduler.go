// Scheduler implementations for rxswitch
// 调度器：决定通知在哪个goroutine上投递
package rxswitch

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Scheduler 调度器接口，控制任务执行时机和方式
type Scheduler interface {
	// Schedule 调度一个任务
	Schedule(action func()) Disposable
	// ScheduleWithDelay 延迟调度一个任务
	ScheduleWithDelay(action func(), delay time.Duration) Disposable
	// ScheduleWithContext 带上下文的调度
	ScheduleWithContext(ctx context.Context, action func()) Disposable
}

// guarded 包装任务，任务开始前检查是否已取消
func guarded(action func()) (func(), Disposable) {
	disposable := NewBaseDisposable(nil)
	return func() {
		if !disposable.IsDisposed() {
			action()
		}
	}, disposable
}

// withContext 包装任务，ctx取消后不再执行
func withContext(ctx context.Context, action func()) func() {
	return func() {
		if ctx.Err() == nil {
			action()
		}
	}
}

// ============================================================================
// 立即调度器 - Immediate Scheduler
// ============================================================================

// immediateScheduler 立即在当前goroutine中执行任务
type immediateScheduler struct{}

// NewImmediateScheduler 创建立即调度器
func NewImmediateScheduler() Scheduler {
	return immediateScheduler{}
}

// Schedule 立即执行任务
func (immediateScheduler) Schedule(action func()) Disposable {
	action()
	return NewBaseDisposable(nil)
}

// ScheduleWithDelay 阻塞当前goroutine直到延迟结束，然后执行任务
func (s immediateScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	time.Sleep(delay)
	return s.Schedule(action)
}

// ScheduleWithContext 带上下文执行任务
func (s immediateScheduler) ScheduleWithContext(ctx context.Context, action func()) Disposable {
	return s.Schedule(withContext(ctx, action))
}

// ============================================================================
// 新线程调度器 - New Thread Scheduler
// ============================================================================

// newThreadScheduler 为每个任务创建新的goroutine
type newThreadScheduler struct{}

// NewNewThreadScheduler 创建新线程调度器
func NewNewThreadScheduler() Scheduler {
	return newThreadScheduler{}
}

// Schedule 在新goroutine中执行任务
func (newThreadScheduler) Schedule(action func()) Disposable {
	task, disposable := guarded(action)
	go task()
	return disposable
}

// ScheduleWithDelay 延迟在新goroutine中执行任务
func (newThreadScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	timer := time.AfterFunc(delay, action)
	return NewBaseDisposable(func() { timer.Stop() })
}

// ScheduleWithContext 带上下文在新goroutine中执行任务
func (s newThreadScheduler) ScheduleWithContext(ctx context.Context, action func()) Disposable {
	return s.Schedule(withContext(ctx, action))
}

// ============================================================================
// 线程池调度器 - Thread Pool Scheduler
// ============================================================================

// ThreadPoolScheduler 使用固定大小的goroutine池执行任务
type ThreadPoolScheduler struct {
	taskQueue chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	disposed  atomic.Bool
}

// NewThreadPoolScheduler 创建线程池调度器，workers<=0时使用CPU数量
func NewThreadPoolScheduler(workers int) *ThreadPoolScheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &ThreadPoolScheduler{
		taskQueue: make(chan func(), workers*2),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

// Schedule 在线程池中执行任务，线程池释放后任务被丢弃
func (s *ThreadPoolScheduler) Schedule(action func()) Disposable {
	task, disposable := guarded(action)
	if s.disposed.Load() {
		disposable.Dispose()
		return disposable
	}

	select {
	case s.taskQueue <- task:
	case <-s.ctx.Done():
		disposable.Dispose()
	}
	return disposable
}

// ScheduleWithDelay 延迟在线程池中执行任务
func (s *ThreadPoolScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	timer := time.AfterFunc(delay, func() { s.Schedule(action) })
	return NewBaseDisposable(func() { timer.Stop() })
}

// ScheduleWithContext 带上下文在线程池中执行任务
func (s *ThreadPoolScheduler) ScheduleWithContext(ctx context.Context, action func()) Disposable {
	return s.Schedule(withContext(ctx, action))
}

// worker 工作goroutine
func (s *ThreadPoolScheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.taskQueue:
			task()
		}
	}
}

// Dispose 停止所有worker并等待它们退出
func (s *ThreadPoolScheduler) Dispose() {
	if s.disposed.CompareAndSwap(false, true) {
		s.cancel()
		s.wg.Wait()
	}
}

// IsDisposed 检查是否已释放
func (s *ThreadPoolScheduler) IsDisposed() bool {
	return s.disposed.Load()
}

// ============================================================================
// 测试调度器 - Test Scheduler
// ============================================================================

// TestScheduler 用于测试的虚拟时间调度器，只有推进时间时才执行任务
type TestScheduler struct {
	mu    sync.Mutex
	clock time.Duration
	queue []scheduledAction
}

// scheduledAction 调度的动作
type scheduledAction struct {
	due        time.Duration
	action     func()
	disposable Disposable
}

// NewTestScheduler 创建测试调度器
func NewTestScheduler() *TestScheduler {
	return &TestScheduler{}
}

// Schedule 在当前虚拟时间调度任务
func (s *TestScheduler) Schedule(action func()) Disposable {
	return s.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 在当前虚拟时间之后delay处调度任务
func (s *TestScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	task, disposable := guarded(action)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, scheduledAction{
		due:        s.clock + delay,
		action:     task,
		disposable: disposable,
	})
	sort.SliceStable(s.queue, func(i, j int) bool {
		return s.queue[i].due < s.queue[j].due
	})

	return disposable
}

// ScheduleWithContext 带上下文调度任务
func (s *TestScheduler) ScheduleWithContext(ctx context.Context, action func()) Disposable {
	return s.Schedule(withContext(ctx, action))
}

// AdvanceTimeBy 推进虚拟时间，按时间顺序执行到期任务
func (s *TestScheduler) AdvanceTimeBy(duration time.Duration) {
	s.mu.Lock()
	target := s.clock + duration
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].due > target {
			s.clock = target
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.clock = next.due
		s.mu.Unlock()

		// 解锁后执行，允许任务调度新任务
		next.action()
	}
}

// TriggerActions 执行当前虚拟时间已到期的任务
func (s *TestScheduler) TriggerActions() {
	s.AdvanceTimeBy(0)
}

// Now 返回当前虚拟时间
func (s *TestScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Pending 返回尚未执行且未取消的任务数量
func (s *TestScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, a := range s.queue {
		if !a.disposable.IsDisposed() {
			n++
		}
	}
	return n
}
