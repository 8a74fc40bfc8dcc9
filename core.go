// Package rxswitch provides a push-based reactive stream core built around the
// switch-to-latest operator.
// 基于Go语言特性的响应式流核心，重点实现SwitchOnNext（切换到最新流）操作符
package rxswitch

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
)

// ============================================================================
// 核心类型定义
// ============================================================================

// itemKind 区分数据项的种类
type itemKind uint8

const (
	nextKind itemKind = iota
	errorKind
	completeKind
)

// Item 表示流中的一个通知，包含值、错误或完成信号
type Item struct {
	Value interface{} // 数据值
	Error error       // 错误信息
	kind  itemKind
}

// IsError 检查项目是否包含错误
func (item Item) IsError() bool {
	return item.kind == errorKind
}

// IsComplete 检查项目是否为完成信号
func (item Item) IsComplete() bool {
	return item.kind == completeKind
}

// GetValue 获取项目的值，如果是错误或完成信号则返回nil
func (item Item) GetValue() interface{} {
	if item.kind != nextKind {
		return nil
	}
	return item.Value
}

// CreateItem 创建包含值的项目，nil也是合法的值
func CreateItem(value interface{}) Item {
	return Item{Value: value, kind: nextKind}
}

// CreateErrorItem 创建包含错误的项目
func CreateErrorItem(err error) Item {
	return Item{Error: err, kind: errorKind}
}

// CreateCompleteItem 创建完成信号
func CreateCompleteItem() Item {
	return Item{kind: completeKind}
}

// ============================================================================
// 函数类型定义
// ============================================================================

// Observer 观察者函数类型
type Observer func(item Item)

// OnNext 处理下一个值的函数
type OnNext func(value interface{})

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// Predicate 谓词函数，用于过滤
type Predicate func(value interface{}) bool

// Transformer 转换函数，用于映射
type Transformer func(value interface{}) (interface{}, error)

// ============================================================================
// 生命周期管理
// ============================================================================

// Subscription 订阅接口，管理订阅的生命周期
type Subscription interface {
	// Unsubscribe 取消订阅，可重复调用
	Unsubscribe()
	// IsUnsubscribed 检查是否已取消订阅
	IsUnsubscribed() bool
}

// Disposable 可释放资源的接口
type Disposable interface {
	Dispose()
	IsDisposed() bool
}

// baseDisposable 基础可释放资源实现，action最多执行一次
type baseDisposable struct {
	disposed atomic.Bool
	action   func()
}

// NewBaseDisposable 创建基础可释放资源
func NewBaseDisposable(action func()) Disposable {
	return &baseDisposable{
		action: action,
	}
}

// Dispose 释放资源
func (d *baseDisposable) Dispose() {
	if d.disposed.CompareAndSwap(false, true) {
		if d.action != nil {
			d.action()
		}
	}
}

// IsDisposed 检查是否已释放
func (d *baseDisposable) IsDisposed() bool {
	return d.disposed.Load()
}

// ============================================================================
// 错误定义
// ============================================================================

// ErrNotObservable 外层流发射的值不是Observable
var ErrNotObservable = errors.New("value emitted by outer stream is not an Observable")

// recoverAsError 把panic转换为错误
func recoverAsError(recovered interface{}) error {
	if err, ok := recovered.(error); ok {
		return errors.WithStack(err)
	}
	return errors.Newf("panic: %v", recovered)
}

// SafeExecute 安全执行函数，捕获panic并以错误形式返回
func SafeExecute(action func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverAsError(r)
		}
	}()

	action()
	return nil
}
