// Configuration options for rxswitch
// 配置选项，所有Observable和操作符共用
package rxswitch

import (
	"context"

	"go.uber.org/zap"
)

// Option 配置选项接口
type Option interface {
	Apply(config *Config)
}

// Config 配置结构
type Config struct {
	BufferSize int
	Scheduler  Scheduler
	Context    context.Context
	Logger     *zap.Logger
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 16,
		Scheduler:  NewImmediateScheduler(),
		Context:    context.Background(),
		Logger:     zap.NewNop(),
	}
}

func newConfig(options []Option) *Config {
	config := DefaultConfig()
	for _, opt := range options {
		if opt != nil {
			opt.Apply(config)
		}
	}
	return config
}

// optionFunc 把函数适配为Option
type optionFunc func(config *Config)

func (f optionFunc) Apply(config *Config) {
	f(config)
}

// WithBufferSize 设置ObserveOn等操作使用的队列缓冲区大小
func WithBufferSize(size int) Option {
	return optionFunc(func(config *Config) {
		if size > 0 {
			config.BufferSize = size
		}
	})
}

// WithScheduler 设置默认调度器
func WithScheduler(scheduler Scheduler) Option {
	return optionFunc(func(config *Config) {
		if scheduler != nil {
			config.Scheduler = scheduler
		}
	})
}

// WithContext 设置上下文，上下文取消时订阅随之取消
func WithContext(ctx context.Context) Option {
	return optionFunc(func(config *Config) {
		if ctx != nil {
			config.Context = ctx
		}
	})
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(config *Config) {
		if logger != nil {
			config.Logger = logger
		}
	})
}
