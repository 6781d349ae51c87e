package models

import "context"

// CancelToken 会话级的协作式取消令牌
//
// 只在约定的检查点被读取,取消后已发出的请求会正常完成或超时。
// nil令牌永远不会被取消。
type CancelToken struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCancelToken 创建取消令牌
func NewCancelToken() *CancelToken {
	ctx, cancel := context.WithCancel(context.Background())
	return &CancelToken{ctx: ctx, cancel: cancel}
}

// Cancel 请求取消,可重复调用
func (t *CancelToken) Cancel() {
	if t != nil {
		t.cancel()
	}
}

// Cancelled 是否已请求取消
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.ctx.Err() != nil
}

// Done 取消时关闭的通道
func (t *CancelToken) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.ctx.Done()
}

// Context 返回与令牌绑定的context,用于限速等待等可中断操作
func (t *CancelToken) Context() context.Context {
	if t == nil {
		return context.Background()
	}
	return t.ctx
}
