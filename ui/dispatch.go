package ui

import (
	"sync"
	"sync/atomic"
)

// Dispatcher 保证同一时刻只有一个控制器操作在后台执行，忙碌时新的请求直接丢弃
type Dispatcher struct {
	busy atomic.Bool
	wg   sync.WaitGroup

	// OnError 操作失败时在工作协程中调用
	OnError func(err error)
}

// Submit 提交操作，忙碌时返回 false
func (d *Dispatcher) Submit(op func() error) bool {
	if !d.busy.CompareAndSwap(false, true) {
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.busy.Store(false)
		if err := op(); err != nil && d.OnError != nil {
			d.OnError(err)
		}
	}()
	return true
}

// Busy 是否有操作在执行
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Wait 等待当前操作结束
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
