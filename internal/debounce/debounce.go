// 包 debounce：单槽位的尾沿防抖定时器，供持久化写入与搜索输入共用
package debounce

import (
	"sync"
	"time"
)

// 文档注释：尾沿防抖器
// 背景：每次 Trigger 取消尚未触发的任务并以新任务重新计时；安静期结束后只执行最后一次提交的任务。
// 约束：同一时刻最多一个待执行任务；Stop 之后的 Trigger 被忽略；任务在定时器协程中执行，不持有内部锁。
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	fn      func()
	gen     uint64
	stopped bool
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger：提交任务并重新计时
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// 定时器回调：代次不一致说明已被新任务替换或已被 Flush/Stop 消费
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
}

// Flush：立即执行待执行任务（若有），返回是否执行
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.fn
	if fn == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.fn = nil
	d.timer = nil
	d.gen++
	d.mu.Unlock()
	fn()
	return true
}

// Pending：是否存在尚未执行的任务
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

// Stop：丢弃待执行任务并拒绝后续提交
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
	d.fn = nil
	d.timer = nil
	d.gen++
}
