package aoi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aoi-map/internal/debounce"
	"aoi-map/internal/logger"
	"aoi-map/internal/metrics"

	"github.com/paulmach/orb"
)

// 聚焦时视口内边距（像素）
const FocusPadding = 50

// 默认持久化安静期
const DefaultPersistDelay = 500 * time.Millisecond

// Gateway：持久化网关契约，失败由实现方记录并吞掉
type Gateway interface {
	Save(ctx context.Context, c Collection)
	Load(ctx context.Context) (Collection, bool)
}

// Viewport：地图视口命令，发出即返回，不等待动画完成
type Viewport interface {
	FitBounds(b orb.Bound, padding int)
}

type ChangeKind int

const (
	ChangeFeatures ChangeKind = iota
	ChangeDrawMode
	ChangeViewMode
	ChangeFocus
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeFeatures:
		return "features"
	case ChangeDrawMode:
		return "draw_mode"
	case ChangeViewMode:
		return "view_mode"
	case ChangeFocus:
		return "focus"
	}
	return "unknown"
}

// Change：变更通知；观察者应通过 Store 读取最新状态而不是依赖通知内容
type Change struct {
	Kind     ChangeKind
	DrawMode DrawMode
	ViewMode MapViewMode
	FocusID  string
}

type Observer func(Change)

type Options struct {
	Gateway      Gateway
	Viewport     Viewport
	PersistDelay time.Duration
	Now          func() time.Time
	NewID        func() string
}

// 文档注释：AOI 权威状态容器
// 背景：集合、绘制模式、底图模式与聚焦 id 的唯一来源；所有变更经由这里并派生防抖持久化与变更通知。
// 约束：状态受互斥锁保护；通知在释放锁后同步派发，观察者可以回调 Store；聚焦状态不持久化。
type Store struct {
	mu       sync.RWMutex
	features Collection
	drawMode DrawMode
	viewMode MapViewMode
	focused  string

	gw      Gateway
	vp      Viewport
	persist *debounce.Debouncer
	now     func() time.Time
	newID   func() string

	obsMu     sync.RWMutex
	obsSeq    int
	observers map[int]Observer
}

func New(opts Options) *Store {
	if opts.PersistDelay <= 0 {
		opts.PersistDelay = DefaultPersistDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewID
	}
	return &Store{
		drawMode:  DrawNone,
		viewMode:  ViewBase,
		gw:        opts.Gateway,
		vp:        opts.Viewport,
		persist:   debounce.New(opts.PersistDelay),
		now:       opts.Now,
		newID:     opts.NewID,
		observers: make(map[int]Observer),
	}
}

// Subscribe：注册观察者，返回取消函数
func (s *Store) Subscribe(o Observer) func() {
	s.obsMu.Lock()
	s.obsSeq++
	id := s.obsSeq
	s.observers[id] = o
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.obsMu.RLock()
	obs := make([]Observer, 0, len(s.observers))
	// 按注册顺序派发
	for i := 1; i <= s.obsSeq; i++ {
		if o, ok := s.observers[i]; ok {
			obs = append(obs, o)
		}
	}
	s.obsMu.RUnlock()
	for _, o := range obs {
		o(c)
	}
}

// Features：返回集合深拷贝
func (s *Store) Features() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features.Clone()
}

func (s *Store) Feature(id string) (Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.features.Index(id)
	if i < 0 {
		return Feature{}, false
	}
	return s.features[i].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.features)
}

func (s *Store) DrawMode() DrawMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawMode
}

func (s *Store) MapViewMode() MapViewMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewMode
}

func (s *Store) FocusedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused
}

// 文档注释：新增 AOI
// 背景：缺失 id 时分配新 id；visible 仅在显式 false 时保留为 false；createdAt 以当前时间覆盖。
// 约束：几何不是多边形时返回 ErrNotPolygon，id 重复时返回 ErrDuplicateID，两者集合均不变；成功后追加到末尾并安排防抖持久化。
func (s *Store) AddAoi(f Feature) (Feature, error) {
	if _, ok := f.Polygon(); !ok {
		return Feature{}, fmt.Errorf("add %s: %w", f.ID, ErrNotPolygon)
	}
	nf := f.Clone()
	if nf.ID == "" {
		nf.ID = s.newID()
	}
	if nf.Properties == nil {
		nf.Properties = map[string]any{}
	}
	nf.Properties[PropVisible] = f.Visible()
	nf.Properties[PropCreatedAt] = s.now().UnixMilli()

	s.mu.Lock()
	if s.features.Index(nf.ID) >= 0 {
		s.mu.Unlock()
		return Feature{}, fmt.Errorf("add %s: %w", nf.ID, ErrDuplicateID)
	}
	s.features = append(s.features, nf)
	n := len(s.features)
	s.mu.Unlock()

	metrics.AoiMutationsTotal.WithLabelValues("add").Inc()
	metrics.AoiCount.Set(float64(n))
	logger.L().Debug("aoi_add", "id", nf.ID, "source", nf.Source(), "count", n)
	s.schedulePersist()
	s.notify(Change{Kind: ChangeFeatures})
	return nf.Clone(), nil
}

// 文档注释：更新 AOI
// 背景：几何整体替换（传入为空或不是多边形时保留原几何），属性按键合并且传入值优先；id 保持不变。
// 约束：createdAt 不随更新变化；id 不存在时不做任何事。
func (s *Store) UpdateAoi(id string, f Feature) bool {
	s.mu.Lock()
	i := s.features.Index(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	cur := s.features[i]
	in := f.Clone()
	props := cur.Properties
	if props == nil {
		props = map[string]any{}
	}
	for k, v := range in.Properties {
		props[k] = v
	}
	if c, ok := cur.Properties[PropCreatedAt]; ok {
		props[PropCreatedAt] = c
	}
	cur.Properties = props
	if _, ok := in.Polygon(); ok {
		cur.Geometry = in.Geometry
	}
	s.features[i] = cur
	s.mu.Unlock()

	metrics.AoiMutationsTotal.WithLabelValues("update").Inc()
	logger.L().Debug("aoi_update", "id", id)
	s.schedulePersist()
	s.notify(Change{Kind: ChangeFeatures})
	return true
}

// DeleteAoi：删除指定 AOI；若为当前聚焦项则清除聚焦
func (s *Store) DeleteAoi(id string) bool {
	s.mu.Lock()
	i := s.features.Index(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.features = append(s.features[:i:i], s.features[i+1:]...)
	unfocused := s.focused == id
	if unfocused {
		s.focused = ""
	}
	n := len(s.features)
	s.mu.Unlock()

	metrics.AoiMutationsTotal.WithLabelValues("delete").Inc()
	metrics.AoiCount.Set(float64(n))
	logger.L().Debug("aoi_delete", "id", id, "count", n)
	s.schedulePersist()
	s.notify(Change{Kind: ChangeFeatures})
	if unfocused {
		s.notify(Change{Kind: ChangeFocus})
	}
	return true
}

// ToggleVisibility：缺省/true 与 false 之间切换
func (s *Store) ToggleVisibility(id string) bool {
	s.mu.Lock()
	i := s.features.Index(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	f := s.features[i]
	props := make(map[string]any, len(f.Properties)+1)
	for k, v := range f.Properties {
		props[k] = v
	}
	visible := !f.Visible()
	props[PropVisible] = visible
	f.Properties = props
	s.features[i] = f
	s.mu.Unlock()

	metrics.AoiMutationsTotal.WithLabelValues("toggle_visibility").Inc()
	logger.L().Debug("aoi_toggle_visibility", "id", id, "visible", visible)
	s.schedulePersist()
	s.notify(Change{Kind: ChangeFeatures})
	return true
}

// 文档注释：聚焦 AOI
// 背景：记录聚焦 id；多边形按外环坐标范围驱动视口 fitBounds，内边距固定。
// 约束：聚焦状态是临时的，不触发持久化；id 不存在时返回 false 且状态不变。
func (s *Store) FocusAoi(id string) bool {
	s.mu.Lock()
	i := s.features.Index(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	f := s.features[i].Clone()
	s.focused = id
	s.mu.Unlock()

	if p, ok := f.Polygon(); ok && s.vp != nil {
		b := p.Bound()
		s.vp.FitBounds(b, FocusPadding)
		logger.L().Debug("aoi_focus_fit", "id", id, "min", b.Min, "max", b.Max)
	}
	s.notify(Change{Kind: ChangeFocus, FocusID: id})
	return true
}

// 文档注释：重排
// 约束：from/to 必须落在 [0, len) 内，否则返回 *IndexError 且集合不变。
func (s *Store) ReorderAois(from, to int) error {
	s.mu.Lock()
	n := len(s.features)
	if from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		return &IndexError{From: from, To: to, Len: n}
	}
	moved := s.features[from]
	rest := append(s.features[:from:from], s.features[from+1:]...)
	out := make(Collection, 0, n)
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	s.features = out
	s.mu.Unlock()

	metrics.AoiMutationsTotal.WithLabelValues("reorder").Inc()
	logger.L().Debug("aoi_reorder", "from", from, "to", to)
	s.schedulePersist()
	s.notify(Change{Kind: ChangeFeatures})
	return nil
}

// SetDrawMode：输入按 ParseDrawMode 规范化后再保存与通知
func (s *Store) SetDrawMode(in DrawMode) error {
	m, err := ParseDrawMode(string(in))
	if err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.drawMode
	s.drawMode = m
	s.mu.Unlock()
	if prev != m {
		logger.L().Debug("draw_mode_set", "from", prev, "to", m)
	}
	s.notify(Change{Kind: ChangeDrawMode, DrawMode: m})
	return nil
}

func (s *Store) SetMapViewMode(in MapViewMode) error {
	m, err := ParseMapViewMode(string(in))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.viewMode = m
	s.mu.Unlock()
	logger.L().Debug("view_mode_set", "mode", m)
	s.notify(Change{Kind: ChangeViewMode, ViewMode: m})
	return nil
}

// 文档注释：从持久化加载
// 背景：仅当加载到的集合非空时替换内存状态；空集合永不覆盖已有状态，避免重复挂载时的竞态清空。
// 约束：缺失 id 的条目补发新 id，重复 id 的条目丢弃并记录；加载本身不触发写回。
func (s *Store) LoadFromStorage(ctx context.Context) bool {
	if s.gw == nil {
		return false
	}
	loaded, ok := s.gw.Load(ctx)
	if !ok || len(loaded) == 0 {
		logger.L().Debug("aoi_load_skip", "found", ok)
		return false
	}
	seen := make(map[string]bool, len(loaded))
	out := make(Collection, 0, len(loaded))
	for _, f := range loaded {
		if f.ID == "" {
			f.ID = s.newID()
		}
		if seen[f.ID] {
			logger.L().Warn("aoi_load_duplicate_id", "id", f.ID)
			continue
		}
		seen[f.ID] = true
		out = append(out, f)
	}
	s.mu.Lock()
	s.features = out
	s.mu.Unlock()
	metrics.AoiCount.Set(float64(len(out)))
	logger.L().Info("aoi_load_ok", "count", len(out))
	s.notify(Change{Kind: ChangeFeatures})
	return true
}

// 防抖写回：写入的是触发时刻的完整集合
func (s *Store) schedulePersist() {
	if s.gw == nil {
		return
	}
	s.persist.Trigger(func() { s.save(context.Background()) })
}

func (s *Store) save(ctx context.Context) {
	s.gw.Save(ctx, s.Features())
}

// SaveNow：立即写入当前集合，取消待执行的防抖写入
func (s *Store) SaveNow(ctx context.Context) {
	if s.gw == nil {
		return
	}
	if !s.persist.Flush() {
		s.save(ctx)
	}
}

// Flush：若存在待写入则立即写入
func (s *Store) Flush() bool {
	return s.persist.Flush()
}

// Close：写出待写入状态并停止定时器
func (s *Store) Close() {
	s.persist.Flush()
	s.persist.Stop()
}
