package surface

import (
	"errors"
	"log/slog"
	"sync"

	"aoi-map/internal/aoi"
	"aoi-map/internal/logger"
	"aoi-map/internal/metrics"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SyncStats：一次 Store→Surface 同步实际发出的图层操作
type SyncStats struct {
	Added   int
	Removed int
	Failed  int
}

func (s SyncStats) Ops() int { return s.Added + s.Removed + s.Failed }

// 文档注释：绘制面适配器
// 背景：把绘制面的创建/编辑/删除/擦除事件转成 Store 变更，并在集合变化时把 Store 状态按 id 差分回写到绘制面。
// 约束：
// - 同步只针对带 AoiID 的图层，临时图层不受影响；
// - 已存在且几何未变的可见图层永不重建，重复同步不产生任何操作；
// - 单个图层操作失败只记录日志与指标，不中断本批次。
type Adapter struct {
	store *aoi.Store
	surf  Surface
	mu    sync.Mutex
	log   *slog.Logger
}

func NewAdapter(store *aoi.Store, surf Surface) *Adapter {
	return &Adapter{store: store, surf: surf, log: logger.Component("surface")}
}

// Attach：订阅 Store 变更；集合变化触发同步，绘制模式变化触发工具武装。返回取消订阅函数
func (a *Adapter) Attach() func() {
	unsub := a.store.Subscribe(func(c aoi.Change) {
		switch c.Kind {
		case aoi.ChangeFeatures:
			a.Sync()
		case aoi.ChangeDrawMode:
			a.ApplyDrawMode(c.DrawMode)
		}
	})
	a.Sync()
	return unsub
}

// try：执行单个绘制面操作，失败只记录
func (a *Adapter) try(op string, fn func() error, args ...any) bool {
	metrics.SurfaceOpsTotal.WithLabelValues(op).Inc()
	if err := fn(); err != nil {
		metrics.SurfaceErrorsTotal.WithLabelValues(op).Inc()
		a.log.Warn("surface_"+op+"_error", append(args, "err", err)...)
		return false
	}
	return true
}

// 文档注释：Store→Surface 同步
// 步骤：
// 1. 移除 id 已不在集合中的图层；
// 2. 移除对应要素被隐藏的图层，以及几何已与集合不一致的图层（随后重建）；
// 3. 为每个可见且尚无图层的要素按统一样式新建图层。
func (a *Adapter) Sync() SyncStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var st SyncStats
	features := a.store.Features()
	byID := make(map[string]aoi.Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}

	present := make(map[string]bool)
	for _, l := range a.surf.Layers() {
		if l.AoiID == "" {
			continue
		}
		f, ok := byID[l.AoiID]
		keep := ok && f.Visible() && !present[l.AoiID] && orb.Equal(l.Geometry, f.Geometry)
		if keep {
			present[l.AoiID] = true
			continue
		}
		handle := l.Handle
		if a.try("remove", func() error { return a.surf.RemoveLayer(handle) }, "handle", handle, "aoi_id", l.AoiID) {
			st.Removed++
		} else {
			st.Failed++
		}
	}

	for _, f := range features {
		if !f.Visible() || present[f.ID] || f.Geometry == nil {
			continue
		}
		l := Layer{AoiID: f.ID, Geometry: orb.Clone(f.Geometry), Properties: f.Properties.Clone(), Style: AOIStyle}
		if a.try("add", func() error { return a.surf.AddLayer(l) }, "aoi_id", f.ID) {
			st.Added++
		} else {
			st.Failed++
		}
	}
	if st.Ops() > 0 {
		a.log.Debug("surface_sync", "added", st.Added, "removed", st.Removed, "failed", st.Failed)
	}
	return st
}

// 文档注释：绘制完成事件
// 背景：把新绘制的图层转为要素加入 Store，随后移除绘制面自有的临时图层，由同步按 id 重新添加，最后回到 none 模式。
// 约束：图层未携带 id 时由 Store 分配；source 缺省为 draw；Store 拒绝时也移除临时图层并回到 none。
func (a *Adapter) OnCreate(l Layer) (aoi.Feature, error) {
	props := l.Properties.Clone()
	if props == nil {
		props = map[string]any{}
	}
	if _, ok := props[aoi.PropSource]; !ok {
		props[aoi.PropSource] = aoi.SourceDraw
	}
	f, err := a.store.AddAoi(aoi.Feature{ID: l.AoiID, Geometry: l.Geometry, Properties: props})
	if l.Handle != "" {
		handle := l.Handle
		a.try("remove_ephemeral", func() error {
			if err := a.surf.RemoveLayer(handle); err != nil && !errors.Is(err, ErrLayerNotFound) {
				return err
			}
			return nil
		}, "handle", handle)
	}
	// 被拒绝的创建同样结束本次单次绘制
	_ = a.store.SetDrawMode(aoi.DrawNone)
	if err != nil {
		a.log.Warn("surface_create_rejected", "aoi_id", l.AoiID, "err", err)
		return aoi.Feature{}, err
	}
	a.Sync()
	return f, nil
}

// OnEdit：对每个带 id 的图层执行 UpdateAoi，返回实际更新数
func (a *Adapter) OnEdit(layers []Layer) int {
	n := 0
	for _, l := range layers {
		if l.AoiID == "" {
			continue
		}
		if a.store.UpdateAoi(l.AoiID, aoi.Feature{ID: l.AoiID, Geometry: l.Geometry, Properties: l.Properties.Clone()}) {
			n++
		}
	}
	return n
}

// OnDelete：对每个带 id 的图层执行 DeleteAoi，返回实际删除数
func (a *Adapter) OnDelete(layers []Layer) int {
	n := 0
	for _, l := range layers {
		if l.AoiID != "" && a.store.DeleteAoi(l.AoiID) {
			n++
		}
	}
	return n
}

// 文档注释：擦除工具点击
// 背景：仅在 erase 模式下生效；按图层顺序做点在多边形判定，无法判定的几何退化为外包框包含。
// 约束：只处理第一个命中的图层，每次点击至多删除一个 AOI。
func (a *Adapter) OnClick(p orb.Point) (string, bool) {
	if a.store.DrawMode() != aoi.DrawErase {
		return "", false
	}
	for _, l := range a.surf.Layers() {
		if !hit(l.Geometry, p) {
			continue
		}
		if l.AoiID == "" {
			return "", false
		}
		if a.store.DeleteAoi(l.AoiID) {
			a.log.Debug("surface_erase", "aoi_id", l.AoiID)
			return l.AoiID, true
		}
		return "", false
	}
	return "", false
}

func hit(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	case orb.Ring:
		return planar.RingContains(g, p)
	case nil:
		return false
	}
	return g.Bound().Contains(p)
}

// ApplyDrawMode：polygon/rectangle 武装对应单次工具，none/edit 解除武装；curve/erase 不涉及绘制面工具
func (a *Adapter) ApplyDrawMode(m aoi.DrawMode) {
	switch m {
	case aoi.DrawPolygon:
		a.try("arm", func() error { return a.surf.Arm(ToolPolygon) }, "tool", ToolPolygon)
	case aoi.DrawRectangle:
		a.try("arm", func() error { return a.surf.Arm(ToolRectangle) }, "tool", ToolRectangle)
	case aoi.DrawNone, aoi.DrawEdit:
		a.try("disarm", a.surf.Disarm)
	}
}
