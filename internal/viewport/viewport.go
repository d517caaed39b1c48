// 包 viewport：地图视口状态（中心、缩放、边界约束）与底图图层描述
package viewport

import (
	"math"
	"sync"

	"aoi-map/internal/logger"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	MinZoom     = 7
	MaxZoom     = 18
	DefaultZoom = 8
	tileSize    = 256
)

var (
	// DefaultCenter：北威州中部（经度, 纬度）
	DefaultCenter = orb.Point{7.0, 51.0}
	// MaxBounds：视口中心不得离开北威州范围
	MaxBounds = orb.Bound{Min: orb.Point{5.8, 50.3}, Max: orb.Point{9.5, 52.5}}
)

// Size：用于估算适配缩放级别的画布像素尺寸
type Size struct {
	Width, Height int
}

var DefaultSize = Size{Width: 1280, Height: 800}

// State：对外可序列化的视口快照
type State struct {
	Center    [2]float64    `json:"center"`
	Zoom      int           `json:"zoom"`
	MinZoom   int           `json:"minZoom"`
	MaxZoom   int           `json:"maxZoom"`
	MaxBounds [2][2]float64 `json:"maxBounds"`
	Fit       *FitRequest   `json:"fit,omitempty"`
}

// FitRequest：最近一次适配请求，浏览器据此执行 fitBounds 动画
type FitRequest struct {
	Bounds  [2][2]float64 `json:"bounds"`
	Padding int           `json:"padding"`
	Seq     uint64        `json:"seq"`
}

// 文档注释：视口
// 背景：服务端记录视口命令，浏览器轮询状态后执行动画；命令发出即返回，不等待动画完成。
// 约束：缩放级别限制在 [MinZoom, MaxZoom]；中心限制在 MaxBounds 内。
type Viewport struct {
	mu     sync.RWMutex
	size   Size
	center orb.Point
	zoom   int
	fit    *FitRequest
	seq    uint64
}

func New(size Size) *Viewport {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	return &Viewport{size: size, center: DefaultCenter, zoom: DefaultZoom}
}

// FitBounds：把视口适配到外包框，padding 为四周像素内边距
func (v *Viewport) FitBounds(b orb.Bound, padding int) {
	z := fitZoom(b, padding, v.size)
	v.mu.Lock()
	v.seq++
	v.center = clampPoint(b.Center())
	v.zoom = z
	v.fit = &FitRequest{Bounds: latLngBounds(b), Padding: padding, Seq: v.seq}
	v.mu.Unlock()
	logger.L().Debug("viewport_fit", "bounds", latLngBounds(b), "padding", padding, "zoom", z)
}

// Zoom：相对缩放，返回新级别
func (v *Viewport) Zoom(delta int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom = clampZoom(v.zoom + delta)
	return v.zoom
}

// CenterOn：移动中心；zoom<=0 时保持当前缩放
func (v *Viewport) CenterOn(p orb.Point, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = clampPoint(p)
	if zoom > 0 {
		v.zoom = clampZoom(zoom)
	}
}

func (v *Viewport) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := State{
		Center:    [2]float64{v.center.Lat(), v.center.Lon()},
		Zoom:      v.zoom,
		MinZoom:   MinZoom,
		MaxZoom:   MaxZoom,
		MaxBounds: latLngBounds(MaxBounds),
	}
	if v.fit != nil {
		f := *v.fit
		s.Fit = &f
	}
	return s
}

// 以 [[南, 西], [北, 东]] 的纬经度顺序输出，与前端地图库一致
func latLngBounds(b orb.Bound) [2][2]float64 {
	return [2][2]float64{{b.Min.Lat(), b.Min.Lon()}, {b.Max.Lat(), b.Max.Lon()}}
}

func clampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

func clampPoint(p orb.Point) orb.Point {
	return orb.Point{
		math.Min(math.Max(p.Lon(), MaxBounds.Min.Lon()), MaxBounds.Max.Lon()),
		math.Min(math.Max(p.Lat(), MaxBounds.Min.Lat()), MaxBounds.Max.Lat()),
	}
}

// fitZoom：在 Web Mercator 下求能完整容纳外包框的最大整数缩放级别
func fitZoom(b orb.Bound, padding int, size Size) int {
	minM := project.WGS84.ToMercator(b.Min)
	maxM := project.WGS84.ToMercator(b.Max)
	dx := math.Abs(maxM.X() - minM.X())
	dy := math.Abs(maxM.Y() - minM.Y())
	w := float64(size.Width - 2*padding)
	h := float64(size.Height - 2*padding)
	if w <= 0 || h <= 0 {
		return MinZoom
	}
	if dx == 0 && dy == 0 {
		return MaxZoom
	}
	world := 2 * math.Pi * 6378137.0
	z := math.Inf(1)
	if dx > 0 {
		z = math.Min(z, math.Log2(w*world/(tileSize*dx)))
	}
	if dy > 0 {
		z = math.Min(z, math.Log2(h*world/(tileSize*dy)))
	}
	return clampZoom(int(math.Floor(z)))
}
