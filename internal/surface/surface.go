// 包 surface：绘制面（图层集合）抽象、内存实现，以及与 AOI Store 的双向同步适配器
package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrLayerNotFound = errors.New("surface: layer not found")

// Tool：绘制面上可武装的单次绘制工具
type Tool string

const (
	ToolPolygon   Tool = "polygon"
	ToolRectangle Tool = "rectangle"
)

// Style：图层描边样式
type Style struct {
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	DashArray   string  `json:"dashArray"`
}

// AOIStyle：所有 AOI 图层统一使用的虚线描边、无填充样式
var AOIStyle = Style{
	Color:       "#E8D6A1",
	Weight:      3,
	Opacity:     1,
	FillColor:   "transparent",
	FillOpacity: 0,
	DashArray:   "10, 5",
}

// Layer：绘制面上的一个图层；AoiID 为空表示绘制面自有的临时图层
type Layer struct {
	Handle     string             `json:"handle"`
	AoiID      string             `json:"aoiId,omitempty"`
	Geometry   orb.Geometry       `json:"-"`
	Properties geojson.Properties `json:"properties,omitempty"`
	Style      Style              `json:"style"`
}

func (l Layer) MarshalJSON() ([]byte, error) {
	type alias Layer
	var g *geojson.Geometry
	if l.Geometry != nil {
		g = geojson.NewGeometry(l.Geometry)
	}
	return json.Marshal(struct {
		alias
		Geometry *geojson.Geometry `json:"geometry"`
	}{alias(l), g})
}

// 文档注释：绘制面契约
// 背景：真实的地图控件由浏览器持有；服务端维护一份镜像图层集，浏览器据此渲染。
// 约束：对不存在的句柄执行 RemoveLayer 返回 ErrLayerNotFound；Layers 返回添加顺序的副本。
type Surface interface {
	Layers() []Layer
	AddLayer(l Layer) error
	RemoveLayer(handle string) error
	Arm(t Tool) error
	Disarm() error
}

// LayerGroup：内存绘制面
type LayerGroup struct {
	mu     sync.RWMutex
	seq    int
	order  []string
	layers map[string]Layer
	armed  Tool
}

func NewLayerGroup() *LayerGroup {
	return &LayerGroup{layers: make(map[string]Layer)}
}

func (g *LayerGroup) Layers() []Layer {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Layer, 0, len(g.order))
	for _, h := range g.order {
		out = append(out, g.layers[h])
	}
	return out
}

// AddLayer：句柄为空时自动分配
func (g *LayerGroup) AddLayer(l Layer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l.Handle == "" {
		g.seq++
		l.Handle = fmt.Sprintf("layer-%d", g.seq)
	}
	if _, ok := g.layers[l.Handle]; ok {
		return fmt.Errorf("surface: layer %s already present", l.Handle)
	}
	g.layers[l.Handle] = l
	g.order = append(g.order, l.Handle)
	return nil
}

func (g *LayerGroup) RemoveLayer(handle string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.layers[handle]; !ok {
		return fmt.Errorf("remove %s: %w", handle, ErrLayerNotFound)
	}
	delete(g.layers, handle)
	for i, h := range g.order {
		if h == handle {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

func (g *LayerGroup) Arm(t Tool) error {
	switch t {
	case ToolPolygon, ToolRectangle:
	default:
		return fmt.Errorf("surface: unknown tool %q", t)
	}
	g.mu.Lock()
	g.armed = t
	g.mu.Unlock()
	return nil
}

func (g *LayerGroup) Disarm() error {
	g.mu.Lock()
	g.armed = ""
	g.mu.Unlock()
	return nil
}

// Armed：当前武装的工具，未武装时为空
func (g *LayerGroup) Armed() Tool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.armed
}
