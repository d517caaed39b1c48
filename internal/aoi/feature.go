// 包 aoi：关注区域（AOI）的数据模型与权威状态容器
package aoi

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// 属性键：与持久化文档及前端约定保持一致
const (
	PropName      = "name"
	PropVisible   = "visible"
	PropCreatedAt = "createdAt"
	PropSource    = "source"
)

// 来源标签
const (
	SourceSearch = "search"
	SourceDraw   = "draw"
)

// 文档注释：单个关注区域
// 背景：几何为单个多边形（闭合环，经度在前）；属性以 GeoJSON properties 承载，未知键原样保留。
// 约束：ID 在集合内唯一；createdAt 仅在创建时写入。
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// NewID：生成 AOI 标识
func NewID() string { return "aoi-" + uuid.NewString() }

func (f Feature) Name() string {
	s, _ := f.Properties[PropName].(string)
	return s
}

func (f Feature) Source() string {
	s, _ := f.Properties[PropSource].(string)
	return s
}

// Visible：缺省或非 bool 值视为可见，仅显式 false 隐藏
func (f Feature) Visible() bool {
	v, ok := f.Properties[PropVisible].(bool)
	return !ok || v
}

// CreatedAt：createdAt 以毫秒时间戳存储；经 JSON 往返后为 float64
func (f Feature) CreatedAt() time.Time {
	var ms int64
	switch v := f.Properties[PropCreatedAt].(type) {
	case int64:
		ms = v
	case int:
		ms = int64(v)
	case float64:
		ms = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}
		}
		ms = n
	default:
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Polygon：几何为多边形时返回
func (f Feature) Polygon() (orb.Polygon, bool) {
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		return g, len(g) > 0
	case orb.Bound:
		return g.ToPolygon(), true
	}
	return nil, false
}

// Area：多边形球面面积（平方米），非多边形返回 0
func (f Feature) Area() float64 {
	p, ok := f.Polygon()
	if !ok {
		return 0
	}
	return math.Abs(geo.Area(p))
}

// Clone：深拷贝几何与属性，避免调用方修改内部状态
func (f Feature) Clone() Feature {
	out := Feature{ID: f.ID}
	if f.Geometry != nil {
		out.Geometry = orb.Clone(f.Geometry)
	}
	if f.Properties != nil {
		out.Properties = maps.Clone(f.Properties)
	}
	return out
}

// GeoJSON：转换为 orb 的 GeoJSON Feature，用于序列化
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	if f.ID != "" {
		gf.ID = f.ID
	}
	if f.Properties != nil {
		gf.Properties = maps.Clone(f.Properties)
	}
	return gf
}

// FromGeoJSON：数值型 id 统一格式化为字符串
func FromGeoJSON(gf *geojson.Feature) Feature {
	var f Feature
	if gf == nil {
		return f
	}
	switch id := gf.ID.(type) {
	case nil:
	case string:
		f.ID = id
	case float64:
		f.ID = fmt.Sprintf("%.0f", id)
	default:
		f.ID = fmt.Sprint(id)
	}
	f.Geometry = gf.Geometry
	if gf.Properties != nil {
		f.Properties = maps.Clone(gf.Properties)
	}
	return f
}

func (f Feature) MarshalJSON() ([]byte, error) {
	return f.GeoJSON().MarshalJSON()
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	gf, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return err
	}
	*f = FromGeoJSON(gf)
	return nil
}

// 文档注释：有序 AOI 集合
// 背景：插入顺序决定列表展示与重排；持久化形态为 GeoJSON FeatureCollection。
type Collection []Feature

func (c Collection) Index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Label：列表展示名，未命名时按位置生成 "Area N"
func (c Collection) Label(i int) string {
	if i < 0 || i >= len(c) {
		return ""
	}
	if n := c[i].Name(); n != "" {
		return n
	}
	return fmt.Sprintf("Area %d", i+1)
}

func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i := range c {
		out[i] = c[i].Clone()
	}
	return out
}

func (c Collection) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range c {
		fc.Append(f.GeoJSON())
	}
	return fc
}

func CollectionFromGeoJSON(fc *geojson.FeatureCollection) Collection {
	if fc == nil {
		return nil
	}
	out := make(Collection, 0, len(fc.Features))
	for _, gf := range fc.Features {
		out = append(out, FromGeoJSON(gf))
	}
	return out
}
