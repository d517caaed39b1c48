// 包 geocode：地名搜索客户端（Nominatim），候选结果到 AOI 要素的转换，以及结果缓存
package geocode

import (
	"strconv"

	"aoi-map/internal/aoi"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// BBox：经纬度外包框
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinLon, b.MinLat}, Max: orb.Point{b.MaxLon, b.MaxLat}}
}

// Rectangle：按 min-min, max-min, max-max, min-max, min-min 的顺序合成闭合矩形
func (b BBox) Rectangle() orb.Polygon {
	return orb.Polygon{{
		{b.MinLon, b.MinLat},
		{b.MaxLon, b.MinLat},
		{b.MaxLon, b.MaxLat},
		{b.MinLon, b.MaxLat},
		{b.MinLon, b.MinLat},
	}}
}

// 文档注释：搜索候选
// 约束：Geometry 为空或非 Polygon 时视为无几何，选择时退化为外包框矩形。
type Candidate struct {
	PlaceID     int64             `json:"placeId"`
	DisplayName string            `json:"displayName"`
	BBox        BBox              `json:"bbox"`
	Geometry    *geojson.Geometry `json:"geometry,omitempty"`
	Type        string            `json:"type"`
	Class       string            `json:"class"`
}

// Polygon：候选自带多边形时原样使用，否则由外包框合成
func (c Candidate) Polygon() orb.Polygon {
	if c.Geometry != nil {
		if p, ok := c.Geometry.Coordinates.(orb.Polygon); ok && len(p) > 0 && len(p[0]) > 0 {
			return p
		}
	}
	return c.BBox.Rectangle()
}

// Feature：转换为待加入集合的 AOI（id/visible/createdAt 由 Store 补齐）
func (c Candidate) Feature() aoi.Feature {
	return aoi.Feature{
		Geometry: c.Polygon(),
		Properties: map[string]any{
			aoi.PropName:   c.DisplayName,
			aoi.PropSource: aoi.SourceSearch,
		},
	}
}

// 原始响应条目；boundingbox 为 [minLat, maxLat, minLon, maxLon] 字符串
type rawResult struct {
	PlaceID     int64             `json:"place_id"`
	DisplayName string            `json:"display_name"`
	BoundingBox []string          `json:"boundingbox"`
	Type        string            `json:"type"`
	Class       string            `json:"class"`
	GeoJSON     *geojson.Geometry `json:"geojson,omitempty"`
}

func (r rawResult) candidate() (Candidate, bool) {
	if len(r.BoundingBox) != 4 {
		return Candidate{}, false
	}
	var v [4]float64
	for i, s := range r.BoundingBox {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Candidate{}, false
		}
		v[i] = f
	}
	return Candidate{
		PlaceID:     r.PlaceID,
		DisplayName: r.DisplayName,
		BBox:        BBox{MinLat: v[0], MaxLat: v[1], MinLon: v[2], MaxLon: v[3]},
		Geometry:    r.GeoJSON,
		Type:        r.Type,
		Class:       r.Class,
	}, true
}
