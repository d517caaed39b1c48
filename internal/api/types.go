package api

import (
	"aoi-map/internal/aoi"
	"aoi-map/internal/geocode"
	"aoi-map/internal/surface"
	"aoi-map/internal/viewport"

	"github.com/paulmach/orb/geojson"
)

// 列表面板条目
type listItem struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Visible   bool    `json:"visible"`
	AreaSqm   float64 `json:"areaSqm"`
	Source    string  `json:"source,omitempty"`
	CreatedAt int64   `json:"createdAt"`
}

type stateResponse struct {
	Features  *geojson.FeatureCollection `json:"features"`
	DrawMode  aoi.DrawMode               `json:"drawMode"`
	ViewMode  aoi.MapViewMode            `json:"viewMode"`
	FocusedID string                     `json:"focusedId,omitempty"`
	TileLayer viewport.TileLayer         `json:"tileLayer"`
	Viewport  viewport.State             `json:"viewport"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type selectRequest struct {
	Index int `json:"index"`
}

type zoomRequest struct {
	Delta int `json:"delta"`
}

type searchResponse struct {
	Query      string              `json:"query"`
	Results    []geocode.Candidate `json:"results"`
	Superseded bool                `json:"superseded,omitempty"`
}

// 绘制面事件中的单个图层：浏览器侧图层句柄加其 GeoJSON 要素
type layerPayload struct {
	Handle  string      `json:"handle,omitempty"`
	Feature aoi.Feature `json:"feature"`
}

func (p layerPayload) layer() surface.Layer {
	return surface.Layer{
		Handle:     p.Handle,
		AoiID:      p.Feature.ID,
		Geometry:   p.Feature.Geometry,
		Properties: p.Feature.Properties,
	}
}

type layersRequest struct {
	Layers []layerPayload `json:"layers"`
}

type clickRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type layersResponse struct {
	Layers []surface.Layer `json:"layers"`
	Armed  surface.Tool    `json:"armed,omitempty"`
}
