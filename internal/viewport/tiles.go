package viewport

import "aoi-map/internal/aoi"

// TileLayer：底图图层描述，浏览器按 Kind 挂载 WMS 或 XYZ 图层
type TileLayer struct {
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	Layers      string `json:"layers,omitempty"`
	Format      string `json:"format,omitempty"`
	Version     string `json:"version,omitempty"`
	Transparent bool   `json:"transparent"`
	Attribution string `json:"attribution"`
	MinZoom     int    `json:"minZoom"`
	MaxZoom     int    `json:"maxZoom"`
	TileSize    int    `json:"tileSize"`
}

var (
	// 北威州数字正射影像 WMS
	BaseLayer = TileLayer{
		Kind:        "wms",
		URL:         "https://www.wms.nrw.de/geobasis/wms_nw_dop",
		Layers:      "WMS_NW_DOP",
		Format:      "image/jpeg",
		Version:     "1.3.0",
		Attribution: `© <a href="https://www.wms.nrw.de/">Geobasis NRW</a>`,
		MinZoom:     MinZoom,
		MaxZoom:     MaxZoom,
		TileSize:    tileSize,
	}
	VectorLayer = TileLayer{
		Kind:        "xyz",
		URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `© <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MinZoom:     MinZoom,
		MaxZoom:     MaxZoom,
		TileSize:    tileSize,
	}
)

// TileLayerFor：每种底图模式恰好对应一个图层
func TileLayerFor(m aoi.MapViewMode) TileLayer {
	if m == aoi.ViewVector {
		return VectorLayer
	}
	return BaseLayer
}
