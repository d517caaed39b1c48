// 包 api：集中注册 HTTP API 路由以解耦主入口；工具栏、搜索框、列表面板与绘制面事件都经由这里进入 Store
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"aoi-map/internal/aoi"
	"aoi-map/internal/app"
	"aoi-map/internal/geocode"
	"aoi-map/internal/logger"
	"aoi-map/internal/middleware"
	"aoi-map/internal/search"
	"aoi-map/internal/surface"
	"aoi-map/internal/viewport"

	"github.com/paulmach/orb"
)

// 请求体上限
const maxBody = 4 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		logger.L().Debug("api_decode_error", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(a *app.App) *http.ServeMux {
	mux := http.NewServeMux()
	st := a.Store

	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		mode := st.MapViewMode()
		writeJSON(w, http.StatusOK, stateResponse{
			Features:  st.Features().GeoJSON(),
			DrawMode:  st.DrawMode(),
			ViewMode:  mode,
			FocusedID: st.FocusedID(),
			TileLayer: viewport.TileLayerFor(mode),
			Viewport:  a.Viewport.State(),
		})
	})

	mux.HandleFunc("GET /aois", func(w http.ResponseWriter, r *http.Request) {
		c := st.Features()
		items := make([]listItem, 0, len(c))
		for i, f := range c {
			items = append(items, listItem{
				ID:        f.ID,
				Label:     c.Label(i),
				Visible:   f.Visible(),
				AreaSqm:   f.Area(),
				Source:    f.Source(),
				CreatedAt: f.CreatedAt().UnixMilli(),
			})
		}
		writeJSON(w, http.StatusOK, items)
	})

	mux.HandleFunc("POST /aois", func(w http.ResponseWriter, r *http.Request) {
		var f aoi.Feature
		if !decode(w, r, &f) {
			return
		}
		out, err := st.AddAoi(f)
		if errors.Is(err, aoi.ErrDuplicateID) {
			writeError(w, http.StatusConflict, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	})

	// 静态段优先于通配段，/aois/reorder 不会被 {id} 捕获
	mux.HandleFunc("POST /aois/reorder", func(w http.ResponseWriter, r *http.Request) {
		var req reorderRequest
		if !decode(w, r, &req) {
			return
		}
		if err := st.ReorderAois(req.From, req.To); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("PUT /aois/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var f aoi.Feature
		if !decode(w, r, &f) {
			return
		}
		if !st.UpdateAoi(id, f) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		out, _ := st.Feature(id)
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("DELETE /aois/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !st.DeleteAoi(r.PathValue("id")) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /aois/{id}/visibility", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !st.ToggleVisibility(id) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		out, _ := st.Feature(id)
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("POST /aois/{id}/focus", func(w http.ResponseWriter, r *http.Request) {
		if !st.FocusAoi(r.PathValue("id")) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, a.Viewport.State())
	})

	// 工具栏：再次选择当前工具即回到 none
	mux.HandleFunc("PUT /draw-mode", func(w http.ResponseWriter, r *http.Request) {
		var req modeRequest
		if !decode(w, r, &req) {
			return
		}
		m, err := aoi.ParseDrawMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if m == st.DrawMode() {
			m = aoi.DrawNone
		}
		_ = st.SetDrawMode(m)
		writeJSON(w, http.StatusOK, modeRequest{Mode: string(m)})
	})

	mux.HandleFunc("PUT /view-mode", func(w http.ResponseWriter, r *http.Request) {
		var req modeRequest
		if !decode(w, r, &req) {
			return
		}
		m, err := aoi.ParseMapViewMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		_ = st.SetMapViewMode(m)
		writeJSON(w, http.StatusOK, viewport.TileLayerFor(m))
	})

	mux.Handle("GET /search", middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		res, err := a.Search.Submit(r.Context(), q)
		if errors.Is(err, search.ErrSuperseded) {
			writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: []geocode.Candidate{}, Superseded: true})
			return
		}
		if err != nil {
			// 客户端断开
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: res})
	})))

	mux.HandleFunc("POST /search/select", func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if !decode(w, r, &req) {
			return
		}
		f, err := a.Search.Select(req.Index)
		if errors.Is(err, search.ErrNoResult) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	})

	mux.HandleFunc("GET /surface/layers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, layersResponse{Layers: a.Surface.Layers(), Armed: a.Surface.Armed()})
	})

	mux.HandleFunc("POST /surface/created", func(w http.ResponseWriter, r *http.Request) {
		var p layerPayload
		if !decode(w, r, &p) {
			return
		}
		f, err := a.Adapter.OnCreate(p.layer())
		if errors.Is(err, aoi.ErrNotPolygon) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	})

	mux.HandleFunc("POST /surface/edited", func(w http.ResponseWriter, r *http.Request) {
		var req layersRequest
		if !decode(w, r, &req) {
			return
		}
		n := a.Adapter.OnEdit(layersOf(req))
		writeJSON(w, http.StatusOK, map[string]int{"updated": n})
	})

	mux.HandleFunc("POST /surface/deleted", func(w http.ResponseWriter, r *http.Request) {
		var req layersRequest
		if !decode(w, r, &req) {
			return
		}
		n := a.Adapter.OnDelete(layersOf(req))
		writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
	})

	mux.HandleFunc("POST /surface/click", func(w http.ResponseWriter, r *http.Request) {
		var req clickRequest
		if !decode(w, r, &req) {
			return
		}
		id, ok := a.Adapter.OnClick(orb.Point{req.Lng, req.Lat})
		writeJSON(w, http.StatusOK, map[string]any{"deleted": ok, "id": id})
	})

	mux.HandleFunc("POST /viewport/zoom", func(w http.ResponseWriter, r *http.Request) {
		var req zoomRequest
		if !decode(w, r, &req) {
			return
		}
		a.Viewport.Zoom(req.Delta)
		writeJSON(w, http.StatusOK, a.Viewport.State())
	})

	mux.HandleFunc("POST /viewport/locate", func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		located := a.Locate(ip)
		writeJSON(w, http.StatusOK, map[string]any{"located": located, "viewport": a.Viewport.State()})
	})

	return mux
}

func layersOf(req layersRequest) []surface.Layer {
	out := make([]surface.Layer, 0, len(req.Layers))
	for _, p := range req.Layers {
		out = append(out, p.layer())
	}
	return out
}
