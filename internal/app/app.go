// 包 app：组装 AOI Store、绘制面适配器、视口、搜索会话与持久化后端，供 HTTP 服务与命令行共用
package app

import (
	"context"
	"time"

	"aoi-map/internal/aoi"
	"aoi-map/internal/geocode"
	"aoi-map/internal/logger"
	"aoi-map/internal/search"
	"aoi-map/internal/storage"
	"aoi-map/internal/surface"
	"aoi-map/internal/utils"
	"aoi-map/internal/viewport"
)

type Config struct {
	PersistDelay time.Duration
	SearchDelay  time.Duration
	CacheSize    int
	CacheTTL     time.Duration
	GeoIPPath    string
}

// ConfigFromEnv：PERSIST_DEBOUNCE_MS / SEARCH_DEBOUNCE_MS / GEOCODE_CACHE_* / GEOIP_DB
func ConfigFromEnv() Config {
	return Config{
		PersistDelay: utils.EnvMillis("PERSIST_DEBOUNCE_MS", aoi.DefaultPersistDelay),
		SearchDelay:  utils.EnvMillis("SEARCH_DEBOUNCE_MS", search.DefaultDelay),
		CacheSize:    utils.EnvInt("GEOCODE_CACHE_SIZE", 256),
		CacheTTL:     utils.EnvSeconds("GEOCODE_CACHE_TTL_S", 10*time.Minute),
		GeoIPPath:    utils.EnvString("GEOIP_DB", ""),
	}
}

// App：应用根对象，持有全部状态并负责其生命周期
type App struct {
	Store    *aoi.Store
	Surface  *surface.LayerGroup
	Adapter  *surface.Adapter
	Viewport *viewport.Viewport
	Geocoder *geocode.Client
	Search   *search.Session
	Locator  *viewport.Locator
	Backend  *storage.Backend

	detach func()
}

// 文档注释：组装应用
// 背景：视口先于 Store 创建以便聚焦时适配；适配器挂载后再从存储加载，使加载结果直接同步到绘制面。
// 约束：backend 为 nil 时使用内存槽位；GeoIP 库打开失败只记录，不影响启动。
func New(ctx context.Context, cfg Config, backend *storage.Backend, geo *geocode.Client) *App {
	if backend == nil {
		backend = &storage.Backend{Name: "memory", Slot: storage.NewMemorySlot()}
	}
	if geo == nil {
		geo = geocode.NewFromEnv()
	}
	if backend.Redis != nil {
		geo.WithCache(geocode.NewRedisCache(backend.Redis, cfg.CacheTTL))
	} else if cfg.CacheSize > 0 {
		geo.WithCache(geocode.NewLRU(cfg.CacheSize, cfg.CacheTTL))
	}

	vp := viewport.New(viewport.DefaultSize)
	st := aoi.New(aoi.Options{
		Gateway:      storage.NewGateway(backend.Slot),
		Viewport:     vp,
		PersistDelay: cfg.PersistDelay,
	})
	ls := surface.NewLayerGroup()
	ad := surface.NewAdapter(st, ls)
	a := &App{
		Store:    st,
		Surface:  ls,
		Adapter:  ad,
		Viewport: vp,
		Geocoder: geo,
		Search:   search.NewSession(geo, st, vp, cfg.SearchDelay),
		Backend:  backend,
	}
	a.detach = ad.Attach()
	if cfg.GeoIPPath != "" {
		if loc, err := viewport.OpenLocator(cfg.GeoIPPath); err == nil {
			a.Locator = loc
			logger.L().Info("geoip_ready", "path", cfg.GeoIPPath)
		} else {
			logger.L().Error("geoip_open_error", "err", err)
		}
	}
	st.LoadFromStorage(ctx)
	logger.L().Info("app_ready", "backend", backend.Name, "aois", st.Len())
	return a
}

// Locate：按访问者 IP 把视口移到其所在位置（落在地图范围内时）
func (a *App) Locate(ip string) bool {
	p, ok := a.Locator.Locate(ip)
	if !ok {
		return false
	}
	a.Viewport.CenterOn(p, 0)
	logger.L().Debug("viewport_locate", "ip", ip, "lon", p.Lon(), "lat", p.Lat())
	return true
}

// Close：写出待持久化状态并释放资源
func (a *App) Close() {
	a.Search.Close()
	if a.detach != nil {
		a.detach()
	}
	a.Store.Close()
	if err := a.Locator.Close(); err != nil {
		logger.L().Warn("geoip_close_error", "err", err)
	}
	if err := a.Backend.Close(); err != nil {
		logger.L().Warn("backend_close_error", "err", err)
	}
}
