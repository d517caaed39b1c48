package viewport

import (
	"fmt"
	"net"

	"aoi-map/internal/logger"

	"github.com/oschwald/geoip2-golang"
	"github.com/paulmach/orb"
)

// 文档注释：按访问者 IP 估算初始视口中心
// 背景：可选的 MaxMind City 库（GEOIP_DB）；仅当定位点落在 MaxBounds 内时才使用。
// 约束：查询失败或无坐标时返回 false，调用方保持默认中心。
type Locator struct {
	db *geoip2.Reader
}

func OpenLocator(path string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	return &Locator{db: db}, nil
}

func (l *Locator) Locate(ipStr string) (orb.Point, bool) {
	if l == nil || l.db == nil {
		return orb.Point{}, false
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return orb.Point{}, false
	}
	rec, err := l.db.City(ip)
	if err != nil {
		logger.L().Debug("geoip_lookup_error", "ip", ipStr, "err", err)
		return orb.Point{}, false
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return orb.Point{}, false
	}
	p := orb.Point{rec.Location.Longitude, rec.Location.Latitude}
	if !MaxBounds.Contains(p) {
		return orb.Point{}, false
	}
	return p, true
}

func (l *Locator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
