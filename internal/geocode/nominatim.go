package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aoi-map/internal/logger"
	"aoi-map/internal/metrics"
	"aoi-map/internal/utils"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "AOI-Map-App/1.0"
	DefaultLimit     = 10
)

// Client：Nominatim 搜索客户端
type Client struct {
	base  string
	ua    string
	http  *http.Client
	cache Cache
}

func New(baseURL, userAgent string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), ua: userAgent, http: hc}
}

// NewFromEnv：NOMINATIM_URL / NOMINATIM_USER_AGENT / NOMINATIM_TIMEOUT_S
func NewFromEnv() *Client {
	hc := &http.Client{Timeout: utils.EnvSeconds("NOMINATIM_TIMEOUT_S", 10*time.Second)}
	return New(utils.EnvString("NOMINATIM_URL", DefaultBaseURL), utils.EnvString("NOMINATIM_USER_AGENT", DefaultUserAgent), hc)
}

// WithCache：挂载结果缓存；nil 表示不缓存
func (c *Client) WithCache(cache Cache) *Client {
	c.cache = cache
	return c
}

// 文档注释：按名称搜索地点
// 参数：
// - query：原样发送，调用方负责去抖与最短长度判断；
// - limit：<=0 时取 DefaultLimit。
// 返回：按服务端排序的候选；传输失败、非 200、解码失败一律返回空切片。
// 约束：单次请求不重试；失败只记日志与指标，不返回错误。
func (c *Client) Search(ctx context.Context, query string, limit int) []Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	key := strings.ToLower(strings.TrimSpace(query)) + "|" + strconv.Itoa(limit)
	if c.cache != nil {
		if v, ok := c.cache.Get(ctx, key); ok {
			metrics.GeocodeCacheHitsTotal.Inc()
			logger.L().Debug("geocode_cache_hit", "q", query, "count", len(v))
			return v
		}
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("addressdetails", "1")
	q.Set("polygon_geojson", "1")
	q.Set("extratags", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/search?"+q.Encode(), nil)
	if err != nil {
		metrics.GeocodeFailTotal.Inc()
		logger.L().Error("geocode_request_error", "err", err)
		return []Candidate{}
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json")

	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	logger.L().Debug("geocode_req", "q", query, "limit", limit)
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.GeocodeFailTotal.Inc()
		logger.L().Error("geocode_http_error", "err", err)
		return []Candidate{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeFailTotal.Inc()
		logger.L().Error("geocode_status_error", "status", resp.StatusCode)
		return []Candidate{}
	}
	var raw []rawResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.GeocodeFailTotal.Inc()
		logger.L().Error("geocode_decode_error", "err", err)
		return []Candidate{}
	}
	out := make([]Candidate, 0, len(raw))
	for _, r := range raw {
		if cand, ok := r.candidate(); ok {
			out = append(out, cand)
		} else {
			logger.L().Warn("geocode_bbox_invalid", "place_id", r.PlaceID)
		}
	}
	dur := time.Since(t0).Milliseconds()
	metrics.GeocodeDurationMs.Observe(float64(dur))
	metrics.GeocodeSuccessTotal.Inc()
	logger.L().Debug("geocode_resp", "q", query, "count", len(out), "duration_ms", dur)
	if c.cache != nil {
		c.cache.Set(ctx, key, out)
	}
	return out
}
