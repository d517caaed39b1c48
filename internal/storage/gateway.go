package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"aoi-map/internal/aoi"
	"aoi-map/internal/logger"
	"aoi-map/internal/metrics"

	"github.com/paulmach/orb/geojson"
)

// 固定存储键
const StorageKey = "aoi-map-app-features"

// 文档注释：持久化网关
// 背景：把 AOI 集合序列化为单个 GeoJSON FeatureCollection 文档写入槽位；加载时校验结构。
// 约束：Save 失败只记录日志与指标，不向上传播；Load 永不返回错误，空/不可解析/结构不符一律视为不存在。
type Gateway struct {
	slot Slot
	key  string
}

func NewGateway(slot Slot) *Gateway {
	return &Gateway{slot: slot, key: StorageKey}
}

func (g *Gateway) Save(ctx context.Context, c aoi.Collection) {
	b, err := c.GeoJSON().MarshalJSON()
	if err != nil {
		metrics.PersistFailTotal.WithLabelValues("encode").Inc()
		logger.L().Error("persist_encode_error", "err", err)
		return
	}
	if err := g.slot.Put(ctx, g.key, string(b)); err != nil {
		metrics.PersistFailTotal.WithLabelValues("write").Inc()
		logger.L().Error("persist_write_error", "key", g.key, "err", err)
		return
	}
	metrics.PersistWritesTotal.Inc()
	logger.L().Debug("persist_write_ok", "key", g.key, "count", len(c), "bytes", len(b))
}

// 外层结构校验：type 必须字面等于 FeatureCollection 且 features 为数组
type envelope struct {
	Type     string          `json:"type"`
	Features json.RawMessage `json:"features"`
}

func (g *Gateway) Load(ctx context.Context) (aoi.Collection, bool) {
	s, err := g.slot.Get(ctx, g.key)
	if errors.Is(err, ErrSlotEmpty) || (err == nil && s == "") {
		metrics.PersistLoadsTotal.WithLabelValues("empty").Inc()
		return nil, false
	}
	if err != nil {
		metrics.PersistFailTotal.WithLabelValues("read").Inc()
		logger.L().Error("persist_read_error", "key", g.key, "err", err)
		return nil, false
	}
	c, ok := decodeCollection([]byte(s))
	if !ok {
		metrics.PersistLoadsTotal.WithLabelValues("invalid").Inc()
		return nil, false
	}
	metrics.PersistLoadsTotal.WithLabelValues("ok").Inc()
	return c, true
}

// Decode：对外暴露的解码入口（CLI 导入使用），规则与 Load 相同
func Decode(b []byte) (aoi.Collection, bool) {
	return decodeCollection(b)
}

func decodeCollection(b []byte) (aoi.Collection, bool) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		metrics.PersistFailTotal.WithLabelValues("decode").Inc()
		logger.L().Error("persist_decode_error", "err", err)
		return nil, false
	}
	if env.Type != "FeatureCollection" || !bytes.HasPrefix(bytes.TrimSpace(env.Features), []byte("[")) {
		metrics.PersistFailTotal.WithLabelValues("shape").Inc()
		logger.L().Error("persist_shape_invalid", "type", env.Type)
		return nil, false
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		metrics.PersistFailTotal.WithLabelValues("decode").Inc()
		logger.L().Error("persist_decode_error", "err", err)
		return nil, false
	}
	return aoi.CollectionFromGeoJSON(fc), true
}
