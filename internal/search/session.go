// 包 search：搜索框会话，负责输入防抖、最后查询优先与候选选择
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"aoi-map/internal/aoi"
	"aoi-map/internal/debounce"
	"aoi-map/internal/geocode"
	"aoi-map/internal/logger"
	"aoi-map/internal/metrics"
)

const (
	DefaultDelay = 300 * time.Millisecond
	MinQueryLen  = 2
)

var (
	ErrSuperseded = errors.New("search: superseded by a newer query")
	ErrNoResult   = errors.New("search: no such result")
)

// Geocoder：地名搜索契约，失败时返回空切片
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) []geocode.Candidate
}

type outcome struct {
	results []geocode.Candidate
	err     error
}

// 文档注释：搜索会话
// 背景：每次输入递增序号并重新计时；防抖结束后才发出请求。响应返回时若序号已变化则丢弃，只保留最新查询的结果。
// 约束：去除首尾空白后少于 MinQueryLen 个字符的查询不发请求，结果直接清空。
type Session struct {
	geo   Geocoder
	store *aoi.Store
	vp    aoi.Viewport
	deb   *debounce.Debouncer
	limit int

	mu      sync.Mutex
	seq     uint64
	query   string
	results []geocode.Candidate
	waiter  chan outcome
}

func NewSession(geo Geocoder, store *aoi.Store, vp aoi.Viewport, delay time.Duration) *Session {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Session{geo: geo, store: store, vp: vp, deb: debounce.New(delay), limit: geocode.DefaultLimit}
}

// Submit：按键输入入口；等待本次查询的防抖结果，被更新的输入取代时返回 ErrSuperseded
func (s *Session) Submit(ctx context.Context, q string) ([]geocode.Candidate, error) {
	w := make(chan outcome, 1)
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.query = q
	if s.waiter != nil {
		s.waiter <- outcome{err: ErrSuperseded}
	}
	s.waiter = w
	s.mu.Unlock()

	s.deb.Trigger(func() {
		res, err := s.run(context.Background(), seq, q)
		s.mu.Lock()
		if s.waiter == w {
			s.waiter = nil
			w <- outcome{res, err}
		}
		s.mu.Unlock()
	})

	select {
	case o := <-w:
		return o.results, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Query：不经防抖立即查询，仍遵循最后查询优先
func (s *Session) Query(ctx context.Context, q string) ([]geocode.Candidate, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.query = q
	s.mu.Unlock()
	return s.run(ctx, seq, q)
}

func (s *Session) run(ctx context.Context, seq uint64, q string) ([]geocode.Candidate, error) {
	var res []geocode.Candidate
	if len([]rune(strings.TrimSpace(q))) >= MinQueryLen {
		res = s.geo.Search(ctx, q, s.limit)
	}
	if res == nil {
		res = []geocode.Candidate{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		metrics.SearchSupersededTotal.Inc()
		logger.L().Debug("search_superseded", "q", q, "seq", seq, "latest", s.seq)
		return nil, ErrSuperseded
	}
	s.results = res
	return res, nil
}

// Results：当前查询串与其结果（下拉列表内容）
func (s *Session) Results() (string, []geocode.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, append([]geocode.Candidate(nil), s.results...)
}

// 文档注释：选择候选
// 背景：视口按候选外包框适配（内边距 50），随后把候选转为 AOI 加入集合；查询串替换为候选名称并关闭下拉列表。
// 约束：不改变聚焦状态；索引越界返回 ErrNoResult。
func (s *Session) Select(i int) (aoi.Feature, error) {
	s.mu.Lock()
	if i < 0 || i >= len(s.results) {
		n := len(s.results)
		s.mu.Unlock()
		return aoi.Feature{}, fmt.Errorf("select %d of %d: %w", i, n, ErrNoResult)
	}
	c := s.results[i]
	s.seq++
	s.query = c.DisplayName
	s.results = nil
	s.mu.Unlock()

	if s.vp != nil {
		s.vp.FitBounds(c.BBox.Bound(), aoi.FocusPadding)
	}
	f, err := s.store.AddAoi(c.Feature())
	if err != nil {
		return aoi.Feature{}, err
	}
	logger.L().Info("search_select", "place_id", c.PlaceID, "aoi_id", f.ID, "name", c.DisplayName)
	return f, nil
}

// Close：丢弃尚未发出的查询
func (s *Session) Close() {
	s.deb.Stop()
	s.mu.Lock()
	if s.waiter != nil {
		s.waiter <- outcome{err: ErrSuperseded}
		s.waiter = nil
	}
	s.mu.Unlock()
}
