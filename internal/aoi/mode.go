package aoi

import (
	"errors"
	"fmt"
	"strings"
)

// DrawMode：当前激活的交互工具，同一时刻只有一个
type DrawMode string

const (
	DrawNone      DrawMode = "none"
	DrawEdit      DrawMode = "edit"
	DrawCurve     DrawMode = "curve"
	DrawRectangle DrawMode = "rectangle"
	DrawPolygon   DrawMode = "polygon"
	DrawErase     DrawMode = "erase"
)

// SingleShot：一次绘制完成后自动回到 none 的工具
func (m DrawMode) SingleShot() bool {
	return m == DrawPolygon || m == DrawRectangle
}

func ParseDrawMode(s string) (DrawMode, error) {
	switch m := DrawMode(strings.ToLower(strings.TrimSpace(s))); m {
	case DrawNone, DrawEdit, DrawCurve, DrawRectangle, DrawPolygon, DrawErase:
		return m, nil
	}
	return "", fmt.Errorf("draw mode %q: %w", s, ErrInvalidMode)
}

// MapViewMode：底图模式，base 为航拍影像，vector 为街道矢量
type MapViewMode string

const (
	ViewBase   MapViewMode = "base"
	ViewVector MapViewMode = "vector"
)

func ParseMapViewMode(s string) (MapViewMode, error) {
	switch m := MapViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ViewBase, ViewVector:
		return m, nil
	}
	return "", fmt.Errorf("map view mode %q: %w", s, ErrInvalidMode)
}

var (
	ErrDuplicateID     = errors.New("aoi: duplicate id")
	ErrInvalidMode     = errors.New("aoi: invalid mode")
	ErrIndexOutOfRange = errors.New("aoi: index out of range")
	ErrNotPolygon      = errors.New("aoi: geometry is not a polygon")
)

// 文档注释：重排越界错误
// 约束：errors.Is(err, ErrIndexOutOfRange) 成立；集合保持不变。
type IndexError struct {
	From, To, Len int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("aoi: reorder %d -> %d out of range for %d features", e.From, e.To, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }
