package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is one vertex of an edge path
type Point struct {
	X, Y float64
}

// Points is an edge path, stored on edge views as "x1,y1;x2,y2;..."
type Points []Point

// ParsePoints decodes the stored form of an edge path
func ParsePoints(s string) (Points, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	out := make(Points, 0, len(parts))
	for _, part := range parts {
		xy := strings.Split(strings.TrimSpace(part), ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid point %q", part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x in %q: %w", part, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y in %q: %w", part, err)
		}
		out = append(out, Point{X: x, Y: y})
	}
	return out, nil
}

func (ps Points) String() string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

// Translate returns a copy of ps shifted by dx, dy
func (ps Points) Translate(dx, dy float64) Points {
	out := make(Points, len(ps))
	for i, p := range ps {
		out[i] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}
