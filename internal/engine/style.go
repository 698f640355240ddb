package engine

import (
	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/repository"
)

// Font is the set of font properties applied together by SetFont
type Font struct {
	Face  string
	Size  float64
	Color string
}

// setStyle updates field on every view that declares it. Views without the field are skipped;
// when none qualifies nothing is submitted.
func (e *Engine) setStyle(name string, views []*repository.Element, values map[string]any) error {
	if err := requireAttached(views...); err != nil {
		return err
	}
	tx := repository.NewTransaction(name)
	for _, v := range views {
		if !v.IsView() {
			continue
		}
		for _, field := range styleOrder {
			value, ok := values[field]
			if !ok || !v.HasField(field) {
				continue
			}
			tx.Add(repository.Update(v, field, value))
		}
	}
	if tx.Len() == 0 {
		return nil
	}
	return e.submit(tx)
}

var styleOrder = []string{"fontFace", "fontSize", "fontColor", "fillColor", "lineColor", "lineStyle", "autoResize", "showShadow"}

func (e *Engine) SetFont(views []*repository.Element, font Font) error {
	if font.Size <= 0 {
		return errs.InvalidArgument("invalid font size %g", font.Size)
	}
	values := map[string]any{"fontSize": font.Size}
	if font.Face != "" {
		values["fontFace"] = font.Face
	}
	if font.Color != "" {
		values["fontColor"] = font.Color
	}
	return e.setStyle("Set font", views, values)
}

func (e *Engine) SetFontFace(views []*repository.Element, face string) error {
	return e.setStyle("Set font face", views, map[string]any{"fontFace": face})
}

func (e *Engine) SetFontSize(views []*repository.Element, size float64) error {
	if size <= 0 {
		return errs.InvalidArgument("invalid font size %g", size)
	}
	return e.setStyle("Set font size", views, map[string]any{"fontSize": size})
}

func (e *Engine) SetFontColor(views []*repository.Element, color string) error {
	return e.setStyle("Set font color", views, map[string]any{"fontColor": color})
}

func (e *Engine) SetFillColor(views []*repository.Element, color string) error {
	return e.setStyle("Set fill color", views, map[string]any{"fillColor": color})
}

func (e *Engine) SetLineColor(views []*repository.Element, color string) error {
	return e.setStyle("Set line color", views, map[string]any{"lineColor": color})
}

// SetLineStyle sets the routing style of edge views
func (e *Engine) SetLineStyle(views []*repository.Element, style int) error {
	if style < repository.LineStyleRectilinear || style > repository.LineStyleCurve {
		return errs.InvalidArgument("unknown line style %d", style)
	}
	return e.setStyle("Set line style", views, map[string]any{"lineStyle": style})
}

func (e *Engine) SetAutoResize(views []*repository.Element, enabled bool) error {
	return e.setStyle("Set auto resize", views, map[string]any{"autoResize": enabled})
}

func (e *Engine) SetShowShadow(views []*repository.Element, enabled bool) error {
	return e.setStyle("Set show shadow", views, map[string]any{"showShadow": enabled})
}
