package mapsync

import (
	"bytes"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
)

const (
	pinWidth     = 25
	pinHeight    = 41
	circleRadius = 12
)

var iconCache sync.Map // Visual -> []byte

// Icon renders the glyph for v as a PNG. Results are cached per visual.
func Icon(v Visual) ([]byte, error) {
	if cached, ok := iconCache.Load(v); ok {
		return cached.([]byte), nil
	}

	var dc *gg.Context
	switch v.Shape {
	case ShapeCircle:
		dc = drawCircle(v.Color)
	default:
		dc = drawPin(v.Color)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	iconCache.Store(v, out)
	return out, nil
}

func drawPin(color string) *gg.Context {
	dc := gg.NewContext(pinWidth, pinHeight)
	r := float64(pinWidth)/2 - 1
	cx, cy := float64(pinWidth)/2, r+1

	// head and tail
	dc.NewSubPath()
	dc.DrawCircle(cx, cy, r)
	dc.MoveTo(cx-r*0.8, cy+r*0.6)
	dc.LineTo(cx, float64(pinHeight)-1)
	dc.LineTo(cx+r*0.8, cy+r*0.6)
	dc.ClosePath()
	dc.SetHexColor(color)
	dc.FillPreserve()
	dc.SetRGBA(0, 0, 0, 0.35)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.DrawCircle(cx, cy, r*0.4)
	dc.SetRGB(1, 1, 1)
	dc.Fill()
	return dc
}

func drawCircle(color string) *gg.Context {
	size := circleRadius*2 + 2
	dc := gg.NewContext(size, size)
	dc.DrawCircle(float64(size)/2, float64(size)/2, circleRadius)
	dc.SetHexColor(color)
	dc.FillPreserve()
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(2)
	dc.Stroke()
	return dc
}
