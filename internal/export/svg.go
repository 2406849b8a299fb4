package export

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/pilot"
	"github.com/san-kum/flightlab/internal/telemetry"
)

// Track is one agent's flown path seen from above.
type Track struct {
	Name   string
	Color  pilot.Color
	Points []r2.Vec
}

// TrackFromLog reads the x-y positions out of an agent's telemetry.
func TrackFromLog(name string, color pilot.Color, l *telemetry.Log) Track {
	tr := Track{Name: name, Color: color}
	for i := 0; i < l.Len(); i++ {
		p := l.Position(i)
		tr.Points = append(tr.Points, r2.Vec{X: p.X, Y: p.Y})
	}
	return tr
}

type view struct {
	minX, minY, rangeX, rangeY float64
	width, height              int
}

func (v view) at(p r2.Vec) (float64, float64) {
	x := (p.X - v.minX) / v.rangeX * float64(v.width)
	y := float64(v.height) - (p.Y-v.minY)/v.rangeY*float64(v.height)
	return x, y
}

func (v view) scale(d float64) float64 { return d / v.rangeX * float64(v.width) }

// fit keeps the aspect ratio so rings stay round.
func fit(specs []gates.GateSpec, tracks []Track, width, height int) view {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	grow := func(x, y, r float64) {
		minX, maxX = math.Min(minX, x-r), math.Max(maxX, x+r)
		minY, maxY = math.Min(minY, y-r), math.Max(maxY, y+r)
	}
	for _, g := range specs {
		grow(g.Position[0], g.Position[1], g.Radius)
	}
	for _, tr := range tracks {
		for _, p := range tr.Points {
			grow(p.X, p.Y, 0)
		}
	}
	if math.IsInf(minX, 0) {
		minX, maxX, minY, maxY = -1, 1, -1, 1
	}

	rangeX := math.Max(maxX-minX, 1)
	rangeY := math.Max(maxY-minY, 1)
	minX -= rangeX * 0.05
	minY -= rangeY * 0.05
	rangeX *= 1.1
	rangeY *= 1.1

	aspect := float64(width) / float64(height)
	if rangeX/rangeY < aspect {
		grow := rangeY*aspect - rangeX
		minX -= grow / 2
		rangeX += grow
	} else {
		grow := rangeX/aspect - rangeY
		minY -= grow / 2
		rangeY += grow
	}
	return view{minX: minX, minY: minY, rangeX: rangeX, rangeY: rangeY, width: width, height: height}
}

// TraceSVG draws the course and the agents' tracks top-down. Upright rings
// show as bars across their opening, flat rings as circles.
func TraceSVG(course gates.Course, tracks []Track, width, height int) string {
	specs := course.Specs()
	v := fit(specs, tracks, width, height)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g stroke="#e0e0e0" fill="none" stroke-width="2">
`, width, height, width, height))

	for i, g := range course {
		c := r2.Vec{X: g.Center().X, Y: g.Center().Y}
		n := g.Normal()
		cx, cy := v.at(c)
		nxy := math.Hypot(n.X, n.Y)
		if nxy < 0.5 {
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, cx, cy, v.scale(g.Radius)))
		} else {
			perp := r2.Scale(g.Radius/nxy, r2.Vec{X: -n.Y, Y: n.X})
			x1, y1 := v.at(r2.Add(c, perp))
			x2, y2 := v.at(r2.Sub(c, perp))
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, x1, y1, x2, y2))
		}
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="#808080" stroke="none" font-size="10">%d</text>
`, cx+4, cy-4, i))
	}
	sb.WriteString("</g>\n")

	for _, tr := range tracks {
		if len(tr.Points) < 2 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" data-agent="%s" d="M`, tr.Color.Hex(), escape(tr.Name)))
		for i, p := range tr.Points {
			x, y := v.at(p)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}
