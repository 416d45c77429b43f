// Package export renders scenes and metric series as standalone SVG files.
package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/viz"
)

const background = "#0a0a0a"

// SceneToSVG draws the wall faces as filled polygons and the particles as
// circles shaded by speed, far objects first. The camera is fitted to the
// particles when its scale is not positive.
func SceneToSVG(ps []*particle.Particle, faces [][]mgl64.Vec3, cam *viz.Camera, width, height int) string {
	if cam == nil {
		cam = viz.NewCamera()
		cam.Scale = 0
	}
	if cam.Scale <= 0 {
		cam.Fit(ps, width, height)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	sb.WriteString(`<g fill="#223344" fill-opacity="0.6" stroke="#4488aa" stroke-width="1">` + "\n")
	for _, poly := range faces {
		if len(poly) < 3 {
			continue
		}
		sb.WriteString(`<polygon points="`)
		for i, v := range poly {
			x, y, _ := cam.Project(v, width, height)
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d,%d", x, y)
		}
		sb.WriteString(`"/>` + "\n")
	}
	sb.WriteString("</g>\n")

	type disc struct {
		x, y  int
		depth float64
		r     float64
		speed float64
	}
	discs := make([]disc, 0, len(ps))
	maxSpeed := 0.0
	for _, p := range ps {
		x, y, d := cam.Project(p.State.Position, width, height)
		s := p.State.Velocity.Len()
		maxSpeed = math.Max(maxSpeed, s)
		discs = append(discs, disc{x, y, d, p.Radius * cam.Scale, s})
	}
	sort.Slice(discs, func(i, j int) bool { return discs[i].depth > discs[j].depth })

	sb.WriteString(`<g stroke="#000000" stroke-width="0.5">` + "\n")
	for _, d := range discs {
		t := 0.0
		if maxSpeed > 0 {
			t = d.speed / maxSpeed
		}
		fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="%.1f" fill="%s"/>`+"\n", d.x, d.y, math.Max(d.r, 0.5), speedColor(t))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// speedColor blends from blue at rest to red at the fastest particle.
func speedColor(t float64) string {
	t = math.Max(0, math.Min(1, t))
	r := int(40 + 215*t)
	b := int(255 - 215*t)
	return fmt.Sprintf("#%02x%02x%02x", r, 120, b)
}

// SeriesToSVG draws one metric series against time as a polyline.
func SeriesToSVG(times, values []float64, width, height int, strokeColor string) string {
	n := min(len(times), len(values))
	if n < 2 {
		return ""
	}

	minX, maxX := times[0], times[n-1]
	minY, maxY := values[0], values[0]
	for _, v := range values[:n] {
		minY = math.Min(minY, v)
		maxY = math.Max(maxY, v)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i := 0; i < n; i++ {
		x := (times[i] - minX) / rangeX * float64(width)
		y := float64(height) - (values[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
