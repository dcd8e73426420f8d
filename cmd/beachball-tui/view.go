package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/physics"
)

var (
	styleSky    = tcell.StyleDefault
	styleSand   = tcell.StyleDefault.Foreground(tcell.ColorKhaki)
	styleBall   = tcell.StyleDefault.Foreground(tcell.ColorOrangeRed).Bold(true)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLightCyan)
	styleNotice = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// view maps the layout's pixel space onto a cols x rows terminal grid. The
// last row is reserved for the status line.
type view struct {
	layout     game.Layout
	cols, rows int
}

func (v view) playRows() int {
	if v.rows <= 1 {
		return 1
	}
	return v.rows - 1
}

// cell returns the terminal cell containing pixel point (x, y).
func (v view) cell(x, y float64) (int, int) {
	cx := int(math.Floor(x / v.layout.Width * float64(v.cols)))
	cy := int(math.Floor(y / v.layout.Height * float64(v.playRows())))
	return cx, cy
}

// pixel returns the pixel point at the centre of a cell.
func (v view) pixel(cx, cy int) (float64, float64) {
	x := (float64(cx) + 0.5) * v.layout.Width / float64(v.cols)
	y := (float64(cy) + 0.5) * v.layout.Height / float64(v.playRows())
	return x, y
}

// onBeach reports whether a pixel point lies inside the dune: a flat box
// between two rounded ends.
func (v view) onBeach(x, y float64) bool {
	b := v.layout.Beach
	r := v.layout.BeachCornerRadius
	if y < b.Top || y > b.Top+b.Height || x < b.Left || x > b.Left+b.Width {
		return false
	}
	midY := b.Top + b.Height/2
	left := b.Left + r
	right := b.Left + b.Width - r
	switch {
	case x < left:
		return math.Hypot(x-left, y-midY) <= r
	case x > right:
		return math.Hypot(x-right, y-midY) <= r
	}
	return true
}

func (v view) inside(cx, cy int) bool {
	return cx >= 0 && cx < v.cols && cy >= 0 && cy < v.playRows()
}

// draw paints one frame. A nil pose hides the ball.
func (v view) draw(s tcell.Screen, ball *physics.Pose, status, notice string) {
	s.Clear()
	for cy := 0; cy < v.playRows(); cy++ {
		for cx := 0; cx < v.cols; cx++ {
			x, y := v.pixel(cx, cy)
			if v.onBeach(x, y) {
				s.SetContent(cx, cy, '▒', nil, styleSand)
			} else {
				s.SetContent(cx, cy, ' ', nil, styleSky)
			}
		}
	}

	if ball != nil {
		v.drawBall(s, *ball)
	}

	drawText(s, 0, v.rows-1, v.cols, status, styleStatus)
	if notice != "" {
		drawText(s, 0, 0, v.cols, notice, styleNotice)
	}
	s.Show()
}

func (v view) drawBall(s tcell.Screen, p physics.Pose) {
	r := v.layout.BallRadius
	x0, y0 := v.cell(p.X-r, p.Y-r)
	x1, y1 := v.cell(p.X+r, p.Y+r)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			if !v.inside(cx, cy) {
				continue
			}
			x, y := v.pixel(cx, cy)
			if math.Hypot(x-p.X, y-p.Y) <= r {
				s.SetContent(cx, cy, '●', nil, styleBall)
			}
		}
	}
	// A ball smaller than a cell still shows up.
	if cx, cy := v.cell(p.X, p.Y); v.inside(cx, cy) {
		s.SetContent(cx, cy, '●', nil, styleBall)
	}
}

func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= width {
			break
		}
		s.SetContent(x+col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		s.SetContent(x+col, y, ' ', nil, style)
	}
}

func statusLine(state game.State, d game.Difficulty, elapsed float64) string {
	return fmt.Sprintf(" %-8s %-6s %6.1fs   ←/→ push  space start/pause  r reset  1-3 difficulty  q quit", state, d, elapsed)
}
