// Package plot renders the face styling charts into gocv Mats: a bar chart
// of blendshape scores and a line plot of landmark coordinates.
package plot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/detector"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("nothing to plot")

// DefaultSize matches a 10x5 inch figure at 100 dpi.
var DefaultSize = image.Pt(1000, 500)

// Series colours follow the usual matplotlib cycle.
var (
	seriesX = color.RGBA{R: 31, G: 119, B: 180}
	seriesY = color.RGBA{R: 255, G: 127, B: 14}
	seriesZ = color.RGBA{R: 44, G: 160, B: 44}

	background = color.RGBA{R: 255, G: 255, B: 255}
	ink        = color.RGBA{R: 0, G: 0, B: 0}
	gridColor  = color.RGBA{R: 220, G: 220, B: 220}
)

const (
	marginLeft   = 80
	marginRight  = 30
	marginTop    = 50
	marginBottom = 90
	fontScale    = 0.45
	titleScale   = 0.7
	yTicks       = 5
)

// chart maps data coordinates into the plot area of a canvas.
type chart struct {
	img        gocv.Mat
	area       image.Rectangle
	ymin, ymax float64
}

func newChart(size image.Point, ymin, ymax float64) (*chart, error) {
	if size.X <= marginLeft+marginRight || size.Y <= marginTop+marginBottom {
		return nil, fmt.Errorf("plot size %v too small", size)
	}
	if ymax <= ymin {
		ymin, ymax = ymin-0.5, ymin+0.5
	}

	img := gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(float64(background.B), float64(background.G), float64(background.R), 0))

	return &chart{
		img:  img,
		area: image.Rect(marginLeft, marginTop, size.X-marginRight, size.Y-marginBottom),
		ymin: ymin,
		ymax: ymax,
	}, nil
}

func (c *chart) y(v float64) int {
	frac := (v - c.ymin) / (c.ymax - c.ymin)
	return c.area.Max.Y - int(frac*float64(c.area.Dy()))
}

// x returns the centre of slot i out of n equal slots.
func (c *chart) x(i, n int) int {
	slot := float64(c.area.Dx()) / float64(n)
	return c.area.Min.X + int((float64(i)+0.5)*slot)
}

func (c *chart) text(s string, at image.Point, scale float64) {
	gocv.PutText(&c.img, s, at, gocv.FontHersheySimplex, scale, ink, 1)
}

func (c *chart) centredText(s string, centreX, y int, scale float64) {
	size := gocv.GetTextSize(s, gocv.FontHersheySimplex, scale, 1)
	c.text(s, image.Pt(centreX-size.X/2, y), scale)
}

// axes draws the frame, horizontal grid lines with tick labels, the title
// and the axis labels.
func (c *chart) axes(title, xlabel, ylabel string) {
	for i := 0; i <= yTicks; i++ {
		v := c.ymin + (c.ymax-c.ymin)*float64(i)/yTicks
		py := c.y(v)
		gocv.Line(&c.img, image.Pt(c.area.Min.X, py), image.Pt(c.area.Max.X, py), gridColor, 1)
		c.text(fmt.Sprintf("%.2f", v), image.Pt(c.area.Min.X-55, py+5), fontScale)
	}
	gocv.Rectangle(&c.img, c.area, ink, 1)

	c.centredText(title, (c.area.Min.X+c.area.Max.X)/2, marginTop-20, titleScale)
	c.centredText(xlabel, (c.area.Min.X+c.area.Max.X)/2, c.img.Rows()-15, fontScale)
	c.text(ylabel, image.Pt(5, marginTop-5), fontScale)
}

// Blendshapes draws a bar chart of blendshape scores. The caller owns the
// returned Mat.
func Blendshapes(shapes []detector.Blendshape, size image.Point) (gocv.Mat, error) {
	if len(shapes) == 0 {
		return gocv.NewMat(), ErrNoData
	}

	ymax := 0.0
	for _, s := range shapes {
		ymax = math.Max(ymax, s.Score)
	}
	c, err := newChart(size, 0, math.Max(ymax*1.05, 0.01))
	if err != nil {
		return gocv.NewMat(), err
	}

	c.axes("Face Blendshapes", "Blendshape Name", "Blendshape Value")

	n := len(shapes)
	half := max(c.area.Dx()/n*4/10, 1)
	// Label every step-th bar so names do not overlap.
	step := max(1, n*60/c.area.Dx())
	for i, s := range shapes {
		cx := c.x(i, n)
		bar := image.Rect(cx-half, c.y(s.Score), cx+half, c.area.Max.Y)
		gocv.Rectangle(&c.img, bar, seriesX, -1)

		if i%step == 0 {
			label := s.Name
			if len(label) > 12 {
				label = label[:12]
			}
			c.centredText(label, cx, c.area.Max.Y+18+14*((i/step)%3), 0.35)
		}
	}
	return c.img, nil
}

// Landmarks plots the X, Y and Z coordinates of every landmark against its
// index. The caller owns the returned Mat.
func Landmarks(points []detector.Point3D, size image.Point) (gocv.Mat, error) {
	if len(points) == 0 {
		return gocv.NewMat(), ErrNoData
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, math.Min(p.X, math.Min(p.Y, p.Z)))
		hi = math.Max(hi, math.Max(p.X, math.Max(p.Y, p.Z)))
	}
	pad := (hi - lo) * 0.05
	c, err := newChart(size, lo-pad, hi+pad)
	if err != nil {
		return gocv.NewMat(), err
	}

	c.axes("Face Landmarks", "Landmark index", "Coordinate value")

	series := []struct {
		name  string
		color color.RGBA
		value func(detector.Point3D) float64
	}{
		{"X", seriesX, func(p detector.Point3D) float64 { return p.X }},
		{"Y", seriesY, func(p detector.Point3D) float64 { return p.Y }},
		{"Z", seriesZ, func(p detector.Point3D) float64 { return p.Z }},
	}

	n := len(points)
	for si, s := range series {
		prev := image.Pt(c.x(0, n), c.y(s.value(points[0])))
		for i := 1; i < n; i++ {
			cur := image.Pt(c.x(i, n), c.y(s.value(points[i])))
			gocv.Line(&c.img, prev, cur, s.color, 1)
			prev = cur
		}
		if n == 1 {
			gocv.Circle(&c.img, prev, 2, s.color, -1)
		}

		// Legend, top right.
		ly := c.area.Min.Y + 20 + 20*si
		lx := c.area.Max.X - 70
		gocv.Line(&c.img, image.Pt(lx, ly-4), image.Pt(lx+25, ly-4), s.color, 2)
		c.text(s.name, image.Pt(lx+32, ly), fontScale)
	}

	// Index ticks along the x axis.
	for _, i := range []int{0, n / 4, n / 2, 3 * n / 4, n - 1} {
		c.centredText(fmt.Sprint(i), c.x(i, n), c.area.Max.Y+18, fontScale)
	}
	return c.img, nil
}

// Save writes img as an image file; the extension picks the format.
func Save(path string, img gocv.Mat) error {
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("write plot %s", path)
	}
	return nil
}
