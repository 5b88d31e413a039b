// Package overlay draws model results onto BGR frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/detector"
)

// Colours are given in RGB; gocv converts them to the Mat's BGR order.
var (
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	Silver  = color.RGBA{R: 224, G: 224, B: 224, A: 0}
)

// TextStyle describes how a label is rendered.
type TextStyle struct {
	Origin    image.Point
	Font      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
}

// FPS label styles of the demos.
var (
	DetectionFPS = TextStyle{Origin: image.Pt(20, 50), Font: gocv.FontHersheySimplex, Scale: 1, Color: Blue, Thickness: 2}
	MeshFPS      = TextStyle{Origin: image.Pt(20, 70), Font: gocv.FontHersheyPlain, Scale: 3, Color: Blue, Thickness: 2}
)

const (
	boxThickness   = 2
	scoreOffset    = 20
	labelHeight    = 35
	labelPadding   = 6
	landmarkRadius = 2
)

// Text draws s using style.
func Text(img *gocv.Mat, s string, style TextStyle) {
	gocv.PutText(img, s, style.Origin, style.Font, style.Scale, style.Color, style.Thickness)
}

// FPS draws the frame rate, truncated to an integer.
func FPS(img *gocv.Mat, fps float64, style TextStyle) {
	Text(img, fmt.Sprintf("FPS: %d", int(fps)), style)
}

// Detection draws a face box with its score above it and the keypoints.
func Detection(img *gocv.Mat, d detector.Detection) {
	w, h := img.Cols(), img.Rows()
	box := d.Box.Pixels(w, h)

	for _, kp := range d.Keypoints {
		pt := image.Pt(int(kp.X*float64(w)), int(kp.Y*float64(h)))
		gocv.Circle(img, pt, landmarkRadius, Red, -1)
	}

	gocv.Rectangle(img, box, Magenta, boxThickness)
	Text(img, fmt.Sprintf("%d%%", d.Percent()), TextStyle{
		Origin:    image.Pt(box.Min.X, box.Min.Y-scoreOffset),
		Font:      gocv.FontHersheySimplex,
		Scale:     1,
		Color:     Magenta,
		Thickness: boxThickness,
	})
}

// Mesh draws every landmark as a small dot and circles the face.
func Mesh(img *gocv.Mat, m detector.FaceMesh) {
	w, h := img.Cols(), img.Rows()
	for _, p := range m.Landmarks {
		gocv.Circle(img, landmarkPoint(p, w, h), landmarkRadius, Silver, 1)
	}

	if center, radius, ok := detector.EnclosingCircle(m.Landmarks, w, h); ok {
		gocv.Circle(img, center, radius, Green, boxThickness)
	}
}

// Landmarks returns a copy of img with each landmark drawn as a filled
// green dot. The caller owns the returned Mat.
func Landmarks(img gocv.Mat, m detector.FaceMesh) gocv.Mat {
	out := img.Clone()
	w, h := out.Cols(), out.Rows()
	for _, p := range m.Landmarks {
		gocv.Circle(&out, landmarkPoint(p, w, h), landmarkRadius, Green, -1)
	}
	return out
}

// NameTag draws a red box around a recognised face with the name on a
// filled strip along its bottom edge.
func NameTag(img *gocv.Mat, face image.Rectangle, name string) {
	gocv.Rectangle(img, face, Red, boxThickness)

	strip := image.Rect(face.Min.X, face.Max.Y-labelHeight, face.Max.X, face.Max.Y)
	gocv.Rectangle(img, strip, Red, -1)

	Text(img, name, TextStyle{
		Origin:    image.Pt(face.Min.X+labelPadding, face.Max.Y-labelPadding),
		Font:      gocv.FontHersheyDuplex,
		Scale:     1.0,
		Color:     White,
		Thickness: 1,
	})
}

func landmarkPoint(p detector.Point3D, w, h int) image.Point {
	return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
}
