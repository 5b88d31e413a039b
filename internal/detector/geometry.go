package detector

import (
	"image"
	"math"
)

// Point2D is a keypoint in relative image coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3D is a mesh landmark. X and Y are relative to the image size, Z is
// depth on roughly the same scale as X.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RelativeBox is a bounding box whose coordinates are fractions of the image size.
type RelativeBox struct {
	XMin   float64 `json:"xmin"`
	YMin   float64 `json:"ymin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pixels converts the box to pixel coordinates for a w×h image. Each
// component is truncated independently.
func (b RelativeBox) Pixels(w, h int) image.Rectangle {
	x := int(b.XMin * float64(w))
	y := int(b.YMin * float64(h))
	return image.Rect(x, y, x+int(b.Width*float64(w)), y+int(b.Height*float64(h)))
}

// Detection is one face found by a FaceDetector.
type Detection struct {
	Box       RelativeBox `json:"box"`
	Score     float64     `json:"score"`
	Keypoints []Point2D   `json:"keypoints,omitempty"`
}

// Percent returns the score as a truncated percentage.
func (d Detection) Percent() int {
	return int(d.Score * 100)
}

// Blendshape is a named expression coefficient in [0, 1].
type Blendshape struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FaceMesh is the landmark set of one face.
type FaceMesh struct {
	Landmarks   []Point3D    `json:"landmarks"`
	Blendshapes []Blendshape `json:"blendshapes,omitempty"`
}

// Bounds returns the relative box spanning all landmarks. ok is false for
// an empty slice.
func Bounds(landmarks []Point3D) (box RelativeBox, ok bool) {
	if len(landmarks) == 0 {
		return RelativeBox{}, false
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range landmarks {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return RelativeBox{XMin: minX, YMin: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// EnclosingCircle returns the pixel centre and radius of a circle around the
// landmarks in a w×h image: centred on the landmark bounds, with the larger
// of the half-width and half-height as radius.
func EnclosingCircle(landmarks []Point3D, w, h int) (center image.Point, radius int, ok bool) {
	b, ok := Bounds(landmarks)
	if !ok {
		return image.Point{}, 0, false
	}

	fw, fh := float64(w), float64(h)
	center = image.Pt(
		int((b.XMin+b.XMin+b.Width)/2*fw),
		int((b.YMin+b.YMin+b.Height)/2*fh),
	)
	radius = max(int(b.Width/2*fw), int(b.Height/2*fh))
	return center, radius, true
}
