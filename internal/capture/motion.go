package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	blurKernel    = 21
	pixelDiffCut  = 25
	maxPixelValue = 255
)

// MotionGate decides whether a frame differs enough from the last accepted
// one to be worth re-encoding. The first frame always passes. A threshold
// <= 0 disables the gate.
type MotionGate struct {
	threshold float64 // percent of changed pixels
	baseline  gocv.Mat
	primed    bool
	last      float64
	mu        sync.Mutex
}

// NewMotionGate returns a gate that passes frames in which more than
// threshold percent of pixels changed.
func NewMotionGate(threshold float64) *MotionGate {
	return &MotionGate{threshold: threshold, baseline: gocv.NewMat()}
}

// Enabled reports whether the gate filters frames at all.
func (g *MotionGate) Enabled() bool {
	return g != nil && g.threshold > 0
}

// Allow reports whether frame should be processed. Accepted frames become
// the new baseline, so slow drift eventually passes.
func (g *MotionGate) Allow(frame *gocv.Mat) bool {
	if !g.Enabled() {
		return true
	}
	if frame == nil || frame.Empty() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	blurred := grayBlur(frame)
	defer blurred.Close()

	if !g.primed {
		blurred.CopyTo(&g.baseline)
		g.primed = true
		g.last = 100
		return true
	}

	g.last = changedPercent(blurred, g.baseline)
	if g.last <= g.threshold {
		return false
	}
	blurred.CopyTo(&g.baseline)
	return true
}

// LastChange returns the changed-pixel percentage measured by the last Allow.
func (g *MotionGate) LastChange() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Reset forgets the baseline so the next frame passes.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
	g.last = 0
}

// Close releases the baseline Mat. The gate can be reused afterwards.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.baseline.Close()
	g.baseline = gocv.NewMat()
	g.primed = false
}

func grayBlur(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)
	return blurred
}

func changedPercent(a, b gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDiffCut, maxPixelValue, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100
}
