package detector

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// YuNet output columns: box (4), five keypoints (10), score.
const (
	yunetKeypoints = 5
	yunetScoreCol  = 14
)

// YuNetDetector detects faces with OpenCV's FaceDetectorYN.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	mu       sync.Mutex
}

// NewYuNet loads a YuNet ONNX model. Faces scoring below scoreThreshold are dropped.
func NewYuNet(modelPath string, scoreThreshold float64) (*YuNetDetector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("yunet model: %w", err)
	}
	if scoreThreshold <= 0 {
		scoreThreshold = DetectionConfig().MinDetectionConfidence
	}

	// The input size is reset for every frame.
	d := gocv.NewFaceDetectorYNWithParams(
		modelPath,
		"",
		image.Pt(320, 320),
		float32(scoreThreshold),
		0.3,
		5000,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)
	return &YuNetDetector{detector: d}, nil
}

func (d *YuNetDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	w, h := float64(frame.Cols()), float64(frame.Rows())
	d.detector.SetInputSize(image.Pt(frame.Cols(), frame.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(*frame, &faces)

	detections := make([]Detection, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		det := Detection{
			Box: RelativeBox{
				XMin:   float64(faces.GetFloatAt(r, 0)) / w,
				YMin:   float64(faces.GetFloatAt(r, 1)) / h,
				Width:  float64(faces.GetFloatAt(r, 2)) / w,
				Height: float64(faces.GetFloatAt(r, 3)) / h,
			},
			Score: float64(faces.GetFloatAt(r, yunetScoreCol)),
		}
		for k := 0; k < yunetKeypoints; k++ {
			det.Keypoints = append(det.Keypoints, Point2D{
				X: float64(faces.GetFloatAt(r, 4+2*k)) / w,
				Y: float64(faces.GetFloatAt(r, 5+2*k)) / h,
			})
		}
		detections = append(detections, det)
	}
	return detections, nil
}

func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
