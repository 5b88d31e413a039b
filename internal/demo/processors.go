package demo

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/attendance"
	"github.com/ayusman/facecam/internal/capture"
	"github.com/ayusman/facecam/internal/detector"
	"github.com/ayusman/facecam/internal/display"
	"github.com/ayusman/facecam/internal/log"
	"github.com/ayusman/facecam/internal/overlay"
	"github.com/ayusman/facecam/internal/plot"
	"github.com/ayusman/facecam/internal/recognize"
)

// MeshProcessor draws the face mesh of every face.
type MeshProcessor struct {
	Mesh detector.MeshDetector
}

func (p *MeshProcessor) Name() string { return FaceMesh }

func (p *MeshProcessor) Process(frame *gocv.Mat) (Result, error) {
	meshes, err := p.Mesh.Mesh(frame)
	if err != nil {
		return Result{}, fmt.Errorf("face mesh: %w", err)
	}
	for _, m := range meshes {
		overlay.Mesh(frame, m)
	}
	return Result{Faces: len(meshes)}, nil
}

func (p *MeshProcessor) Close() error {
	return p.Mesh.Close()
}

// DetectionProcessor boxes every detected face and logs its details.
type DetectionProcessor struct {
	Detector detector.FaceDetector
}

func (p *DetectionProcessor) Name() string { return FaceDetection }

func (p *DetectionProcessor) Process(frame *gocv.Mat) (Result, error) {
	dets, err := p.Detector.Detect(frame)
	if err != nil {
		return Result{}, fmt.Errorf("face detection: %w", err)
	}
	if len(dets) == 0 {
		log.Info("No detections found")
		return Result{}, nil
	}

	w, h := frame.Cols(), frame.Rows()
	for i, d := range dets {
		log.Info("Detection", "id", i, "score", d.Score, "relative_box", d.Box)
		log.Info("Bounding box", "id", i, "box", d.Box.Pixels(w, h))
		for _, kp := range d.Keypoints {
			log.Info("Landmark", "id", i, "x", kp.X, "y", kp.Y)
		}
		overlay.Detection(frame, d)
	}
	return Result{Faces: len(dets), Detections: dets}, nil
}

func (p *DetectionProcessor) Close() error {
	return p.Detector.Close()
}

type taggedFace struct {
	rect image.Rectangle
	name string
}

// RecognitionProcessor labels faces against a roster and marks attendance
// for every face it encodes. Attendance is saved to Output on Close.
type RecognitionProcessor struct {
	Encoder   recognize.Encoder
	Roster    *recognize.Roster
	Ledger    *attendance.Ledger
	Tolerance float64

	// MarkUnknown also records faces that match nobody.
	MarkUnknown bool

	// Gate skips encoding frames without motion; the previous labels are
	// redrawn instead. Nil encodes every frame.
	Gate *capture.MotionGate

	Output string

	last []taggedFace
}

func (p *RecognitionProcessor) Name() string { return FacialRecognition }

func (p *RecognitionProcessor) Process(frame *gocv.Mat) (Result, error) {
	if !p.Gate.Allow(frame) {
		p.draw(frame)
		return p.result(), nil
	}

	faces, err := recognize.EncodeMat(p.Encoder, frame)
	if err != nil {
		p.last = nil
		return Result{}, fmt.Errorf("encode faces: %w", err)
	}

	tol := p.Tolerance
	if tol <= 0 {
		tol = recognize.DefaultTolerance
	}

	p.last = p.last[:0]
	for _, f := range faces {
		m := recognize.Match(p.Roster, f.Descriptor, tol)
		log.Debug("Matched face", "name", m.Name, "distance", m.Distance, "index", m.Index)
		if m.Matched || p.MarkUnknown {
			p.Ledger.Mark(m.Name)
		}
		p.last = append(p.last, taggedFace{rect: f.Rect, name: m.Name})
	}

	p.draw(frame)
	return p.result(), nil
}

func (p *RecognitionProcessor) draw(frame *gocv.Mat) {
	for _, f := range p.last {
		overlay.NameTag(frame, f.rect, recognize.DisplayLabel(f.name))
	}
}

func (p *RecognitionProcessor) result() Result {
	res := Result{Faces: len(p.last)}
	for _, f := range p.last {
		res.Names = append(res.Names, f.name)
	}
	return res
}

// Close saves the attendance and releases the encoder.
func (p *RecognitionProcessor) Close() error {
	var errs []error
	if p.Output != "" {
		if err := p.Ledger.Save(p.Output); err != nil {
			errs = append(errs, fmt.Errorf("save attendance: %w", err))
		}
	}
	if p.Gate != nil {
		p.Gate.Close()
	}
	if err := p.Encoder.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Window titles used by the styling demo.
const (
	AnnotatedWindow   = "Annotated Image"
	LandmarksWindow   = "Face Landmarks"
	BlendshapesWindow = "Face Blendshapes"
)

// StylingProcessor shows, for each face, the landmarks on a copy of the frame,
// a plot of the landmark coordinates and a bar chart of the blendshapes.
// Each view waits for a key. With PlotDir set the charts are written there as
// PNG files instead of being shown.
type StylingProcessor struct {
	Mesh     detector.MeshDetector
	Display  display.Display
	PlotDir  string
	PlotSize image.Point

	seq int
}

func (p *StylingProcessor) Name() string { return FaceLandmarkStyles }

func (p *StylingProcessor) Process(frame *gocv.Mat) (Result, error) {
	meshes, err := p.Mesh.Mesh(frame)
	if err != nil {
		return Result{}, fmt.Errorf("face mesh: %w", err)
	}
	p.seq++

	size := p.PlotSize
	if size == (image.Point{}) {
		size = plot.DefaultSize
	}

	for i, m := range meshes {
		annotated := overlay.Landmarks(*frame, m)
		p.Display.ShowIn(AnnotatedWindow, annotated)
		p.Display.WaitKey()
		annotated.Close()

		if err := p.chart(LandmarksWindow, fmt.Sprintf("landmarks-%04d-%d.png", p.seq, i), func() (gocv.Mat, error) {
			return plot.Landmarks(m.Landmarks, size)
		}); err != nil {
			return Result{Faces: len(meshes)}, err
		}
		if err := p.chart(BlendshapesWindow, fmt.Sprintf("blendshapes-%04d-%d.png", p.seq, i), func() (gocv.Mat, error) {
			return plot.Blendshapes(m.Blendshapes, size)
		}); err != nil {
			return Result{Faces: len(meshes)}, err
		}
	}
	return Result{Faces: len(meshes)}, nil
}

func (p *StylingProcessor) chart(title, file string, render func() (gocv.Mat, error)) error {
	img, err := render()
	defer img.Close()
	if errors.Is(err, plot.ErrNoData) {
		log.Debug("Nothing to plot", "chart", title)
		return nil
	}
	if err != nil {
		return fmt.Errorf("plot %s: %w", title, err)
	}

	if p.PlotDir != "" {
		path := filepath.Join(p.PlotDir, file)
		if err := plot.Save(path, img); err != nil {
			return err
		}
		log.Info("Saved chart", "chart", title, "file", path)
		return nil
	}

	p.Display.ShowIn(title, img)
	p.Display.WaitKey()
	return nil
}

func (p *StylingProcessor) Close() error {
	return p.Mesh.Close()
}
