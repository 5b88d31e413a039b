package demo

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/attendance"
	"github.com/ayusman/facecam/internal/capture"
	"github.com/ayusman/facecam/internal/detector"
	"github.com/ayusman/facecam/internal/display"
	"github.com/ayusman/facecam/internal/recognize"
)

func blank(t *testing.T) *gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(capture.DefaultHeight, capture.DefaultWidth, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return &m
}

func recognitionFixture(t *testing.T, markUnknown bool) (*RecognitionProcessor, *recognize.MockEncoder, *attendance.Ledger) {
	t.Helper()

	roster := &recognize.Roster{}
	roster.Add("alice", recognize.UnitDescriptor(0, 1))
	roster.Add("bob", recognize.UnitDescriptor(1, 1))

	enc := recognize.NewMockEncoder()
	enc.SetFaces([]recognize.Face{
		{Rect: image.Rect(100, 100, 250, 250), Descriptor: recognize.UnitDescriptor(0, 0.9)},
		{Rect: image.Rect(300, 100, 450, 250), Descriptor: recognize.UnitDescriptor(5, 1)},
	})

	ledger := attendance.NewLedger(nil)
	p := &RecognitionProcessor{
		Encoder:     enc,
		Roster:      roster,
		Ledger:      ledger,
		Tolerance:   recognize.DefaultTolerance,
		MarkUnknown: markUnknown,
		Output:      filepath.Join(t.TempDir(), "attendance.csv"),
	}
	return p, enc, ledger
}

func TestRecognitionProcessor_MarksEveryEncodedFace(t *testing.T) {
	p, _, ledger := recognitionFixture(t, true)

	for i := 0; i < 2; i++ {
		res, err := p.Process(blank(t))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if res.Faces != 2 || res.Names[0] != "alice" || res.Names[1] != recognize.Unknown {
			t.Errorf("result = %+v", res)
		}
	}

	records := ledger.Records()
	want := []string{"alice", recognize.Unknown, "alice", recognize.Unknown}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, name := range want {
		if records[i].Name != name {
			t.Errorf("records[%d] = %q, want %q", i, records[i].Name, name)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	saved, err := attendance.Load(p.Output)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(saved) != 4 {
		t.Errorf("saved %d records, want 4", len(saved))
	}
}

func TestRecognitionProcessor_SkipUnknown(t *testing.T) {
	p, _, ledger := recognitionFixture(t, false)

	if _, err := p.Process(blank(t)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	records := ledger.Records()
	if len(records) != 1 || records[0].Name != "alice" {
		t.Errorf("records = %+v, want only alice", records)
	}
}

func TestRecognitionProcessor_EmptyRoster(t *testing.T) {
	p, _, ledger := recognitionFixture(t, true)
	p.Roster = &recognize.Roster{}

	res, err := p.Process(blank(t))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for _, n := range res.Names {
		if n != recognize.Unknown {
			t.Errorf("name = %q, want Unknown", n)
		}
	}
	if ledger.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ledger.Len())
	}
}

func TestRecognitionProcessor_EncoderError(t *testing.T) {
	p, enc, ledger := recognitionFixture(t, true)
	enc.SetError(errors.New("dlib failed"))

	if _, err := p.Process(blank(t)); err == nil {
		t.Fatal("expected error")
	}
	if ledger.Len() != 0 {
		t.Error("nothing should be marked when encoding fails")
	}
}

func TestRecognitionProcessor_MotionGate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	p, enc, ledger := recognitionFixture(t, true)
	p.Gate = capture.NewMotionGate(1.0)

	frame := blank(t)
	for i := 0; i < 3; i++ {
		res, err := p.Process(frame)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		// Labels persist on gated frames.
		if res.Faces != 2 {
			t.Errorf("frame %d faces = %d, want 2", i, res.Faces)
		}
	}

	if enc.Calls() != 1 {
		t.Errorf("encoder called %d times, want 1 for a static scene", enc.Calls())
	}
	if ledger.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ledger.Len())
	}
}

func TestDetectionProcessor(t *testing.T) {
	det := detector.NewMockDetector()
	p := &DetectionProcessor{Detector: det}

	res, err := p.Process(blank(t))
	if err != nil || res.Faces != 0 {
		t.Errorf("no detections: res=%+v err=%v", res, err)
	}

	det.SetDetections([]detector.Detection{{
		Box:       detector.RelativeBox{XMin: 0.2, YMin: 0.2, Width: 0.3, Height: 0.3},
		Score:     0.87,
		Keypoints: []detector.Point2D{{X: 0.3, Y: 0.3}},
	}})
	res, err = p.Process(blank(t))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Faces != 1 || len(res.Detections) != 1 {
		t.Errorf("result = %+v", res)
	}

	det.SetError(errors.New("service down"))
	if _, err := p.Process(blank(t)); err == nil {
		t.Error("expected error from detector")
	}

	p.Close()
	if !det.Closed() {
		t.Error("Close should close the detector")
	}
}

func TestMeshProcessor(t *testing.T) {
	mesh := detector.NewMockDetector()
	mesh.SetMeshes([]detector.FaceMesh{
		detector.SquareMesh(detector.RelativeBox{XMin: 0.1, YMin: 0.1, Width: 0.2, Height: 0.2}),
		detector.SquareMesh(detector.RelativeBox{XMin: 0.5, YMin: 0.5, Width: 0.2, Height: 0.2}),
	})
	p := &MeshProcessor{Mesh: mesh}

	res, err := p.Process(blank(t))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Faces != 2 {
		t.Errorf("Faces = %d, want 2", res.Faces)
	}
}

func TestStylingProcessor_SavesCharts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV drawing")
	}

	mesh := detector.NewMockDetector()
	mesh.SetMeshes([]detector.FaceMesh{
		detector.SquareMesh(detector.RelativeBox{XMin: 0.3, YMin: 0.3, Width: 0.3, Height: 0.3}),
	})
	d := display.NewHeadless()
	dir := t.TempDir()

	p := &StylingProcessor{Mesh: mesh, Display: d, PlotDir: dir}
	res, err := p.Process(blank(t))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Faces != 1 {
		t.Errorf("Faces = %d, want 1", res.Faces)
	}
	if d.Shown(AnnotatedWindow) != 1 {
		t.Errorf("annotated image shown %d times, want 1", d.Shown(AnnotatedWindow))
	}
	for _, name := range []string{"landmarks-0001-0.png", "blendshapes-0001-0.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("chart %s not written: %v", name, err)
		}
	}
}

func TestStylingProcessor_ShowsCharts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV drawing")
	}

	mesh := detector.NewMockDetector()
	m := detector.SquareMesh(detector.RelativeBox{XMin: 0.3, YMin: 0.3, Width: 0.3, Height: 0.3})
	m.Blendshapes = nil // nothing to chart
	mesh.SetMeshes([]detector.FaceMesh{m})
	d := display.NewHeadless()

	p := &StylingProcessor{Mesh: mesh, Display: d}
	if _, err := p.Process(blank(t)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if d.Shown(LandmarksWindow) != 1 {
		t.Errorf("landmark chart shown %d times, want 1", d.Shown(LandmarksWindow))
	}
	if d.Shown(BlendshapesWindow) != 0 {
		t.Error("empty blendshapes should not be charted")
	}
}
