package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns preset results. It implements both FaceDetector and
// MeshDetector.
type MockDetector struct {
	detections []Detection
	meshes     []FaceMesh
	err        error
	calls      int
	closed     bool
	mu         sync.Mutex
}

func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

func (m *MockDetector) SetDetections(d []Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = d
}

func (m *MockDetector) SetMeshes(meshes []FaceMesh) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meshes = meshes
}

func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.detections, nil
}

func (m *MockDetector) Mesh(frame *gocv.Mat) ([]FaceMesh, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.meshes, nil
}

// Calls returns how many frames were processed.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SquareMesh returns a four-landmark mesh spanning the given relative box,
// with a couple of blendshapes.
func SquareMesh(b RelativeBox) FaceMesh {
	x0, y0 := b.XMin, b.YMin
	x1, y1 := b.XMin+b.Width, b.YMin+b.Height
	return FaceMesh{
		Landmarks: []Point3D{
			{X: x0, Y: y0, Z: 0},
			{X: x1, Y: y0, Z: -0.01},
			{X: x1, Y: y1, Z: 0.02},
			{X: x0, Y: y1, Z: 0.01},
		},
		Blendshapes: []Blendshape{
			{Name: "browInnerUp", Score: 0.4},
			{Name: "jawOpen", Score: 0.1},
		},
	}
}
