// Package detector wraps the external face models: MediaPipe face detection
// and face mesh (through a Python subprocess) and OpenCV's YuNet detector.
package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// ErrServiceNotFound is returned when the MediaPipe service script cannot be located.
var ErrServiceNotFound = errors.New("face_service.py not found")

// FaceDetector finds faces in a frame.
type FaceDetector interface {
	// Detect returns the faces found in frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]Detection, error)
	Close() error
}

// MeshDetector computes dense landmarks for each face in a frame.
type MeshDetector interface {
	Mesh(frame *gocv.Mat) ([]FaceMesh, error)
	Close() error
}

// Mode selects which MediaPipe solution the service runs.
type Mode string

const (
	ModeDetection Mode = "detection"
	ModeMesh      Mode = "mesh"
)

// DefaultIdleTimeout is how long the service may sit unused before it is stopped.
const DefaultIdleTimeout = 30 * time.Second

// Config holds the model options passed to the MediaPipe service.
type Config struct {
	Mode Mode

	// MaxFaces bounds the number of meshes returned (mesh mode only).
	MaxFaces int

	// MinDetectionConfidence is the detector score threshold (0.0-1.0).
	MinDetectionConfidence float64

	// MinTrackingConfidence is the landmark tracking threshold (0.0-1.0, mesh mode only).
	MinTrackingConfidence float64

	// PythonPath overrides interpreter discovery.
	PythonPath string

	// ScriptPath overrides service script discovery.
	ScriptPath string

	// LandmarkerModel enables blendshape output in mesh mode.
	LandmarkerModel string

	IdleTimeout time.Duration
}

// DetectionConfig returns the options of the face detection demo.
func DetectionConfig() Config {
	return Config{
		Mode:                   ModeDetection,
		MinDetectionConfidence: 0.5,
		IdleTimeout:            DefaultIdleTimeout,
	}
}

// MeshConfig returns the options of the face mesh demo. The confidences are
// lowered so detection and tracking are more sensitive.
func MeshConfig() Config {
	return Config{
		Mode:                   ModeMesh,
		MaxFaces:               2,
		MinDetectionConfidence: 0.3,
		MinTrackingConfidence:  0.3,
		IdleTimeout:            DefaultIdleTimeout,
	}
}

// StylingConfig returns the options of the landmark plotting demo.
func StylingConfig() Config {
	return Config{
		Mode:                   ModeMesh,
		MaxFaces:               1,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
		IdleTimeout:            DefaultIdleTimeout,
	}
}
