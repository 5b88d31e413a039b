package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/log"
)

const serviceScript = "face_service.py"

// response is one JSON line written by the service.
type response struct {
	Detections []Detection `json:"detections"`
	Faces      []FaceMesh  `json:"faces"`
	Error      string      `json:"error"`
}

// service owns the Python subprocess. It is started on first use and
// stopped after IdleTimeout without requests.
type service struct {
	config  Config
	script  string
	newCmd  func(name string, args ...string) *exec.Cmd
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	started bool
	idle    *time.Timer
	mu      sync.Mutex
}

func newService(config Config) (*service, error) {
	script := config.ScriptPath
	if script == "" {
		script = findServiceScript()
	}
	if script == "" {
		return nil, ErrServiceNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	return &service{config: config, script: script, newCmd: exec.Command}, nil
}

func (s *service) args() []string {
	c := s.config
	args := []string{s.script, "--mode", string(c.Mode)}
	if c.MaxFaces > 0 {
		args = append(args, "--max-faces", strconv.Itoa(c.MaxFaces))
	}
	if c.MinDetectionConfidence > 0 {
		args = append(args, "--min-detection", strconv.FormatFloat(c.MinDetectionConfidence, 'f', -1, 64))
	}
	if c.MinTrackingConfidence > 0 {
		args = append(args, "--min-tracking", strconv.FormatFloat(c.MinTrackingConfidence, 'f', -1, 64))
	}
	if c.Mode == ModeMesh && c.LandmarkerModel != "" {
		args = append(args, "--landmarker-model", c.LandmarkerModel)
	}
	return args
}

// request sends one frame and decodes the reply.
func (s *service) request(frame *gocv.Mat) (*response, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	data := buf.GetBytes()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	if _, err := s.stdin.Write(length[:]); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := s.stdin.Write(data); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		s.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	s.resetIdleTimer()

	if resp.Error != "" {
		return nil, fmt.Errorf("mediapipe: %s", resp.Error)
	}
	return &resp, nil
}

func (s *service) ensureStarted() error {
	if s.started {
		return nil
	}

	python := s.config.PythonPath
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	s.cmd = s.newCmd(python, s.args()...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	log.Debug("Started mediapipe service", "mode", s.config.Mode, "python", python, "pid", s.cmd.Process.Pid)
	return nil
}

func (s *service) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *service) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *service) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	log.Debug("Stopped mediapipe service", "mode", s.config.Mode)
	return err
}

func (s *service) resetIdleTimer() {
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idle = time.AfterFunc(s.config.IdleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.shutdown(); err != nil {
			log.Warn("mediapipe service exited", "error", err)
		}
	})
}

// MediaPipeDetector runs MediaPipe face detection.
type MediaPipeDetector struct {
	svc *service
}

// NewMediaPipeDetector returns a face detector backed by the Python service.
// The process starts on the first Detect call.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	config.Mode = ModeDetection
	svc, err := newService(config)
	if err != nil {
		return nil, err
	}
	return &MediaPipeDetector{svc: svc}, nil
}

func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	resp, err := d.svc.request(frame)
	if err != nil {
		return nil, err
	}
	if resp.Detections == nil {
		return []Detection{}, nil
	}
	return resp.Detections, nil
}

// Close stops the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.svc.close()
}

// MediaPipeMesh runs the MediaPipe face mesh.
type MediaPipeMesh struct {
	svc *service
}

// NewMediaPipeMesh returns a mesh detector backed by the Python service.
func NewMediaPipeMesh(config Config) (*MediaPipeMesh, error) {
	config.Mode = ModeMesh
	svc, err := newService(config)
	if err != nil {
		return nil, err
	}
	return &MediaPipeMesh{svc: svc}, nil
}

func (m *MediaPipeMesh) Mesh(frame *gocv.Mat) ([]FaceMesh, error) {
	resp, err := m.svc.request(frame)
	if err != nil {
		return nil, err
	}
	if resp.Faces == nil {
		return []FaceMesh{}, nil
	}
	return resp.Faces, nil
}

// Close stops the Python process.
func (m *MediaPipeMesh) Close() error {
	return m.svc.close()
}

func findServiceScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	return firstExisting(
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".facecam", "scripts", serviceScript),
	)
}

// findVenvPython looks for an interpreter in a virtual environment next to
// the working directory or the executable.
func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	return firstExisting(
		filepath.Join("venv", "bin", "python"),
		filepath.Join(".venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
		filepath.Join(execDir, "venv", "bin", "python"),
		filepath.Join(os.Getenv("HOME"), ".facecam", "venv", "bin", "python"),
	)
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}
