// Package config loads facecam settings from defaults, an optional YAML file
// and FACECAM_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the values the demos were tuned with.
const (
	DefaultCamera        = 0
	DefaultStudentsDir   = "students"
	DefaultModelsDir     = "models"
	DefaultOutput        = "attendance.csv"
	DefaultTolerance     = 0.6
	DefaultHookTimeoutMs = 5000
)

type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Detection   DetectionConfig   `yaml:"detection"`
	Server      ServerConfig      `yaml:"server"`
	Hooks       HooksConfig       `yaml:"hooks"`
	LogLevel    string            `yaml:"log_level"`
	Headless    bool              `yaml:"headless"`
}

type CameraConfig struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type RecognitionConfig struct {
	StudentsDir     string  `yaml:"students_dir"`
	ModelsDir       string  `yaml:"models_dir"`
	Output          string  `yaml:"output"`
	Tolerance       float64 `yaml:"tolerance"`
	MarkUnknown     bool    `yaml:"mark_unknown"`
	MotionThreshold float64 `yaml:"motion_threshold"` // percent of changed pixels, 0 disables gating
}

type DetectionConfig struct {
	YuNetModel    string `yaml:"yunet_model"`    // ONNX model for gocv FaceDetectorYN, empty uses MediaPipe
	PythonPath    string `yaml:"python_path"`    // interpreter for the MediaPipe service
	ServiceScript string `yaml:"service_script"` // path to face_service.py, empty searches known locations
	PlotDir       string `yaml:"plot_dir"`       // save styling charts as PNG instead of showing them

	// LandmarkerModel is a face_landmarker.task file; with it the mesh
	// service also reports blendshapes.
	LandmarkerModel string `yaml:"landmarker_model"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // empty disables the HTTP surface
}

type HooksConfig struct {
	Dir       string `yaml:"dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Device: DefaultCamera,
			Width:  640,
			Height: 480,
		},
		Recognition: RecognitionConfig{
			StudentsDir: DefaultStudentsDir,
			ModelsDir:   DefaultModelsDir,
			Output:      DefaultOutput,
			Tolerance:   DefaultTolerance,
			MarkUnknown: true,
		},
		Hooks: HooksConfig{
			TimeoutMs: DefaultHookTimeoutMs,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. A non-empty path must point at a readable
// YAML file; environment variables override values from the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	readEnvInt("FACECAM_CAMERA", &c.Camera.Device)
	readEnvInt("FACECAM_CAMERA_WIDTH", &c.Camera.Width)
	readEnvInt("FACECAM_CAMERA_HEIGHT", &c.Camera.Height)
	readEnvString("FACECAM_STUDENTS_DIR", &c.Recognition.StudentsDir)
	readEnvString("FACECAM_MODELS_DIR", &c.Recognition.ModelsDir)
	readEnvString("FACECAM_OUTPUT", &c.Recognition.Output)
	readEnvFloat("FACECAM_TOLERANCE", &c.Recognition.Tolerance)
	readEnvBool("FACECAM_MARK_UNKNOWN", &c.Recognition.MarkUnknown)
	readEnvFloat("FACECAM_MOTION_THRESHOLD", &c.Recognition.MotionThreshold)
	readEnvString("FACECAM_YUNET_MODEL", &c.Detection.YuNetModel)
	readEnvString("FACECAM_PYTHON", &c.Detection.PythonPath)
	readEnvString("FACECAM_SERVICE_SCRIPT", &c.Detection.ServiceScript)
	readEnvString("FACECAM_PLOT_DIR", &c.Detection.PlotDir)
	readEnvString("FACECAM_LANDMARKER_MODEL", &c.Detection.LandmarkerModel)
	readEnvString("FACECAM_SERVE", &c.Server.Addr)
	readEnvString("FACECAM_HOOKS_DIR", &c.Hooks.Dir)
	readEnvInt("FACECAM_HOOK_TIMEOUT_MS", &c.Hooks.TimeoutMs)
	readEnvString("FACECAM_LOG_LEVEL", &c.LogLevel)
	readEnvBool("FACECAM_HEADLESS", &c.Headless)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Camera.Device < 0 {
		return fmt.Errorf("camera device must be >= 0, got %d", c.Camera.Device)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Recognition.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Recognition.Tolerance)
	}
	if c.Recognition.MotionThreshold < 0 {
		return fmt.Errorf("motion threshold must be >= 0, got %g", c.Recognition.MotionThreshold)
	}
	if c.Hooks.TimeoutMs <= 0 {
		return fmt.Errorf("hook timeout must be positive, got %d", c.Hooks.TimeoutMs)
	}
	return nil
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvFloat(name string, value *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*value = f
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = n
}
