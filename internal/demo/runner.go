// Package demo runs the per-frame loop shared by every demo: read a frame,
// let a Processor annotate it, draw the frame rate, render, repeat until the
// quit key, the end of the stream or cancellation.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/capture"
	"github.com/ayusman/facecam/internal/detector"
	"github.com/ayusman/facecam/internal/display"
	"github.com/ayusman/facecam/internal/log"
	"github.com/ayusman/facecam/internal/overlay"
)

// Demo names as offered by the interactive prompt.
const (
	FaceMesh           = "face_mesh"
	FaceDetection      = "face_detection"
	FacialRecognition  = "facial_recognition"
	FaceLandmarkStyles = "face_styling"
)

// Processor analyses a frame and draws its results onto it.
type Processor interface {
	Name() string
	Process(frame *gocv.Mat) (Result, error)
	// Close releases models and flushes any output.
	Close() error
}

// Result summarises what a processor found in one frame.
type Result struct {
	Faces      int                  `json:"faces"`
	Detections []detector.Detection `json:"detections,omitempty"`
	Names      []string             `json:"names,omitempty"`
}

// Event describes one processed frame.
type Event struct {
	Session string    `json:"session"`
	Demo    string    `json:"demo"`
	Seq     int       `json:"seq"`
	FPS     float64   `json:"fps"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
	Result
}

// FrameSink receives every annotated frame. Publish must not keep img.
type FrameSink interface {
	Publish(img gocv.Mat, ev Event)
}

// Runner drives a Processor from a Camera to a Display.
type Runner struct {
	Camera    capture.Camera
	Display   display.Display
	Processor Processor

	// FPS styles the frame rate label; nil leaves it off.
	FPS *overlay.TextStyle

	Sinks []FrameSink

	meter  *capture.FPSMeter
	frames int
}

// Frames returns how many frames the last Run rendered.
func (r *Runner) Frames() int {
	return r.frames
}

// Run loops until the quit key is pressed, the camera yields no frame or ctx
// is cancelled. The camera, display and processor are closed on return; the
// returned error is a camera open failure or the processor's Close error.
func (r *Runner) Run(ctx context.Context) (err error) {
	if err := r.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if cerr := r.shutdown(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if r.meter == nil {
		r.meter = capture.NewFPSMeter()
	}
	r.frames = 0

	session := uuid.NewString()
	name := r.Processor.Name()
	log.Info("Demo started", "demo", name, "session", session)

	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			log.Info("Demo interrupted", "demo", name, "frames", r.frames)
			return nil
		default:
		}

		frame, err := r.Camera.ReadFrame()
		if err != nil {
			log.Info("Camera stream ended", "demo", name, "frames", r.frames, "reason", err)
			return nil
		}

		if quit := r.step(frame, Event{Session: session, Demo: name, Seq: seq}); quit {
			log.Info("Quit requested", "demo", name, "frames", r.frames)
			return nil
		}
	}
}

// step processes and renders one frame, then closes it.
func (r *Runner) step(frame *gocv.Mat, ev Event) (quit bool) {
	defer frame.Close()

	res, err := r.Processor.Process(frame)
	if err != nil {
		log.Error("Processing failed, frame skipped", "demo", ev.Demo, "seq", ev.Seq, "error", err)
		ev.Error = err.Error()
	}

	ev.FPS = r.meter.Tick()
	ev.At = time.Now()
	ev.Result = res

	if r.FPS != nil {
		overlay.FPS(frame, ev.FPS, *r.FPS)
	}
	for _, s := range r.Sinks {
		s.Publish(*frame, ev)
	}

	r.Display.Show(*frame)
	r.frames++

	return display.IsQuit(r.Display.PollKey())
}

func (r *Runner) shutdown() error {
	if err := r.Camera.Close(); err != nil {
		log.Warn("Error closing camera", "error", err)
	}
	if err := r.Display.Close(); err != nil {
		log.Warn("Error closing display", "error", err)
	}
	return r.Processor.Close()
}
