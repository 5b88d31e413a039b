package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/facecam/internal/attendance"
	"github.com/ayusman/facecam/internal/capture"
	"github.com/ayusman/facecam/internal/config"
	"github.com/ayusman/facecam/internal/demo"
	"github.com/ayusman/facecam/internal/detector"
	"github.com/ayusman/facecam/internal/display"
	"github.com/ayusman/facecam/internal/hook"
	"github.com/ayusman/facecam/internal/log"
	"github.com/ayusman/facecam/internal/overlay"
	"github.com/ayusman/facecam/internal/plot"
	"github.com/ayusman/facecam/internal/recognize"
	"github.com/ayusman/facecam/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newDemoCmd(a *app, use, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDemo(cmd, name)
		},
	}
}

func newRecognizeCmd(a *app) *cobra.Command {
	cmd := newDemoCmd(a, "recognize", demo.FacialRecognition, "Recognize known faces and record attendance")
	cmd.Long = `Recognize faces against the reference images in the students directory.
Every face found in a frame is recorded with the current date and time; the
records are written to the output CSV when the demo ends.`
	addRecognitionFlags(cmd)
	return cmd
}

func addRecognitionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("students", config.DefaultStudentsDir, "Directory of reference face images")
	f.String("models", config.DefaultModelsDir, "Directory holding the dlib model files")
	f.String("output", config.DefaultOutput, "Attendance CSV written on exit")
	f.Float64("tolerance", config.DefaultTolerance, "Maximum face distance for a match")
	f.String("hooks", "", "Directory of attendance hooks")
}

// runDemo builds the processor for name and runs it until quit, end of
// stream or SIGINT/SIGTERM.
func (a *app) runDemo(cmd *cobra.Command, name string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	disp := newDisplay(cfg)

	var ledger *attendance.Ledger
	if name == demo.FacialRecognition {
		ledger = attendance.NewLedger(cmd.OutOrStdout())
	}

	proc, fps, err := a.buildProcessor(cmd, name, disp, ledger)
	if err != nil {
		disp.Close()
		return err
	}

	if ledger != nil && cfg.Hooks.Dir != "" {
		notifier := attachHooks(ctx, cfg.Hooks, ledger)
		defer notifier.Wait()
	}

	runner := &demo.Runner{
		Camera: capture.NewCamera(capture.Options{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    capture.DefaultFPS,
		}),
		Display:   disp,
		Processor: proc,
		FPS:       fps,
	}

	if cfg.Server.Addr != "" {
		srv := newServer(cfg, ledger)
		runner.Sinks = append(runner.Sinks, srv)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("Web server stopped", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn("Web server shutdown", "error", err)
			}
		}()
	}

	return runner.Run(ctx)
}

func newDisplay(cfg *config.Config) display.Display {
	if cfg.Headless {
		return display.NewHeadless()
	}
	return display.NewWindow()
}

func newServer(cfg *config.Config, ledger *attendance.Ledger) *server.Server {
	sc := server.Config{
		Addr:           cfg.Server.Addr,
		AttendanceFile: cfg.Recognition.Output,
	}
	if ledger != nil {
		sc.Ledger = ledger
	}
	return server.New(sc)
}

func attachHooks(ctx context.Context, hc config.HooksConfig, ledger *attendance.Ledger) *hook.Notifier {
	mgr := hook.NewManager(hc.Dir)
	if err := mgr.Discover(); err != nil {
		log.Warn("Hook discovery failed", "dir", hc.Dir, "error", err)
	}

	n := hook.NewNotifier(ctx, mgr, hook.NewExecutor(time.Duration(hc.TimeoutMs)*time.Millisecond))
	n.Attach(ledger)
	return n
}

// buildProcessor returns the processor for the named demo and its FPS
// label style.
func (a *app) buildProcessor(cmd *cobra.Command, name string, disp display.Display, ledger *attendance.Ledger) (demo.Processor, *overlay.TextStyle, error) {
	cfg := a.cfg

	switch name {
	case demo.FaceMesh:
		mesh, err := detector.NewMediaPipeMesh(detectorConfig(cfg, detector.MeshConfig()))
		if err != nil {
			return nil, nil, err
		}
		return &demo.MeshProcessor{Mesh: mesh}, &overlay.MeshFPS, nil

	case demo.FaceDetection:
		det, err := newFaceDetector(cfg)
		if err != nil {
			return nil, nil, err
		}
		return &demo.DetectionProcessor{Detector: det}, &overlay.DetectionFPS, nil

	case demo.FaceLandmarkStyles:
		mesh, err := detector.NewMediaPipeMesh(detectorConfig(cfg, detector.StylingConfig()))
		if err != nil {
			return nil, nil, err
		}
		return &demo.StylingProcessor{
			Mesh:     mesh,
			Display:  disp,
			PlotDir:  cfg.Detection.PlotDir,
			PlotSize: plot.DefaultSize,
		}, nil, nil

	case demo.FacialRecognition:
		enc, err := recognize.NewDlibEncoder(cfg.Recognition.ModelsDir)
		if err != nil {
			return nil, nil, err
		}
		roster, err := recognize.LoadRoster(cfg.Recognition.StudentsDir, enc, recognize.LoadOptions{
			Progress: cmd.ErrOrStderr(),
		})
		if err != nil {
			enc.Close()
			return nil, nil, err
		}
		return &demo.RecognitionProcessor{
			Encoder:     enc,
			Roster:      roster,
			Ledger:      ledger,
			Tolerance:   cfg.Recognition.Tolerance,
			MarkUnknown: cfg.Recognition.MarkUnknown,
			Gate:        capture.NewMotionGate(cfg.Recognition.MotionThreshold),
			Output:      cfg.Recognition.Output,
		}, &overlay.DetectionFPS, nil
	}

	return nil, nil, fmt.Errorf("unknown demo %q", name)
}

// newFaceDetector prefers the in-process YuNet model when one is configured.
func newFaceDetector(cfg *config.Config) (detector.FaceDetector, error) {
	if cfg.Detection.YuNetModel != "" {
		det, err := detector.NewYuNet(cfg.Detection.YuNetModel, detector.DetectionConfig().MinDetectionConfidence)
		if err == nil {
			return det, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		log.Warn("YuNet model missing, using MediaPipe", "model", cfg.Detection.YuNetModel)
	}
	return detector.NewMediaPipeDetector(detectorConfig(cfg, detector.DetectionConfig()))
}

func detectorConfig(cfg *config.Config, dc detector.Config) detector.Config {
	dc.PythonPath = cfg.Detection.PythonPath
	dc.ScriptPath = cfg.Detection.ServiceScript
	dc.LandmarkerModel = cfg.Detection.LandmarkerModel
	return dc
}
