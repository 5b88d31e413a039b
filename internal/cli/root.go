// Package cli wires the facecam demos into a cobra command tree.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ayusman/facecam/internal/config"
	"github.com/ayusman/facecam/internal/demo"
	"github.com/ayusman/facecam/internal/log"
)

// menu lists the demos offered by the interactive prompt, in order.
var menu = []string{demo.FaceMesh, demo.FaceDetection, demo.FacialRecognition}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	app := &app{}

	root := &cobra.Command{
		Use:   "facecam",
		Short: "Live face detection, mesh and attendance demos",
		Long: `facecam runs face demos on a live camera feed. Without a subcommand it
asks which demo to run. Facial recognition compares faces against the
reference images in the students directory and writes an attendance CSV.`,
		SilenceUsage:      true,
		PersistentPreRunE: app.init,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := chooseDemo(cmd.InOrStdin(), cmd.OutOrStdout())
			return app.runDemo(cmd, name)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Int("camera", config.DefaultCamera, "Camera device index")
	flags.Bool("headless", false, "Do not open windows")
	flags.String("serve", "", "Serve the stream, events and attendance on this address (e.g. :8080)")

	root.AddCommand(
		newDemoCmd(app, "mesh", demo.FaceMesh, "Draw the face mesh of up to two faces"),
		newDemoCmd(app, "detect", demo.FaceDetection, "Draw face boxes, keypoints and scores"),
		newRecognizeCmd(app),
		newDemoCmd(app, "landmarks", demo.FaceLandmarkStyles, "Show landmarks, landmark plot and blendshapes per face"),
		newAttendanceCmd(),
		newVersionCmd(),
	)
	addRecognitionFlags(root)

	return root
}

// app carries the resolved configuration to the subcommands.
type app struct {
	cfg *config.Config
}

func (a *app) init(cmd *cobra.Command, args []string) error {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg, err := config.Load(mustGetString(cmd, "config"))
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.LogLevel)
	a.cfg = cfg
	return nil
}

// applyFlags overrides config values with flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("log-level") {
		cfg.LogLevel = mustGetString(cmd, "log-level")
	}
	if f.Changed("camera") {
		cfg.Camera.Device = mustGetInt(cmd, "camera")
	}
	if f.Changed("headless") {
		cfg.Headless = mustGetBool(cmd, "headless")
	}
	if f.Changed("serve") {
		cfg.Server.Addr = mustGetString(cmd, "serve")
	}
	if f.Lookup("students") == nil {
		return
	}
	if f.Changed("students") {
		cfg.Recognition.StudentsDir = mustGetString(cmd, "students")
	}
	if f.Changed("models") {
		cfg.Recognition.ModelsDir = mustGetString(cmd, "models")
	}
	if f.Changed("output") {
		cfg.Recognition.Output = mustGetString(cmd, "output")
	}
	if f.Changed("tolerance") {
		cfg.Recognition.Tolerance = mustGetFloat64(cmd, "tolerance")
	}
	if f.Changed("hooks") {
		cfg.Hooks.Dir = mustGetString(cmd, "hooks")
	}
}

// chooseDemo prints the demo menu and reads one line. Anything other than a
// listed number selects facial recognition.
func chooseDemo(in io.Reader, out io.Writer) string {
	fmt.Fprintln(out, "Choose a module to run:")
	for i, name := range menu {
		fmt.Fprintf(out, "%d. %s\n", i+1, name)
	}
	fmt.Fprint(out, "Enter the number of the module you want to run: ")

	line, _ := bufio.NewReader(in).ReadString('\n')
	return demoForChoice(strings.TrimSpace(line))
}

func demoForChoice(choice string) string {
	for i, name := range menu {
		if choice == fmt.Sprint(i+1) {
			return name
		}
	}
	return demo.FacialRecognition
}
