package recognize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/ayusman/facecam/internal/log"
)

// Roster holds the known encodings and their names as parallel slices.
// It is loaded once and never modified afterwards.
type Roster struct {
	Encodings []Descriptor
	Names     []string
}

// Len returns the number of known people.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Encodings)
}

// Add appends a known encoding. It is used while loading and by tests.
func (r *Roster) Add(name string, d Descriptor) {
	r.Encodings = append(r.Encodings, d)
	r.Names = append(r.Names, name)
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// LabelFromFilename derives the identity label from a reference image name.
func LabelFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadOptions controls roster loading.
type LoadOptions struct {
	// Progress receives the progress bar; nil hides it.
	Progress io.Writer
}

// LoadRoster encodes the first face of every image in dir. Images without a
// face, or that cannot be decoded, are logged and skipped.
func LoadRoster(dir string, enc Encoder, opts LoadOptions) (*Roster, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read roster dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	var bar *progressbar.ProgressBar
	if opts.Progress != nil && len(files) > 0 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Loading known faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("faces"),
			progressbar.OptionClearOnFinish(),
		)
	}

	roster := &Roster{}
	for _, name := range files {
		path := filepath.Join(dir, name)

		faces, err := enc.EncodeFile(path)
		switch {
		case err != nil:
			log.Warn("Skipping reference image", "file", path, "error", err)
		case len(faces) == 0:
			log.Warn("Skipping reference image", "file", path, "error", ErrNoFace)
		default:
			roster.Add(LabelFromFilename(name), faces[0].Descriptor)
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	log.Info("Loaded known faces", "dir", dir, "count", roster.Len(), "files", len(files))
	return roster, nil
}
