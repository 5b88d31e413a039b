// Package display shows annotated frames either in a highgui window or nowhere.
package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// WindowTitle is the title of the demo window.
const WindowTitle = "Image"

// NoKey is returned by key polls when nothing was pressed.
const NoKey = -1

// Display renders frames and reports key presses.
type Display interface {
	Show(img gocv.Mat)
	// ShowIn renders into a separate named window.
	ShowIn(title string, img gocv.Mat)
	// PollKey waits about a millisecond for a key.
	PollKey() int
	// WaitKey blocks until a key is pressed.
	WaitKey() int
	Close() error
}

// IsQuit reports whether key is the quit key.
func IsQuit(key int) bool {
	return key >= 0 && key&0xFF == 'q'
}

// Window shows frames in highgui windows. Must be used from the main goroutine.
type Window struct {
	windows map[string]*gocv.Window
	order   []string
}

func NewWindow() *Window {
	return &Window{windows: make(map[string]*gocv.Window)}
}

func (w *Window) window(title string) *gocv.Window {
	if win, ok := w.windows[title]; ok {
		return win
	}
	win := gocv.NewWindow(title)
	w.windows[title] = win
	w.order = append(w.order, title)
	return win
}

func (w *Window) Show(img gocv.Mat) {
	w.ShowIn(WindowTitle, img)
}

func (w *Window) ShowIn(title string, img gocv.Mat) {
	w.window(title).IMShow(img)
}

func (w *Window) PollKey() int {
	return w.window(WindowTitle).WaitKey(1)
}

func (w *Window) WaitKey() int {
	return w.window(WindowTitle).WaitKey(0)
}

// Close destroys every window that was opened.
func (w *Window) Close() error {
	var firstErr error
	for _, title := range w.order {
		if err := w.windows[title].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.windows = make(map[string]*gocv.Window)
	w.order = nil
	return firstErr
}

// Headless discards frames. Keys can be queued for tests; with an empty
// queue it reports NoKey.
type Headless struct {
	keys   []int
	shown  map[string]int
	closed bool
	mu     sync.Mutex
}

func NewHeadless(keys ...int) *Headless {
	return &Headless{keys: keys, shown: make(map[string]int)}
}

func (h *Headless) Show(img gocv.Mat) {
	h.ShowIn(WindowTitle, img)
}

func (h *Headless) ShowIn(title string, img gocv.Mat) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown[title]++
}

func (h *Headless) PollKey() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.keys) == 0 {
		return NoKey
	}
	k := h.keys[0]
	h.keys = h.keys[1:]
	return k
}

func (h *Headless) WaitKey() int {
	return h.PollKey()
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Shown returns how many frames were rendered into the titled window.
func (h *Headless) Shown(title string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shown[title]
}

func (h *Headless) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
