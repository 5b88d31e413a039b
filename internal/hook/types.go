// Package hook runs external executables when attendance is marked.
//
// Each hook lives in its own subdirectory of the hooks directory with a
// hook.json manifest naming the executable. The executable receives one
// JSON event on stdin and may answer with a JSON response on stdout.
package hook

// EventAttendance is sent when a known person is marked present for the
// first time in a session.
const EventAttendance = "attendance"

// ManifestFile is the manifest name inside each hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"` // empty subscribes to every event
}

// Subscribes reports whether the hook wants event.
func (m Manifest) Subscribes(event string) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Event is the payload written to a hook's stdin.
type Event struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Name  string `json:"name"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// Response is what a hook may print on stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Hook is a discovered hook.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
