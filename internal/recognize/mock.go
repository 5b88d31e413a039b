package recognize

import (
	"path/filepath"
	"sync"
)

// MockEncoder is a test implementation of the Encoder interface.
type MockEncoder struct {
	faces     []Face
	fileFaces map[string][]Face
	err       error
	calls     int
	mu        sync.Mutex
}

// NewMockEncoder creates a new MockEncoder instance.
func NewMockEncoder() *MockEncoder {
	return &MockEncoder{fileFaces: make(map[string][]Face)}
}

// SetFaces sets the faces returned by Encode.
func (m *MockEncoder) SetFaces(faces []Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetFileFaces sets the faces returned by EncodeFile for a file base name.
func (m *MockEncoder) SetFileFaces(name string, faces []Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileFaces[name] = faces
}

// SetError sets the error returned by Encode and EncodeFile.
func (m *MockEncoder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Encode was called.
func (m *MockEncoder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Encode returns the pre-configured faces or error.
func (m *MockEncoder) Encode(jpeg []byte) ([]Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// EncodeFile returns the faces configured for the file's base name.
func (m *MockEncoder) EncodeFile(path string) ([]Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.fileFaces[filepath.Base(path)], nil
}

// Close is a no-op for the mock encoder.
func (m *MockEncoder) Close() error {
	return nil
}

// UnitDescriptor returns an encoding with value v at index i and zeros elsewhere.
func UnitDescriptor(i int, v float32) Descriptor {
	var d Descriptor
	d[i%EncodingSize] = v
	return d
}
