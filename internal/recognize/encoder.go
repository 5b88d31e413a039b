// Package recognize turns faces into encodings and matches them against a roster
// of known people.
package recognize

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"
	"gocv.io/x/gocv"
)

// EncodingSize is the length of a dlib face encoding.
const EncodingSize = 128

// Descriptor is a 128-dimensional face encoding.
type Descriptor = face.Descriptor

// ErrNoFace is returned when an image holds no detectable face.
var ErrNoFace = errors.New("no face found")

// Face is a face located in an image together with its encoding.
type Face struct {
	Rect       image.Rectangle
	Descriptor Descriptor
}

// Encoder locates faces and computes their encodings.
type Encoder interface {
	// Encode finds every face in a JPEG-encoded image.
	Encode(jpeg []byte) ([]Face, error)

	// EncodeFile finds every face in an image file of any format OpenCV reads.
	EncodeFile(path string) ([]Face, error)

	// Close releases the underlying model.
	Close() error
}

// DlibEncoder implements Encoder with the dlib ResNet model via go-face.
// The model directory must contain shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and mmod_human_face_detector.dat.
type DlibEncoder struct {
	rec *face.Recognizer
	mu  sync.Mutex
}

// NewDlibEncoder loads the dlib models from modelsDir.
func NewDlibEncoder(modelsDir string) (*DlibEncoder, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", modelsDir, err)
	}
	return &DlibEncoder{rec: rec}, nil
}

// Encode finds every face in a JPEG-encoded image.
func (e *DlibEncoder) Encode(jpeg []byte) ([]Face, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec == nil {
		return nil, errors.New("encoder is closed")
	}

	found, err := e.rec.Recognize(jpeg)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	faces := make([]Face, len(found))
	for i, f := range found {
		faces[i] = Face{Rect: f.Rectangle, Descriptor: f.Descriptor}
	}
	return faces, nil
}

// EncodeFile decodes the file with OpenCV so PNG references work too,
// then encodes it.
func (e *DlibEncoder) EncodeFile(path string) ([]Face, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("read image %s: unsupported or empty", path)
	}

	return EncodeMat(e, &img)
}

// Close releases the dlib models.
func (e *DlibEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
	return nil
}

// EncodeMat JPEG-encodes a frame and hands it to the encoder.
func EncodeMat(enc Encoder, frame *gocv.Mat) ([]Face, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close, so hand the encoder a copy.
	data := append([]byte(nil), buf.GetBytes()...)
	return enc.Encode(data)
}
