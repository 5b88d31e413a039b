package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/attendance"
	"github.com/ayusman/facecam/internal/demo"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func getAttendance(t *testing.T, s *Server) (int, []attendance.Record) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/attendance", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var records []attendance.Record
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
			t.Fatalf("decode attendance: %v", err)
		}
	}
	return rec.Code, records
}

func TestServer_Attendance(t *testing.T) {
	t.Run("from ledger", func(t *testing.T) {
		ledger := attendance.NewLedger(nil)
		ledger.Mark("alice")
		ledger.Mark("Unknown")

		code, records := getAttendance(t, New(Config{Ledger: ledger}))
		if code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if len(records) != 2 || records[0].Name != "alice" || records[0].Date == "" {
			t.Errorf("records = %+v", records)
		}
	})

	t.Run("empty ledger is an empty list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/attendance", nil)
		rec := httptest.NewRecorder()
		New(Config{Ledger: attendance.NewLedger(nil)}).ServeHTTP(rec, req)

		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("body = %q, want []", rec.Body.String())
		}
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "attendance.csv")
		content := "Name,Date,Time\nbob,2024-03-05,09:00:00.000000\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write csv: %v", err)
		}

		code, records := getAttendance(t, New(Config{AttendanceFile: path}))
		if code != http.StatusOK || len(records) != 1 || records[0].Name != "bob" {
			t.Errorf("status = %d, records = %+v", code, records)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		code, records := getAttendance(t, New(Config{AttendanceFile: filepath.Join(t.TempDir(), "none.csv")}))
		if code != http.StatusOK || len(records) != 0 {
			t.Errorf("status = %d, records = %+v", code, records)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "attendance.csv")
		os.WriteFile(path, []byte("nope\n"), 0644)

		code, _ := getAttendance(t, New(Config{AttendanceFile: path}))
		if code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", code)
		}
	})
}

func TestFrameBuffer(t *testing.T) {
	b := NewFrameBuffer()

	_, seq, updated := b.Latest()
	if seq != 0 {
		t.Errorf("initial seq = %d, want 0", seq)
	}

	b.Set([]byte("jpeg"))
	select {
	case <-updated:
	default:
		t.Error("Set should wake readers")
	}

	data, seq, _ := b.Latest()
	if string(data) != "jpeg" || seq != 1 {
		t.Errorf("Latest() = %q, %d", data, seq)
	}

	b.Close()
	b.Close()
	b.Set([]byte("late"))
	if data, _, _ := b.Latest(); string(data) != "jpeg" {
		t.Error("updates after Close should be dropped")
	}
}

func TestServer_Stream(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}

	s.frames.Set([]byte("fake-jpeg"))

	r := bufio.NewReader(resp.Body)
	want := []string{"--frame", "Content-Type: image/jpeg", "Content-Length: 9", ""}
	for _, w := range want {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read part header: %v", err)
		}
		if got := strings.TrimRight(line, "\r\n"); got != w {
			t.Errorf("header line = %q, want %q", got, w)
		}
	}
	body := make([]byte, 9)
	if _, err := io.ReadFull(r, body); err != nil || string(body) != "fake-jpeg" {
		t.Errorf("body = %q, err = %v", body, err)
	}
}

func TestServer_Events(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.hub.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.hub.Count())
	}

	// Empty Mats are not streamed but the event is still broadcast.
	img := gocv.NewMat()
	defer img.Close()
	s.Publish(img, demo.Event{Demo: demo.FacialRecognition, Seq: 7, Result: demo.Result{Faces: 1, Names: []string{"alice"}}})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}

	var ev demo.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Seq != 7 || ev.Demo != demo.FacialRecognition || len(ev.Names) != 1 {
		t.Errorf("event = %+v", ev)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_, msg, err = conn.ReadMessage()
	if err != nil || string(msg) != "pong" {
		t.Errorf("ping reply = %q, err = %v", msg, err)
	}
}
