package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"evacsim/internal/job"

	"github.com/gorilla/websocket"
)

const testPlan = "E.....\n......\n..##..\n......\n.....E\n"

func newTestServer(t *testing.T) (*Server, *job.Manager) {
	t.Helper()
	m := job.NewManager(job.NewMemoryStore(), job.Options{}, nil)
	s := NewServer(m, Config{StreamInterval: 5 * time.Millisecond}, nil)
	return s, m
}

func uploadRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func submit(t *testing.T, h http.Handler, req *http.Request) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return w.Code, body
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("healthz = %d %q", w.Code, w.Body.String())
	}
}

func TestSimulateAndPollStatus(t *testing.T) {
	s, m := newTestServer(t)
	h := s.Handler()
	code, body := submit(t, h, uploadRequest(t, "office.txt", []byte(testPlan), map[string]string{"seed": "7", "num_agents": "3"}))
	if code != http.StatusOK {
		t.Fatalf("simulate = %d %v", code, body)
	}
	id, _ := body["job_id"].(string)
	if id == "" {
		t.Fatalf("missing job_id: %v", body)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.Wait(ctx, id); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st struct {
		Status string `json:"status"`
		Result struct {
			Dashboard struct {
				TotalAgents int `json:"total_agents"`
			} `json:"dashboard"`
			AnimationData struct {
				GridShape [2]int `json:"grid_shape"`
			} `json:"animation_data"`
			Seed int64 `json:"seed"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Status != "complete" || st.Result.Dashboard.TotalAgents != 3 || st.Result.Seed != 7 {
		t.Fatalf("unexpected status body: %s", w.Body.String())
	}
	if st.Result.AnimationData.GridShape != [2]int{5, 6} {
		t.Fatalf("grid_shape = %v", st.Result.AnimationData.GridShape)
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	cases := []struct {
		name string
		req  *http.Request
	}{
		{"missing file", uploadRequest(t, "", nil, nil)},
		{"no exit", uploadRequest(t, "plan.txt", []byte("....\n....\n"), nil)},
		{"too small", uploadRequest(t, "plan.txt", []byte("E.\n"), nil)},
		{"unknown marker", uploadRequest(t, "plan.txt", []byte("E.?\n...\n"), nil)},
		{"not an image", uploadRequest(t, "plan.png", []byte{0x89, 'P', 'N', 'G', 0, 1}, nil)},
		{"bad seed", uploadRequest(t, "plan.txt", []byte(testPlan), map[string]string{"seed": "abc"})},
		{"zero agents", uploadRequest(t, "plan.txt", []byte(testPlan), map[string]string{"num_agents": "0"})},
		{"p out of range", uploadRequest(t, "plan.txt", []byte(testPlan), map[string]string{"p_spread": "2"})},
		{"negative max ticks", uploadRequest(t, "plan.txt", []byte("E..\n.F.\n"), map[string]string{"max_ticks": "-1"})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := submit(t, h, tc.req)
			if code != http.StatusBadRequest {
				t.Fatalf("code = %d, want 400 (%v)", code, body)
			}
			if _, ok := body["error"]; !ok {
				t.Fatalf("missing error field: %v", body)
			}
			if _, ok := body["job_id"]; ok {
				t.Fatalf("rejected request returned a job id")
			}
		})
	}
}

func TestSimulateAcceptsImage(t *testing.T) {
	s, m := newTestServer(t)
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	code, body := submit(t, s.Handler(), uploadRequest(t, "plan.png", buf.Bytes(), nil))
	if code != http.StatusOK {
		t.Fatalf("simulate = %d %v", code, body)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	j, err := m.Wait(ctx, body["job_id"].(string))
	if err != nil || j.Status != job.StatusComplete {
		t.Fatalf("job = %+v (%v)", j, err)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"message":"Job not found","status":"error"}` {
		t.Fatalf("body = %s", got)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/simulate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" || w.Header().Get("Access-Control-Allow-Headers") != "content-type" {
		t.Fatalf("preflight headers = %v", w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed origin got CORS header")
	}
}

func TestStreamUntilComplete(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	code, body := submit(t, s.Handler(), uploadRequest(t, "plan.txt", []byte(testPlan), map[string]string{"seed": "1"}))
	if code != http.StatusOK {
		t.Fatalf("simulate = %d", code)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream/" + body["job_id"].(string)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var last map[string]any
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		last = msg
		if _, ok := msg["result"]; ok {
			break
		}
	}
	if last == nil || last["status"] != "complete" || last["result"] == nil {
		t.Fatalf("last stream message = %v", last)
	}
}

func TestStreamUnknownJob(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("stream unknown = %d, want 404", w.Code)
	}
}
