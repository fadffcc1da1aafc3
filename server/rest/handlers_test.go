package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/downloader"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/progress"
)

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{common.InputErrorf("bad strength"), http.StatusBadRequest},
		{jobs.ErrCancelled, statusClientClosedRequest},
		{errors.New("transcoder exploded"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, c.err)
		if rec.Code != c.code {
			t.Errorf("writeError(%v) wrote %d, want %d", c.err, rec.Code, c.code)
		}
	}
}

func TestCancelRequiresNoBody(t *testing.T) {
	h := &Handler{service: NewService(&ContainerArgs{Registry: jobs.NewRegistry()})}

	req := httptest.NewRequest(http.MethodPost, "/cancel", nil)
	rec := httptest.NewRecorder()
	h.Cancel()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["canceled"]; !ok {
		t.Fatalf("response %v missing canceled key", body)
	}
}

func TestQueueResponseShape(t *testing.T) {
	h := &Handler{service: NewService(&ContainerArgs{
		Registry:   jobs.NewRegistry(),
		Downloader: downloader.New(progress.NewBroadcaster()),
	})}

	body := strings.NewReader(`{"urls":["https://example.com/a","https://example.com/b"]}`)
	req := httptest.NewRequest(http.MethodPost, "/queue", body)
	rec := httptest.NewRecorder()
	h.Queue()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" {
		t.Fatal("queue response missing job id")
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/compress", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestCompressOptionsReadsCompressionField(t *testing.T) {
	opts := compressOptions(formRequest(url.Values{
		"compression":   {"75"},
		"resolution":    {"720p"},
		"hardware_mode": {"auto"},
	}))

	if opts.Strength != 75 {
		t.Fatalf("strength = %d, want 75", opts.Strength)
	}
	if opts.Resolution != "720p" || opts.HardwareMode != "auto" {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestCompressOptionsDefaultStrength(t *testing.T) {
	opts := compressOptions(formRequest(url.Values{}))
	if opts.Strength != 40 {
		t.Fatalf("strength = %d, want the 40 default", opts.Strength)
	}
}

func TestCancelTargetsOneJob(t *testing.T) {
	registry := jobs.NewRegistry()
	svc := NewService(&ContainerArgs{Registry: registry})

	victim := registry.Register("download")
	bystander := registry.Register("download")

	if !svc.Cancel(victim.ID) {
		t.Fatal("expected cancel to find the job")
	}
	if !victim.Token.Cancelled() {
		t.Fatal("victim token must be cancelled")
	}
	if bystander.Token.Cancelled() {
		t.Fatal("other jobs must be untouched")
	}

	if svc.Cancel("no-such-id") {
		t.Fatal("unknown id must report false")
	}
}
