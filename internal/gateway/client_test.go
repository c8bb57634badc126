package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TheMarco/sora-renderer/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, Logger: zerolog.New(io.Discard)})
}

func TestSubmitJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		for _, want := range []string{`"model":"sora-2"`, `"size":"1280x720"`, `"seconds":"8"`} {
			if !strings.Contains(string(body), want) {
				t.Errorf("body missing %s: %s", want, body)
			}
		}
		w.Write([]byte(`{"id":"video_abc"}`))
	})

	remoteID, err := client.Submit(context.Background(), "sk-test", SubmitRequest{
		Model:           domain.ModelSora2,
		Prompt:          "a calm sea at dawn",
		Resolution:      "1280x720",
		DurationSeconds: 8,
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if remoteID != "video_abc" {
		t.Fatalf("remoteID = %q", remoteID)
	}
}

func TestSubmitMultipartWithReferenceImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart body: %v", err)
		}
		if got := r.FormValue("prompt"); got != "styled shot" {
			t.Errorf("prompt = %q", got)
		}
		file, header, err := r.FormFile("input_reference")
		if err != nil {
			t.Fatalf("missing input_reference: %v", err)
		}
		defer file.Close()
		if header.Filename != "ref.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "png-bytes" {
			t.Errorf("file payload = %q", data)
		}
		w.Write([]byte(`{"id":"video_ref"}`))
	})

	remoteID, err := client.Submit(context.Background(), "sk-test", SubmitRequest{
		Model:           domain.ModelSora2,
		Prompt:          "styled shot",
		Resolution:      "1280x720",
		DurationSeconds: 4,
		RefImage:        &RefImage{MIME: "image/png", Name: "ref.png", Data: []byte("png-bytes")},
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if remoteID != "video_ref" {
		t.Fatalf("remoteID = %q", remoteID)
	}
}

func TestSubmitClientFault(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	})

	_, err := client.Submit(context.Background(), "bad", SubmitRequest{Model: domain.ModelSora2})
	var reqErr *domain.RemoteRequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RemoteRequestError, got %v", err)
	}
	if !reqErr.ClientFault() {
		t.Fatal("401 should be a client fault")
	}
	if reqErr.Message != "invalid api key" {
		t.Fatalf("message = %q", reqErr.Message)
	}
}

func TestSubmitServerFault(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.Submit(context.Background(), "sk", SubmitRequest{Model: domain.ModelSora2})
	var reqErr *domain.RemoteRequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RemoteRequestError, got %v", err)
	}
	if reqErr.ClientFault() {
		t.Fatal("502 should not be a client fault")
	}
}

func TestFetchStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/video_abc" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "video_abc",
			"status": "completed",
			"output": [{"url": "/videos/video_abc/content?variant=video"}]
		}`))
	})

	report, err := client.FetchStatus(context.Background(), "sk-test", "video_abc")
	if err != nil {
		t.Fatalf("FetchStatus error: %v", err)
	}
	if report.Status != "completed" {
		t.Fatalf("status = %q", report.Status)
	}
	if len(report.AssetRefs) != 1 || report.AssetRefs[0] != "/videos/video_abc/content?variant=video" {
		t.Fatalf("asset refs = %v", report.AssetRefs)
	}
}

func TestFetchStatusFailureReason(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"v1","status":"failed","failure_reason":"prompt rejected"}`))
	})
	report, err := client.FetchStatus(context.Background(), "sk", "v1")
	if err != nil {
		t.Fatalf("FetchStatus error: %v", err)
	}
	if report.Error != "prompt rejected" {
		t.Fatalf("error = %q", report.Error)
	}
}

func TestFetchStatusServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := client.FetchStatus(context.Background(), "sk", "v1")
	var transient *domain.TransientPollError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientPollError, got %v", err)
	}
}

func TestFetchAssetBytesPreservesContentType(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/v1/content" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4-bytes"))
	})

	data, mime, err := client.FetchAssetBytes(context.Background(), "sk", "/videos/v1/content")
	if err != nil {
		t.Fatalf("FetchAssetBytes error: %v", err)
	}
	if string(data) != "mp4-bytes" {
		t.Fatalf("data = %q", data)
	}
	if mime != "video/mp4" {
		t.Fatalf("mime = %q", mime)
	}
}

func TestValidate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	})

	if err := client.Validate(context.Background(), "sk-good"); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	err := client.Validate(context.Background(), "sk-bad")
	var reqErr *domain.RemoteRequestError
	if !errors.As(err, &reqErr) || !reqErr.ClientFault() {
		t.Fatalf("expected client-fault RemoteRequestError, got %v", err)
	}
}

