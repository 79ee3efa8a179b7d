package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/edgeee/activityfeed/feed"
)

type part struct {
	Name        string
	Filename    string
	ContentType string
	Body        string
}

func TestClient_Upload(t *testing.T) {
	var got []part
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		if err != nil {
			t.Errorf("MultipartReader() error: %v", err)
			return
		}
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("NextPart() error: %v", err)
				return
			}
			b, _ := io.ReadAll(p)
			got = append(got, part{
				Name:        p.FormName(),
				Filename:    p.FileName(),
				ContentType: p.Header.Get("Content-Type"),
				Body:        string(b),
			})
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"paths": {"/uploads/a.png", "/uploads/notes.txt"}})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	paths, err := c.Upload(context.Background(), []feed.Attachment{
		{Name: "a.png", ContentType: "image/png", Body: strings.NewReader("png-bytes")},
		{Name: "notes.txt", Body: strings.NewReader("hello")},
	})
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if diff := cmp.Diff([]string{"/uploads/a.png", "/uploads/notes.txt"}, paths); diff != "" {
		t.Errorf("Paths mismatch (-want +got):\n%s", diff)
	}
	want := []part{
		{Name: "files", Filename: "a.png", ContentType: "image/png", Body: "png-bytes"},
		{Name: "files", Filename: "notes.txt", ContentType: "application/octet-stream", Body: "hello"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parts mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_UploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "Server error", status: http.StatusInternalServerError, body: "disk full"},
		{name: "Bad JSON", status: http.StatusOK, body: "<html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, nil).Upload(context.Background(), []feed.Attachment{
				{Name: "a.png", Body: strings.NewReader("x")},
			})
			if err == nil {
				t.Error("Upload() expected error")
			}
		})
	}
}
