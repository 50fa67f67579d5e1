package dropbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeReport(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "price_delta_2026-10-19_14-05-09.csv")
	if err := os.WriteFile(p, []byte("product_id\nABC1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUpload(t *testing.T) {
	var gotArg UploadArg
	var gotBody, gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/files/upload" || r.Method != http.MethodPost {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		if err := json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &gotArg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"id:abc","name":"price_delta_2026-10-19_14-05-09.csv","path_display":"/gebruikers/peter/price_delta_2026-10-19_14-05-09.csv","rev":"1","size":16}`))
	}))
	defer srv.Close()

	svc := NewDropboxService("secret", "/gebruikers/peter/", srv.URL)
	meta, err := svc.Upload(context.Background(), writeReport(t))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotType != "application/octet-stream" {
		t.Fatalf("unexpected content type %q", gotType)
	}
	want := UploadArg{Path: "/gebruikers/peter/price_delta_2026-10-19_14-05-09.csv", Mode: "overwrite", Mute: true}
	if gotArg != want {
		t.Fatalf("unexpected upload arg %+v", gotArg)
	}
	if gotBody != "product_id\nABC1\n" {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if meta.PathDisplay != want.Path || meta.Size != 16 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestUploadSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error_summary":"path/insufficient_space/..."}`))
	}))
	defer srv.Close()

	svc := NewDropboxService("secret", "/x", srv.URL)
	_, err := svc.Upload(context.Background(), writeReport(t))
	if err == nil || !strings.Contains(err.Error(), "insufficient_space") {
		t.Fatalf("expected API error summary, got %v", err)
	}
}

func TestUploadRequiresToken(t *testing.T) {
	svc := NewDropboxService("", "/x", "http://127.0.0.1:1")
	if _, err := svc.Upload(context.Background(), writeReport(t)); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestUploadMissingFile(t *testing.T) {
	svc := NewDropboxService("secret", "/x", "http://127.0.0.1:1")
	if _, err := svc.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRemotePath(t *testing.T) {
	svc := NewDropboxService("t", "gebruikers/peter", "")
	if got := svc.RemotePath("/tmp/out/report.csv"); got != "/gebruikers/peter/report.csv" {
		t.Fatalf("unexpected remote path %q", got)
	}
	root := NewDropboxService("t", "", "")
	if got := root.RemotePath("report.csv"); got != "/report.csv" {
		t.Fatalf("unexpected root remote path %q", got)
	}
}
