package rocketchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1/", "uid-1", "token-1")
}

func TestLogin_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/login" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["username"] != "alice" || body["password"] != "s3cret" {
			t.Errorf("unexpected credentials: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]string{"userId": "u42", "authToken": "tok42"},
		})
	}))

	uid, token, err := c.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if uid != "u42" || token != "tok42" {
		t.Fatalf("unexpected auth data: %q %q", uid, token)
	}
}

func TestLogin_FailureEnvelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"error":  "Unauthorized",
		})
	}))

	if _, _, err := c.Login(context.Background(), "alice", "wrong"); err == nil {
		t.Fatalf("expected error for failed login")
	}
}

func TestPostMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat.postMessage" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("X-User-Id") != "uid-1" || r.Header.Get("X-Auth-Token") != "token-1" {
			t.Errorf("auth headers missing: %v", r.Header)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["channel"] != "#alerts" || body["text"] != "*subj*\nhello" {
			t.Errorf("unexpected payload: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": map[string]string{"_id": "m1", "rid": "r1"},
		})
	}))

	posted, err := c.PostMessage(context.Background(), "#alerts", "*subj*\nhello")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if posted.MessageID != "m1" || posted.RoomID != "r1" {
		t.Fatalf("unexpected ids: %+v", posted)
	}
}

func TestPostMessage_APIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "room not found"})
	}))

	if _, err := c.PostMessage(context.Background(), "#nope", "text"); err == nil {
		t.Fatalf("expected error for unsuccessful post")
	}
}

func TestUpdateMessage(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat.update" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))

	if err := c.UpdateMessage(context.Background(), "r1", "m1", "new text"); err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}
	if got["roomId"] != "r1" || got["msgId"] != "m1" || got["text"] != "new text" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/rooms.upload/r1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			f.Close()
			if hdr.Filename != "graph.png" {
				t.Errorf("unexpected filename %q", hdr.Filename)
			}
		}
		if desc := r.FormValue("description"); desc != "CPU load" {
			t.Errorf("unexpected description %q", desc)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))

	if err := c.UploadFile(context.Background(), "r1", path, "CPU load"); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
}

func TestTransportErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL + "/api/v1/"
	srv.Close() // connection refused from here on

	c := New(base, "uid-1", "token-1")
	if _, err := c.PostMessage(context.Background(), "#alerts", "text"); err == nil {
		t.Fatalf("expected transport error")
	}
}
