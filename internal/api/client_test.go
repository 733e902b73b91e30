package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adamavenir/office/internal/types"
)

func TestNormalizeBaseURL(t *testing.T) {
	if _, err := NormalizeBaseURL(""); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := NormalizeBaseURL("localhost:8080"); err == nil {
		t.Error("expected error for url without scheme")
	}
	if _, err := NormalizeBaseURL("office.example.com"); err == nil {
		t.Error("expected error for bare host")
	}
	if _, err := NormalizeBaseURL("ftp://office.example.com"); err == nil {
		t.Error("expected error for non-http scheme")
	}
	got, err := NormalizeBaseURL("https://office.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://office.example.com" {
		t.Errorf("got %q", got)
	}
}

func TestWSURLMirrorsScheme(t *testing.T) {
	client, err := NewClient("https://office.example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := client.WSURL("dm:builder")
	if err != nil {
		t.Fatal(err)
	}
	if got != "wss://office.example.com/ws/dm:builder" {
		t.Errorf("got %q", got)
	}

	client, _ = NewClient("http://localhost:8700", "")
	got, _ = client.WSURL("main")
	if got != "ws://localhost:8700/ws/main" {
		t.Errorf("got %q", got)
	}
}

func TestMessagesSendsChannelAndLimit(t *testing.T) {
	var gotQuery string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]types.Message{
			{ID: "m1", Sender: "user", Content: "hi", MsgType: types.MsgTypeMessage, CreatedAt: time.Now().UTC()},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "tok-123")
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := client.Messages(context.Background(), "main", 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Fatalf("messages = %+v", msgs)
	}
	if !strings.Contains(gotQuery, "channel=main") || !strings.Contains(gotQuery, "limit=200") {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth = %q", gotAuth)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden","message":"no access to channel"}`))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "")
	_, err := client.Permissions(context.Background(), "main")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != "forbidden" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !strings.Contains(apiErr.Error(), "no access to channel") {
		t.Errorf("error string = %q", apiErr.Error())
	}
}

func TestToggleReactionPostsBody(t *testing.T) {
	var gotPath string
	var gotBody ToggleReactionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"summary": types.ReactionSummary{"👍": {Count: 1, Actors: []string{"user"}}},
		})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "")
	summary, err := client.ToggleReaction(context.Background(), "m42", ToggleReactionRequest{
		Emoji: "👍", ActorID: "user", ActorType: "user",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/messages/m42/reactions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.Emoji != "👍" || gotBody.ActorID != "user" {
		t.Errorf("body = %+v", gotBody)
	}
	if summary["👍"].Count != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestUploadFileMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		_ = json.NewEncoder(w).Encode(UploadedFile{
			FileName:     "stored-" + header.Filename,
			OriginalName: header.Filename,
			URL:          "/files/stored-" + header.Filename,
			Size:         int64(len(data)),
			ContentType:  header.Header.Get("Content-Type"),
		})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "")
	uploaded, err := client.UploadFile(context.Background(), "notes.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if uploaded.OriginalName != "notes.txt" || uploaded.Size != 5 {
		t.Errorf("uploaded = %+v", uploaded)
	}
	if uploaded.ContentType != "text/plain" {
		t.Errorf("content type = %q", uploaded.ContentType)
	}
}
