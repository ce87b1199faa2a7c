package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	require.NoError(t, os.WriteFile(path, append([]byte("RIFF"), make([]byte, 96)...), 0o600))
	return path
}

func TestTranscribeUploadsFileAndReturnsText(t *testing.T) {
	var gotPath, gotFormat, gotLanguage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path

		require.NoError(t, r.ParseMultipartForm(8<<20))
		gotFormat = r.FormValue("response_format")
		gotLanguage = r.FormValue("language")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "sample.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "  hello world \n"}`))
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL, Language: "en"}, nil)
	text, err := client.Transcribe(context.Background(), writeTestWAV(t))
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Equal(t, "/inference", gotPath)
	require.Equal(t, "json", gotFormat)
	require.Equal(t, "en", gotLanguage)
}

func TestTranscribeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "model not loaded"}`))
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL}, nil)
	_, err := client.Transcribe(context.Background(), writeTestWAV(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 500")
	require.Contains(t, err.Error(), "model not loaded")
}

func TestTranscribeErrorPayloadWithOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text": "", "error": "audio too short"}`))
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL}, nil)
	_, err := client.Transcribe(context.Background(), writeTestWAV(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio too short")
}

func TestTranscribeMissingFile(t *testing.T) {
	client := NewClient(Options{Endpoint: "127.0.0.1:1"}, nil)
	_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.wav"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "open recording")
}

func TestTranscribeUnreachableService(t *testing.T) {
	client := NewClient(Options{Endpoint: "127.0.0.1:1", Timeout: time.Second}, nil)
	_, err := client.Transcribe(context.Background(), writeTestWAV(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "transcription request")
}

func TestHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL}, nil)
	require.NoError(t, client.Healthy(context.Background()))

	down := NewClient(Options{Endpoint: "127.0.0.1:1", Timeout: time.Second}, nil)
	require.Error(t, down.Healthy(context.Background()))
}

func TestEndpointURL(t *testing.T) {
	require.Equal(t, "http://127.0.0.1:8080/inference", endpointURL("", "/inference"))
	require.Equal(t, "http://localhost:9000/health", endpointURL("localhost:9000", "/health"))
	require.Equal(t, "https://asr.example.com/inference", endpointURL("https://asr.example.com/", "/inference"))
}

func TestErrorDetail(t *testing.T) {
	require.Equal(t, "boom", errorDetail([]byte(`{"error":"boom"}`)))
	require.Equal(t, "plain text", errorDetail([]byte("plain text")))
	require.Equal(t, "no detail", errorDetail(nil))
	require.Len(t, errorDetail([]byte(strings.Repeat("x", 500))), 200)
}
