package server_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ortho-go/internal/events"
	"ortho-go/internal/ortho"
	"ortho-go/internal/server"
	"ortho-go/internal/testutil"
)

const maxChunk = 1 << 10

type env struct {
	srv    *server.Server
	svc    *ortho.UploadService
	broker *events.Broker
	db     ortho.Database
}

func newEnv(t *testing.T, enc ortho.Encryptor) *env {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	broker := events.NewBroker(16, nil)
	svc := ortho.NewUploadService(db, testutil.NewTestStagingArea(), testutil.NewTestVault(), enc, broker, nil, testutil.FixedClock(), testutil.NewStubIDGenerator())
	return &env{
		srv:    server.New(svc, broker, nil, maxChunk),
		svc:    svc,
		broker: broker,
		db:     db,
	}
}

type chunkForm struct {
	name      string
	position  int
	total     int
	data      []byte
	thumbnail string
}

func postChunk(t *testing.T, h http.Handler, owner, category string, f chunkForm) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", f.name))
	require.NoError(t, mw.WriteField("position", fmt.Sprint(f.position)))
	require.NoError(t, mw.WriteField("totalChunks", fmt.Sprint(f.total)))
	if f.thumbnail != "" {
		require.NoError(t, mw.WriteField("thumbnail", f.thumbnail))
	}
	part, err := mw.CreateFormFile("chunk", "blob")
	require.NoError(t, err)
	_, err = part.Write(f.data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/owners/"+owner+"/files/"+category+"/chunks", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

type listedFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	HasThumbnail bool   `json:"hasThumbnail"`
	URL          string `json:"url"`
}

func listFiles(t *testing.T, h http.Handler, owner, category string) []listedFile {
	t.Helper()
	rec := do(h, http.MethodGet, "/api/owners/"+owner+"/files/"+category)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var files []listedFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	return files
}

func TestServer_UploadChunk(t *testing.T) {
	t.Run("chunks out of order produce one file", func(t *testing.T) {
		e := newEnv(t, nil)
		h := e.srv.Handler()

		for _, pos := range []int{2, 1, 3} {
			rec := postChunk(t, h, "p1", "docs", chunkForm{name: "plan.pdf", position: pos, total: 3, data: bytes.Repeat([]byte{byte('0' + pos)}, 100)})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
		}

		files := listFiles(t, h, "p1", "docs")
		require.Len(t, files, 1)
		assert.Equal(t, "plan.pdf", files[0].Name)
		assert.Equal(t, int64(300), files[0].Size)
		assert.Equal(t, "/files/p1/docs/plan.pdf", files[0].URL)
	})

	t.Run("invalid chunk is a bad request", func(t *testing.T) {
		e := newEnv(t, nil)
		rec := postChunk(t, e.srv.Handler(), "p1", "docs", chunkForm{name: "a.pdf", position: 3, total: 2, data: []byte("x")})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid chunk")
	})

	t.Run("unknown category is a bad request", func(t *testing.T) {
		e := newEnv(t, nil)
		rec := postChunk(t, e.srv.Handler(), "p1", "xrays", chunkForm{name: "a.pdf", position: 1, total: 1, data: []byte("x")})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized chunk is rejected", func(t *testing.T) {
		e := newEnv(t, nil)
		rec := postChunk(t, e.srv.Handler(), "p1", "docs", chunkForm{name: "a.pdf", position: 1, total: 1, data: make([]byte, maxChunk+1)})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("missing chunk part", func(t *testing.T) {
		e := newEnv(t, nil)
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("name", "a.pdf"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/owners/p1/files/docs/chunks", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		e.srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_DeleteFile(t *testing.T) {
	e := newEnv(t, nil)
	h := e.srv.Handler()
	rec := postChunk(t, h, "p1", "docs", chunkForm{name: "a.pdf", position: 1, total: 1, data: []byte("pdf")})
	require.Equal(t, http.StatusOK, rec.Code)
	files := listFiles(t, h, "p1", "docs")
	require.Len(t, files, 1)

	rec = do(h, http.MethodDelete, "/api/files/"+files[0].ID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listFiles(t, h, "p1", "docs"))

	rec = do(h, http.MethodDelete, "/api/files/"+files[0].ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ClearStaging(t *testing.T) {
	e := newEnv(t, nil)
	h := e.srv.Handler()
	rec := postChunk(t, h, "p1", "docs", chunkForm{name: "a.pdf", position: 1, total: 2, data: []byte("half")})
	require.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < 2; i++ {
		rec = do(h, http.MethodDelete, "/api/staging")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	}
	assert.Equal(t, ortho.StateUnknown, e.svc.State("a.pdf"))
}

func TestServer_ServeFile(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	thumb := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	t.Run("photo content", func(t *testing.T) {
		e := newEnv(t, nil)
		h := e.srv.Handler()
		require.Equal(t, http.StatusOK, postChunk(t, h, "p1", "photos", chunkForm{name: "smile.jpg", position: 1, total: 1, data: []byte("jpeg")}).Code)
		files := listFiles(t, h, "p1", "photos")
		require.Len(t, files, 1)

		rec := do(h, http.MethodGet, files[0].URL)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
		assert.Equal(t, "jpeg", rec.Body.String())
	})

	t.Run("video thumbnail", func(t *testing.T) {
		e := newEnv(t, nil)
		h := e.srv.Handler()
		require.Equal(t, http.StatusOK, postChunk(t, h, "p1", "videos", chunkForm{name: "clip.mp4", position: 1, total: 1, data: []byte("mp4"), thumbnail: thumb}).Code)
		files := listFiles(t, h, "p1", "videos")
		require.Len(t, files, 1)
		assert.True(t, files[0].HasThumbnail)

		rec := do(h, http.MethodGet, files[0].URL)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, png, rec.Body.Bytes())
	})

	t.Run("documents are not served", func(t *testing.T) {
		e := newEnv(t, nil)
		h := e.srv.Handler()
		require.Equal(t, http.StatusOK, postChunk(t, h, "p1", "docs", chunkForm{name: "a.pdf", position: 1, total: 1, data: []byte("pdf")}).Code)
		assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/files/p1/docs/a.pdf").Code)
	})

	t.Run("missing photo", func(t *testing.T) {
		e := newEnv(t, nil)
		assert.Equal(t, http.StatusNotFound, do(e.srv.Handler(), http.MethodGet, "/files/p1/photos/nope.jpg").Code)
	})

	t.Run("locked photo", func(t *testing.T) {
		e := newEnv(t, testutil.NewTestEncryptor("secret"))
		h := e.srv.Handler()
		require.Equal(t, http.StatusOK, postChunk(t, h, "p1", "photos", chunkForm{name: "smile.jpg", position: 1, total: 1, data: []byte("jpeg")}).Code)
		files := listFiles(t, h, "p1", "photos")
		require.Len(t, files, 1)

		assert.Equal(t, http.StatusLocked, do(h, http.MethodGet, files[0].URL).Code)

		require.NoError(t, e.svc.Unlock("secret"))
		rec := do(h, http.MethodGet, files[0].URL)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jpeg", rec.Body.String())
	})
}

func TestServer_Events(t *testing.T) {
	e := newEnv(t, nil)
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return e.broker.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	for _, pos := range []int{2, 1} {
		rec := postChunk(t, e.srv.Handler(), "p1", "docs", chunkForm{name: "a.pdf", position: pos, total: 2, data: []byte("xx")})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	want := []ortho.Event{
		{Type: ortho.EventProgress, FileName: "a.pdf", Percent: 100},
		{Type: ortho.EventProgress, FileName: "a.pdf", Percent: 50},
		{Type: ortho.EventComplete, FileName: "a.pdf"},
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for _, w := range want {
		var got ortho.Event
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, w, got)
	}
}

func TestServer_Events_RejectsForeignOrigin(t *testing.T) {
	e := newEnv(t, nil)
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_Serve_Shutdown(t *testing.T) {
	e := newEnv(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/owners/p1/files/docs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
