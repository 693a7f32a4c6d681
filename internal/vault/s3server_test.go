package vault

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"ortho-go/internal/config"
)

// fakeS3 is an in-memory server speaking the subset of the S3 REST API the
// S3 and MinIO vaults use: path-style object PUT/GET/HEAD/DELETE, bucket
// HEAD, and multipart uploads. Objects only become visible once their
// upload completes.
type fakeS3 struct {
	bucket string
	srv    *httptest.Server

	mu      sync.Mutex
	objects map[string][]byte
	uploads map[string]map[int][]byte
	nextID  int
}

var lastModified = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func newFakeS3(t *testing.T, bucket string) *fakeS3 {
	t.Helper()
	f := &fakeS3{
		bucket:  bucket,
		objects: make(map[string][]byte),
		uploads: make(map[string]map[int][]byte),
	}
	f.srv = httptest.NewServer(f)
	t.Cleanup(f.srv.Close)
	return f
}

// Keys returns the stored object keys, sorted.
func (f *fakeS3) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PendingUploads returns the number of multipart uploads neither completed nor aborted.
func (f *fakeS3) PendingUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeS3) s3Config(prefix string) config.VaultConfig {
	return config.VaultConfig{
		Type:        "s3",
		Name:        "test-s3",
		S3Bucket:    f.bucket,
		S3Prefix:    prefix,
		S3Region:    "us-east-1",
		S3Endpoint:  f.srv.URL,
		S3AccessKey: "key",
		S3SecretKey: "secret",
	}
}

func (f *fakeS3) minioConfig(prefix string) config.VaultConfig {
	return config.VaultConfig{
		Type:        "minio",
		Name:        "test-minio",
		S3Bucket:    f.bucket,
		S3Prefix:    prefix,
		S3Region:    "us-east-1",
		S3Endpoint:  strings.TrimPrefix(f.srv.URL, "http://"),
		S3AccessKey: "key",
		S3SecretKey: "secret",
	}
}

type initiateResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	Bucket   string
	Key      string
	UploadID string `xml:"UploadId"`
}

type completeRequest struct {
	Parts []struct {
		PartNumber int
	} `xml:"Part"`
}

type completeResult struct {
	XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
	Bucket  string
	Key     string
	ETag    string
}

type errorResult struct {
	XMLName    xml.Name `xml:"Error"`
	Code       string
	Message    string
	Key        string `xml:",omitempty"`
	BucketName string `xml:",omitempty"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	q := r.URL.Query()

	f.mu.Lock()
	defer f.mu.Unlock()

	if bucket != f.bucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket", "", bucket)
		return
	}

	switch {
	case key == "":
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPost && q.Has("uploads"):
		f.nextID++
		id := fmt.Sprintf("upload-%d", f.nextID)
		f.uploads[id] = make(map[int][]byte)
		writeXML(w, initiateResult{Bucket: bucket, Key: key, UploadID: id})

	case r.Method == http.MethodPut && q.Has("uploadId"):
		parts, ok := f.uploads[q.Get("uploadId")]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchUpload", key, bucket)
			return
		}
		n, err := strconv.Atoi(q.Get("partNumber"))
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "InvalidArgument", key, bucket)
			return
		}
		data, err := readPayload(r)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody", key, bucket)
			return
		}
		parts[n] = data
		w.Header().Set("ETag", fmt.Sprintf("%q", fmt.Sprintf("part-%d", n)))
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPost && q.Has("uploadId"):
		id := q.Get("uploadId")
		parts, ok := f.uploads[id]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchUpload", key, bucket)
			return
		}
		var req completeRequest
		if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
			writeS3Error(w, http.StatusBadRequest, "MalformedXML", key, bucket)
			return
		}
		var obj bytes.Buffer
		for _, p := range req.Parts {
			data, ok := parts[p.PartNumber]
			if !ok {
				writeS3Error(w, http.StatusBadRequest, "InvalidPart", key, bucket)
				return
			}
			obj.Write(data)
		}
		f.objects[key] = obj.Bytes()
		delete(f.uploads, id)
		writeXML(w, completeResult{Bucket: bucket, Key: key, ETag: `"complete"`})

	case r.Method == http.MethodDelete && q.Has("uploadId"):
		delete(f.uploads, q.Get("uploadId"))
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPut:
		data, err := readPayload(r)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody", key, bucket)
			return
		}
		f.objects[key] = data
		w.Header().Set("ETag", `"object"`)
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey", key, bucket)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("ETag", `"object"`)
		w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(data)
		}

	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed", key, bucket)
	}
}

// readPayload returns the request body, decoding the aws-chunked framing
// that streaming-signed uploads use.
func readPayload(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return io.ReadAll(r.Body)
	}

	br := bufio.NewReader(r.Body)
	var out bytes.Buffer
	for {
		header, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(header), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing chunk size %q: %w", sizeHex, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, br, size); err != nil {
			return nil, fmt.Errorf("reading chunk: %w", err)
		}
		if _, err := br.Discard(2); err != nil {
			return nil, fmt.Errorf("reading chunk trailer: %w", err)
		}
	}
}

func writeXML(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, xml.Header)
	xml.NewEncoder(w).Encode(v)
}

func writeS3Error(w http.ResponseWriter, status int, code, key, bucket string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	io.WriteString(w, xml.Header)
	xml.NewEncoder(w).Encode(errorResult{Code: code, Message: code, Key: key, BucketName: bucket})
}
