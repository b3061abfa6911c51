package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docx-translator/internal/config"
	"github.com/nerdneilsfield/go-docx-translator/internal/document"
	"github.com/nerdneilsfield/go-docx-translator/internal/jobs"
	"github.com/nerdneilsfield/go-docx-translator/internal/server"
	"github.com/nerdneilsfield/go-docx-translator/internal/test"
	"github.com/nerdneilsfield/go-docx-translator/internal/translator"
)

// blocking 在 release 关闭或任务被取消前一直运行
type blocking struct {
	release chan struct{}
}

func (b *blocking) Process(ctx context.Context, req jobs.Request, updates chan<- jobs.Update) (jobs.Output, error) {
	updates <- jobs.Update{Progress: 5, Message: "working"}
	select {
	case <-ctx.Done():
		return jobs.Output{}, ctx.Err()
	case <-b.release:
		return jobs.Output{Data: req.Data, FileName: "translated_" + req.FileName}, nil
	}
}

func newServer(t *testing.T, proc jobs.Processor, maxUpload int64) *httptest.Server {
	t.Helper()
	tr := jobs.NewTracker(proc, nil, jobs.Options{MaxConcurrent: 2}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tr.Shutdown(ctx)
	})

	srv := server.New(tr, server.Config{MaxUploadBytes: maxUpload, DefaultLanguage: "Spanish"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func echoProcessor() jobs.Processor {
	tr := translator.New(&test.EchoMarkerInvoker{}, translator.OptionsFromConfig(config.NewDefaultConfig(), nil), nil)
	return translator.NewDocumentProcessor(tr, nil)
}

func upload(t *testing.T, baseURL, fileName string, data []byte, lang string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	if lang != "" {
		require.NoError(t, mw.WriteField("target_language", lang))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(baseURL+"/api/jobs", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func del(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func waitStatus(t *testing.T, baseURL, id string, want jobs.Status) jobs.Snapshot {
	t.Helper()
	var snap jobs.Snapshot
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/api/jobs/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return false
		}
		return snap.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return snap
}

func TestHealth(t *testing.T) {
	ts := newServer(t, echoProcessor(), 0)

	resp := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[server.HealthResponse](t, resp).Status)
}

func TestTranslateRoundTrip(t *testing.T) {
	ts := newServer(t, echoProcessor(), 0)
	docx := test.BuildDocx(t, test.P("One"), test.BoldP("Two"), test.P("Three"))

	resp := upload(t, ts.URL, "report.docx", docx, "de")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[server.SubmitResponse](t, resp).JobID
	require.NotEmpty(t, id)

	snap := waitStatus(t, ts.URL, id, jobs.StatusCompleted)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, "report.docx", snap.FileName)
	assert.Equal(t, "de", snap.TargetLanguage)
	assert.Equal(t, jobs.Stats{Total: 3, Translated: 3}, snap.Stats)

	listed := decode[server.ListResponse](t, get(t, ts.URL+"/api/jobs"))
	require.Len(t, listed.Jobs, 1)
	assert.Equal(t, id, listed.Jobs[0].ID)

	result := get(t, ts.URL+"/api/jobs/"+id+"/result")
	require.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, server.DocxContentType, result.Header.Get("Content-Type"))
	_, params, err := mime.ParseMediaType(result.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "translated_report.docx", params["filename"])

	data, err := io.ReadAll(result.Body)
	require.NoError(t, err)
	_, units, err := document.Load(data)
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, test.TranslatedPrefix+"Two", units[1].Source)

	// 下载后任务被释放
	gone := get(t, ts.URL+"/api/jobs/"+id)
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
	assert.Equal(t, jobs.ErrJobNotFound.Error(), decode[server.ErrorResponse](t, gone).Error)
}

func TestDefaultLanguage(t *testing.T) {
	ts := newServer(t, echoProcessor(), 0)

	resp := upload(t, ts.URL, "a.docx", test.BuildDocx(t, test.P("Hello")), "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[server.SubmitResponse](t, resp).JobID

	snap := waitStatus(t, ts.URL, id, jobs.StatusCompleted)
	assert.Equal(t, "Spanish", snap.TargetLanguage)
}

func TestSubmitValidation(t *testing.T) {
	ts := newServer(t, echoProcessor(), 1024)

	tests := []struct {
		name     string
		fileName string
		data     []byte
		status   int
	}{
		{"missing file", "", nil, http.StatusBadRequest},
		{"wrong extension", "notes.pdf", []byte("%PDF"), http.StatusBadRequest},
		{"empty document", "empty.docx", nil, http.StatusBadRequest},
		{"too large", "big.docx", bytes.Repeat([]byte("x"), 4096), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, ts.URL, tt.fileName, tt.data, "French")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, decode[server.ErrorResponse](t, resp).Error)
		})
	}

	listed := decode[server.ListResponse](t, get(t, ts.URL+"/api/jobs"))
	assert.Empty(t, listed.Jobs, "rejected uploads never create jobs")
}

func TestInvalidDocumentFailsJob(t *testing.T) {
	ts := newServer(t, echoProcessor(), 0)

	resp := upload(t, ts.URL, "broken.docx", []byte("not a zip"), "French")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[server.SubmitResponse](t, resp).JobID

	snap := waitStatus(t, ts.URL, id, jobs.StatusError)
	assert.NotEmpty(t, snap.Error)

	result := get(t, ts.URL+"/api/jobs/"+id+"/result")
	assert.Equal(t, http.StatusConflict, result.StatusCode)
}

func TestUnknownJob(t *testing.T) {
	ts := newServer(t, echoProcessor(), 0)

	for _, path := range []string{"/api/jobs/nope", "/api/jobs/nope/result"} {
		resp := get(t, ts.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	}
	assert.Equal(t, http.StatusNotFound, del(t, ts.URL+"/api/jobs/nope").StatusCode)
}

func TestResultNotReadyAndCancel(t *testing.T) {
	proc := &blocking{release: make(chan struct{})}
	ts := newServer(t, proc, 0)

	resp := upload(t, ts.URL, "slow.docx", []byte("payload"), "German")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[server.SubmitResponse](t, resp).JobID
	waitStatus(t, ts.URL, id, jobs.StatusRunning)

	notReady := get(t, ts.URL+"/api/jobs/"+id+"/result")
	assert.Equal(t, http.StatusConflict, notReady.StatusCode)
	assert.Equal(t, jobs.ErrJobNotReady.Error(), decode[server.ErrorResponse](t, notReady).Error)

	canceled := del(t, ts.URL+"/api/jobs/"+id)
	require.Equal(t, http.StatusAccepted, canceled.StatusCode)
	assert.Equal(t, id, decode[server.CancelResponse](t, canceled).JobID)

	snap := waitStatus(t, ts.URL, id, jobs.StatusError)
	assert.Equal(t, jobs.CanceledMessage, snap.Message)

	again := del(t, ts.URL+"/api/jobs/"+id)
	assert.Equal(t, http.StatusConflict, again.StatusCode)
}

func TestStartStopsOnCancel(t *testing.T) {
	tr := jobs.NewTracker(echoProcessor(), nil, jobs.Options{}, nil)
	srv := server.New(tr, server.Config{Addr: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	require.NoError(t, tr.Shutdown(context.Background()))
}

func TestClient(t *testing.T) {
	proc := &blocking{release: make(chan struct{})}
	ts := newServer(t, proc, 0)
	client := server.NewClient(ts.URL + "/")
	ctx := context.Background()

	resp := upload(t, ts.URL, "c.docx", []byte("payload"), "Italian")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[server.SubmitResponse](t, resp).JobID

	list, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c.docx", list[0].FileName)

	snap, err := client.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Italian", snap.TargetLanguage)

	close(proc.release)
	waitStatus(t, ts.URL, id, jobs.StatusCompleted)

	err = client.Cancel(ctx, id)
	assert.ErrorContains(t, err, "server error (409): "+jobs.ErrJobFinished.Error())

	_, err = client.Status(ctx, "missing")
	assert.ErrorContains(t, err, "server error (404)")
}
