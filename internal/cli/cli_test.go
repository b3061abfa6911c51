package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docx-translator/internal/config"
	"github.com/nerdneilsfield/go-docx-translator/internal/document"
	"github.com/nerdneilsfield/go-docx-translator/internal/jobs"
	"github.com/nerdneilsfield/go-docx-translator/internal/provider"
	"github.com/nerdneilsfield/go-docx-translator/internal/server"
	"github.com/nerdneilsfield/go-docx-translator/internal/test"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("1.2.3", "abc", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (commit abc, built today)")
}

func TestTranslateCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "report.docx")
	require.NoError(t, os.WriteFile(in, test.BuildDocx(t, test.P("One"), test.BoldP("Two"), test.P("Three")), 0o644))
	cfg := writeConfig(t, "provider: echo\ntarget_lang: French\n")

	t.Run("explicit output", func(t *testing.T) {
		outPath := filepath.Join(dir, "out.docx")
		out, err := execute(t, "--config", cfg, "translate", in, outPath, "--to", "de", "--no-progress")
		require.NoError(t, err)

		assert.Contains(t, out, "Translation summary")
		assert.Contains(t, out, "de")
		assert.Contains(t, out, outPath)
		assert.NotContains(t, out, "Failed:")

		data, err := os.ReadFile(outPath)
		require.NoError(t, err)
		_, units, err := document.Load(data)
		require.NoError(t, err)
		require.Len(t, units, 3)
		assert.Equal(t, "Two", units[1].Source)
		assert.True(t, units[1].Format.Bold)
	})

	t.Run("default output next to input", func(t *testing.T) {
		out, err := execute(t, "--config", cfg, "translate", in, "--no-progress")
		require.NoError(t, err)
		assert.Contains(t, out, "French")

		_, err = os.Stat(filepath.Join(dir, "translated_report.docx"))
		assert.NoError(t, err)
	})

	t.Run("progress bar", func(t *testing.T) {
		outPath := filepath.Join(dir, "bar.docx")
		out, err := execute(t, "--config", cfg, "translate", in, outPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Translation summary")
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := execute(t, "--config", cfg, "translate", filepath.Join(dir, "nope.docx"), "--no-progress")
		assert.ErrorContains(t, err, "failed to read input")
	})

	t.Run("broken document", func(t *testing.T) {
		broken := filepath.Join(dir, "broken.docx")
		require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0o644))
		_, err := execute(t, "--config", cfg, "translate", broken, "--no-progress")
		assert.ErrorContains(t, err, "translation failed")
	})
}

func TestFlagOverridesAreValidated(t *testing.T) {
	cfg := writeConfig(t, "provider: echo\n")
	in := filepath.Join(t.TempDir(), "a.docx")

	_, err := execute(t, "--config", cfg, "--batch-size", "50", "translate", in, "--no-progress")
	assert.ErrorContains(t, err, "batch_size")

	_, err = execute(t, "--config", cfg, "--provider", "carrier-pigeon", "translate", in, "--no-progress")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestNewInvoker(t *testing.T) {
	base := func(p string) *config.Config {
		cfg := config.NewDefaultConfig()
		cfg.Provider = p
		cfg.APIKey = "sk-test"
		cfg.BaseURL = "http://localhost:1/v1"
		return cfg
	}

	inv, err := newInvoker(base(config.ProviderOpenAI), nil)
	require.NoError(t, err)
	assert.IsType(t, &provider.OpenAI{}, inv)

	inv, err = newInvoker(base(config.ProviderCompatible), nil)
	require.NoError(t, err)
	assert.IsType(t, &provider.Compatible{}, inv)

	inv, err = newInvoker(base(config.ProviderEcho), nil)
	require.NoError(t, err)
	assert.IsType(t, provider.Echo{}, inv)

	limited := base(config.ProviderEcho)
	limited.RequestsPerMinute = 30
	inv, err = newInvoker(limited, nil)
	require.NoError(t, err)
	assert.IsType(t, &provider.RateLimited{}, inv)
	assert.Equal(t, "echo", inv.Name())

	_, err = newInvoker(base("nope"), nil)
	assert.Error(t, err)
}

func TestNewTrackerWithGlossaryAndResultDir(t *testing.T) {
	dir := t.TempDir()
	glossaryPath := filepath.Join(dir, "glossary.toml")
	require.NoError(t, os.WriteFile(glossaryPath, []byte(
		"source_lang = \"English\"\ntarget_lang = \"Spanish\"\n\n[translations]\ninvoice = \"factura\"\n"), 0o644))

	cfg := config.NewDefaultConfig()
	cfg.Provider = config.ProviderEcho
	cfg.GlossaryPath = glossaryPath
	cfg.ResultDir = filepath.Join(dir, "results")

	tr, err := newTracker(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })

	id, err := tr.Submit(context.Background(), jobs.Request{
		FileName: "a.docx",
		Data:     test.BuildDocx(t, test.P("The invoice")),
	})
	require.NoError(t, err)

	snap, err := waitForJob(context.Background(), tr, id, func(jobs.Snapshot) {})
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, snap.Status)

	entries, err := os.ReadDir(cfg.ResultDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	cfg.GlossaryPath = filepath.Join(dir, "missing.toml")
	_, err = newTracker(cfg, nil)
	assert.ErrorContains(t, err, "glossary file not found")
}

type blocking struct{}

func (blocking) Process(ctx context.Context, _ jobs.Request, _ chan<- jobs.Update) (jobs.Output, error) {
	<-ctx.Done()
	return jobs.Output{}, ctx.Err()
}

func TestWaitForJobCancelsOnInterrupt(t *testing.T) {
	tr := jobs.NewTracker(blocking{}, nil, jobs.Options{}, nil)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })

	id, err := tr.Submit(context.Background(), jobs.Request{FileName: "a.docx", Data: []byte("x")})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = waitForJob(ctx, tr, id, func(jobs.Snapshot) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		snap, err := tr.Poll(id)
		return err == nil && snap.Status == jobs.StatusError && snap.Message == jobs.CanceledMessage
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRenderJobs(t *testing.T) {
	var buf bytes.Buffer
	renderJobs(&buf, nil)
	assert.Equal(t, "No jobs.\n", buf.String())

	buf.Reset()
	renderJobs(&buf, []jobs.Snapshot{{
		ID:             "job-1",
		Status:         jobs.StatusCompleted,
		Progress:       100,
		Message:        "translated 3 paragraphs",
		FileName:       "report.docx",
		TargetLanguage: "German",
		Stats:          jobs.Stats{Total: 3, Translated: 3},
		UpdatedAt:      time.Now(),
	}})
	out := buf.String()
	for _, want := range []string{"job-1", "report.docx", "German", "completed", "100%", "translated 3 paragraphs"} {
		assert.Contains(t, out, want)
	}
}

func TestJobsCommand(t *testing.T) {
	tr := jobs.NewTracker(blocking{}, nil, jobs.Options{}, nil)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	ts := httptest.NewServer(server.New(tr, server.Config{}).Handler())
	t.Cleanup(ts.Close)

	id, err := tr.Submit(context.Background(), jobs.Request{FileName: "queued.docx", Data: []byte("x"), TargetLanguage: "Italian"})
	require.NoError(t, err)

	out, err := execute(t, "jobs", "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "queued.docx")

	out, err = execute(t, "jobs", "cancel", id, "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "cancel requested")

	_, err = execute(t, "jobs", "cancel", "missing", "--server", ts.URL)
	assert.ErrorContains(t, err, "404")
}

func TestReapInterval(t *testing.T) {
	assert.Equal(t, time.Duration(0), reapInterval(0))
	assert.Equal(t, 30*time.Second, reapInterval(time.Minute))
	assert.Equal(t, time.Minute, reapInterval(time.Hour))
}
