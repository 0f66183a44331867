package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cubemix/internal/config"
	"cubemix/internal/frame"
	"cubemix/internal/imageseq"
	"cubemix/internal/job"
	"cubemix/internal/lut"
	"cubemix/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	return &cliTestEnv{
		cfg:        cfg,
		configPath: testsupport.WriteConfig(t, cfg),
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// writeClip writes a short PNG sequence at 25 fps and returns its directory.
func writeClip(t *testing.T, dir string, frames int) string {
	t.Helper()
	ctx := context.Background()
	clip := filepath.Join(dir, "clip")
	sink := imageseq.NewSink(clip, imageseq.SinkOptions{FrameRate: 25})
	if err := sink.Open(ctx, job.EncodeSettings{Container: "png"}); err != nil {
		t.Fatalf("open sink: %v", err)
	}
	for i := 0; i < frames; i++ {
		f := frame.New(4, 2)
		for p := range f.Pix {
			v := float32(i+p) / float32(frames+len(f.Pix))
			f.Pix[p] = lut.RGB{R: v, G: v / 2, B: 1 - v}
		}
		if err := sink.Write(ctx, f); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	if _, err := sink.Close(ctx); err != nil {
		t.Fatalf("close sink: %v", err)
	}
	return clip
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Quality: high (12000 kbps)")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestLUTIdentityAndInspect(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "ident.cube")

	if _, _, err := runCLI(t, []string{"lut", "identity", "5", "-o", path, "--title", "Neutral"}, env.configPath); err != nil {
		t.Fatalf("lut identity: %v", err)
	}
	out, _, err := runCLI(t, []string{"--json", "lut", "inspect", path}, env.configPath)
	if err != nil {
		t.Fatalf("lut inspect: %v", err)
	}
	var info lutInspection
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode inspect output: %v\n%s", err, out)
	}
	if info.Size != 5 || info.Entries != 125 || info.Title != "Neutral" || !info.Identity {
		t.Fatalf("unexpected inspection: %+v", info)
	}
	if info.Tint != "#808080" {
		t.Fatalf("identity tint = %s, want #808080", info.Tint)
	}

	if _, _, err := runCLI(t, []string{"lut", "identity", "1"}, env.configPath); err == nil {
		t.Fatal("expected size 1 to be rejected")
	}
}

func TestLUTInspectReportsParseErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "bad.cube")
	testsupport.WriteFile(t, path, []byte("LUT_3D_SIZE 2\n0 0 0\n"))

	_, _, err := runCLI(t, []string{"lut", "inspect", path}, env.configPath)
	if err == nil {
		t.Fatal("expected parse failure")
	}
	requireContains(t, err.Error(), "bad")
}

func TestCatalogAddAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	src := testsupport.WriteCube(t, env.baseDir, "download.cube", testsupport.ScaledCube(t, 3, 0.5))

	out, _, err := runCLI(t, []string{"catalog", "add", src, "--name", "teal_orange"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog add: %v", err)
	}
	requireContains(t, out, "teal_orange.cube")

	out, _, err = runCLI(t, []string{"--json", "catalog", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	var view catalogView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode catalog list: %v\n%s", err, out)
	}
	if len(view.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", view.Entries)
	}
	got := view.Entries[0]
	if got.Name != "teal_orange" || got.DisplayName != "Teal Orange" || got.Category != "Cinematic" || got.Tint != "#404040" {
		t.Fatalf("unexpected entry: %+v", got)
	}

	out, _, err = runCLI(t, []string{"catalog", "list", "--category", "vintage"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list --category: %v", err)
	}
	requireContains(t, out, "No LUTs")
}

func TestExportWritesGradedSequenceAndJournal(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := writeClip(t, env.baseDir, 6)
	primary := testsupport.WriteCube(t, env.baseDir, "dim.cube", testsupport.ScaledCube(t, 5, 0.5))
	testsupport.WriteCube(t, env.cfg.Paths.CatalogDir, "teal.cube", lut.Identity(3))

	out, _, err := runCLI(t, []string{"--json", "export", clip,
		"--primary", primary, "--primary-opacity", "0.8",
		"--secondary", "teal",
		"--quality", "low",
	}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var view jobView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode export output: %v\n%s", err, out)
	}
	wantDest := filepath.Join(env.baseDir, "clip_converted_teal_80percent.png")
	if view.State != "completed" || view.Output != wantDest || view.FramesDone != 6 || view.Progress != 1 || view.Tier != "low" {
		t.Fatalf("unexpected job: %+v", view)
	}

	src, err := imageseq.Open(wantDest, imageseq.SourceOptions{})
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if src.FrameCount() != 6 || src.FrameRate() != 25 {
		t.Fatalf("output has %d frames at %v fps", src.FrameCount(), src.FrameRate())
	}
	in, _ := imageseq.Open(clip, imageseq.SourceOptions{})
	orig, _ := in.FrameAt(context.Background(), 0, 0)
	graded, err := src.FrameAt(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("read graded frame: %v", err)
	}
	// 0.8 opacity of a 0.5 gain leaves 0.6 of the input.
	for i := range orig.Pix {
		if d := graded.Pix[i].R - orig.Pix[i].R*0.6; d > 0.01 || d < -0.01 {
			t.Fatalf("pixel %d: got %v, want %v", i, graded.Pix[i].R, orig.Pix[i].R*0.6)
		}
	}

	out, _, err = runCLI(t, []string{"jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "6/6")

	out, _, err = runCLI(t, []string{"jobs", "show", view.ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, wantDest)
	requireContains(t, out, "State:       completed")
}

func TestExportNamesOutputBySecondaryOpacity(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := writeClip(t, env.baseDir, 2)
	testsupport.WriteCube(t, env.cfg.Paths.CatalogDir, "teal.cube", lut.Identity(3))

	out, _, err := runCLI(t, []string{"--json", "export", clip,
		"--secondary", "teal", "--secondary-opacity", "0.4",
		"--name-opacity", "secondary",
	}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var view jobView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode export output: %v\n%s", err, out)
	}
	if want := filepath.Join(env.baseDir, "clip_converted_teal_40percent.png"); view.Output != want {
		t.Fatalf("output = %q, want %q", view.Output, want)
	}

	out, _, err = runCLI(t, []string{"jobs", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs health: %v", err)
	}
	requireContains(t, out, "Progress linked to jobs: yes")
	requireContains(t, out, "Jobs: 1 (0 running)")
	requireContains(t, out, "[OK] healthy")
}

func TestExportRefusesExistingOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := writeClip(t, env.baseDir, 2)
	dest := filepath.Join(env.baseDir, "graded")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"export", clip, "-o", dest}, env.configPath)
	if err == nil {
		t.Fatal("expected export to refuse an existing destination")
	}
	requireContains(t, out, "State:    failed")

	out, _, err = runCLI(t, []string{"--json", "jobs", "list", "--state", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	var views []jobView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode jobs: %v\n%s", err, out)
	}
	if len(views) != 1 || views[0].Error == "" {
		t.Fatalf("expected one failed job with a reason, got %+v", views)
	}

	if _, _, err := runCLI(t, []string{"export", clip, "-o", dest, "--overwrite"}, env.configPath); err != nil {
		t.Fatalf("export --overwrite: %v", err)
	}
}

func TestPreviewWritesGradedStill(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := writeClip(t, env.baseDir, 4)
	target := filepath.Join(env.baseDir, "look.png")

	out, _, err := runCLI(t, []string{"preview", clip, "--at", "80ms", "-o", target, "--white-balance", "4"}, env.configPath)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	requireContains(t, out, "Wrote look.png (4x2)")
	requireContains(t, out, "white balance 6620K")

	still, err := imageseq.ReadStill(target)
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if still.Width != 4 || still.Height != 2 {
		t.Fatalf("preview size %dx%d", still.Width, still.Height)
	}

	out, _, err = runCLI(t, []string{"--json", "preview", target, "-o", filepath.Join(env.baseDir, "again.tiff")}, env.configPath)
	if err != nil {
		t.Fatalf("preview of a still: %v", err)
	}
	var view previewView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode preview: %v\n%s", err, out)
	}
	if view.Attempts != 1 || view.Width != 4 {
		t.Fatalf("unexpected preview: %+v", view)
	}
}

func TestCheckPassesOnFreshSetup(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK]")
	if strings.Contains(out, "[ERROR]") {
		t.Fatalf("unexpected failure:\n%s", out)
	}
}

func TestLogsShowsTailFilteredByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.LogPath(), []byte(
		"INFO export started job_id=aaaa1111\n"+
			"INFO export started job_id=bbbb2222\n"+
			"INFO export completed job_id=aaaa1111\n"))

	out, _, err := runCLI(t, []string{"logs", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "INFO export completed job_id=aaaa1111" {
		t.Fatalf("unexpected tail: %q", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--job", "bbbb"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --job: %v", err)
	}
	requireContains(t, out, "job_id=bbbb2222")
	if strings.Contains(out, "aaaa1111") {
		t.Fatalf("filter leaked other jobs: %q", out)
	}
}
