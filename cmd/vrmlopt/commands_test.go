package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/vrmlopt/internal/config"
	"github.com/Faultbox/vrmlopt/internal/optimize"
	"github.com/Faultbox/vrmlopt/internal/worker"
)

const sample = `#VRML V2.0 utf8
Shape {
  geometry IndexedFaceSet {
    coord Coordinate { point [ 0 0 0, 1 0 0, 1 1 0, 0 1 0, 1 1 0.001 ] }
    coordIndex [ 0 1 2 -1 0 4 3 -1 ]
  }
}
`

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "scan.opt.wrl"), outputPath(filepath.Join("a", "scan.wrl"), "", outputSuffix))
	assert.Equal(t, filepath.Join("out", "scan.glb"), outputPath(filepath.Join("a", "scan.wrl"), "out", ".glb"))
}

func TestIsSource(t *testing.T) {
	assert.True(t, isSource("scan.wrl"))
	assert.True(t, isSource("SCAN.VRML"))
	assert.False(t, isSource("scan.opt.wrl"))
	assert.False(t, isSource("scan.glb"))
}

func TestOptimizeFile(t *testing.T) {
	cfg := config.Default()
	cfg.Simplify.MergeCutoff = 0.01
	p, params, err := newPipeline(cfg)
	require.NoError(t, err)

	res, err := optimizeFile(context.Background(), cfg, p, params, writeSample(t, t.TempDir(), "scan.wrl"))
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Len(t, res.Chunks[0].Vertices, 4)
}

func TestCmdSimplifyAndExport(t *testing.T) {
	cfg := config.Default()
	cfg.Simplify.MergeCutoff = 0.01
	dir := t.TempDir()
	in := writeSample(t, dir, "scan.wrl")

	out := filepath.Join(dir, "small.wrl")
	require.NoError(t, cmdSimplify(cfg, []string{"-o", out, in}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Shape {")

	require.NoError(t, cmdExport(cfg, []string{in}))
	doc, err := gltf.Open(filepath.Join(dir, "scan.glb"))
	require.NoError(t, err)
	assert.Len(t, doc.Meshes, 1)
}

func TestCmdBatch(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	a := writeSample(t, dir, "a.wrl")
	b := writeSample(t, dir, "b.wrl")

	require.NoError(t, cmdBatch(cfg, []string{"-j", "2", "-d", outDir, a, b}))
	for _, name := range []string{"a.opt.wrl", "b.opt.wrl"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	err := cmdBatch(cfg, []string{filepath.Join(dir, "missing.wrl")})
	assert.Error(t, err)
}

func TestCmdInfo(t *testing.T) {
	cfg := config.Default()
	assert.NoError(t, cmdInfo(cfg, []string{writeSample(t, t.TempDir(), "scan.wrl")}))
	assert.Error(t, cmdInfo(cfg, nil))
}

func TestCmdInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vrmlopt.yaml")
	require.NoError(t, cmdInitConfig(config.Default(), []string{path}))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestProcessWatched(t *testing.T) {
	cfg := config.Default()
	params, err := optimize.ParamsFromConfig(cfg.Simplify)
	require.NoError(t, err)

	w := worker.NewWorker(worker.NewHandler(params, nil), 1)
	defer w.Close()

	dir := t.TempDir()
	in := writeSample(t, dir, "scan.wrl")
	processWatched(context.Background(), cfg, w, params, in, "")

	data, err := os.ReadFile(filepath.Join(dir, "scan.opt.wrl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "coordIndex [")
}

func startWorker(t *testing.T, cfg *config.Config) string {
	t.Helper()
	params, err := optimize.ParamsFromConfig(cfg.Simplify)
	require.NoError(t, err)
	srv := worker.NewServer(worker.NewHandler(params, nil), cfg.Server, nil)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestCmdSimplifyRemote(t *testing.T) {
	cfg := config.Default()
	cfg.Simplify.MergeCutoff = 0.01
	url := startWorker(t, cfg)

	dir := t.TempDir()
	in := writeSample(t, dir, "scan.wrl")
	out := filepath.Join(dir, "remote.wrl")
	require.NoError(t, cmdSimplify(cfg, []string{"-remote", url, "-o", out, in}))

	remote, err := os.ReadFile(out)
	require.NoError(t, err)
	local := filepath.Join(dir, "local.wrl")
	require.NoError(t, cmdSimplify(cfg, []string{"-o", local, in}))
	want, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(remote))
}

func TestCmdBatchRemote(t *testing.T) {
	cfg := config.Default()
	url := startWorker(t, cfg)

	dir := t.TempDir()
	a := writeSample(t, dir, "a.wrl")
	b := writeSample(t, dir, "b.wrl")
	require.NoError(t, cmdBatch(cfg, []string{"-remote", url, a, b}))
	for _, name := range []string{"a.opt.wrl", "b.opt.wrl"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	err := cmdSimplify(cfg, []string{"-remote", "ws://127.0.0.1:1/ws", a})
	assert.Error(t, err)
}

func TestBatchOutputs(t *testing.T) {
	dir := t.TempDir()
	x := filepath.Join(dir, "x")
	y := filepath.Join(dir, "y")
	require.NoError(t, os.MkdirAll(x, 0o755))
	require.NoError(t, os.MkdirAll(y, 0o755))
	a := writeSample(t, x, "scan.wrl")
	b := writeSample(t, y, "scan.wrl")

	// Next to their inputs the names do not collide.
	outs, err := batchOutputs([]string{a, b}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(x, "scan.opt.wrl"), filepath.Join(y, "scan.opt.wrl")}, outs)

	// In one output directory they do, and nothing is written.
	outDir := filepath.Join(dir, "out")
	err = cmdBatch(config.Default(), []string{"-d", outDir, a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "would both write")
	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))
}
