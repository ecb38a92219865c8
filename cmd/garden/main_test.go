package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/script-garden/internal/audio"
)

// isolate points configuration and workspaces at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GARDEN_CONFIG", filepath.Join(dir, "config"))
	t.Setenv("GARDEN_WORKSPACES", filepath.Join(dir, "workspaces"))
	return dir
}

func TestRun(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	for _, args := range [][]string{nil, {"help"}, {"--help"}, {"-h"}, {"version"}, {"help", "render"}} {
		var stdout, stderr bytes.Buffer
		if err := run(ctx, args, &stdout, &stderr); err != nil {
			t.Errorf("run(%v) returned error: %v (stderr: %s)", args, err, stderr.String())
		}
		if stdout.Len() == 0 {
			t.Errorf("run(%v) printed nothing", args)
		}
	}

	var stdout, stderr bytes.Buffer
	if err := run(ctx, []string{"nope"}, &stdout, &stderr); err == nil {
		t.Error("expected error for unknown command")
	}
	if !strings.Contains(stderr.String(), "Unknown command: nope") {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}

	stderr.Reset()
	if err := run(ctx, []string{"render", "--no-such-flag"}, &stdout, &stderr); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestRunRenderEndToEnd(t *testing.T) {
	dir := isolate(t)
	ctx := context.Background()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	data := [][]float32{make([]float32, 512)}
	for i := range data[0] {
		data[0][i] = 0.5
	}
	if err := audio.WriteWAV(in, 8000, 16, data); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run(ctx, []string{"init", "amp"}, &stdout, &stderr); err != nil {
		t.Fatalf("init failed: %v (%s)", err, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "workspaces", "amp", "run.js")); err != nil {
		t.Fatalf("workspace not created: %v", err)
	}

	stdout.Reset()
	args := []string{"render", "--workspace", "amp", "--in", in, "--out", out, "--block-size", "64", "--automate", "gain=0"}
	if err := run(ctx, args, &stdout, &stderr); err != nil {
		t.Fatalf("render failed: %v (%s)", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Gain") {
		t.Errorf("summary does not name the module: %s", stdout.String())
	}

	clip, err := audio.ReadWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	if clip.Frames() != 512 {
		t.Fatalf("expected 512 frames, got %d", clip.Frames())
	}
	if v := clip.Data[0][0]; v < 0.49 || v > 0.51 {
		t.Errorf("first block should pass through, got %v", v)
	}
	if v := clip.Data[0][511]; v != 0 {
		t.Errorf("automated gain should silence the tail, got %v", v)
	}
}
