package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"formats", "download", "sweep"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	cmd, _, err := root.Find([]string{"dl"})
	if err != nil || cmd.Name() != "download" {
		t.Error("dl should alias download")
	}
}

func TestDownloadCmd_RequiresItag(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"download", "https://youtu.be/VD4acolLcyY"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "itag") {
		t.Errorf("Execute() error = %v, want missing itag flag", err)
	}
}

func TestFormatsCmd_RequiresURL(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"formats"})

	if err := root.Execute(); err == nil {
		t.Error("expected an error without a URL")
	}
}

func TestSweepCmd(t *testing.T) {
	tempPath := filepath.Join(t.TempDir(), "work")
	t.Setenv("STORAGE_TEMP_PATH", tempPath)

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"sweep", "--max-age", "1h"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "removed 0 orphaned file(s)") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(tempPath); err != nil {
		t.Errorf("temp dir should be created: %v", err)
	}
}

func TestSweepCmd_MaxAgeWithinJobTimeout(t *testing.T) {
	tempPath := filepath.Join(t.TempDir(), "work")
	t.Setenv("STORAGE_TEMP_PATH", tempPath)
	t.Setenv("DOWNLOAD_JOB_TIMEOUT", "30m")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"sweep", "--max-age", "10m"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "must exceed the job timeout") {
		t.Fatalf("Execute() error = %v, want max-age rejection", err)
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Error("nothing should be touched when max-age is rejected")
	}
}

func TestWriteDeliverable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.mp4")

	if err := writeDeliverable(path, strings.NewReader("muxed")); err != nil {
		t.Fatalf("writeDeliverable() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "muxed" {
		t.Errorf("content = %q, want muxed", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}
