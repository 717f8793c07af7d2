package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
)

// scriptDriver answers select prompts by option label.
type scriptDriver struct {
	choices []string
	pos     int
	info    []string
}

func (s *scriptDriver) next(prompt string) (string, error) {
	if s.pos >= len(s.choices) {
		return "", fmt.Errorf("nothing scripted for %q", prompt)
	}
	v := s.choices[s.pos]
	s.pos++
	return v, nil
}

func (s *scriptDriver) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	return s.next(cfg.Message)
}

func (s *scriptDriver) Confirm(_ context.Context, cfg tui.ConfirmConfig) (bool, error) {
	v, err := s.next(cfg.Message)
	return v == "yes", err
}

func (s *scriptDriver) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	v, err := s.next(cfg.Message)
	if err != nil {
		return -1, err
	}
	for i, option := range cfg.Options {
		if option == v {
			return i, nil
		}
	}
	return -1, fmt.Errorf("option %q not offered in %v", v, cfg.Options)
}

func (s *scriptDriver) TextArea(_ context.Context, cfg tui.TextAreaConfig) (string, error) {
	return s.next(cfg.Message)
}

func (s *scriptDriver) Info(_ context.Context, msg string) error {
	s.info = append(s.info, msg)
	return nil
}

func newApp(driver tui.PromptDriver) (*app, *bytes.Buffer) {
	var stdout bytes.Buffer
	return &app{
		stdout: &stdout,
		stderr: &bytes.Buffer{},
		getenv: func(string) string { return "" },
		driver: driver,
	}, &stdout
}

func TestRun_IneligibleExit(t *testing.T) {
	driver := &scriptDriver{choices: []string{tui.LabelNext, tui.LabelAnswer, "No", tui.LabelExit}}
	a, stdout := newApp(driver)

	if err := a.run(context.Background(), []string{"-task", "testdata/task.yaml"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "Nothing was submitted") {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
}

func TestRun_SaveAndResumeWithSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "wizard.db")
	args := []string{"-store", "sqlite", "-sqlite-path", dbPath, "-session", "s-1", "-task", "testdata/task.yaml"}

	first := &scriptDriver{choices: []string{tui.LabelNext, tui.LabelSave}}
	a, stdout := newApp(first)
	if err := a.run(context.Background(), args); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !strings.Contains(stdout.String(), "-session s-1") {
		t.Fatalf("resume hint missing: %q", stdout.String())
	}

	second := &scriptDriver{choices: []string{tui.LabelSave}}
	a, _ = newApp(second)
	if err := a.run(context.Background(), args); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.info) == 0 || !strings.Contains(second.info[0], "Pre-screening") {
		t.Fatalf("did not resume on pre-screening: %v", second.info)
	}
}

func TestRun_SubmitWritesHTMLReview(t *testing.T) {
	out := filepath.Join(t.TempDir(), "review.html")
	choices := []string{tui.LabelNext, tui.LabelAnswer}
	for i := 0; i < 6; i++ {
		choices = append(choices, "Yes")
	}
	choices = append(choices,
		tui.LabelNext, // pre-screening
		tui.LabelNext, // deceased
		tui.LabelNext, // representatives
		tui.LabelNext, // tax return
		tui.LabelNext, // documents
		tui.LabelSubmit,
	)
	a, stdout := newApp(&scriptDriver{choices: choices})

	err := a.run(context.Background(), []string{"-task", "testdata/task.yaml", "-review-format", "html", "-output", out})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "Review written to") {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read review: %v", err)
	}
	for _, want := range []string{`class="fw-panel"`, "John Doe", "Pre-screening"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("review missing %q", want)
		}
	}
	if strings.Contains(string(data), "<button") {
		t.Error("static review should not contain buttons")
	}
}

func TestRun_RejectsUnknownReviewFormat(t *testing.T) {
	a, _ := newApp(&scriptDriver{})
	err := a.run(context.Background(), []string{"-review-format", "pdf"})
	if err == nil || !strings.Contains(err.Error(), "pdf") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}

func TestFlags_RuntimePrecedence(t *testing.T) {
	f, err := parseFlags([]string{"-store", "sqlite", "-log-level", "debug"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	env := map[string]string{"FORMWIZARD_STORE": "redis", "FORMWIZARD_SQLITE_PATH": "env.db"}
	rt, err := f.runtime(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if rt.Store != "sqlite" || rt.SQLitePath != "env.db" || rt.LogLevel != "debug" {
		t.Fatalf("unexpected runtime %+v", rt)
	}
}
