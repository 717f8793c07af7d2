package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/config"
)

func TestDefault_LoadsBundledDefinition(t *testing.T) {
	def, err := config.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if def.Name != config.DefaultName || def.Evaluator != config.EvaluatorExpr {
		t.Fatalf("unexpected definition %q evaluator %q", def.Name, def.Evaluator)
	}
	if len(def.Steps) != 7 {
		t.Fatalf("steps = %d, want 7", len(def.Steps))
	}
	if idx, ok := def.StepIndex(config.ControllerDocuments); !ok || idx != 5 {
		t.Fatalf("documents step = %d, %v", idx, ok)
	}

	doc, err := def.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	for _, id := range []string{"step-6-form", "addlegalrep-form", "uploaddoc-form", "legalrepinfo-fieldset", "s1q6-op2"} {
		if _, ok := doc.ByID(id); !ok {
			t.Fatalf("document missing %s", id)
		}
	}

	steps := def.WizardSteps()
	if !steps[1].HasExit || steps[5].Collection != "uploadedDocuments" || steps[3].Root != "step-3-form" {
		t.Fatalf("unexpected wizard steps %+v", steps)
	}
}

func TestDefinition_DocumentsAreIndependent(t *testing.T) {
	def, err := config.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	first, _ := def.Document()
	second, _ := def.Document()
	radio, _ := first.ByID("s1q1-op1")
	radio.Checked = true

	other, _ := second.ByID("s1q1-op1")
	if other.Checked {
		t.Fatalf("documents share control state")
	}
}

const minimalJSON = `{
  "name": "mini",
  "title": "Mini",
  "steps": [
    {"title": "One", "form": {"id": "one", "kind": "step", "children": [
      {"id": "a", "kind": "checkbox", "name": "a", "value": "on"}
    ]}}
  ],
  "outConditions": [{"name": "a", "ids": ["a"]}]
}`

const minimalYAML = `
name: mini
title: Mini
evaluator: cel
steps:
  - title: One
    form:
      id: one
      kind: step
outConditions:
  - name: level
    rule: extras.userLevel == 3
`

func TestParse_JSONAndYAML(t *testing.T) {
	def, err := config.Parse([]byte(minimalJSON), "mini.json")
	if err != nil {
		t.Fatalf("Parse JSON: %v", err)
	}
	if def.Evaluator != config.EvaluatorExpr || def.Source != "mini.json" {
		t.Fatalf("unexpected defaults %q %q", def.Evaluator, def.Source)
	}
	if diff := cmp.Diff([]string{"a"}, def.OutConditions[0].IDs); diff != "" {
		t.Fatalf("out condition mismatch (-want +got):\n%s", diff)
	}

	def, err = config.Parse([]byte(minimalYAML), "mini.yaml")
	if err != nil {
		t.Fatalf("Parse YAML: %v", err)
	}
	if def.Evaluator != config.EvaluatorCEL || def.OutConditions[0].Rule != "extras.userLevel == 3" {
		t.Fatalf("unexpected YAML definition %+v", def)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"no name":        `{"steps": [{"title": "x", "form": {"id": "x", "kind": "step"}}]}`,
		"no steps":       `{"name": "x"}`,
		"bad evaluator":  `{"name": "x", "evaluator": "lua", "steps": [{"title": "x", "form": {"id": "x", "kind": "step"}}]}`,
		"bad controller": `{"name": "x", "steps": [{"title": "x", "controller": "nope", "form": {"id": "x", "kind": "step"}}]}`,
		"missing form":   `{"name": "x", "steps": [{"title": "x", "controller": "documents", "form": {"id": "x", "kind": "step"}}]}`,
		"empty out":      `{"name": "x", "steps": [{"title": "x", "form": {"id": "x", "kind": "step"}}], "outConditions": [{"name": "y"}]}`,
		"review range":   `{"name": "x", "steps": [{"title": "x", "form": {"id": "x", "kind": "step"}}], "review": [{"step": 4, "key": "k"}]}`,
		"duplicate id":   `{"name": "x", "steps": [{"title": "x", "form": {"id": "x", "kind": "step"}}, {"title": "y", "form": {"id": "x", "kind": "step"}}]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(input), "bad.json")
			if !errors.Is(err, config.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), "bad.json") {
				t.Fatalf("error does not name the file: %v", err)
			}
		})
	}
}

func TestLoadFS_Catalog(t *testing.T) {
	fsys := fstest.MapFS{
		"mini.json":    {Data: []byte(minimalJSON)},
		"README.md":    {Data: []byte("ignored")},
		"nested/b.yml": {Data: []byte(strings.Replace(minimalYAML, "name: mini", "name: other", 1))},
	}
	catalog, err := config.LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if diff := cmp.Diff([]string{"mini", "other"}, catalog.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	fsys["dup.yaml"] = &fstest.MapFile{Data: []byte(minimalYAML)}
	if _, err := config.LoadFS(fsys); err == nil {
		t.Fatalf("expected duplicate definition error")
	}
}

func TestLoad_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mini.json")
	if err := os.WriteFile(path, []byte(minimalJSON), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	def, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if def.Source != path {
		t.Fatalf("source = %q", def.Source)
	}
}

func TestRuntime_EnvAndValidation(t *testing.T) {
	rt := config.DefaultRuntime()
	env := map[string]string{
		"FORMWIZARD_STORE":     "redis",
		"FORMWIZARD_REDIS_URL": "redis://localhost:6379/0",
		"FORMWIZARD_LOG_LEVEL": "debug",
	}
	rt.ApplyEnv(func(name string) string { return env[name] })
	if err := rt.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rt.Store != config.StoreRedis || rt.SQLitePath != "formwizard.db" {
		t.Fatalf("unexpected runtime %+v", rt)
	}

	rt.RedisURL = ""
	if err := rt.Validate(); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("redis without URL: %v", err)
	}
	rt = config.DefaultRuntime()
	rt.LogLevel = "loud"
	if err := rt.Validate(); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("bad level: %v", err)
	}
}

func TestLoadRuntime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	data := "store: sqlite\nsqlitePath: /tmp/x.db\nreviewFormat: html\ntheme: default\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rt, err := config.LoadRuntime(path)
	if err != nil {
		t.Fatalf("LoadRuntime: %v", err)
	}
	want := config.DefaultRuntime()
	want.Store = config.StoreSQLite
	want.SQLitePath = "/tmp/x.db"
	want.ReviewFormat = "html"
	want.Theme = "default"
	if diff := cmp.Diff(want, rt); diff != "" {
		t.Fatalf("runtime mismatch (-want +got):\n%s", diff)
	}
}
