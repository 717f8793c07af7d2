package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/intake"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	selectMsgs   []string
	inputPos     int
	selectPos    int
	confirmPos   int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted for " + cfg.Message)
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	if cfg.Validator != nil {
		if err := cfg.Validator(val); err != nil {
			return "", err
		}
	}
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted for " + cfg.Message)
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted for " + cfg.Message)
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	s.selectMsgs = append(s.selectMsgs, cfg.Message+": "+strings.Join(cfg.Options, "|"))
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted for " + cfg.Message)
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func startedWizard(t *testing.T, level int) *intake.Wizard {
	t.Helper()
	def, err := config.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	w, err := intake.New(def)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(w.Close)
	task := intake.Task{
		DeceasedInfo: &intake.DeceasedInfo{Name: "John Doe", SIN: "123 456 789", DateOfDeath: "2024-01-02"},
		UserLevel:    level,
	}
	if err := w.Start(context.Background(), task); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return w
}

func TestRunner_RequiresWizard(t *testing.T) {
	if _, err := NewRunner(nil); err == nil {
		t.Fatal("expected error for nil wizard")
	}
}

func TestRunner_IneligibleAnswerLeadsToExit(t *testing.T) {
	ctx := context.Background()
	w := startedWizard(t, 2)
	driver := &stubDriver{
		// next, answer the questions, "No", exit
		selectIdx: []int{0, 0, 1, 1},
	}
	runner, err := NewRunner(w, WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	outcome, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeExited {
		t.Fatalf("outcome = %q", outcome)
	}
	if got := driver.selectMsgs[len(driver.selectMsgs)-1]; !strings.Contains(got, LabelExit) || strings.Contains(got, LabelNext) {
		t.Fatalf("ineligible menu = %q", got)
	}
	last := driver.infoMessages[len(driver.infoMessages)-1]
	if !strings.Contains(last, intake.IneligibleNotice) {
		t.Fatalf("ineligible notice not shown:\n%s", last)
	}
	if w.Store().Has(ctx, "currentStep") {
		t.Fatal("exit should clear the session")
	}
}

func TestRunner_AddLegalRepresentative(t *testing.T) {
	ctx := context.Background()
	w := startedWizard(t, 2)
	if !w.Jump(ctx, 3) {
		t.Fatal("jump to representatives failed")
	}
	driver := &stubDriver{
		// add, "Outside of Canada", "Administrator", save and quit
		selectIdx: []int{0, 1, 1, 5},
		inputs:    []string{"Jane Doe", "555-0100", ""},
		textAreas: []string{"1 Main St\nLondon\n"},
		confirm:   []bool{true},
	}
	runner, err := NewRunner(w, WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	outcome, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeSaved {
		t.Fatalf("outcome = %q", outcome)
	}
	if !strings.Contains(driver.infoMessages[0], intake.NoLegalRepNotice) {
		t.Fatalf("first view missing notice:\n%s", driver.infoMessages[0])
	}

	rep, ok, err := w.Representatives().LegalRep(ctx)
	if err != nil || !ok {
		t.Fatalf("LegalRep: ok=%v err=%v", ok, err)
	}
	if rep.Name != "Jane Doe" || rep.Address != "1 Main St\nLondon" || rep.Phone != "555-0100" || rep.Role != "Administrator" {
		t.Fatalf("unexpected representative %+v", rep)
	}
	menu := driver.selectMsgs[len(driver.selectMsgs)-1]
	for _, want := range []string{"Edit Legal representative", "Delete Legal representative", "Add additional mail recipient"} {
		if !strings.Contains(menu, want) {
			t.Errorf("menu missing %q: %s", want, menu)
		}
	}
}

func TestRunner_DeclinedEntryIsDiscarded(t *testing.T) {
	ctx := context.Background()
	w := startedWizard(t, 2)
	if !w.Jump(ctx, 3) {
		t.Fatal("jump to representatives failed")
	}
	driver := &stubDriver{
		// add, "Canada", province "ON", role "Executor", save and quit
		selectIdx: []int{0, 0, 8, 0, 3},
		inputs:    []string{"Jane Doe", "1 Main St", "Ottawa", "K1A 0B1", "555-0100", ""},
		confirm:   []bool{false},
	}
	runner, err := NewRunner(w, WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok, _ := w.Representatives().LegalRep(ctx); ok {
		t.Fatal("declined entry was saved")
	}
	if root, _ := w.Document().ByID("s3-repname"); root.Value != "" {
		t.Fatalf("form not cleared after cancel: %q", root.Value)
	}
}

func TestRunner_NumberValidation(t *testing.T) {
	if err := validateNumber("2023"); err != nil {
		t.Fatalf("validateNumber(2023): %v", err)
	}
	if err := validateNumber(""); err != nil {
		t.Fatalf("blank should be accepted: %v", err)
	}
	if err := validateNumber("twenty"); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}
