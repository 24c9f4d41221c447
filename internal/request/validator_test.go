package request

import (
	"errors"
	"strings"
	"testing"
	"time"

	"cpplab-engine/internal/config"
)

func testLimits() config.RequestLimits {
	return config.RequestLimits{
		MaxSourceChars: 50000,
		MaxStdinChars:  10000,
		MinTimeout:     1 * time.Second,
		MaxTimeout:     30 * time.Second,
		DefaultTimeout: 10 * time.Second,
	}
}

const helloSource = `#include <stdio.h>
int main(void) { printf("hi\n"); return 0; }`

func TestValidateExecution(t *testing.T) {
	v := NewValidator(testLimits(), nil)

	req, err := v.ValidateExecution(helloSource, "c11", "", nil, 0, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Language != LangC11 {
		t.Errorf("language = %q, want c11", req.Language)
	}
	if req.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want default 10s", req.Timeout)
	}
}

func TestValidateExecution_Errors(t *testing.T) {
	v := NewValidator(testLimits(), nil)

	tests := []struct {
		name     string
		source   string
		language string
		stdin    string
		flags    []string
		wantErr  error
	}{
		{"empty source", "   ", "c11", "", nil, ErrValidation},
		{"oversized source", strings.Repeat("x", 50001), "c11", "", nil, ErrValidation},
		{"oversized stdin", helloSource, "c11", strings.Repeat("y", 10001), nil, ErrValidation},
		{"unknown language", helloSource, "fortran", "", nil, ErrUnsupportedLanguage},
		{"std flag rejected", helloSource, "cpp17", "", []string{"-std=c++03"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateExecution(tt.source, tt.language, tt.stdin, tt.flags, 0, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFilterFlags(t *testing.T) {
	v := NewValidator(testLimits(), nil)

	req, err := v.ValidateExecution(helloSource, "cpp17", "",
		[]string{"-O2", "-Wall", "-DNDEBUG", "-Iinclude", "-fplugin=evil.so", "--coverage"},
		5*time.Second, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"-O2", "-Wall", "-DNDEBUG", "-Iinclude"}
	if len(req.Flags) != len(want) {
		t.Fatalf("flags = %v, want %v", req.Flags, want)
	}
	for i := range want {
		if req.Flags[i] != want[i] {
			t.Errorf("flags[%d] = %q, want %q", i, req.Flags[i], want[i])
		}
	}
}

func TestClampTimeout(t *testing.T) {
	v := NewValidator(testLimits(), nil)

	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, 10 * time.Second},
		{500 * time.Millisecond, 1 * time.Second},
		{5 * time.Second, 5 * time.Second},
		{2 * time.Minute, 30 * time.Second},
	}
	for _, tt := range tests {
		req, err := v.ValidateExecution(helloSource, "c99", "", nil, tt.in, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Timeout != tt.want {
			t.Errorf("clamp(%v) = %v, want %v", tt.in, req.Timeout, tt.want)
		}
	}
}

func TestAdvisoriesAttached(t *testing.T) {
	v := NewValidator(testLimits(), nil)

	src := `#include <stdlib.h>
int main(void) { system("ls"); return 0; }`
	req, err := v.ValidateExecution(src, "c11", "", nil, 0, "")
	if err != nil {
		t.Fatalf("advisory pattern must not block: %v", err)
	}
	if len(req.Advisories) == 0 {
		t.Fatal("expected at least one advisory detection")
	}
	if req.Advisories[0].Pattern != "process_spawn" {
		t.Errorf("pattern = %q, want process_spawn", req.Advisories[0].Pattern)
	}
}

func TestValidateVisualization(t *testing.T) {
	v := NewValidator(testLimits(), nil)

	req, err := v.ValidateVisualization(helloSource, "cpp14", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Kind != "memory" {
		t.Errorf("kind = %q, want memory default", req.Kind)
	}
	if _, err := v.ValidateVisualization(helloSource, "cpp14", "hologram"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown kind error = %v, want ErrValidation", err)
	}
}

func TestVisualizationKindAliases(t *testing.T) {
	v := NewValidator(testLimits(), nil)

	cases := []struct {
		in   string
		want string
	}{
		{"full", "full"},
		{"execution-flow", "flow"},
		{"data-structures", "structures"},
		{"stack", "stack"},
		{"heap", "heap"},
	}
	for _, tc := range cases {
		req, err := v.ValidateVisualization(helloSource, "cpp17", tc.in)
		if err != nil {
			t.Fatalf("kind %q rejected: %v", tc.in, err)
		}
		if req.Kind != tc.want {
			t.Errorf("kind %q normalized to %q, want %q", tc.in, req.Kind, tc.want)
		}
	}
}

func TestLanguageHelpers(t *testing.T) {
	if !LangC99.IsC() || LangCPP20.IsC() {
		t.Error("IsC misclassified a language")
	}
	if got := LangCPP17.StdFlag(); got != "-std=c++17" {
		t.Errorf("StdFlag = %q", got)
	}
	if got := LangC17.SourceFileName(); got != "main.c" {
		t.Errorf("SourceFileName = %q", got)
	}
}
