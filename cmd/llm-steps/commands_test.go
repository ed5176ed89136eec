package llmsteps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/temirov/llm-steps/internal/config"
	"github.com/temirov/llm-steps/internal/correction"
	"github.com/temirov/llm-steps/internal/execution"
	"github.com/temirov/llm-steps/internal/fsops"
	"github.com/temirov/llm-steps/internal/pipeline"
)

const (
	testAPIKeyVariable = "LLM_STEPS_TEST_API_KEY"
	testAPIKey         = "test-key"
	chatCompletionPath = "/chat/completions"
)

const testConfigTemplate = `
common:
  api:
    endpoint: %s
    api_key_env: LLM_STEPS_TEST_API_KEY
  logging:
    level: error
    format: console
  defaults:
    attempts: 2
    timeout_seconds: 5

models:
  - name: bamboo
    provider: bamboo
    model_id: bamboo-test
    default: true
  - name: gpt
    provider: openai
    model_id: gpt-test

agent:
  name: Test Agent
  allowed_providers: [ bamboo ]
  disallowed_code: [ "os.system" ]

datasources:
  - name: sales
    kind: managed
    columns: [ month, amount ]
  - name: customers
    kind: managed
    columns: [ id, region ]
`

// scriptedLLMServer answers chat completions with responses in order.
type scriptedLLMServer struct {
	mu          sync.Mutex
	responses   []string
	userPrompts []string
	authHeaders []string
}

func (s *scriptedLLMServer) handler(t *testing.T) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, httpRequest *http.Request) {
		if httpRequest.URL.Path != chatCompletionPath {
			t.Errorf("unexpected request path: %s", httpRequest.URL.Path)
		}
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if decodeErr := json.NewDecoder(httpRequest.Body).Decode(&payload); decodeErr != nil {
			t.Errorf("decode request: %v", decodeErr)
		}

		s.mu.Lock()
		index := len(s.userPrompts)
		if len(payload.Messages) > 0 {
			s.userPrompts = append(s.userPrompts, payload.Messages[len(payload.Messages)-1].Content)
		}
		s.authHeaders = append(s.authHeaders, httpRequest.Header.Get("Authorization"))
		s.mu.Unlock()

		if index >= len(s.responses) {
			http.Error(responseWriter, "script exhausted", http.StatusInternalServerError)
			return
		}
		responseWriter.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(responseWriter).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": s.responses[index]}},
			},
		})
	}
}

func (s *scriptedLLMServer) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.userPrompts)
}

// scriptedRunner stands in for the interpreter process.
type scriptedRunner struct {
	mu       sync.Mutex
	failures map[string]string
	programs []string
}

func (r *scriptedRunner) Run(ctx context.Context, dir string, stdin string, name string, args ...string) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs = append(r.programs, stdin)
	if stderr, failing := r.failures[stdin]; failing {
		return "", stderr, errors.New("exit status 1")
	}
	return "ran " + stdin + "\n", "", nil
}

type commandHarness struct {
	server     *scriptedLLMServer
	runner     *scriptedRunner
	fileSystem fsops.Mem
	configPath string
}

func newCommandHarness(t *testing.T, responses []string, failures map[string]string) *commandHarness {
	t.Helper()
	harness := &commandHarness{
		server:     &scriptedLLMServer{responses: responses},
		runner:     &scriptedRunner{failures: failures},
		fileSystem: fsops.NewMem(),
	}
	httpServer := httptest.NewServer(harness.server.handler(t))
	t.Cleanup(httpServer.Close)

	harness.configPath = "/etc/llm-steps/config.yaml"
	if writeErr := fsops.NewOps(harness.fileSystem).WriteText(harness.configPath, fmt.Sprintf(testConfigTemplate, httpServer.URL)); writeErr != nil {
		t.Fatalf("write config: %v", writeErr)
	}
	return harness
}

func (h *commandHarness) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	deps := dependencies{
		getenv: func(name string) string {
			if name == testAPIKeyVariable {
				return testAPIKey
			}
			return ""
		},
		fileSystem: h.fileSystem,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		newExecutor: func(settings config.Execution, timeout time.Duration) correction.Executor {
			return execution.NewCommandExecutorWithRunner(execution.DefaultInterpreter, h.runner)
		},
	}
	rootCommand := newRootCommand(deps)
	rootCommand.SetArgs(append(args, "--"+configFlagName, h.configPath))
	var output bytes.Buffer
	rootCommand.SetOut(&output)
	rootCommand.SetErr(&output)
	executeErr := rootCommand.Execute()
	return output.String(), executeErr
}

func fenced(code string) string { return "Here you go:\n```python\n" + code + "\n```" }

func TestRunCommandAnswersQuery(t *testing.T) {
	harness := newCommandHarness(t, []string{fenced("print(42)")}, nil)

	output, err := harness.execute(t, "run", "what is the answer?")
	if err != nil {
		t.Fatalf("execute run: %v\noutput:\n%s", err, output)
	}
	if !strings.Contains(output, "print(42)") || !strings.Contains(output, "ran print(42)") {
		t.Fatalf("expected code and its output, got:\n%s", output)
	}
	if !strings.Contains(harness.server.userPrompts[0], "what is the answer?") || !strings.Contains(harness.server.userPrompts[0], "sales (managed)") {
		t.Fatalf("prompt missing query or data sources:\n%s", harness.server.userPrompts[0])
	}
	if harness.server.authHeaders[0] != "Bearer "+testAPIKey {
		t.Fatalf("expected api key from the configured variable, got %q", harness.server.authHeaders[0])
	}
}

func TestRunCommandCorrectsFailingCode(t *testing.T) {
	testCases := []struct {
		name         string
		args         []string
		wantRequests int
		wantErr      string
	}{
		{name: "configured attempts", args: nil, wantRequests: 2},
		{name: "corrections disabled", args: []string{"--" + attemptsFlagName, "0"}, wantRequests: 1, wantErr: "exhausted"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newCommandHarness(t,
				[]string{fenced("broken()"), fenced("fixed()")},
				map[string]string{"broken()": "NameError: name 'broken' is not defined"})

			output, err := harness.execute(t, append([]string{"run", "q"}, testCase.args...)...)
			if harness.server.requests() != testCase.wantRequests {
				t.Fatalf("expected %d LLM requests, got %d", testCase.wantRequests, harness.server.requests())
			}
			if testCase.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), testCase.wantErr) {
					t.Fatalf("expected error containing %q, got %v", testCase.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("execute run: %v", err)
			}
			if !strings.Contains(output, "ran fixed()") {
				t.Fatalf("expected corrected output, got:\n%s", output)
			}
			if !strings.Contains(harness.server.userPrompts[1], "NameError") {
				t.Fatalf("correction prompt should carry the error:\n%s", harness.server.userPrompts[1])
			}
		})
	}
}

func TestRunCommandRejectsUnsupportedModel(t *testing.T) {
	harness := newCommandHarness(t, []string{fenced("print(1)")}, nil)

	_, err := harness.execute(t, "run", "q", "--"+modelFlagName, "gpt")
	if !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if harness.server.requests() != 0 || len(harness.runner.programs) != 0 {
		t.Fatalf("nothing should run after a configuration error")
	}
}

func TestFixCommandWritesCorrectedCode(t *testing.T) {
	harness := newCommandHarness(t, []string{fenced("fixed()\n")}, nil)
	files := fsops.NewOps(harness.fileSystem)
	if err := files.WriteText("/work/broken.py", "broken()"); err != nil {
		t.Fatalf("seed code: %v", err)
	}
	if err := files.WriteText("/work/error.txt", "NameError: broken"); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	output, err := harness.execute(t, "fix",
		"--"+queryFlagName, "monthly totals",
		"--"+codeFileFlagName, "/work/broken.py",
		"--"+errorFileFlagName, "/work/error.txt",
		"--"+outputFlagName, "/out/fixed.py")
	if err != nil {
		t.Fatalf("execute fix: %v\noutput:\n%s", err, output)
	}
	written, readErr := harness.fileSystem.ReadFile("/out/fixed.py")
	if readErr != nil {
		t.Fatalf("read corrected code: %v", readErr)
	}
	if string(written) != "fixed()\n" {
		t.Fatalf("unexpected corrected code %q", written)
	}
	prompt := harness.server.userPrompts[0]
	for _, fragment := range []string{"monthly totals", "broken()", "NameError: broken"} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("correction prompt missing %q:\n%s", fragment, prompt)
		}
	}
	if len(harness.runner.programs) != 0 {
		t.Fatalf("fix must not execute code")
	}
}

func TestFixCommandRejectsDisallowedCode(t *testing.T) {
	harness := newCommandHarness(t, []string{fenced("import os\nos.system('rm -rf /')")}, nil)
	files := fsops.NewOps(harness.fileSystem)
	_ = files.WriteText("/work/broken.py", "broken()")
	_ = files.WriteText("/work/error.txt", "boom")

	_, err := harness.execute(t, "fix",
		"--"+queryFlagName, "q",
		"--"+codeFileFlagName, "/work/broken.py",
		"--"+errorFileFlagName, "/work/error.txt")
	if err == nil || !strings.Contains(err.Error(), "correction failed") {
		t.Fatalf("expected correction failure, got %v", err)
	}
}

func TestValidateCommandDirectSQL(t *testing.T) {
	testCases := []struct {
		name      string
		args      []string
		env       string
		expectErr bool
	}{
		{name: "direct sql off", expectErr: false},
		{name: "flag enables direct sql", args: []string{"--" + directSQLFlagName}, expectErr: true},
		{name: "flag value no", args: []string{"--" + directSQLFlagName + "=no"}, expectErr: false},
		{name: "environment enables direct sql", env: "yes", expectErr: true},
		{name: "flag wins over environment", args: []string{"--" + directSQLFlagName + "=off"}, env: "yes", expectErr: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv("LLM_STEPS_DIRECT_SQL", testCase.env)
			harness := newCommandHarness(t, nil, nil)

			output, err := harness.execute(t, append([]string{"validate"}, testCase.args...)...)
			if testCase.expectErr {
				if !errors.Is(err, pipeline.ErrInvalidConfig) || !strings.Contains(err.Error(), "same credentials") {
					t.Fatalf("expected direct SQL configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("execute validate: %v", err)
			}
			if !strings.Contains(output, "Input Validation Successful") || !strings.Contains(output, "customers (managed)") {
				t.Fatalf("unexpected validate output:\n%s", output)
			}
		})
	}
}

func TestListCommandPrintsPipelines(t *testing.T) {
	harness := newCommandHarness(t, nil, nil)

	output, err := harness.execute(t, "list")
	if err != nil {
		t.Fatalf("execute list: %v", err)
	}
	expected := "error_correction\terror_prompt_generation -> llm_call -> code_generator -> code_cleaning\n" +
		"generate_code\tvalidate_pipeline_input -> prompt_generation -> llm_call -> code_generator -> code_cleaning\n"
	if output != expected {
		t.Fatalf("unexpected listing:\n%s", output)
	}
}

func TestResolveEffectiveAttempts(t *testing.T) {
	root := config.Root{}
	root.Common.Defaults.Attempts = 3

	testCases := []struct {
		name     string
		flag     string
		defaults int
		expected int
	}{
		{name: "config default", defaults: 3, expected: 3},
		{name: "flag zero disables", flag: "0", defaults: 3, expected: 0},
		{name: "flag wins", flag: "2", defaults: 3, expected: 2},
		{name: "negative clamps", flag: "-4", defaults: 3, expected: 0},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			root.Common.Defaults.Attempts = testCase.defaults
			options := runCommandOptions{}
			command := &cobra.Command{Use: "test"}
			command.Flags().IntVar(&options.attempts, attemptsFlagName, 0, "")
			if testCase.flag != "" {
				if err := command.Flags().Set(attemptsFlagName, testCase.flag); err != nil {
					t.Fatalf("set attempts flag: %v", err)
				}
			}
			if got := resolveEffectiveAttempts(command, options, root); got != testCase.expected {
				t.Fatalf("expected %d attempts, got %d", testCase.expected, got)
			}
		})
	}
}

func TestParseBoolChoice(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
		ok       bool
	}{
		{input: "", expected: true, ok: true},
		{input: "yes", expected: true, ok: true},
		{input: " ON ", expected: true, ok: true},
		{input: "0", expected: false, ok: true},
		{input: "off", expected: false, ok: true},
		{input: "maybe", expected: false, ok: false},
	}
	for _, testCase := range testCases {
		value, ok := parseBoolChoice(testCase.input)
		if value != testCase.expected || ok != testCase.ok {
			t.Fatalf("parseBoolChoice(%q) = %v, %v; want %v, %v", testCase.input, value, ok, testCase.expected, testCase.ok)
		}
	}
}
