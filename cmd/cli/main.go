package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	apiKey     string
	language   string
	stdinData  string
	timeout    float64
	flags      []string
	kind       string
	categories []string
)

func main() {
	root := &cobra.Command{
		Use:           "cpplab",
		Short:         "Client for the cpplab code engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "engine server URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key, if the server requires one")

	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Compile and run a source file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().StringVarP(&language, "language", "l", "cpp17", "language standard (c99, c11, c17, cpp11, cpp14, cpp17, cpp20)")
	runCmd.Flags().StringVar(&stdinData, "stdin", "", "stdin fed to the program")
	runCmd.Flags().Float64VarP(&timeout, "timeout", "t", 0, "execution timeout in seconds")
	runCmd.Flags().StringArrayVarP(&flags, "flag", "f", nil, "extra compiler flag (repeatable)")

	compileCmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile only, printing diagnostics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCompile,
	}
	compileCmd.Flags().StringVarP(&language, "language", "l", "cpp17", "language standard")
	compileCmd.Flags().StringArrayVarP(&flags, "flag", "f", nil, "extra compiler flag (repeatable)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Run static analysis on a source file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVarP(&language, "language", "l", "cpp17", "language standard")
	analyzeCmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "analysis categories (default all)")

	visualizeCmd := &cobra.Command{
		Use:   "visualize [file]",
		Short: "Generate a memory or flow view for a source file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runVisualize,
	}
	visualizeCmd.Flags().StringVarP(&language, "language", "l", "cpp17", "language standard")
	visualizeCmd.Flags().StringVarP(&kind, "kind", "k", "memory", "view kind: memory, stack, heap, flow, structures, full")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE:  runHealth,
	}

	root.AddCommand(runCmd, compileCmd, analyzeCmd, visualizeCmd, healthCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func readSource(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	source, err := readSource(args)
	if err != nil {
		return err
	}
	var resp struct {
		Status     string   `json:"status"`
		Success    bool     `json:"success"`
		Stdout     string   `json:"stdout"`
		Stderr     string   `json:"stderr"`
		ExitCode   int      `json:"exit_code"`
		DurationMS int64    `json:"duration_ms"`
		Cached     bool     `json:"cached"`
		Warnings   []string `json:"warnings"`
		Advisories []struct {
			Pattern string `json:"pattern"`
			Detail  string `json:"detail"`
			Line    int    `json:"line"`
		} `json:"advisories"`
	}
	err = post("/api/execute", map[string]any{
		"source":          source,
		"language":        language,
		"stdin":           stdinData,
		"flags":           flags,
		"timeout_seconds": timeout,
	}, &resp)
	if err != nil {
		return err
	}

	for _, a := range resp.Advisories {
		fmt.Fprintf(os.Stderr, "advisory: %s at line %d: %s\n", a.Pattern, a.Line, a.Detail)
	}
	for _, w := range resp.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}
	fmt.Print(resp.Stdout)
	if resp.Stderr != "" {
		fmt.Fprint(os.Stderr, resp.Stderr)
	}
	fmt.Fprintf(os.Stderr, "[%s in %dms, exit %d", resp.Status, resp.DurationMS, resp.ExitCode)
	if resp.Cached {
		fmt.Fprint(os.Stderr, ", cached")
	}
	fmt.Fprintln(os.Stderr, "]")
	if !resp.Success {
		os.Exit(1)
	}
	return nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	source, err := readSource(args)
	if err != nil {
		return err
	}
	var resp struct {
		Status   string   `json:"status"`
		Warnings []string `json:"warnings"`
		Errors   []string `json:"errors"`
	}
	err = post("/api/compile", map[string]any{
		"source":   source,
		"language": language,
		"flags":    flags,
	}, &resp)
	if err != nil {
		return err
	}
	for _, w := range resp.Warnings {
		fmt.Println(w)
	}
	for _, e := range resp.Errors {
		fmt.Println(e)
	}
	fmt.Println(resp.Status)
	if resp.Status != "compiled" {
		os.Exit(1)
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source, err := readSource(args)
	if err != nil {
		return err
	}
	var resp json.RawMessage
	err = post("/api/analyze", map[string]any{
		"source":     source,
		"language":   language,
		"categories": categories,
	}, &resp)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runVisualize(cmd *cobra.Command, args []string) error {
	source, err := readSource(args)
	if err != nil {
		return err
	}
	var resp json.RawMessage
	err = post("/api/visualize", map[string]any{
		"source":   source,
		"language": language,
		"kind":     kind,
	}, &resp)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runHealth(cmd *cobra.Command, args []string) error {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/health", nil)
	if err != nil {
		return err
	}
	body, err := doRequest(req)
	if err != nil {
		return err
	}
	return printJSON(body)
}

func post(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := doRequest(req)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func doRequest(req *http.Request) ([]byte, error) {
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Code != "" {
			return nil, fmt.Errorf("%s: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return raw, nil
}

func printJSON(raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
