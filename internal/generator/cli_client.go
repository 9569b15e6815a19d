package generator

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

const providerCLI = "claude-cli"

// CLIClient runs a local claude binary in print mode. Used for development
// when no API key is configured.
type CLIClient struct {
	path string
	args []string
}

func NewCLIClient(path string) *CLIClient {
	return &CLIClient{
		path: path,
		args: []string{"--print", "--output-format", "text", "--max-turns", "1"},
	}
}

func (c *CLIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := append(append([]string{}, c.args...), "--system-prompt", systemPrompt)
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdin = strings.NewReader(userPrompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProviderError{Provider: providerCLI, StatusCode: cmd.ProcessState.ExitCode(), Body: truncate(stderr.String(), 512)}
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, &ProviderError{Provider: providerCLI, Body: "empty output"}
	}
	return &LLMResponse{Content: out}, nil
}
