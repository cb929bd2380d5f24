package mcpbridge

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"

	"github.com/relaykit/chainforge/pkg/registry"
)

// TestRegisterRemoteToolsIntegration spawns the mock MCP server fixture over
// stdio and exercises the full round trip: initialize, tools/list discovery,
// and tools/call through a registered entry.
func TestRegisterRemoteToolsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	mockBin := buildMockMCPServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cli, err := client.NewStdioMCPClient(mockBin, nil)
	if err != nil {
		t.Fatalf("NewStdioMCPClient: %v", err)
	}
	defer cli.Close()

	reg := registry.New()
	names, err := RegisterRemoteTools(ctx, cli, reg)
	if err != nil {
		t.Fatalf("RegisterRemoteTools: %v", err)
	}

	want := map[string]bool{"echo": false, "query": false, "failing": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected discovered tool %q, got names=%v", name, names)
		}
	}

	out, err := reg.Invoke(ctx, "echo", map[string]any{"message": "hello-from-mcp"})
	if err != nil {
		t.Fatalf("invoke echo: %v", err)
	}
	if out != "hello-from-mcp" {
		t.Errorf("echo = %q, want %q", out, "hello-from-mcp")
	}

	if _, err := reg.Invoke(ctx, "failing", nil); err == nil {
		t.Error("expected invoking 'failing' to return an error")
	}
}

func buildMockMCPServer(t *testing.T) string {
	t.Helper()
	mockSrc := filepath.Join("..", "..", "testdata", "tools", "mock-mcp-server.go")
	if _, err := os.Stat(mockSrc); err != nil {
		t.Fatalf("mock MCP server source not found: %v", err)
	}

	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}
	mockBin := filepath.Join(t.TempDir(), "mock-mcp-server"+ext)

	buildCmd := exec.Command("go", "build", "-o", mockBin, mockSrc)
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("build mock MCP server: %v", err)
	}
	return mockBin
}
