// Package main provides the chainforge-mcp binary: an MCP server exposing
// the built-in demo tools (plus, with --tools, a directory of tool/v1
// documents) to MCP clients over stdio.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/relaykit/chainforge/internal/examples"
	"github.com/relaykit/chainforge/pkg/mcpbridge"
	"github.com/relaykit/chainforge/pkg/registry"
	"github.com/relaykit/chainforge/pkg/toolspec"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "chainforge-mcp",
	Short: "Serve registered tools over MCP",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New()
		examples.Register(reg)

		var closers []io.Closer
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()

		if toolsDir != "" {
			matches, err := filepath.Glob(filepath.Join(toolsDir, "*.tool.yaml"))
			if err != nil {
				return fmt.Errorf("glob tools dir: %w", err)
			}
			for _, path := range matches {
				spec, err := toolspec.LoadFile(path)
				if err != nil {
					return fmt.Errorf("load tool %s: %w", path, err)
				}
				switch spec.Meta.Transport {
				case toolspec.TransportMCP:
					cli, err := mcpbridge.RegisterDeclarativeMCPTool(context.Background(), reg, spec)
					if err != nil {
						return fmt.Errorf("register tool %s: %w", path, err)
					}
					closers = append(closers, cli)
				default:
					registry.RegisterSubprocessTool(reg, spec)
				}
			}
		}

		s := mcpbridge.NewServer("chainforge", version, reg)
		return server.ServeStdio(s)
	},
}

var toolsDir string

func main() {
	rootCmd.Flags().StringVar(&toolsDir, "tools", "", "Directory of tool/v1 YAML documents to serve")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
