//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/toolspec"
)

func main() {
	data, err := plan.GenerateJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/plan-v1.json", data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/plan-v1.json")

	toolData, err := toolspec.GenerateJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating tool schema: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/tool-v1.json", toolData, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/tool-v1.json")
}
