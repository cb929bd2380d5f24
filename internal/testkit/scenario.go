package testkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario names a plan to run and the Spec to check its Result against.
// It is the unit `chainforge test` loads and executes: a thin YAML wrapper
// around a plan path plus expected-outcome assertions, mirroring the
// runbook-plus-test.yaml scenario shape without a separate replay
// executor, since this engine has no persisted-evidence replay mode to
// drive against.
type Scenario struct {
	Name   string `yaml:"name,omitempty"`
	Plan   string `yaml:"plan"`
	Expect Spec   `yaml:"expect"`
}

// LoadScenarioFile reads and parses a scenario document from disk. Plan
// is resolved relative to the scenario file's own directory unless it is
// already absolute. Name defaults to the scenario file's base name.
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Plan == "" {
		return nil, fmt.Errorf("scenario %s: missing required field %q", path, "plan")
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if !filepath.IsAbs(sc.Plan) {
		sc.Plan = filepath.Join(filepath.Dir(path), sc.Plan)
	}
	return &sc, nil
}
