// Package examples provides demo tool bodies used by the CLI's example
// plans and by package tests. They are fixtures only: the engine package
// never imports this package, matching the "no global state leakage" note.
package examples

import (
	"context"
	"fmt"
	"time"

	"github.com/relaykit/chainforge/pkg/engine"
)

// ScanHull reports hull integrity and breach status.
func ScanHull(ctx context.Context, args map[string]any) (any, error) {
	engine.LogFromContext(ctx)("scanning hull plating")
	return map[string]any{
		"integrity": 98.0,
		"breach":    false,
	}, nil
}

// CheckOxygen reports current cabin oxygen levels.
func CheckOxygen(ctx context.Context, args map[string]any) (any, error) {
	engine.LogFromContext(ctx)("reading oxygen sensor array")
	return map[string]any{
		"level":     14.5,
		"unit":      "percent",
		"status":    "CRITICAL_LOW",
		"threshold": 18.0,
	}, nil
}

// Analyze classifies an oxygen reading's severity.
func Analyze(ctx context.Context, args map[string]any) (any, error) {
	o2, ok := args["o2_level"].(float64)
	if !ok {
		return map[string]any{"recommendation": "ERROR", "severity": "UNKNOWN", "reason": "no oxygen level provided"}, nil
	}
	switch {
	case o2 < 15:
		return map[string]any{"recommendation": "EVACUATE", "severity": "HIGH", "reason": fmt.Sprintf("oxygen level %.1f%% below safe threshold", o2)}, nil
	case o2 < 18:
		return map[string]any{"recommendation": "ALERT", "severity": "MEDIUM", "reason": fmt.Sprintf("oxygen level %.1f%% below optimal", o2)}, nil
	default:
		return map[string]any{"recommendation": "MONITOR", "severity": "LOW", "reason": fmt.Sprintf("oxygen level %.1f%% within range", o2)}, nil
	}
}

// CheckEngine reports propulsion health; invoked only when a hull breach
// guard permits it.
func CheckEngine(ctx context.Context, args map[string]any) (any, error) {
	engine.LogFromContext(ctx)("polling engine telemetry")
	return map[string]any{
		"thrust_pct": 100.0,
		"status":     "NOMINAL",
	}, nil
}

// CheckTemperature reports zone temperature; demonstrates an argument
// with a default applied by the tool body rather than the engine, since
// the engine performs no arg-schema defaulting of its own.
func CheckTemperature(ctx context.Context, args map[string]any) (any, error) {
	zone, _ := args["zone"].(string)
	if zone == "" {
		zone = "main"
	}
	temps := map[string]float64{"main": 22.5, "engine": 45.0, "cargo": 18.0}
	temp, ok := temps[zone]
	if !ok {
		temp = 20.0
	}
	status := "WARNING"
	if temp > 15 && temp < 35 {
		status = "NORMAL"
	}
	return map[string]any{"zone": zone, "temperature": temp, "unit": "celsius", "status": status}, nil
}

// AsyncScanSystems demonstrates an asynchronous tool: it awaits a
// cancellable timer before returning, rather than blocking synchronously.
func AsyncScanSystems(ctx context.Context, args map[string]any) (any, error) {
	select {
	case <-time.After(10 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return map[string]any{
		"power":        "NOMINAL",
		"navigation":   "ONLINE",
		"life_support": "DEGRADED",
	}, nil
}

// GenerateReport tallies severities across a findings map whose values are
// step outputs, e.g. built in args from several '$stepID' references.
func GenerateReport(ctx context.Context, args map[string]any) (any, error) {
	findings, _ := args["findings"].(map[string]any)
	severities := map[string]int{"HIGH": 0, "MEDIUM": 0, "LOW": 0}
	for _, v := range findings {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		sev, _ := entry["severity"].(string)
		if _, known := severities[sev]; known {
			severities[sev]++
		}
	}
	return map[string]any{
		"high_count":   float64(severities["HIGH"]),
		"medium_count": float64(severities["MEDIUM"]),
		"low_count":    float64(severities["LOW"]),
	}, nil
}
