package examples

import "github.com/relaykit/chainforge/pkg/registry"

// Register adds every demo tool to reg, returning it for chaining. Used by
// the CLI's --demo flag and by package tests that want a
// ready-made registry without writing their own stubs.
func Register(reg *registry.Registry) *registry.Registry {
	reg.RegisterFunc("scan_hull", "Scan the hull for integrity and breaches", false, ScanHull)
	reg.RegisterFunc("check_oxygen", "Check cabin oxygen level", false, CheckOxygen)
	reg.RegisterFunc("analyze", "Classify an oxygen reading's severity", false, Analyze)
	reg.RegisterFunc("check_engine", "Poll propulsion system telemetry", false, CheckEngine)
	reg.RegisterFunc("check_temperature", "Check zone temperature", false, CheckTemperature)
	reg.RegisterFunc("async_scan_systems", "Scan ship subsystems (async)", true, AsyncScanSystems)
	reg.RegisterFunc("generate_report", "Summarize findings by severity", false, GenerateReport)
	return reg
}
