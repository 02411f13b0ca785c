// Package harness runs prime generation scenarios and checks their output.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules: ["2:0", "3:0"]     # omitted: default rules, []: no rules
//	start: 100
//	count: 24
//	per_line: 12
//	shards: 4                 # optional: use the parallel stream
//	expect: [101, 103, 107]   # optional: expected prefix
//	expect_error: INVALID_RULE # optional: expected construction failure
//
// # Golden Files
//
// The formatted rows a scenario produces can be compared against a golden
// file. RunWithGolden does this in Go tests via goldie; the CLI `test`
// command does it for scenario directories and can regenerate them with
// --update.
package harness
