// Package harness runs tracker scenarios from YAML files.
//
// A scenario seeds storage, drives a tracker through a list of steps on a
// fixed clock and then checks assertions against the final document. The
// same files double as regression fixtures: RunWithGolden snapshots the step
// trace and final document under testdata/.
//
// # Scenario Format
//
//	name: import_then_resolve
//	description: "Imported free-text sites are resolved once per label"
//	now: "2024-01-05T09:00:00Z"
//	timezone: UTC
//	seed: |
//	  {"skyrizi": {"history": [{"ts": 1, "site": "Right Arm"}]}}
//	steps:
//	  - op: import
//	    csv: |
//	      2023-10-01,Right Thigh,1ml
//	    expect: { added: 1, skipped: 0, ambiguous: 1 }
//	  - op: resolve
//	    answers:
//	      - choose: Right Thigh - Upper Outer
//	assertions:
//	  - type: history_sites
//	    sites: [Right Arm, Right Thigh - Upper Outer]
//
// # Step Operations
//
//   - log: LogNow with site and force; expect_error names the refusal
//   - advance: move the clock by duration
//   - set_start, set_interval, set_dose: profile edits from value
//   - toggle_zone: flip zone
//   - import: merge csv, optionally checking expect counts
//   - resolve: answer the ambiguity session in order
//   - clear_history: export then empty history
//   - reload: reopen the tracker from the same storage
//
// # Assertion Types
//
//   - history_sites: exact site list in history order
//   - history_count: number of entries
//   - profile: subset match on start, interval and dose
//   - zones: exact enabled zone list
//   - no_ambiguities: every site is valid
//   - suggest: rotation suggestion
package harness
