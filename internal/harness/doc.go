// Package harness runs chainexec scenarios: a world, a datapack, a list of
// command invocations and assertions on what they leave behind.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: count_cows
//	description: "store result writes the match count"
//	datapack: [../datapacks/demo]
//	namespace: demo
//	functions:
//	  - id: main
//	    lines: [say hi, return 1]
//	world:
//	  entities:
//	    - {type: minecraft:cow, pos: [0, 64, 0]}
//	  objectives:
//	    - name: n
//	steps:
//	  - exec: execute store result score #cows n if entity @e[type=cow]
//	    expect: {success: true, value: 1}
//	  - call: demo:main
//	assertions:
//	  - {type: score, objective: n, holder: "#cows", value: 1}
//
// # Assertion Types
//
//   - score, stored_score: a score holder's value, or absent
//   - data: a value at a path of a storage, entity or block compound
//   - bossbar: a boss bar's value and maximum
//   - block: the block at a position of the overworld
//   - entity_count: how many entities a selector matches
//   - message_contains: some step feedback contains a text
//   - trace_contains, trace_count: tracer events containing a text
//   - stored_invocations: the size of the persisted invocation log
//
// # Deterministic Testing
//
// Entity UUIDs, invocation ids, random selection and debug trace
// timestamps are all deterministic, so a scenario renders byte-identical
// traces across runs. RunWithGolden compares the rendering with a goldie
// golden file.
package harness
