// Package world is the in-memory game state commands, predicates and
// redirects operate on.
//
// A World holds entities, blocks and biomes per dimension, scoreboard
// objectives, data storages, boss bars, stopwatches and the game clock.
// It implements the score, data and boss-bar backends of package sink, so a
// store step can write straight into it.
//
// # Selectors
//
// ParseSelector understands the selector subset chains need:
//
//	@s @e @a @p @r
//	@e[type=cow,tag=!hidden,distance=..5,limit=2,sort=nearest]
//	@a[scores={points=10..}]
//	Alex
//	0191d3a2-...-uuid
//
// Distance filters only match entities in the dimension of the source.
//
// # Concurrency
//
// Every method takes the world lock. Entities are handles: their getters
// read fields that only World methods change.
package world
