// Package harness runs journal scenarios written in YAML.
//
// A scenario seeds the collection, drives the journal service through a
// flow of steps and then checks assertions against the trace and the
// persisted collection.
//
// # Scenario Format
//
//	name: weekend_in_paris
//	description: "What this scenario validates"
//	backend: memory            # or sqlite (in-memory database)
//	setup:
//	  - id: legacy-1
//	    image: file:///DCIM/0001.jpg
//	    address: Gare du Nord, Paris
//	    timestamp: 1699990000000
//	flow:
//	  - do: create
//	    image: img://louvre
//	    place: Louvre, Paris
//	    note: Mona Lisa crowds
//	  - do: toggle_favorite
//	    id: e-1
//	  - do: toggle_favorite
//	    id: missing
//	    expect:
//	      outcome: not_found
//	  - do: list
//	    favorites_only: true
//	    expect:
//	      ids: [e-1]
//	assertions:
//	  - type: final_order
//	    ids: [legacy-1, e-1]
//	  - type: entry
//	    id: e-1
//	    expect: { isFavorite: true }
//
// # Steps
//
//   - create: image, place or lat/lon, note, favorite
//   - toggle_favorite: id
//   - update_note: id, note
//   - remove: id
//   - list: favorites_only
//
// A step without expect must succeed. Outcomes are "ok" or an error name
// such as not_found, no_image, note_too_long or data_corruption.
//
// # Assertion Types
//
//   - final_count: the persisted collection has count entries
//   - final_order: the persisted ids, in persisted order
//   - entry: subset match of one entry's wire fields
//   - trace_count: op ran exactly count times
//   - trace_order: ops first appear in this order
//
// # Deterministic Testing
//
// Every run uses a fresh backend, a clock that starts at
// 1_700_000_000_000 ms and advances one minute per created entry, and ids
// e-1, e-2, ... so traces compare byte-for-byte against golden files.
package harness
