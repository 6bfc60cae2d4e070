// Package scenario replays scripted scoring sessions through the engine.
//
// A scenario is a YAML file listing button presses in a compact shorthand:
//
//	name: deuce-advantage
//	description: advantage is lost on the next point won by the other side
//	steps:
//	  - aaabbb        # one point per letter
//	  - a
//	  - b
//	  - aa
//	  - do: undo a
//	    reject: NOTHING_TO_UNDO
//	expect:
//	  games: {a: [1], b: [0]}
//
// Step shorthand:
//
//	a, b, aab     points scored, one per letter
//	aaaa*5        the pattern repeated 5 times
//	undo a        correct the last point of side a
//	reset         reset the current game
//	finish        project the score onto its persisted snapshot
//
// Run produces a Report whose trace renders as stable text, which is what
// the golden files under testdata/golden capture.
package scenario
