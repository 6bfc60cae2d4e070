// Package scoring implements the padel match scoring engine.
//
// The engine is a pure state machine. Every operation takes a MatchScore
// value and returns a new one; the input is never modified, so a rejected
// event leaves the caller holding exactly the state it passed in.
//
// Scoring layers:
//
//	point -> game   0, 15, 30, 40, then deuce/advantage tracked on the side
//	game  -> set    first to 6 games with a 2 game margin
//	set   -> match  first to the configured sets-to-win (2 for best of 3)
//
// Set tallies are never stored. SetsWon re-scans every recorded set so a
// score rebuilt from a persisted Snapshot counts exactly like a live one.
//
// The engine performs no I/O and holds no locks. Callers that accept events
// from more than one source must serialize them per match.
package scoring
