//go:build wfqdebug

package waitfreequeue

// debugChecks enables the misuse assertions (push on a full queue,
// producer/consumer collision). Build with -tags wfqdebug to turn them
// on; the release build compiles the branches away so the hot path pays
// nothing for them.
const debugChecks = true
