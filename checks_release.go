//go:build !wfqdebug

package waitfreequeue

const debugChecks = false
