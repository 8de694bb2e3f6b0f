// Package state keeps per-user conversation sessions in memory.
//
// A Manager is parameterised by the session payload so each bot can carry
// its own typed draft instead of an untyped map. Sessions idle for longer
// than the configured TTL are treated as idle and are dropped by Sweep.
package state
