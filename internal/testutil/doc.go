// Package testutil provides deterministic stand-ins for tests: a fixed
// identifier sequence and an in-memory backend with scriptable failures.
package testutil
