// Package session implements the identity gate: it holds the current
// authenticated identity (or none) and exposes sign-in, sign-up, and
// sign-out on top of the backend identity service.
//
// The gate's observable state is tri-valued: loading (startup resume in
// flight), authenticated (with a live session), or unauthenticated.
// Everything downstream of the gate is inert until it reports an
// authenticated identity; the sync layer starts on that transition and
// drops its state on sign-out.
//
// Session tokens persist across processes in a 0600 file under the user's
// home directory, so a CLI invocation resumes the previous session instead
// of prompting for credentials every time.
package session
