// Package chaterr defines the tagged error shape shared by the agent client,
// the speech adapters and the widget core.
//
// Backends report failures in many forms (plain strings, JSON bodies, status
// codes). Adapters normalize all of them into *Error at the boundary so the
// core only branches on Kind:
//
//   - KindConfig: missing agent id or credentials; fatal, never retried
//   - KindTransport: network or auth failure; retried per caller policy
//   - KindSession: backend rejected the session; triggers one re-init
//   - KindUnsupported: capture or synthesis unavailable; voice mode disabled
package chaterr
