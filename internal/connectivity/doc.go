// Package connectivity decides whether the backend is reachable and notifies
// interested code when that answer changes.
//
// ProbeMonitor polls a configurable HTTP endpoint and optionally listens for
// kernel network interface events to re-probe immediately on link changes.
// StaticMonitor is a manual implementation for tests and for hosts that supply
// their own connectivity signal. Subscribers are invoked exactly once per
// offline/online transition, never for repeated observations of the same
// state.
package connectivity
