// Package notifications delivers agent events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set. Sweep
// summaries and exhausted-retry alerts can be toggled independently so a
// chatty queue does not drown out the failures that need attention.
//
// Extend this package if you need alternative transports; the agent depends
// only on the Service interface.
package notifications
