// Package clock provides a tiny time abstraction.
//
// Listener episodes and emitted events are timestamped through Clocker so the
// retriever session can be driven by a Manual clock in tests.
package clock
