// Package messaging provides a broker-agnostic API for publishing and
// consuming messages.
//
// Business code depends on the interfaces in this package only, so the
// broker (NATS, NSQ, Kafka, Google Pub/Sub or the in-process memory broker)
// is picked by configuration at startup.
package messaging
