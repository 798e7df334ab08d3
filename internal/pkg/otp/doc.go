// Package otp produces time-based one-time codes (RFC 6238). The retriever
// simulator uses it to mint realistic codes for synthetic SMS deliveries.
package otp
