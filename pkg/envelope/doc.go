// Package envelope unwraps queue entries that carry a notification-service envelope.
//
// A queue entry body holds an SNS notification serialized as JSON. The notification's
// Message field is the real payload (often itself stringified JSON) and its
// MessageAttributes field carries typed attributes. Decode flattens both layers into a
// Message that processing functions can consume directly.
package envelope
