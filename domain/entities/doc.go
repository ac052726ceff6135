// Package entities provides the value types that cross the host bridge:
// statement payloads and results, tensors, chat requests, model tiers and
// capability names. They carry no behaviour beyond validation and encoding.
package entities
