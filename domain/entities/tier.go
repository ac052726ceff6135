package entities

import "fmt"

const gib = uint64(1) << 30

// ModelTier is a bucket of detected host memory. Larger tiers select larger models.
type ModelTier int

const (
	TierUnder1GiB ModelTier = iota
	TierUnder2GiB
	TierUnder4GiB
	TierUnder8GiB
	TierAtLeast8GiB
)

// TierForMemory buckets a total memory size in bytes.
func TierForMemory(total uint64) ModelTier {
	switch {
	case total < 1*gib:
		return TierUnder1GiB
	case total < 2*gib:
		return TierUnder2GiB
	case total < 4*gib:
		return TierUnder4GiB
	case total < 8*gib:
		return TierUnder8GiB
	default:
		return TierAtLeast8GiB
	}
}

// String returns a short label for the tier.
func (t ModelTier) String() string {
	switch t {
	case TierUnder1GiB:
		return "<1GiB"
	case TierUnder2GiB:
		return "<2GiB"
	case TierUnder4GiB:
		return "<4GiB"
	case TierUnder8GiB:
		return "<8GiB"
	case TierAtLeast8GiB:
		return ">=8GiB"
	default:
		return fmt.Sprintf("ModelTier(%d)", int(t))
	}
}

// ModelSet is the fixed triple of model identifiers selected by a tier.
// Identifiers are paths relative to the model directory.
type ModelSet struct {
	Chat       string `json:"chat"`
	Structured string `json:"structured"`
	Embedding  string `json:"embedding"`
}

// Models returns the model triple for the tier.
func (t ModelTier) Models() ModelSet {
	switch t {
	case TierUnder1GiB:
		return ModelSet{Chat: "chat-nano.yaml", Structured: "structured-nano.yaml", Embedding: "embed-mini.yaml"}
	case TierUnder2GiB:
		return ModelSet{Chat: "chat-small.yaml", Structured: "structured-small.yaml", Embedding: "embed-mini.yaml"}
	case TierUnder4GiB:
		return ModelSet{Chat: "chat-medium.yaml", Structured: "structured-medium.yaml", Embedding: "embed-base.yaml"}
	case TierUnder8GiB:
		return ModelSet{Chat: "chat-large.yaml", Structured: "structured-large.yaml", Embedding: "embed-base.yaml"}
	default:
		return ModelSet{Chat: "chat-xl.yaml", Structured: "structured-xl.yaml", Embedding: "embed-large.yaml"}
	}
}

// Task selects which model family serves a generation request.
type Task int

const (
	TaskChat Task = iota
	TaskPredict
	TaskCategorise
)

// String returns the task name.
func (t Task) String() string {
	switch t {
	case TaskChat:
		return "chat"
	case TaskPredict:
		return "predict"
	case TaskCategorise:
		return "categorise"
	default:
		return fmt.Sprintf("Task(%d)", int(t))
	}
}
