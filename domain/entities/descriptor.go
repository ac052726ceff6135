package entities

// ModelKind selects how a model descriptor is turned into a session.
type ModelKind string

const (
	// ModelKindOpenAI generates or embeds text through an OpenAI-compatible endpoint.
	ModelKindOpenAI ModelKind = "openai"
	// ModelKindChargram embeds text offline with hashed character trigrams.
	ModelKindChargram ModelKind = "chargram"
	// ModelKindLinear is a dense float32 layer over one input tensor.
	ModelKindLinear ModelKind = "linear"
)

// ModelDescriptor is the on-disk description of a model file.
type ModelDescriptor struct {
	Kind        ModelKind   `json:"kind" yaml:"kind" validate:"required,oneof=openai chargram linear"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Task        string      `json:"task,omitempty" yaml:"task,omitempty" validate:"omitempty,oneof=chat embedding"`
	Model       string      `json:"model,omitempty" yaml:"model,omitempty" validate:"required_if=Kind openai"`
	System      string      `json:"system,omitempty" yaml:"system,omitempty"`
	Input       string      `json:"input,omitempty" yaml:"input,omitempty"`
	Output      string      `json:"output,omitempty" yaml:"output,omitempty"`
	Weights     [][]float32 `json:"weights,omitempty" yaml:"weights,omitempty" validate:"required_if=Kind linear,dive,min=1"`
	Bias        []float32   `json:"bias,omitempty" yaml:"bias,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
	Dimensions  int         `json:"dimensions,omitempty" yaml:"dimensions,omitempty" validate:"gte=0,lte=65536"`
	Retries     int         `json:"retries,omitempty" yaml:"retries,omitempty" validate:"gte=0,lte=10"`
	Temperature float32     `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"gte=0,lte=2"`
}
