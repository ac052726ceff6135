package descriptor

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

const defaultDimensions = 384

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_\-]+`)

// chargramSession embeds text offline. Character trigrams and word tokens are
// hashed into a fixed number of buckets and the vector is L2 normalized.
type chargramSession struct {
	dims int
}

func newChargramSession(d *entities.ModelDescriptor) *chargramSession {
	dims := d.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &chargramSession{dims: dims}
}

func (s *chargramSession) Run(_ context.Context, _ map[string]entities.Tensor) (map[string]entities.Tensor, error) {
	return nil, errNoTensors(entities.ModelKindChargram)
}

func (s *chargramSession) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dims)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec, nil
	}
	window := "#" + normalized + "#"
	for i := 0; i+3 <= len(window); i++ {
		vec[s.bucket(window[i:i+3])] += 1
	}
	for _, token := range tokenize(normalized) {
		vec[s.bucket("tok:"+token)] += 1.25
	}
	normalizeVector(vec)
	return vec, nil
}

func (s *chargramSession) bucket(gram string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(gram))
	return int(h.Sum64() % uint64(s.dims))
}

func tokenize(text string) []string {
	matches := tokenPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}
	return matches
}

func normalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
