package stage

import (
	"github.com/cwbudde/algo-pipeline/framing"
)

// Integrator implements the leaky integrator y[n] = x[n] + alpha*y[n-1],
// y[-1] = 0, with one scalar of state per channel.
type Integrator struct {
	alpha float64
	y     []float64
}

// IntegratorState is the JSON-serializable snapshot shape.
type IntegratorState struct {
	Y []float64 `json:"y"`
}

// NewIntegrator validates params and constructs an Integrator kernel.
func NewIntegrator(params map[string]any) (Kernel, error) {
	alpha, ok := getFloat(params, "alpha", 0.99)
	if !ok {
		alpha = 0.99
	}

	if alpha <= 0 || alpha > 1 {
		return nil, invalidParam("alpha must be in range (0, 1]")
	}

	return &Integrator{alpha: alpha}, nil
}

func (k *Integrator) Type() string          { return "integrator" }
func (k *Integrator) RequiredChannels() int { return 0 }

func (k *Integrator) Params() map[string]any {
	return map[string]any{"alpha": k.alpha}
}

func (k *Integrator) Process(views []framing.ChannelView) {
	if k.y == nil {
		k.y = make([]float64, len(views))
	}

	for c, v := range views {
		y := k.y[c]
		n := v.Len()

		for i := 0; i < n; i++ {
			y = float64(v.At(i)) + k.alpha*y
			v.Set(i, float32(y))
		}

		k.y[c] = y
	}
}

func (k *Integrator) SaveState() (any, error) {
	if k.y == nil {
		return nil, nil
	}

	y := make([]float64, len(k.y))
	copy(y, k.y)

	return IntegratorState{Y: y}, nil
}

func (k *Integrator) LoadState(raw any) error {
	if raw == nil {
		k.y = nil
		return nil
	}

	state, err := decodeState[IntegratorState](raw)
	if err != nil {
		return err
	}

	k.y = make([]float64, len(state.Y))
	copy(k.y, state.Y)

	return nil
}

func (k *Integrator) ClearState() {
	k.y = nil
}

// decodeState converts a raw state value (either already T, e.g. from an
// in-process save/load round trip, or the map[string]any/json.RawMessage
// shape produced by decoding a wire snapshot) into T.
func decodeState[T any](raw any) (T, error) {
	if v, ok := raw.(T); ok {
		return v, nil
	}

	var zero T

	return zero, decodeVia(raw, &zero)
}
