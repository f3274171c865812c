package stage

import "github.com/cwbudde/algo-pipeline/framing"

// rectifyMode values accepted by the Rectify stage.
const (
	rectifyFull = "full"
	rectifyHalf = "half"
)

// Rectify is a stateless kernel: full rectification emits |x|, half
// rectification emits max(x, 0).
type Rectify struct {
	mode string
}

// NewRectify validates params and constructs a Rectify kernel.
func NewRectify(params map[string]any) (Kernel, error) {
	mode, _ := getString(params, "mode", rectifyFull)
	if mode != rectifyFull && mode != rectifyHalf {
		return nil, invalidParam(`mode must be "full" or "half"`)
	}

	return &Rectify{mode: mode}, nil
}

func (r *Rectify) Type() string           { return "rectify" }
func (r *Rectify) RequiredChannels() int  { return 0 }
func (r *Rectify) Params() map[string]any { return map[string]any{"mode": r.mode} }
func (r *Rectify) SaveState() (any, error) { return nil, nil }
func (r *Rectify) LoadState(any) error     { return nil }
func (r *Rectify) ClearState()             {}

func (r *Rectify) Process(views []framing.ChannelView) {
	half := r.mode == rectifyHalf

	for _, v := range views {
		n := v.Len()
		for i := 0; i < n; i++ {
			x := v.At(i)
			if half {
				if x < 0 {
					x = 0
				}
			} else if x < 0 {
				x = -x
			}

			v.Set(i, x)
		}
	}
}
