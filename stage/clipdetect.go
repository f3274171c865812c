package stage

import "github.com/cwbudde/algo-pipeline/framing"

// ClipDetection is a stateless kernel: y = 1 if |x| >= threshold else 0.
type ClipDetection struct {
	threshold float64
}

// NewClipDetection validates params and constructs a ClipDetection kernel.
func NewClipDetection(params map[string]any) (Kernel, error) {
	threshold, ok := getFloat(params, "threshold", 0)
	if !ok || threshold <= 0 {
		return nil, invalidParam("threshold must be > 0")
	}

	return &ClipDetection{threshold: threshold}, nil
}

func (c *ClipDetection) Type() string           { return "clipDetection" }
func (c *ClipDetection) RequiredChannels() int  { return 0 }
func (c *ClipDetection) Params() map[string]any { return map[string]any{"threshold": c.threshold} }
func (c *ClipDetection) SaveState() (any, error) { return nil, nil }
func (c *ClipDetection) LoadState(any) error     { return nil }
func (c *ClipDetection) ClearState()             {}

func (c *ClipDetection) Process(views []framing.ChannelView) {
	threshold := float32(c.threshold)

	for _, v := range views {
		n := v.Len()
		for i := 0; i < n; i++ {
			x := v.At(i)
			if x < 0 {
				x = -x
			}

			if x >= threshold {
				v.Set(i, 1)
			} else {
				v.Set(i, 0)
			}
		}
	}
}
