package pipeline

// Each Params type is the friendly, typed argument to its matching
// Pipeline builder method; toMap converts it to the map[string]any shape
// the underlying stage.Factory validates and consumes.

// RectifyParams configures the Rectify stage.
type RectifyParams struct {
	Mode string // "full" or "half"; defaults to "full"
}

func (p RectifyParams) toMap() map[string]any {
	if p.Mode == "" {
		return map[string]any{}
	}

	return map[string]any{"mode": p.Mode}
}

// ClipDetectionParams configures the ClipDetection stage.
type ClipDetectionParams struct {
	Threshold float64
}

func (p ClipDetectionParams) toMap() map[string]any {
	return map[string]any{"threshold": p.Threshold}
}

// IntegratorParams configures the Integrator stage.
type IntegratorParams struct {
	Alpha float64
}

func (p IntegratorParams) toMap() map[string]any {
	return map[string]any{"alpha": p.Alpha}
}

// RMSParams configures the RMS stage. WindowSize and WindowDuration are
// only used in "moving" mode; supply exactly one of them.
type RMSParams struct {
	Mode           string
	WindowSize     int
	WindowDuration float64
	SampleRate     float64
}

func (p RMSParams) toMap() map[string]any {
	return windowedParamsMap(p.Mode, p.WindowSize, p.WindowDuration, p.SampleRate)
}

// MovingAverageParams configures the MovingAverage stage.
type MovingAverageParams struct {
	WindowSize     int
	WindowDuration float64
	SampleRate     float64
}

func (p MovingAverageParams) toMap() map[string]any {
	m := windowedParamsMap("", p.WindowSize, p.WindowDuration, p.SampleRate)
	delete(m, "mode")

	return m
}

// ZScoreNormalizeParams configures the ZScoreNormalize stage.
type ZScoreNormalizeParams struct {
	Mode           string
	WindowSize     int
	WindowDuration float64
	SampleRate     float64
	Epsilon        float64
}

func (p ZScoreNormalizeParams) toMap() map[string]any {
	m := windowedParamsMap(p.Mode, p.WindowSize, p.WindowDuration, p.SampleRate)
	m["epsilon"] = p.Epsilon

	return m
}

// FilterParams configures the generic IIR/FIR Filter stage.
type FilterParams struct {
	Type            string // "lowpass", "highpass", "bandpass", "notch"
	Mode            string // "iir" or "fir"
	Order           int
	CutoffFrequency float64
	SampleRate      float64
	Q               float64
}

func (p FilterParams) toMap() map[string]any {
	return map[string]any{
		"type":            p.Type,
		"mode":            p.Mode,
		"order":           p.Order,
		"cutoffFrequency": p.CutoffFrequency,
		"sampleRate":      p.SampleRate,
		"q":               p.Q,
	}
}

// LmsFilterParams configures the LmsFilter stage. Channel 0 is the
// reference input, channel 1 is the desired signal.
type LmsFilterParams struct {
	NumTaps      int
	LearningRate float64
	Lambda       float64
	Normalized   bool
	Epsilon      float64
}

func (p LmsFilterParams) toMap() map[string]any {
	return map[string]any{
		"numTaps":      p.NumTaps,
		"learningRate": p.LearningRate,
		"lambda":       p.Lambda,
		"normalized":   p.Normalized,
		"epsilon":      p.Epsilon,
	}
}

// WaveletTransformParams configures the WaveletTransform stage.
type WaveletTransformParams struct {
	Family string // "haar", "db2".."db10"
}

func (p WaveletTransformParams) toMap() map[string]any {
	return map[string]any{"wavelet": p.Family}
}

// HilbertEnvelopeParams configures the HilbertEnvelope stage.
type HilbertEnvelopeParams struct {
	WindowSize     int
	WindowDuration float64
	SampleRate     float64
	HopSize        int
}

func (p HilbertEnvelopeParams) toMap() map[string]any {
	m := windowedParamsMap("", p.WindowSize, p.WindowDuration, p.SampleRate)
	delete(m, "mode")

	if p.HopSize != 0 {
		m["hopSize"] = p.HopSize
	}

	return m
}

func windowedParamsMap(mode string, windowSize int, windowDuration, sampleRate float64) map[string]any {
	m := map[string]any{}
	if mode != "" {
		m["mode"] = mode
	}

	if windowSize > 0 {
		m["windowSize"] = windowSize
	}

	if windowDuration > 0 {
		m["windowDuration"] = windowDuration
	}

	if sampleRate > 0 {
		m["sampleRate"] = sampleRate
	}

	return m
}
