package config

// Layer is one configuration source. Nil fields are unset.
type Layer struct {
	Runner    RunnerLayer    `koanf:"runner"`
	Report    ReportLayer    `koanf:"report"`
	Evaluator EvaluatorLayer `koanf:"evaluator"`
	Metrics   MetricsLayer   `koanf:"metrics"`
	LogLevel  *string        `koanf:"log_level"`
	Verbose   *bool          `koanf:"verbose"`
	Output    *string        `koanf:"output"`
}

// RunnerLayer is the optional form of RunnerConfig.
type RunnerLayer struct {
	Concurrency *int    `koanf:"concurrency"`
	Timeout     *Millis `koanf:"timeout"`
}

// ReportLayer is the optional form of ReportConfig.
type ReportLayer struct {
	Format        *string `koanf:"format"`
	HideSucceeded *bool   `koanf:"hide_succeeded"`
	HideFailed    *bool   `koanf:"hide_failed"`
	HideErrored   *bool   `koanf:"hide_errored"`
	Color         *string `koanf:"color"`
}

// EvaluatorLayer is the optional form of EvaluatorConfig.
type EvaluatorLayer struct {
	Binary  *string `koanf:"binary"`
	LibPath *string `koanf:"lib_path"`
}

// MetricsLayer is the optional form of MetricsConfig.
type MetricsLayer struct {
	File *string `koanf:"file"`
}

// Merge resolves layers in order; for every field the last non-nil value
// wins. Fields no layer sets keep their zero value.
func Merge(layers ...Layer) Config {
	var c Config
	for _, l := range layers {
		set(&c.Runner.Concurrency, l.Runner.Concurrency)
		set(&c.Runner.Timeout, l.Runner.Timeout)
		set(&c.Report.Format, l.Report.Format)
		set(&c.Report.HideSucceeded, l.Report.HideSucceeded)
		set(&c.Report.HideFailed, l.Report.HideFailed)
		set(&c.Report.HideErrored, l.Report.HideErrored)
		set(&c.Report.Color, l.Report.Color)
		set(&c.Evaluator.Binary, l.Evaluator.Binary)
		set(&c.Evaluator.LibPath, l.Evaluator.LibPath)
		set(&c.Metrics.File, l.Metrics.File)
		set(&c.LogLevel, l.LogLevel)
		set(&c.Verbose, l.Verbose)
		set(&c.Output, l.Output)
	}
	return c
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// LayerOf returns a layer with every field of c set.
func LayerOf(c *Config) Layer {
	return Layer{
		Runner: RunnerLayer{
			Concurrency: ptr(c.Runner.Concurrency),
			Timeout:     ptr(c.Runner.Timeout),
		},
		Report: ReportLayer{
			Format:        ptr(c.Report.Format),
			HideSucceeded: ptr(c.Report.HideSucceeded),
			HideFailed:    ptr(c.Report.HideFailed),
			HideErrored:   ptr(c.Report.HideErrored),
			Color:         ptr(c.Report.Color),
		},
		Evaluator: EvaluatorLayer{
			Binary:  ptr(c.Evaluator.Binary),
			LibPath: ptr(c.Evaluator.LibPath),
		},
		Metrics:  MetricsLayer{File: ptr(c.Metrics.File)},
		LogLevel: ptr(c.LogLevel),
		Verbose:  ptr(c.Verbose),
		Output:   ptr(c.Output),
	}
}

func ptr[T any](v T) *T { return &v }
