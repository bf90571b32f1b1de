package ports

// Observability is the side channel for operator-facing warnings, logs and
// metrics. Non-fatal conditions (column guard, empty procedures, dropped
// observations) are reported here and never alter control flow.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
	ObserveLatency(name string, seconds float64)
}

// Field is one structured log attribute.
type Field struct {
	Key   string
	Value any
}

// Nop discards everything; useful in tests and library embedding.
type Nop struct{}

func (Nop) LogInfo(string, ...Field)         {}
func (Nop) LogWarn(string, ...Field)         {}
func (Nop) LogError(string, error, ...Field) {}
func (Nop) IncCounter(string, float64)       {}
func (Nop) SetGauge(string, float64)         {}
func (Nop) ObserveLatency(string, float64)   {}
