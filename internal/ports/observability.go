package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)

	// RecordDiscard accounts for a frame or event thrown away at stage.
	RecordDiscard(stage string, raw []byte, err error)
}

type Field struct {
	Key   string
	Value any
}
