package telemetry

// Provider gives read access to the latest measurement of each kind.
type Provider interface {
	Read(kind Kind) OneMeasurement
}
