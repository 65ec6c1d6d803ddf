package simulation

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/roadsim/roadsim/internal/simulation"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
