package common

import (
	sreCommon "github.com/devopsext/sre/common"
)

type Observability struct {
	logs    *sreCommon.Logs
	metrics *sreCommon.Metrics
}

func (o *Observability) Logs() sreCommon.Logger {
	return o.logs
}

func (o *Observability) Metrics() *sreCommon.Metrics {
	return o.metrics
}

// Info and friends satisfy the tools logger contract by delegating to
// the sre logs and discarding their chaining result.
func (o *Observability) Info(obj interface{}, args ...interface{}) {
	o.logs.Info(obj, args...)
}

func (o *Observability) Warn(obj interface{}, args ...interface{}) {
	o.logs.Warn(obj, args...)
}

func (o *Observability) Debug(obj interface{}, args ...interface{}) {
	o.logs.Debug(obj, args...)
}

func (o *Observability) Error(obj interface{}, args ...interface{}) {
	o.logs.Error(obj, args...)
}

func NewObservability(logs *sreCommon.Logs, metrics *sreCommon.Metrics) *Observability {

	return &Observability{
		logs:    logs,
		metrics: metrics,
	}
}
