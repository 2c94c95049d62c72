package common

import (
	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
)

type Reporter interface {
	Name() string
	Report(r *Report) error
}

type Reporters struct {
	logger sreCommon.Logger
	items  []Reporter
}

func (rs *Reporters) Add(r Reporter) {

	if utils.IsEmpty(r) {
		return
	}
	rs.items = append(rs.items, r)
}

func (rs *Reporters) Items() []Reporter {
	return rs.items
}

func NewReporters(observability *Observability) *Reporters {

	return &Reporters{
		logger: observability.Logs(),
	}
}
