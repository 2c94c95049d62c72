package prober

import (
	"math/rand/v2"
	"time"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
)

type RandomOptions struct {
	MaxLatency float64
	Delay      int
}

// Random produces synthetic outcomes without touching the network, useful
// for pipeline dry runs.
type Random struct {
	options *RandomOptions
	logger  sreCommon.Logger
}

const RandomProberName = "Random"

var randomStatuses = []common.ProbeStatus{
	common.StatusSuccess,
	common.StatusSuccess,
	common.StatusRateLimited,
	common.StatusServerError,
	common.StatusUnauthorized,
	common.StatusTimeout,
	common.StatusRequestFail,
}

func (rd *Random) Name() string {
	return RandomProberName
}

func (rd *Random) Probe(url string) common.ProbeOutcome {

	time.Sleep(time.Duration(rd.options.Delay) * time.Millisecond)

	status := randomStatuses[rand.IntN(len(randomStatuses))]

	latency := rand.Float64() * rd.options.MaxLatency
	if status == common.StatusTimeout || status == common.StatusRequestFail {
		latency = common.LatencyUnknown
	}

	return common.ProbeOutcome{
		Status:    status,
		Data:      url,
		Latency:   latency,
		Timestamp: time.Now(),
	}
}

func NewRandom(options *RandomOptions, observability *common.Observability) *Random {

	if options.MaxLatency <= 0 {
		options.MaxLatency = 1.0
	}

	return &Random{
		options: options,
		logger:  observability.Logs(),
	}
}
