package reporter

import (
	"errors"
	"fmt"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/pterm/pterm"
)

type ConsoleOptions struct {
	Enabled bool
}

// Console renders the report as sections on the terminal, one per
// non-empty bucket, followed by a summary table.
type Console struct {
	options ConsoleOptions
	logger  sreCommon.Logger
}

const ReporterConsoleName = "Console"

var bucketTitles = map[string]string{
	common.BucketAvailableHttps:       "Available HTTPS endpoints",
	common.BucketAvailableHttp:        "Available HTTP endpoints",
	common.BucketRateLimited:          "Rate limited (429)",
	common.BucketCloudflareBlocked:    "Cloudflare blocked",
	common.BucketInvalidContent:       "Invalid content",
	common.BucketServiceUnavailable:   "Service unavailable (50x)",
	common.BucketUnauthorized:         "Unauthorized (401)",
	common.BucketTimeoutOrUnreachable: "Timeout or unreachable",
	common.BucketFailed:               "Failed",
}

func (c *Console) Name() string {
	return ReporterConsoleName
}

func formatLatency(v float64) string {

	if v == common.LatencyUnknown {
		return "unknown"
	}
	return fmt.Sprintf("%.2fs", v)
}

func (c *Console) Report(r *common.Report) error {

	if r == nil {
		return errors.New("Console reporter cannot process empty report")
	}

	for _, name := range common.ReportBuckets {

		count := r.Count(name)
		if count <= 0 {
			continue
		}

		pterm.DefaultSection.Printfln("%s (%d)", bucketTitles[name], count)

		if entries := r.Entries(name); entries != nil {
			for _, e := range entries {
				pterm.Printfln("%s  %s", e.URL, formatLatency(e.Latency))
			}
			continue
		}

		for _, u := range r.URLs(name) {
			pterm.Println(u)
		}
	}

	pterm.DefaultSection.Println("Summary")

	data := pterm.TableData{{"Bucket", "Count"}}
	for _, name := range common.ReportBuckets {
		data = append(data, []string{bucketTitles[name], fmt.Sprintf("%d", r.Count(name))})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func NewConsole(options ConsoleOptions, observability *common.Observability) *Console {

	logger := observability.Logs()
	if !options.Enabled {
		logger.Debug("Console reporter is not enabled. Skipped.")
		return nil
	}

	return &Console{
		options: options,
		logger:  logger,
	}
}
