package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	sreCommon "github.com/devopsext/sre/common"
)

const (
	BucketAvailableHttps       = "available_https_endpoints"
	BucketAvailableHttp        = "available_http_endpoints"
	BucketRateLimited          = "rate_limited"
	BucketCloudflareBlocked    = "cloudflare_blocked"
	BucketInvalidContent       = "invalid_content"
	BucketServiceUnavailable   = "service_unavailable"
	BucketUnauthorized         = "unauthorized_urls"
	BucketTimeoutOrUnreachable = "timeout_or_unreachable"
	BucketFailed               = "failed_urls"
)

// ReportBuckets lists every bucket in rendering order.
var ReportBuckets = []string{
	BucketAvailableHttps,
	BucketAvailableHttp,
	BucketRateLimited,
	BucketCloudflareBlocked,
	BucketInvalidContent,
	BucketServiceUnavailable,
	BucketUnauthorized,
	BucketTimeoutOrUnreachable,
	BucketFailed,
}

type LatencyEntry struct {
	URL     string
	Latency float64
}

// LatencyEntries keeps insertion/sort order, unlike a map, so a sorted
// report serializes in sorted order.
type LatencyEntries []LatencyEntry

// MarshalJSON renders the entries as an ordered {url: latency} object.
func (le LatencyEntries) MarshalJSON() ([]byte, error) {

	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range le {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(e.URL)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Latency)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func latencyKey(v float64) float64 {

	if v == LatencyUnknown {
		return math.Inf(1)
	}
	return v
}

func (le LatencyEntries) sort(descending bool) {

	sort.SliceStable(le, func(i, j int) bool {
		if descending {
			return latencyKey(le[i].Latency) > latencyKey(le[j].Latency)
		}
		return latencyKey(le[i].Latency) < latencyKey(le[j].Latency)
	})
}

// Report partitions probe outcomes into named buckets.
type Report struct {
	logger sreCommon.Logger

	AvailableHttps       LatencyEntries `json:"available_https_endpoints"`
	AvailableHttp        LatencyEntries `json:"available_http_endpoints"`
	RateLimited          LatencyEntries `json:"rate_limited"`
	CloudflareBlocked    LatencyEntries `json:"cloudflare_blocked"`
	InvalidContent       LatencyEntries `json:"invalid_content"`
	ServiceUnavailable   LatencyEntries `json:"service_unavailable"`
	Unauthorized         LatencyEntries `json:"unauthorized_urls"`
	TimeoutOrUnreachable []string       `json:"timeout_or_unreachable"`
	Failed               []string       `json:"failed_urls"`
}

// AddResult routes one probe outcome into its bucket. Unrecognized
// statuses land in the failed bucket with a warning.
func (r *Report) AddResult(url string, o ProbeOutcome) {

	switch o.Status {
	case StatusSuccess:
		if IsHttpsURL(url) {
			r.AvailableHttps = append(r.AvailableHttps, LatencyEntry{URL: url, Latency: o.Latency})
		} else {
			r.AvailableHttp = append(r.AvailableHttp, LatencyEntry{URL: url, Latency: o.Latency})
		}
	case StatusRateLimited:
		r.RateLimited = append(r.RateLimited, LatencyEntry{URL: url, Latency: o.Latency})
	case StatusCloudflare:
		r.CloudflareBlocked = append(r.CloudflareBlocked, LatencyEntry{URL: url, Latency: o.Latency})
	case StatusInvalidContent:
		r.InvalidContent = append(r.InvalidContent, LatencyEntry{URL: url, Latency: o.Latency})
	case StatusServerError:
		r.ServiceUnavailable = append(r.ServiceUnavailable, LatencyEntry{URL: url, Latency: o.Latency})
	case StatusUnauthorized:
		r.Unauthorized = append(r.Unauthorized, LatencyEntry{URL: url, Latency: o.Latency})
	case StatusTimeout:
		r.TimeoutOrUnreachable = append(r.TimeoutOrUnreachable, url)
	case StatusRequestFail, StatusError, StatusUnexpectedContent:
		r.Failed = append(r.Failed, url)
	default:
		if r.logger != nil {
			r.logger.Warn("Report got unhandled status %s for %s", o.Status, url)
		}
		r.Failed = append(r.Failed, url)
	}
}

func (r *Report) latencyBucket(name string) *LatencyEntries {

	switch name {
	case BucketAvailableHttps:
		return &r.AvailableHttps
	case BucketAvailableHttp:
		return &r.AvailableHttp
	case BucketRateLimited:
		return &r.RateLimited
	case BucketCloudflareBlocked:
		return &r.CloudflareBlocked
	case BucketInvalidContent:
		return &r.InvalidContent
	case BucketServiceUnavailable:
		return &r.ServiceUnavailable
	case BucketUnauthorized:
		return &r.Unauthorized
	}
	return nil
}

func (r *Report) listBucket(name string) *[]string {

	switch name {
	case BucketTimeoutOrUnreachable:
		return &r.TimeoutOrUnreachable
	case BucketFailed:
		return &r.Failed
	}
	return nil
}

// Sort reorders one bucket in place. Latency buckets order by latency with
// unknown latency treated as +infinity, list buckets lexicographically.
// An unknown bucket name is a caller bug.
func (r *Report) Sort(name string, descending bool) error {

	if le := r.latencyBucket(name); le != nil {
		le.sort(descending)
		return nil
	}

	if ls := r.listBucket(name); ls != nil {
		sort.Strings(*ls)
		if descending {
			for i, j := 0, len(*ls)-1; i < j; i, j = i+1, j-1 {
				(*ls)[i], (*ls)[j] = (*ls)[j], (*ls)[i]
			}
		}
		return nil
	}

	return fmt.Errorf("report has no bucket %s", name)
}

// SortAll sorts every bucket ascending.
func (r *Report) SortAll() {

	for _, name := range ReportBuckets {
		r.Sort(name, false)
	}
}

// Count returns the number of entries in one bucket, -1 for unknown names.
func (r *Report) Count(name string) int {

	if le := r.latencyBucket(name); le != nil {
		return len(*le)
	}
	if ls := r.listBucket(name); ls != nil {
		return len(*ls)
	}
	return -1
}

// Entries returns the latency entries of a bucket, nil for list buckets.
func (r *Report) Entries(name string) LatencyEntries {

	if le := r.latencyBucket(name); le != nil {
		return *le
	}
	return nil
}

// URLs returns the raw URL list of a list bucket, nil for latency buckets.
func (r *Report) URLs(name string) []string {

	if ls := r.listBucket(name); ls != nil {
		return *ls
	}
	return nil
}

func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func NewReport(observability *Observability) *Report {

	r := &Report{
		TimeoutOrUnreachable: []string{},
		Failed:               []string{},
	}
	if observability != nil {
		r.logger = observability.Logs()
	}
	return r
}
