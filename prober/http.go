package prober

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
	"github.com/tidwall/gjson"
)

type HttpOptions struct {
	Method     string
	Headers    map[string]string
	Payload    []byte
	MaxLatency int
}

// Http probes one concrete URL with a single request and classifies the
// response. Certificate verification is enabled for https URLs only.
type Http struct {
	options  *HttpOptions
	logger   sreCommon.Logger
	rules    *common.ValidationRules
	secure   *http.Client
	insecure *http.Client
}

const HttpProberName = "Http"

const httpDefaultMaxLatency = 60

var cloudflareMarkers = []string{"Attention Required!", "Cloudflare"}

func (h *Http) Name() string {
	return HttpProberName
}

func (h *Http) maxLatency() int {

	if h.options.MaxLatency > 0 {
		return h.options.MaxLatency
	}
	return httpDefaultMaxLatency
}

// timeout is max latency plus a cushion, so a slow but answered request is
// distinguishable from a client that gave up
func (h *Http) timeout() time.Duration {

	max := h.maxLatency()
	cushion := (max + 2) / 3
	if cushion < 1 {
		cushion = 1
	}
	return time.Duration(max+cushion) * time.Second
}

func isTimeout(err error) bool {

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (h *Http) classifyBody(url, body string, latency float64, now time.Time) common.ProbeOutcome {

	if !gjson.Valid(body) {

		for _, marker := range cloudflareMarkers {
			if strings.Contains(body, marker) {
				h.logger.Debug("Http got Cloudflare challenge from %s", url)
				return common.ProbeOutcome{
					Status:    common.StatusCloudflare,
					Code:      http.StatusOK,
					Data:      body,
					Latency:   latency,
					Timestamp: now,
				}
			}
		}

		h.logger.Debug("Http cannot parse response from %s", url)
		return common.ProbeOutcome{
			Status:    common.StatusUnexpectedContent,
			Code:      http.StatusOK,
			Data:      body,
			Latency:   latency,
			Timestamp: now,
		}
	}

	data := gjson.Get(body, "data").String()

	if !h.rules.Validate(data) {
		h.logger.Debug("Http got invalid content from %s: %s", url, data)
		return common.ProbeOutcome{
			Status:    common.StatusInvalidContent,
			Code:      http.StatusOK,
			Data:      data,
			Latency:   latency,
			Timestamp: now,
		}
	}

	return common.ProbeOutcome{
		Status:    common.StatusSuccess,
		Code:      http.StatusOK,
		Data:      data,
		Latency:   latency,
		Timestamp: now,
	}
}

// Probe issues exactly one request, no retries.
func (h *Http) Probe(url string) common.ProbeOutcome {

	client := h.secure
	if common.IsHttpURL(url) {
		client = h.insecure
	}

	method := h.options.Method
	if utils.IsEmpty(method) {
		method = http.MethodPost
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(h.options.Payload))
	if err != nil {
		return common.ProbeOutcome{
			Status:    common.StatusRequestFail,
			Data:      fmt.Sprintf("request to %s failed: %s", url, err),
			Latency:   common.LatencyUnknown,
			Timestamp: time.Now(),
		}
	}
	for k, v := range h.options.Headers {
		req.Header.Set(k, v)
	}

	t1 := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(t1).Seconds()
	now := time.Now()

	if err != nil {

		if isTimeout(err) {
			h.logger.Debug("Http timeout accessing %s", url)
			return common.ProbeOutcome{
				Status:    common.StatusTimeout,
				Data:      fmt.Sprintf("timeout accessing %s", url),
				Latency:   common.LatencyUnknown,
				Timestamp: now,
			}
		}

		h.logger.Debug("Http request to %s failed: %s", url, err)
		return common.ProbeOutcome{
			Status:    common.StatusRequestFail,
			Data:      fmt.Sprintf("request to %s failed: %s", url, err),
			Latency:   common.LatencyUnknown,
			Timestamp: now,
		}
	}
	defer resp.Body.Close()

	if latency < 0 || latency > float64(h.maxLatency()) {
		h.logger.Warn("Http got unrealistic latency %.2fs for %s", latency, url)
		latency = common.LatencyUnknown
	}

	code := resp.StatusCode

	switch {
	case code == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return common.ProbeOutcome{
				Status:    common.StatusRequestFail,
				Code:      code,
				Data:      fmt.Sprintf("request to %s failed: %s", url, err),
				Latency:   common.LatencyUnknown,
				Timestamp: now,
			}
		}
		return h.classifyBody(url, string(body), latency, now)

	case code == http.StatusTooManyRequests:
		h.logger.Warn("Http rate limit exceeded (429) at %s", url)
		return common.ProbeOutcome{
			Status:    common.StatusRateLimited,
			Code:      code,
			Data:      fmt.Sprintf("rate limit exceeded (429) at %s", url),
			Latency:   latency,
			Timestamp: now,
		}

	case code == http.StatusUnauthorized:
		h.logger.Warn("Http unauthorized (401) at %s", url)
		return common.ProbeOutcome{
			Status:    common.StatusUnauthorized,
			Code:      code,
			Data:      fmt.Sprintf("unauthorized (401) at %s", url),
			Latency:   latency,
			Timestamp: now,
		}

	case code >= 500 && code < 600:
		h.logger.Warn("Http server error (%d) at %s", code, url)
		return common.ProbeOutcome{
			Status:    common.StatusServerError,
			Code:      code,
			Data:      fmt.Sprintf("HTTP error %d at %s", code, url),
			Latency:   latency,
			Timestamp: now,
		}
	}

	h.logger.Warn("Http unhandled status code (%d) at %s", code, url)
	return common.ProbeOutcome{
		Status:    common.StatusError,
		Code:      code,
		Data:      fmt.Sprintf("unhandled HTTP status code %d at %s", code, url),
		Latency:   latency,
		Timestamp: now,
	}
}

func NewHttp(options *HttpOptions, rules *common.ValidationRules, observability *common.Observability) *Http {

	logger := observability.Logs()
	if rules == nil {
		logger.Debug("Http validation rules are not defined. Skipped.")
		return nil
	}

	timeout := (&Http{options: options}).timeout()

	secure := &http.Client{
		Timeout: timeout,
	}

	insecure := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	return &Http{
		options:  options,
		logger:   logger,
		rules:    rules,
		secure:   secure,
		insecure: insecure,
	}
}
