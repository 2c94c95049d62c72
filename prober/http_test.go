package prober

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testObs() *common.Observability {
	return common.NewObservability(sreCommon.NewLogs(), sreCommon.NewMetrics())
}

func testProber(t *testing.T, maxLatency int) *Http {

	rules, err := common.NewValidationRules([]string{"你好", "世界"}, `[\[\]{}()0-9]]`)
	require.NoError(t, err)

	h := NewHttp(&HttpOptions{
		Method:     http.MethodPost,
		Payload:    []byte(`{"text":"Hello, world!","source_lang":"EN","target_lang":"ZH"}`),
		MaxLatency: maxLatency,
	}, rules, testObs())
	require.NotNil(t, h)
	return h
}

func TestHttpProbeClassification(t *testing.T) {

	tests := []struct {
		name    string
		code    int
		body    string
		status  common.ProbeStatus
		latency bool
	}{
		{"success", 200, `{"code":200,"data":"你好，世界！"}`, common.StatusSuccess, true},
		{"invalid content", 200, `{"code":200,"data":"Hello"}`, common.StatusInvalidContent, true},
		{"cloudflare", 200, `<html>Attention Required! | Cloudflare</html>`, common.StatusCloudflare, true},
		{"unexpected content", 200, `<html>it works</html>`, common.StatusUnexpectedContent, true},
		{"rate limited", 429, "", common.StatusRateLimited, true},
		{"unauthorized", 401, "", common.StatusUnauthorized, true},
		{"server error", 503, "", common.StatusServerError, true},
		{"unhandled status", 418, "", common.StatusError, true},
	}

	h := testProber(t, 60)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			o := h.Probe(server.URL)
			assert.Equal(t, tt.status, o.Status)
			assert.Equal(t, tt.code, o.Code)
			if tt.latency {
				assert.GreaterOrEqual(t, o.Latency, float64(0))
			}
		})
	}
}

func TestHttpProbeSendsRequest(t *testing.T) {

	var method, contentType string
	var body []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		body = make([]byte, r.ContentLength)
		r.Body.Read(body)
		w.Write([]byte(`{"data":"你好世界"}`))
	}))
	defer server.Close()

	rules, err := common.NewValidationRules([]string{"你好"}, "")
	require.NoError(t, err)

	h := NewHttp(&HttpOptions{
		Headers: map[string]string{"Content-Type": "application/json"},
		Payload: []byte(`{"text":"Hello"}`),
	}, rules, testObs())
	require.NotNil(t, h)

	o := h.Probe(server.URL)
	assert.Equal(t, common.StatusSuccess, o.Status)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, `{"text":"Hello"}`, string(body))
}

func TestHttpProbeConnectionRefused(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	h := testProber(t, 60)

	o := h.Probe(url)
	assert.Equal(t, common.StatusRequestFail, o.Status)
	assert.Equal(t, common.LatencyUnknown, o.Latency)
}

func TestHttpProbeTimeout(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer server.Close()

	h := testProber(t, 1)

	o := h.Probe(server.URL)
	assert.Equal(t, common.StatusTimeout, o.Status)
	assert.Equal(t, common.LatencyUnknown, o.Latency)
}

func TestNewHttpNoRules(t *testing.T) {

	h := NewHttp(&HttpOptions{}, nil, testObs())
	assert.Nil(t, h)
}
