package reporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YuCat-OVO/DApi/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateReport(t *testing.T) {

	path := filepath.Join(t.TempDir(), "report.txt")

	tp := NewTemplate(TemplateOptions{
		Content: `available: {{ len .AvailableHttps }}{{ range .AvailableHttps }} {{ .URL }}{{ end }}, failed: {{ len .Failed }}`,
		Output:  path,
	}, testObs())
	require.NotNil(t, tp)

	r := common.NewReport(testObs())
	r.AddResult("https://a.com:443/translate", common.ProbeOutcome{Status: common.StatusSuccess, Latency: 0.2})
	r.AddResult("https://b.com:443/translate", common.ProbeOutcome{Status: common.StatusRequestFail})

	require.NoError(t, tp.Report(r))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "available: 1 https://a.com:443/translate, failed: 1", string(b))
}

func TestTemplateReportBadContent(t *testing.T) {

	tp := NewTemplate(TemplateOptions{Content: `{{ .NoSuchMethod 1 }}`}, testObs())
	if tp == nil {
		return
	}
	require.Error(t, tp.Report(common.NewReport(testObs())))
}

func TestNewTemplateNoContent(t *testing.T) {

	tp := NewTemplate(TemplateOptions{}, testObs())
	assert.Nil(t, tp)
}
