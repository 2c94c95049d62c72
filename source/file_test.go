package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testObs() *common.Observability {
	return common.NewObservability(sreCommon.NewLogs(), sreCommon.NewMetrics())
}

func testSourceRules() *common.EndpointRules {
	return &common.EndpointRules{
		DefaultPort: 1188,
		BasePaths:   []string{"v1"},
	}
}

func TestFileLoad(t *testing.T) {

	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "example.com\n\nbad host\n1.2.3.4:8080\n  other.com  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	f := NewFile(&FileOptions{
		Paths: []string{"missing.txt", path},
		Rules: testSourceRules(),
	}, testObs())
	require.NotNil(t, f)

	sr, err := f.Load()
	require.NoError(t, err)
	require.Equal(t, 3, sr.Endpoints.Len())

	hosts := []string{}
	for _, e := range sr.Endpoints.Items() {
		hosts = append(hosts, e.Host)
	}
	assert.Equal(t, []string{"example.com", "1.2.3.4", "other.com"}, hosts)
}

func TestFileLoadMissing(t *testing.T) {

	f := NewFile(&FileOptions{
		Paths: []string{filepath.Join(t.TempDir(), "nope.txt")},
		Rules: testSourceRules(),
	}, testObs())
	require.NotNil(t, f)

	_, err := f.Load()
	require.Error(t, err)
}

func TestNewFileNoPaths(t *testing.T) {

	f := NewFile(&FileOptions{Rules: testSourceRules()}, testObs())
	assert.Nil(t, f)
}
