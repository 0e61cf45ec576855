package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ionmd/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSeries(t *testing.T) {
	pts := TimeSeries([]float64{0, 1, 2}, []float64{5, 6, 7, 99})
	require.Len(t, pts, 3)
	assert.Equal(t, analysis.Point{X: 2, Y: 7}, pts[2])
}

func TestPointsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := PointsCSV(&buf, "t", "z", []analysis.Point{{X: 1e-9, Y: 2e-5}, {X: 2e-9, Y: -0.5}})
	require.NoError(t, err)
	assert.Equal(t, "t,z\n1e-09,2e-05\n2e-09,-0.5\n", buf.String())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, WriteFile(path, "x", "v", []analysis.Point{{X: 1, Y: 2}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x,v\n1,2\n", string(data))

	assert.Error(t, WriteFile(path, "x", "v", nil))
	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "a.csv"), "x", "v", []analysis.Point{{}}))
}
