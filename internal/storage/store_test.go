package storage

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/ionmd/internal/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, dir, err := st.Create("demo")
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.Equal(t, st.Dir(runID), dir)

	final := trajectory.Frame{{X: 1.5e-6, Z: -2e-5}, {Y: 3, Z: 2e-5}}
	meta := RunMetadata{
		ID: runID, Name: "demo", Seed: 9, Dt: 1e-9, TMax: 1e-6,
		Ions: 2, Steps: 1000, Frames: 1000, Status: "finished",
		Metrics: map[string]float64{"in_bounds": 1},
	}
	require.NoError(t, st.Save(meta, final))

	got, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)
	assert.Equal(t, uint64(9), got.Seed)
	assert.Equal(t, 1000, got.Steps)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, 1.0, got.Metrics["in_bounds"])

	frame, err := st.LoadFinal(runID)
	require.NoError(t, err)
	assert.Equal(t, final, frame)
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"b", "a"} {
		id, _, err := st.Create(name)
		require.NoError(t, err)
		meta := RunMetadata{ID: id, Name: name, Timestamp: base.Add(time.Duration(-i) * time.Hour)}
		require.NoError(t, st.Save(meta, nil))
	}

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].Name, "oldest first")
}

func TestStoreList_Missing(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traj.bin")
	fw, err := trajectory.Create(path, trajectory.NewHeader(1, 1, 4))
	require.NoError(t, err)
	require.NoError(t, fw.WriteFrames([]trajectory.Frame{{{X: 1}}, {{X: 2}}, {{X: 3}}, {{X: 4}}}))
	require.NoError(t, fw.Close())

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, path, 2))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, 2, data.Records)
	assert.Equal(t, []float64{1, 3}, data.Times)
	assert.Equal(t, [][][3]float64{{{1, 0, 0}}, {{3, 0, 0}}}, data.Positions)
}
