package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/ionmd/internal/trajectory"
)

type ExportData struct {
	NumIons   int            `json:"num_ions"`
	Dt        float64        `json:"dt"`
	TMax      float64        `json:"t_max"`
	Records   int            `json:"records"`
	Times     []float64      `json:"times"`
	Positions [][][3]float64 `json:"positions"`
}

// ExportJSON converts a binary trajectory to indented JSON, keeping every
// stride-th record. A stride below one keeps them all.
func ExportJSON(w io.Writer, trajPath string, stride int) error {
	rd, err := trajectory.Open(trajPath)
	if err != nil {
		return err
	}
	defer rd.Close()

	if stride < 1 {
		stride = 1
	}

	h := rd.Header()
	data := ExportData{NumIons: int(h.NumIons), Dt: h.Dt, TMax: h.TMax}
	for i := 0; ; i++ {
		t, frame, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if i%stride != 0 {
			continue
		}
		pos := make([][3]float64, len(frame))
		for j, x := range frame {
			pos[j] = [3]float64{x.X, x.Y, x.Z}
		}
		data.Times = append(data.Times, t)
		data.Positions = append(data.Positions, pos)
	}
	data.Records = len(data.Times)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSONFile(path, trajPath string, stride int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, trajPath, stride)
}
