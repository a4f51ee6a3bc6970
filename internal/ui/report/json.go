package report

import (
	"encoding/json"

	"astcensus/internal/core/errors"
	"astcensus/internal/core/ports"
)

type jsonFile struct {
	Path        string `json:"path"`
	Language    string `json:"language,omitempty"`
	SourceLines int    `json:"source_lines"`
	NodeCount   int    `json:"node_count"`
	Scoped      bool   `json:"scoped"`
	Skipped     bool   `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
}

type jsonSpec struct {
	Name             string     `json:"name"`
	Glob             string     `json:"glob"`
	TotalNodeCount   int        `json:"total_node_count"`
	TotalSourceLines int        `json:"total_source_lines"`
	Failed           bool       `json:"failed"`
	Errors           []string   `json:"errors,omitempty"`
	Files            []jsonFile `json:"files"`
}

// RenderJSON encodes results with per-file detail.
func RenderJSON(results []ports.AggregateResult) ([]byte, error) {
	out := make([]jsonSpec, 0, len(results))
	for _, r := range results {
		spec := jsonSpec{
			Name:             r.Name,
			Glob:             r.Glob,
			TotalNodeCount:   r.TotalNodeCount,
			TotalSourceLines: r.TotalSourceLines,
			Failed:           r.Failed,
			Files:            make([]jsonFile, 0, len(r.Files)),
		}
		for _, err := range r.Errors {
			spec.Errors = append(spec.Errors, err.Error())
		}
		for _, f := range r.Files {
			jf := jsonFile{
				Path:        f.Path,
				Language:    f.Language,
				SourceLines: f.SourceLines,
				NodeCount:   f.NodeCount,
				Scoped:      f.Scoped,
				Skipped:     f.Skipped,
			}
			if f.Err != nil {
				jf.Error = f.Err.Error()
				jf.ErrorCode = string(errors.CodeOf(f.Err))
			}
			spec.Files = append(spec.Files, jf)
		}
		out = append(out, spec)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode json report")
	}
	return append(data, '\n'), nil
}
