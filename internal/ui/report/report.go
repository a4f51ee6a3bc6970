// Package report renders batch results and writes query artifacts.
package report

import (
	"fmt"
	"io"
	"strings"

	"astcensus/internal/core/config"
	"astcensus/internal/core/errors"
	"astcensus/internal/core/ports"
	"astcensus/internal/shared/util"
)

// Render formats results; format is one of the config Format* values.
func Render(format string, results []ports.AggregateResult) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", config.FormatText:
		return RenderText(results), nil
	case config.FormatTable:
		return RenderTable(results), nil
	case config.FormatJSON:
		return RenderJSON(results)
	case config.FormatTSV:
		return RenderTSV(results), nil
	default:
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unknown report format %q", format))
	}
}

// Writer is a ports.ReportSink writing to Out and, when File is set, to
// that file as well.
type Writer struct {
	Out    io.Writer
	Format string
	File   string
}

func (w *Writer) Report(results []ports.AggregateResult) error {
	data, err := Render(w.Format, results)
	if err != nil {
		return err
	}
	if w.Out != nil {
		if _, err := w.Out.Write(data); err != nil {
			return errors.Wrap(err, errors.CodeIO, "write report")
		}
	}
	if w.File != "" {
		if err := util.WriteFileWithDirs(w.File, data, 0o644); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeIO, "write report file"), errors.CtxPath, w.File)
		}
	}
	return nil
}

// errorSummary is the marker appended to a spec that had errors.
func errorSummary(r ports.AggregateResult) string {
	if !r.HasErrors() {
		return ""
	}
	label := "ERROR"
	if !r.Failed {
		label = "PARTIAL"
	}
	if len(r.Errors) == 0 {
		return label
	}
	first := r.Errors[0].Error()
	if len(r.Errors) == 1 {
		return fmt.Sprintf("%s: %s", label, first)
	}
	return fmt.Sprintf("%s (%d errors): %s", label, len(r.Errors), first)
}
