package report

import (
	"bytes"
	"path/filepath"

	"astcensus/internal/core/errors"
	"astcensus/internal/engine/ast"
	"astcensus/internal/shared/util"
)

// ArtifactWriter is a ports.ArtifactSink writing indented, field-ordered
// JSON. Relative paths resolve against Dir.
type ArtifactWriter struct {
	Dir string
}

func (w ArtifactWriter) WriteArtifact(path string, node *ast.Node) error {
	var buf bytes.Buffer
	if err := ast.Encode(&buf, node); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode artifact")
	}
	target := path
	if w.Dir != "" && !filepath.IsAbs(path) {
		target = filepath.Join(w.Dir, path)
	}
	return util.WriteFileWithDirs(target, buf.Bytes(), 0o644)
}
