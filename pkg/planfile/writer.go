package planfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

// DefaultDelimiter separates the table from the chosen column on each line.
const DefaultDelimiter = "%"

// Format writes one line per entry in plan order:
//
//	[schema].[table]<delimiter><column or -1>
//
// No header, no summary, no escaping.
func Format(w io.Writer, plan *models.Plan, delimiter string) error {
	bw := bufio.NewWriter(w)
	for _, e := range plan.Entries {
		if _, err := fmt.Fprintf(bw, "%s%s%s\n", e.Table, delimiter, e.ChosenColumn); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Write serializes the plan to path. Either the whole plan lands or the
// previous file (if any) is left untouched.
func Write(path string, plan *models.Plan, delimiter string) error {
	var buf bytes.Buffer
	if err := Format(&buf, plan, delimiter); err != nil {
		return &apperrors.SerializationError{Path: path, Err: err}
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return &apperrors.SerializationError{Path: path, Err: err}
	}
	return nil
}

// writeAtomic writes data to a temp file beside path, syncs it and renames
// it over path.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
