package planfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Line is one parsed plan line.
type Line struct {
	Table  string // [schema].[table]
	Column string // Column name or "-1"
}

// Parse reads a plan file. Each line is split at the first occurrence of
// "]"+delimiter, so column names may contain the delimiter.
// Blank lines are skipped.
func Parse(r io.Reader, delimiter string) ([]Line, error) {
	if delimiter == "" {
		return nil, fmt.Errorf("empty delimiter")
	}

	var lines []Line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sep := "]" + delimiter

	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		idx := strings.Index(text, sep)
		if idx < 0 {
			return nil, fmt.Errorf("line %d: missing %q delimiter", n, delimiter)
		}
		lines = append(lines, Line{
			Table:  text[:idx+1],
			Column: text[idx+len(sep):],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return lines, nil
}

// ReadFile parses the plan file at path.
func ReadFile(path, delimiter string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, delimiter)
}
