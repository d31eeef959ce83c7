package detection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LabelTable maps model class IDs to display names. It is built once and
// only read afterwards.
type LabelTable struct {
	names map[int]string
}

// NewLabelTable copies names into a new table.
func NewLabelTable(names map[int]string) LabelTable {
	copied := make(map[int]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	return LabelTable{names: copied}
}

// Lookup returns the name for classID and whether it exists.
func (t LabelTable) Lookup(classID int) (string, bool) {
	name, ok := t.names[classID]
	return name, ok
}

// Len returns the number of labels in the table.
func (t LabelTable) Len() int {
	return len(t.names)
}

// LoadLabels reads a labels file. Each non-empty line is either "<id> <name>"
// or just "<name>", in which case the id is the line's position counted from 0.
func LoadLabels(file string) (LabelTable, error) {
	f, err := os.Open(file)
	if err != nil {
		return LabelTable{}, fmt.Errorf("error opening labels file: %w", err)
	}
	defer f.Close()

	return ParseLabels(f)
}

// ParseLabels reads labels in the LoadLabels format from r.
func ParseLabels(r io.Reader) (LabelTable, error) {
	names := make(map[int]string)
	scanner := bufio.NewScanner(r)

	index := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, name := index, line
		if fields := strings.SplitN(line, " ", 2); len(fields) == 2 {
			if n, err := strconv.Atoi(strings.TrimSuffix(fields[0], ":")); err == nil {
				id, name = n, strings.TrimSpace(fields[1])
			}
		}

		names[id] = name
		index++
	}

	if err := scanner.Err(); err != nil {
		return LabelTable{}, fmt.Errorf("error reading labels: %w", err)
	}

	return LabelTable{names: names}, nil
}
