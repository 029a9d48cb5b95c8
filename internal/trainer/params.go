package trainer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"proofrank/internal/feature"
)

// SaveParams writes the trained weights in the params-file format: one
// "featureName<TAB>weight" line per feature, in dictionary id order.
func SaveParams(w io.Writer, dict *feature.Dictionary, weights feature.Weights) error {
	bw := bufio.NewWriter(w)
	for i, name := range dict.Symbols() {
		v := weights.Get(int32(i + 1))
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", name, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadParams reads a params file, interning unseen feature names into
// dict and setting their weights. The file is unordered. Returns the
// number of weights applied.
func LoadParams(r io.Reader, dict *feature.Dictionary, weights *feature.Weights) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	applied := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\n")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "\t")
		if !ok {
			return applied, fmt.Errorf("params line %d: no tab separator", lineNo)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return applied, fmt.Errorf("params line %d: weight %q: %w", lineNo, value, err)
		}
		id, err := dict.Intern(name)
		if err != nil {
			return applied, fmt.Errorf("params line %d: %w", lineNo, err)
		}
		weights.Set(id, v)
		applied++
	}
	return applied, scanner.Err()
}
