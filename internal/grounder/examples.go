package grounder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBadExample wraps malformed examples-file lines. A bad line is skipped
// and counted by callers, never fatal for the file.
var ErrBadExample = errors.New("grounder: malformed example")

// LabeledQuery is one examples-file line: a query plus its labeled ground
// solutions. Either label set may be empty.
type LabeledQuery struct {
	Query string
	Pos   []string
	Neg   []string
}

// ParseExamples reads the examples format: one query per line, followed by
// zero or more tab-separated "+solution" / "-solution" label fields.
// Malformed lines are returned as errors alongside the good ones so the
// caller can count skips without losing the batch.
func ParseExamples(r io.Reader) ([]LabeledQuery, []error) {
	var out []LabeledQuery
	var bad []error
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\n")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lq, err := parseExampleLine(line)
		if err != nil {
			bad = append(bad, fmt.Errorf("line %d: %w", lineNo, err))
			continue
		}
		out = append(out, lq)
	}
	if err := scanner.Err(); err != nil {
		bad = append(bad, err)
	}
	return out, bad
}

func parseExampleLine(line string) (LabeledQuery, error) {
	fields := strings.Split(line, "\t")
	lq := LabeledQuery{Query: strings.TrimSpace(fields[0])}
	if lq.Query == "" {
		return lq, fmt.Errorf("%w: empty query", ErrBadExample)
	}
	for _, f := range fields[1:] {
		if f == "" {
			continue
		}
		switch f[0] {
		case '+':
			lq.Pos = append(lq.Pos, f[1:])
		case '-':
			lq.Neg = append(lq.Neg, f[1:])
		default:
			return lq, fmt.Errorf("%w: label %q lacks +/- sign", ErrBadExample, f)
		}
	}
	return lq, nil
}
