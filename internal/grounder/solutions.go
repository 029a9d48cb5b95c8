package grounder

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"proofrank/internal/walk"
)

// WriteSolutions appends one query's ranked answers in the solutions-file
// format: a "# proved" header followed by rank, score and solution text,
// ranks ascending from 1 and scores summing to one across the listed
// solutions.
func WriteSolutions(w io.Writer, g *Grounded, ranked []walk.Scored, elapsed time.Duration) error {
	if _, err := fmt.Fprintf(w, "# proved %d\t%s\t%s\n", len(ranked), g.Query, elapsed.Round(time.Microsecond)); err != nil {
		return err
	}
	for i, s := range ranked {
		text := ""
		if int(s.Node) < len(g.NodeText) {
			text = g.NodeText[s.Node]
		}
		if text == "" {
			text = "node:" + strconv.Itoa(int(s.Node))
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, strconv.FormatFloat(s.Score, 'g', -1, 64), text); err != nil {
			return err
		}
	}
	return nil
}
