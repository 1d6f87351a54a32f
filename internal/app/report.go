package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/lanewatch/lanewatch/internal/pipeline"
)

// WriteResult prints a run summary for the one-shot commands
func WriteResult(w io.Writer, res pipeline.RunResult) error {
	numbers := "none"
	if len(res.Numbers) > 0 {
		numbers = strings.Join(res.Numbers, ", ")
	}

	lines := []string{
		fmt.Sprintf("run:       %s", res.RunID),
		fmt.Sprintf("outcome:   %s", res.Outcome),
		fmt.Sprintf("numbers:   %s", numbers),
		fmt.Sprintf("persisted: %d", res.Persisted),
	}
	if res.ArchivedPath != "" {
		lines = append(lines, fmt.Sprintf("image:     %s", res.ArchivedPath))
	}
	if res.RawPath != "" {
		lines = append(lines, fmt.Sprintf("raw image: %s", res.RawPath))
	}
	for _, e := range res.Errors {
		lines = append(lines, fmt.Sprintf("error:     %s", e.Error()))
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
