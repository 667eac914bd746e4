package classifier

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultLabels is the 35-word vocabulary of the pretrained model, in the
// exact order of the network's output units. Position i of a confidence
// vector always refers to DefaultLabels[i] (or the configured replacement).
var DefaultLabels = []string{
	"right",
	"eight",
	"cat",
	"tree",
	"backward",
	"learn",
	"bed",
	"happy",
	"go",
	"dog",
	"no",
	"wow",
	"follow",
	"nine",
	"left",
	"stop",
	"three",
	"sheila",
	"one",
	"bird",
	"zero",
	"seven",
	"up",
	"visual",
	"marvin",
	"two",
	"house",
	"down",
	"six",
	"yes",
	"on",
	"five",
	"forward",
	"off",
	"four",
}

// LoadLabels reads a vocabulary file: one label per line, order significant,
// blank lines and #-comments skipped. The ordering must match the model's
// output units exactly; that binding is validated in Load.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("load labels: %s contains no labels", path)
	}
	return labels, nil
}
