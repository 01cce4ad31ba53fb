package textract

import (
	"bufio"
	"io"
	"strings"
)

// TextExtractor handles plain text files. Runs of blank lines collapse to
// one and trailing whitespace is dropped.
type TextExtractor struct{}

func (e *TextExtractor) Extract(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out blocks
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			out.add(current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	out.add(current.String())

	return out.String(), nil
}
