package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
)

// Asker reads one answer. Empty input means default.
type Asker interface {
	Ask(question, def string, choices []string) (string, error)
}

// NewAsker returns interactive prompt with completion when stdin is terminal,
// otherwise reads plain lines from stdin.
func NewAsker() Asker {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return PromptAsker{}
	}
	return NewLineAsker(os.Stdin, os.Stderr)
}

type PromptAsker struct{}

func (PromptAsker) Ask(question, def string, choices []string) (string, error) {
	suggests := make([]prompt.Suggest, 0, len(choices))
	for _, c := range choices {
		suggests = append(suggests, prompt.Suggest{Text: c})
	}
	complete := func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
	}
	line := strings.TrimSpace(prompt.Input(formatQuestion(question, def), complete))
	if line == "" {
		return def, nil
	}
	return line, nil
}

type LineAsker struct {
	r *bufio.Reader
	w io.Writer
}

// NewLineAsker echoes questions to w, w may be nil.
func NewLineAsker(r io.Reader, w io.Writer) *LineAsker {
	return &LineAsker{r: bufio.NewReader(r), w: w}
}

func (self *LineAsker) Ask(question, def string, choices []string) (string, error) {
	if self.w != nil {
		q := formatQuestion(question, def)
		if len(choices) != 0 {
			q = fmt.Sprintf("%s(%s) ", q, strings.Join(choices, "|"))
		}
		io.WriteString(self.w, q)
	}
	line, err := self.r.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		if err == io.EOF {
			return "", errors.Errorf("input closed at question '%s'", question)
		}
		return "", errors.Annotate(err, "read answer")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

func formatQuestion(question, def string) string {
	if def == "" {
		return question + ": "
	}
	return fmt.Sprintf("%s [%s]: ", question, def)
}
