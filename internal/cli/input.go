package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// readLine reads one line and trims it. A partial last line before EOF is returned.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask prints prompt and reads the answer.
func ask(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", prompt); err != nil {
		return "", err
	}
	return readLine(r)
}

// passwordReader returns a function reading a secret without echo when in
// is a terminal, and a plain line otherwise (pipes, tests).
func passwordReader(in io.Reader, r *bufio.Reader, w io.Writer) func(prompt string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return func(prompt string) (string, error) {
			if _, err := fmt.Fprintf(w, "%s: ", prompt); err != nil {
				return "", err
			}
			pw, err := readPassword(int(f.Fd()))
			fmt.Fprintln(w)
			if err != nil {
				return "", err
			}
			return string(pw), nil
		}
	}
	return func(prompt string) (string, error) { return ask(r, w, prompt) }
}
