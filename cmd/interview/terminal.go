package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// terminalInterviewer relays prompts over a plain terminal: yes/no answers
// typed on stdin, spoken-answer questions printed before capture starts.
type terminalInterviewer struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newTerminalInterviewer(in io.Reader, out io.Writer) *terminalInterviewer {
	return &terminalInterviewer{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// AskYesNo prompts until the answer is recognizably yes or no.
func (t *terminalInterviewer) AskYesNo(prompt string) (bool, error) {
	for {
		fmt.Fprintf(t.out, "%s [y/n]: ", prompt)
		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				return false, err
			}
			return false, io.EOF
		}
		switch strings.ToLower(strings.TrimSpace(t.scanner.Text())) {
		case "y", "yes", "j", "ja":
			return true, nil
		case "n", "no", "nein":
			return false, nil
		}
		fmt.Fprintln(t.out, "Please answer yes or no.")
	}
}

// ShowQuestion displays the follow-up question and announces that recording
// starts, stopping automatically after a pause.
func (t *terminalInterviewer) ShowQuestion(question string) error {
	fmt.Fprintf(t.out, "\n%s\n", question)
	fmt.Fprintln(t.out, "(Recording... answer out loud; recording stops after a few seconds of silence.)")
	return nil
}

func (t *terminalInterviewer) Notify(message string) {
	fmt.Fprintln(t.out, message)
}
