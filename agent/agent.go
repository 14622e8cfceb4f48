// Package agent is a chat assistant that reviews the portfolio with Gemini.
//
// A facilitator leads the conversation and consults experts: an analyst that
// searches the news, and an accountant that reads the portfolio.
package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

// Agent is an interactive chat session with the facilitator.
type Agent struct {
	w           io.Writer
	r           *bufio.Reader
	Facilitator *Expert
	Experts     []*Expert
}

// New creates an agent whose facilitator runs on 'model' and consults 'experts'.
// The conversation is read from 'r' and written to 'w'.
func New(w io.Writer, r io.Reader, model string, experts ...*Expert) *Agent {
	return &Agent{
		w:           w,
		r:           bufio.NewReader(r),
		Experts:     experts,
		Facilitator: newFacilitator(model, experts...),
	}
}

// Start opens the chats of the experts and of the facilitator.
func (a *Agent) Start(ctx context.Context, client *genai.Client) error {
	for _, e := range append(a.Experts, a.Facilitator) {
		if err := e.Start(ctx, client); err != nil {
			return err
		}
	}
	return nil
}

const prompt = "assist> "

// isExit returns true for the words that end the session.
func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "bye", "exit", "quit":
		return true
	}
	return false
}

// Run chats until the user says bye or closes the input. 'questions' are
// asked first, as if the user typed them.
func (a *Agent) Run(ctx context.Context, client *genai.Client, questions ...string) error {
	if !a.Facilitator.Started() {
		if err := a.Start(ctx, client); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.w, "Welcome to cpt portfolio assist. Type 'bye' to exit.")

	for {
		fmt.Fprint(a.w, prompt)
		var input string
		if len(questions) > 0 {
			input, questions = questions[0], questions[1:]
			fmt.Fprintln(a.w, input)
		} else {
			line, err := a.r.ReadString('\n')
			if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
				fmt.Fprintln(a.w)
				return nil
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			input = line
		}

		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case isExit(input):
			return nil
		}

		answer, err := a.Facilitator.Ask(ctx, &genai.Part{Text: input})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.w, answer)
	}
}
