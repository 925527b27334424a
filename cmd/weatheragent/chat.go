package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/weatheragent/internal/router"
)

const (
	userLabel  = "You:"
	agentLabel = "Weather Agent:"
	goodbye    = "Goodbye! Have a great day!"
)

var (
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	agentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	bannerStyle = lipgloss.NewStyle().Bold(true)
)

// runChat reads queries line by line until quit, exit, EOF, or cancellation.
func (a *app) runChat(ctx context.Context) error {
	a.warnDemo()

	fmt.Fprintln(a.out, a.render(bannerStyle, "=== Weather Agent Interactive Session ==="))
	fmt.Fprintln(a.out, "I'm your weather assistant! Ask me about weather, temperature, or rain in any location.")
	fmt.Fprintln(a.out, "Type 'help' for available commands, or 'quit' to exit.")
	fmt.Fprintln(a.out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, scanErr := readLines(ctx, a.in)
	for {
		fmt.Fprint(a.out, a.render(userStyle, userLabel)+" ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			a.say(goodbye)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(a.out)
			return <-scanErr
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			a.say(goodbye)
			return nil
		case "help":
			a.say(router.ToolsHelp())
		default:
			a.say(a.rt.router.Route(ctx, line))
		}
		fmt.Fprintln(a.out)
	}
}

// runExamples routes each example query and prints the pair.
func (a *app) runExamples(ctx context.Context) error {
	fmt.Fprintln(a.out, a.render(bannerStyle, "=== Weather Agent Demo Examples ==="))
	fmt.Fprintln(a.out)

	for _, q := range router.ExampleQueries {
		fmt.Fprintf(a.out, "Example Query: %s\n", q)
		fmt.Fprintf(a.out, "Agent Response: %s\n", a.rt.router.Route(ctx, q))
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *app) say(text string) {
	fmt.Fprintf(a.out, "%s %s\n", a.render(agentStyle, agentLabel), text)
}

func (a *app) render(style lipgloss.Style, s string) string {
	if !a.styled {
		return s
	}
	return style.Render(s)
}

// readLines streams lines from r so the session can also stop on ctx.
// The error channel yields the scanner's error once lines is closed.
func readLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()

	return lines, errc
}
