package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/inctrl/inctrl-go/cmd/inctrl/commands"
	"github.com/inctrl/inctrl-go/pkg/scpi"
)

// shell is the interactive SCPI console.
type shell struct {
	cmd scpi.Commander
	rl  *readline.Instance
}

func newShell(cmd scpi.Commander, address string) (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          address + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &shell{cmd: cmd, rl: rl}, nil
}

// Stderr returns a writer that coordinates with the readline prompt.
func (s *shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Run reads lines until quit, EOF or ctx is done.
func (s *shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	out := s.rl.Stdout()
	fmt.Fprint(out, commands.ShellHelp)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			continue
		case "help":
			fmt.Fprint(out, commands.ShellHelp)
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}

		reply, err := commands.Exec(s.cmd, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if reply != "" {
			fmt.Fprintln(out, reply)
		}
	}
}
