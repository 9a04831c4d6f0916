package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/history"
	"github.com/nadzzz/cutline/internal/session"
)

func newReplCmd(configFile *string) *cobra.Command {
	var (
		preset string
		mode   string
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive console against an in-memory project",
		Long: `Type editing commands at the prompt. The project starts from a preset
selection context; switch with :ctx <items|items2|tracks|time|none>.

Console commands:
  :ctx [preset|show]   show or switch the selection context
  :history             print the session history
  :undo                undo the last applied command
  :reset               clear history and conversational state
  :mode <mode>         immediate or preview
  q, quit, exit        leave`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logs := config.SetupLogging(cfg.Logging)
			defer logs.Close()

			p, err := buildPlanner(cmd.Context(), cfg.Planner, nil)
			if err != nil {
				return err
			}
			m, err := session.ParseMode(mode)
			if err != nil {
				return err
			}
			proj, ok := daw.Preset(preset)
			if !ok {
				return fmt.Errorf("unknown preset %q (available: %s)", preset, strings.Join(daw.PresetNames(), ", "))
			}
			r := &repl{
				in:          os.Stdin,
				out:         cmd.OutOrStdout(),
				project:     proj,
				interactive: term.IsTerminal(int(os.Stdin.Fd())),
				session: session.New(proj, p, session.Options{
					Mode:         m,
					HistoryLimit: cfg.Session.HistoryLimit,
				}),
			}
			return r.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&preset, "ctx", "items", "initial selection context preset")
	cmd.Flags().StringVar(&mode, "mode", "preview", "execution mode: immediate or preview")
	return cmd
}

type repl struct {
	in          io.Reader
	out         io.Writer
	session     *session.Session
	project     *daw.Project
	interactive bool
	lines       *bufio.Scanner
}

func (r *repl) printf(format string, args ...any) { fmt.Fprintf(r.out, format, args...) }

// readLine shows prompt on terminals and returns the next trimmed line.
func (r *repl) readLine(prompt string) (string, bool) {
	if r.interactive {
		r.printf("%s", prompt)
	}
	if !r.lines.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.lines.Text()), true
}

func (r *repl) run(ctx context.Context) error {
	r.lines = bufio.NewScanner(r.in)
	r.printf("cutline %s (planner: %s, mode: %s)\n", version, r.session.PlannerName(), r.session.Mode())
	r.printf("Type commands. q to quit.\n")
	r.printf("Use :ctx <%s> to switch the selection context.\n", strings.Join(daw.PresetNames(), "|"))
	r.printf("Current: %s\n", r.session.Context().Summary())

	for {
		line, ok := r.readLine("> ")
		if !ok {
			return r.lines.Err()
		}
		switch {
		case line == "":
			continue
		case line == "q" || line == "quit" || line == "exit":
			return nil
		case strings.HasPrefix(line, ":"):
			r.console(line)
			continue
		}
		r.show(ctx, r.session.Submit(ctx, line, history.RoleUser))
	}
}

func (r *repl) console(line string) {
	parts := strings.Fields(line)
	switch parts[0] {
	case ":ctx":
		r.switchContext(parts[1:])
	case ":history":
		for _, e := range r.session.History() {
			r.printf("[%s] %-9s %s\n", e.At.Format("15:04:05"), e.Role, e.Text)
		}
	case ":undo":
		r.printf("%s\n", r.session.Undo().Message)
	case ":reset":
		r.session.Reset()
		r.printf("Session reset.\n")
	case ":mode":
		if len(parts) != 2 {
			r.printf("Usage: :mode <immediate|preview>\n")
			return
		}
		m, err := session.ParseMode(parts[1])
		if err != nil {
			r.printf("%v\n", err)
			return
		}
		r.session.SetMode(m)
		r.printf("Mode: %s\n", m)
	default:
		r.printf("Unknown console command %s\n", parts[0])
	}
}

func (r *repl) switchContext(args []string) {
	available := strings.Join(daw.PresetNames(), ", ")
	if len(args) == 0 || (len(args) == 1 && args[0] == "show") {
		r.printf("Context presets: %s\n", available)
		r.printf("Current: %s\n", r.session.Context().Summary())
		return
	}
	if len(args) != 1 {
		r.printf("Usage: :ctx <%s>\n", strings.Join(daw.PresetNames(), "|"))
		return
	}
	name := strings.ToLower(args[0])
	fresh, ok := daw.Preset(name)
	if !ok {
		r.printf("Unknown context preset: %s\n", name)
		r.printf("Available: %s\n", available)
		return
	}
	r.project.Replace(fresh)
	r.printf("Switched context -> %s: %s\n", name, r.session.Context().Summary())
}

func (r *repl) show(ctx context.Context, out session.Outcome) {
	if out.Status != session.StatusPending {
		r.printf("%s\n", out.Message)
		return
	}
	r.printf("%s\n", out.Preview)
	if out.Diff != "" {
		r.printf("%s\n", out.Diff)
	}
	answer, ok := r.readLine("Apply? (y/n) ")
	if ok && (strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")) {
		applied, err := r.session.Apply(ctx)
		if err != nil {
			r.printf("%v\n", err)
			return
		}
		r.printf("%s\n", applied.Message)
		return
	}
	discarded, err := r.session.Discard()
	if err != nil {
		r.printf("%v\n", err)
		return
	}
	r.printf("%s\n", discarded.Message)
}
