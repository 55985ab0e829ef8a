// Package shell implements the interactive kanban prompt. Each input line
// is split with shell quoting rules and dispatched to a freshly built cobra
// command tree, so flag values never leak from one line to the next. The
// logged in account lives in the Shell as an explicit session value.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/clikanban/kanban/internal/app"
	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/types"
	"github.com/mattn/go-shellwords"
	log "github.com/sirupsen/logrus"
)

const prompt = "kanban> "

var errNotLoggedIn = errors.New("you must login first. Use: login --username <user> --password <pass>")

// Shell is one interactive session against the wired services.
type Shell struct {
	app  *app.App
	in   io.Reader
	out  io.Writer
	sess *types.Session
}

func New(a *app.App, in io.Reader, out io.Writer) *Shell {
	return &Shell{app: a, in: in, out: out}
}

// Session returns the logged in account, if any.
func (s *Shell) Session() (types.Session, bool) {
	if s.sess == nil {
		return types.Session{}, false
	}
	return *s.sess, true
}

// Run reads commands until quit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
	fmt.Fprintln(s.out, "CLI-Kanban: Interactive Task Management")
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
	fmt.Fprintln(s.out, "Type 'help' for the command list, 'quit' to exit")

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "\n"+prompt)
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Exec(ctx, scanner.Text()) {
			break
		}
	}
	fmt.Fprintln(s.out, "✓ Goodbye!")
	return scanner.Err()
}

// Exec runs a single command line and reports whether the shell should
// keep reading.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	args, err := parseLine(line)
	if err != nil {
		s.failure(fmt.Errorf("invalid command syntax - %w", err))
		return true
	}
	switch args[0] {
	case "quit", "exit", "q":
		return false
	}

	root := s.commands()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		s.failure(err)
	}
	return true
}

// parseLine splits line into words. The parser stops at the first unquoted
// shell operator, so a line holding one is rejected rather than cut short.
func parseLine(line string) ([]string, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(line)
	if err != nil {
		return nil, err
	}
	if parser.Position >= 0 {
		return nil, errors.New("operators such as ; | & < > are not supported, quote them or run one command per line")
	}
	if len(args) == 0 {
		return nil, errors.New("no command given")
	}
	return args, nil
}

func (s *Shell) requireSession() (types.Session, error) {
	sess, ok := s.Session()
	if !ok {
		return types.Session{}, errNotLoggedIn
	}
	return sess, nil
}

func (s *Shell) success(format string, args ...any) {
	fmt.Fprintf(s.out, "✓ "+format+"\n", args...)
}

// failure prints err for the user. Causes of internal errors go to the log
// instead of the terminal.
func (s *Shell) failure(err error) {
	message := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Kind == apperr.KindInternal {
			log.WithError(err).Error("command failed")
		}
	}
	fmt.Fprintf(s.out, "✗ Error: %s\n", message)
}
