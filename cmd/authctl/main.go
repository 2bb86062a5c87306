// Command authctl is a terminal client for the creators-platform API.
//
//	authctl [-server URL] [-session FILE] <command> [flags]
//
// Commands: health, register, login, logout, whoami, users.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Prachi-Sharma23/creators-platform/internal/client"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// errUsage marks bad command-line input. The flag package has already
// printed the details.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "creators-platform", "session.json")
}

func defaultServer() string {
	if s := os.Getenv("AUTHCTL_SERVER"); s != "" {
		return s
	}
	return "http://localhost:5000"
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", defaultServer(), "API base URL")
	session := fs.String("session", defaultSessionPath(), "file holding the login session")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: authctl [-server URL] [-session FILE] <health|register|login|logout|whoami|users> [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	c := client.New(*server, client.NewFileStorage(*session))
	if err := c.Restore(); err != nil {
		fmt.Fprintf(stderr, "warning: could not restore session: %v\n", err)
	}

	app := &app{client: c, in: bufio.NewReader(stdin), stdin: stdin, out: stdout, errOut: stderr}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	var err error
	switch cmd {
	case "health":
		err = app.health(ctx)
	case "register":
		err = app.register(ctx, rest)
	case "login":
		err = app.login(ctx, rest)
	case "logout":
		err = app.logout()
	case "whoami":
		err = app.whoami(ctx)
	case "users":
		err = app.users(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		if errors.Is(err, client.ErrNotAuthenticated) || errors.Is(err, client.ErrUnauthorized) {
			fmt.Fprintln(stderr, "Not logged in. Run: authctl login -email <email>")
			return 1
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

type app struct {
	client *client.Client
	in     *bufio.Reader
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer
}

func (a *app) health(ctx context.Context) error {
	h, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", h.Message, h.Timestamp.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	password, err := a.password("Password: ")
	if err != nil {
		return err
	}
	user, err := a.client.Register(ctx, *name, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s <%s> (id %s)\n", user.Name, user.Email, user.ID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	password, err := a.password("Password: ")
	if err != nil {
		return err
	}
	user, err := a.client.Login(ctx, *email, password)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return errors.New(apiErr.Message)
		}
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) logout() error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	user, err := a.client.Profile(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(user)
}

func (a *app) users(ctx context.Context) error {
	list, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(list)
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// password reads without echo from a terminal, or a plain line otherwise so
// the command can be scripted.
func (a *app) password(prompt string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.errOut, prompt)
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(a.errOut)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
