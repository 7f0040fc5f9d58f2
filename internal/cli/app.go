// Package cli implements the interactive terminal front end.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	pkgcrypto "github.com/sahilkamalny/flavorbot/internal/crypto"
	"github.com/sahilkamalny/flavorbot/internal/errs"
	"github.com/sahilkamalny/flavorbot/internal/service"
	"github.com/sahilkamalny/flavorbot/internal/validate"
)

// App wires the services to a line-oriented REPL.
type App struct {
	auth    service.AuthService
	inv     service.InventoryService
	recipes service.RecipeService
	scheme  pkgcrypto.Scheme
	val     *validate.Validator

	in       *bufio.Reader
	out      io.Writer
	password func(prompt string) (string, error)
	log      *zap.Logger

	opTimeout time.Duration
}

// New builds the REPL. in is usually os.Stdin; passwords are read without
// echo when it is a terminal.
func New(auth service.AuthService, inv service.InventoryService, recipes service.RecipeService, scheme pkgcrypto.Scheme, in io.Reader, out io.Writer, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	br := bufio.NewReader(in)
	return &App{
		auth:      auth,
		inv:       inv,
		recipes:   recipes,
		scheme:    scheme,
		val:       validate.New(),
		in:        br,
		out:       out,
		password:  passwordReader(in, br, out),
		log:       log.Named("cli"),
		opTimeout: 30 * time.Second,
	}
}

// Run reads commands until EOF, quit or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	a.printf("FlavorBot. Type 'help' for commands.\n")
	for {
		if ctx.Err() != nil {
			return nil
		}
		a.printf("%s> ", a.prompt())
		line, err := readLine(a.in)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				a.printf("\n")
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}
		if quit := a.Exec(ctx, line); quit {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the user asked to quit.
func (a *App) Exec(ctx context.Context, line string) bool {
	cmd, rest := splitCommand(line)
	if cmd == "" {
		return false
	}

	var err error
	switch cmd {
	case "help", "?":
		a.help()
	case "register":
		err = a.register(ctx)
	case "login":
		err = a.login(ctx, rest)
	case "logout":
		a.auth.Logout()
		a.printf("Logged out.\n")
	case "whoami":
		a.whoami()
	case "refresh":
		err = a.refresh(ctx)
	case "prefs":
		err = a.prefs(ctx, rest)
	case "fridge":
		err = a.fridge(ctx, rest)
	case "recipe":
		err = a.recipe(ctx, rest)
	case "quit", "exit":
		a.printf("Bye!\n")
		return true
	default:
		a.printf("Unknown command: %s\n", cmd)
	}
	if err != nil {
		a.report(cmd, err)
	}
	return false
}

func (a *App) prompt() string {
	if u, ok := a.auth.CurrentUser(); ok {
		return "flavorbot (" + u.Username + ")"
	}
	return "flavorbot"
}

func (a *App) help() {
	a.printf(`Commands:
  register                       create an account and log in
  login [username]               log in
  logout                         log out
  whoami                         show the current user
  refresh                        reload the current user from the database
  prefs                          show preferences
  prefs set <json>               replace preferences
  fridge                         list fridge items
  fridge add <name>              add an item
  fridge rm <name|#id>           remove one item
  fridge mv <name|#id> => <new>  rename one item
  recipe [ingredient, ...]       generate a recipe (defaults to the fridge)
  quit                           leave
`)
}

func (a *App) register(ctx context.Context) error {
	username, err := ask(a.in, a.out, "Username")
	if err != nil {
		return err
	}
	email, err := ask(a.in, a.out, "Email")
	if err != nil {
		return err
	}
	pw, err := a.password("Password")
	if err != nil {
		return err
	}
	confirm, err := a.password("Confirm password")
	if err != nil {
		return err
	}
	if err := a.val.Struct(validate.Password{Password: pw}); err != nil {
		return err
	}
	if pw != confirm {
		return fmt.Errorf("%w: passwords do not match", errs.ErrInvalidInput)
	}
	hash, err := a.scheme.Hash(pw)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()
	u, err := a.auth.Register(ctx, username, email, hash)
	if err != nil {
		return err
	}
	a.printf("Welcome, %s!\n", u.Username)
	return nil
}

func (a *App) login(ctx context.Context, username string) error {
	var err error
	if username == "" {
		if username, err = ask(a.in, a.out, "Username"); err != nil {
			return err
		}
	}
	pw, err := a.password("Password")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()
	u, err := a.auth.Login(ctx, username, a.scheme.Credential(pw))
	if err != nil {
		return err
	}
	a.printf("Logged in as %s.\n", u.Username)
	return nil
}

func (a *App) whoami() {
	u, ok := a.auth.CurrentUser()
	if !ok {
		a.printf("Not logged in.\n")
		return
	}
	a.printf("%s <%s> (id %d, %s)\n", u.Username, u.Email, u.ID, a.auth.State())
}

func (a *App) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()
	u, err := a.auth.RefreshSession(ctx)
	if err != nil {
		return err
	}
	a.printf("Reloaded %s.\n", u.Username)
	return nil
}

func (a *App) prefs(ctx context.Context, args string) error {
	sub, rest := splitCommand(args)
	switch sub {
	case "":
		u, ok := a.auth.CurrentUser()
		if !ok {
			return errs.ErrNoActiveSession
		}
		a.printf("%s\n", u.Preferences)
		return nil
	case "set":
		if !json.Valid([]byte(rest)) {
			return fmt.Errorf("%w: preferences must be a JSON document", errs.ErrInvalidInput)
		}
		ctx, cancel := context.WithTimeout(ctx, a.opTimeout)
		defer cancel()
		if err := a.auth.UpdatePreferences(ctx, []byte(rest)); err != nil {
			return err
		}
		a.printf("Preferences saved.\n")
		return nil
	default:
		return fmt.Errorf("%w: unknown prefs subcommand %q", errs.ErrInvalidInput, sub)
	}
}

func (a *App) fridge(ctx context.Context, args string) error {
	ctx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()

	sub, rest := splitCommand(args)
	switch sub {
	case "", "ls", "list":
		items, err := a.inv.List(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			a.printf("Your fridge is empty.\n")
			return nil
		}
		for _, it := range items {
			a.printf("  #%d  %s\n", it.ID, it.Name)
		}
		return nil
	case "add":
		if err := a.inv.Add(ctx, rest); err != nil {
			return err
		}
		a.printf("Added.\n")
		return nil
	case "rm":
		var (
			ok  bool
			err error
		)
		if id, isID := parseID(rest); isID {
			ok, err = a.inv.DeleteByID(ctx, id)
		} else {
			ok, err = a.inv.Delete(ctx, rest)
		}
		if err != nil {
			return err
		}
		a.printResult(ok, "Removed.")
		return nil
	case "mv":
		from, to, found := strings.Cut(rest, "=>")
		if !found {
			return fmt.Errorf("%w: usage: fridge mv <name|#id> => <new name>", errs.ErrInvalidInput)
		}
		from = strings.TrimSpace(from)
		var (
			ok  bool
			err error
		)
		if id, isID := parseID(from); isID {
			ok, err = a.inv.RenameByID(ctx, id, to)
		} else {
			ok, err = a.inv.Rename(ctx, from, to)
		}
		if err != nil {
			return err
		}
		a.printResult(ok, "Renamed.")
		return nil
	default:
		return fmt.Errorf("%w: unknown fridge subcommand %q", errs.ErrInvalidInput, sub)
	}
}

func (a *App) recipe(ctx context.Context, args string) error {
	var ingredients []string
	if strings.TrimSpace(args) != "" {
		ingredients = strings.Split(args, ",")
	} else {
		items, err := a.inv.List(ctx)
		if err != nil {
			return err
		}
		for _, it := range items {
			ingredients = append(ingredients, it.Name)
		}
	}

	a.printf("FlavorBot is thinking of a recipe...\n")
	r, err := a.recipes.Generate(ctx, ingredients)
	if err != nil {
		return err
	}
	a.printf("\n%s\n\n", r.Text)
	return nil
}

func (a *App) printResult(ok bool, msg string) {
	if ok {
		a.printf("%s\n", msg)
		return
	}
	a.printf("No such item.\n")
}

// report turns an error into a user-facing line; details go to the log.
func (a *App) report(cmd string, err error) {
	a.log.Debug("command failed", zap.String("cmd", cmd), zap.Error(err))
	switch {
	case errors.Is(err, errs.ErrInvalidCredentials):
		a.printf("Invalid username or password.\n")
	case errors.Is(err, errs.ErrRateLimited):
		a.printf("Too many failed attempts. Try again later.\n")
	case errors.Is(err, errs.ErrAlreadyExists):
		a.printf("That username is taken.\n")
	case errors.Is(err, errs.ErrNoActiveSession):
		a.printf("Please log in first.\n")
	case errors.Is(err, errs.ErrUserVanished):
		a.printf("Your account no longer exists. Please log out.\n")
	case errors.Is(err, errs.ErrInvalidInput):
		a.printf("%s\n", err)
	case errors.Is(err, errs.ErrGeneration):
		a.log.Warn("recipe generation failed", zap.Error(err))
		a.printf("Could not generate a recipe right now.\n")
	case errors.Is(err, errs.ErrStoreUnavailable):
		a.log.Error("database unavailable", zap.Error(err))
		a.printf("The database is unavailable. Try again later.\n")
	default:
		a.log.Error("command failed", zap.String("cmd", cmd), zap.Error(err))
		a.printf("Error: %v\n", err)
	}
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return 0, false
	}
	id, err := strconv.ParseInt(s[1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
