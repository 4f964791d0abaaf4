// Command accountctl performs administrative account operations against the
// configured database.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/app"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/utilities"
)

const usage = `usage: accountctl <command> [flags]

commands:
  migrate                      apply pending schema migrations
  createsuperuser -email ...   create a staff superuser (password prompted)
  delete -email ...            delete an identity and its preferences
  deactivate -email ...        block authentication for an identity
  activate -email ...          allow authentication again
`

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	if err := run(context.Background(), lg.Sugar(), os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "accountctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.SugaredLogger, cmd string, args []string, in io.Reader, out io.Writer) error {
	switch cmd {
	case "migrate":
		a, err := app.New(ctx, logger, app.Options{Migrate: true})
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Fprintln(out, "migrations applied")
		return nil
	case "createsuperuser":
		return withApp(ctx, logger, func(a *app.App) error { return createSuperuser(ctx, a.Identities, args, in, out) })
	case "delete":
		return withApp(ctx, logger, func(a *app.App) error { return deleteIdentity(ctx, a.Identities, args, out) })
	case "deactivate", "activate":
		return withApp(ctx, logger, func(a *app.App) error { return setActive(ctx, a.Identities, cmd == "activate", args, out) })
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withApp(ctx context.Context, logger *zap.SugaredLogger, fn func(*app.App) error) error {
	opts := app.OptionsFromEnv()
	opts.Migrate = false
	a, err := app.New(ctx, logger, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func createSuperuser(ctx context.Context, svc *identity.Service, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	email := fs.String("email", "", "login email")
	nom := fs.String("nom", "", "family name")
	prenom := fs.String("prenom", "", "given name")
	nationalID := fs.String("national-id", "", "national identification number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := readPassword(in, out)
	if err != nil {
		return err
	}
	ident, err := svc.CreatePrivilegedIdentity(ctx, identity.NewIdentity{
		Email:      *email,
		Password:   pw,
		Nom:        *nom,
		Prenom:     *prenom,
		NationalID: *nationalID,
	})
	if err != nil {
		if ve, ok := apperr.AsValidation(err); ok {
			return fmt.Errorf("invalid input: %s", strings.TrimPrefix(ve.Error(), "validation failed: "))
		}
		return err
	}
	fmt.Fprintf(out, "superuser %s created (id %d)\n", ident.DisplayName(), ident.ID)
	return nil
}

// readPassword prompts twice without echo on a terminal; otherwise it reads
// a single line from in.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		fmt.Fprint(out, "Password (again): ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func emailFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "login email")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *email == "" {
		return "", errors.New("-email is required")
	}
	return *email, nil
}

func deleteIdentity(ctx context.Context, svc *identity.Service, args []string, out io.Writer) error {
	email, err := emailFlag("delete", args)
	if err != nil {
		return err
	}
	ident, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", email, err)
	}
	if err := svc.Delete(ctx, ident.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %s\n", ident.DisplayName())
	return nil
}

func setActive(ctx context.Context, svc *identity.Service, active bool, args []string, out io.Writer) error {
	email, err := emailFlag("activate", args)
	if err != nil {
		return err
	}
	ident, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", email, err)
	}
	if err := svc.SetActive(ctx, ident.ID, active); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s active=%t\n", ident.DisplayName(), active)
	return nil
}
