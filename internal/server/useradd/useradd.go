// Package useradd implements the operator command that creates an account
// directly in the store, bypassing media upload.
package useradd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/vidhub/internal/flagx"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var commandFlags = []string{"-fullname", "-username", "-email", "-avatar"}

// Creator is the account operation the command drives.
type Creator interface {
	CreateUser(ctx context.Context, in services.CreateUserInput) (*models.PublicUser, error)
}

// Input is the parsed command line.
type Input struct {
	FullName  string
	UserName  string
	Email     string
	AvatarURL string
}

// ParseArgs reads the command's own flags out of args, ignoring server
// configuration flags.
func ParseArgs(args []string) (Input, error) {
	var in Input

	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&in.FullName, "fullname", "", "full name")
	fs.StringVar(&in.UserName, "username", "", "username")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.AvatarURL, "avatar", "", "avatar URL")

	if err := fs.Parse(flagx.FilterArgs(args, commandFlags)); err != nil {
		return in, fmt.Errorf("parse flags: %w", err)
	}
	if in.UserName == "" || in.Email == "" {
		return in, errors.New("-username and -email are required")
	}
	if in.FullName == "" {
		in.FullName = in.UserName
	}
	return in, nil
}

// GetPassword prompts on w and reads a password twice without echo.
func GetPassword(w io.Writer) (string, error) {
	first, err := prompt(w, "Enter password: ")
	if err != nil {
		return "", err
	}
	second, err := prompt(w, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func prompt(w io.Writer, text string) (string, error) {
	if _, err := fmt.Fprint(w, text); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(string(pw), "\r\n"), nil
}

// ReadPasswordFrom reads a single line from r; used when stdin is not a
// terminal.
func ReadPasswordFrom(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Run creates the account described by in and reports it on w.
func Run(ctx context.Context, c Creator, in Input, password string, w io.Writer) error {
	u, err := c.CreateUser(ctx, services.CreateUserInput{
		FullName:  in.FullName,
		UserName:  in.UserName,
		Email:     in.Email,
		Password:  password,
		AvatarURL: in.AvatarURL,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "created user %s (%s) id=%s\n", u.UserName, u.Email, u.ID)
	return err
}
