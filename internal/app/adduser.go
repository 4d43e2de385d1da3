package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/hitoshi/ledger/internal/auth"
	"github.com/hitoshi/ledger/internal/config"
	"github.com/hitoshi/ledger/internal/metrics"
	"github.com/hitoshi/ledger/internal/token"
)

// signupService はadduserが利用するユーザー登録操作。
type signupService interface {
	Signup(ctx context.Context, in auth.SignupInput) (*token.Issued, error)
}

// passwordPrompt はプロンプトを表示してパスワードを1行読み取る。
type passwordPrompt func(prompt string) (string, error)

var errPasswordMismatch = errors.New("passwords do not match")

// runAddUser は端末からユーザーを1件登録する。
func runAddUser(cfg *config.Config, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	svc, err := newServices(cfg, st, metrics.Nop{})
	if err != nil {
		return err
	}

	return addUser(ctx, svc.auth, args, terminalPrompt(os.Stdin, os.Stderr), os.Stdout)
}

// addUser はフラグを解析し、確認入力付きでパスワードを読み取ってユーザーを登録する。
func addUser(ctx context.Context, svc signupService, args []string, prompt passwordPrompt, out io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "登録するメールアドレス（必須）")
	firstName := fs.String("first-name", "", "名")
	lastName := fs.String("last-name", "", "姓")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("adduser: -email is required")
	}

	pw, err := prompt("Password: ")
	if err != nil {
		return fmt.Errorf("adduser: failed to read password: %w", err)
	}
	confirm, err := prompt("Confirm password: ")
	if err != nil {
		return fmt.Errorf("adduser: failed to read password: %w", err)
	}
	if pw != confirm {
		return errPasswordMismatch
	}

	if _, err := svc.Signup(ctx, auth.SignupInput{
		Email:     *email,
		Password:  pw,
		FirstName: *firstName,
		LastName:  *lastName,
	}); err != nil {
		return fmt.Errorf("adduser: %w", err)
	}

	fmt.Fprintf(out, "user %s created\n", strings.TrimSpace(*email))
	return nil
}

// terminalPrompt は端末ではエコーなしで、パイプ入力では1行ずつパスワードを読み取る。
func terminalPrompt(in *os.File, out io.Writer) passwordPrompt {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		return func(prompt string) (string, error) {
			fmt.Fprint(out, prompt)
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
	}
	return linePrompt(in)
}

// linePrompt はreaderから改行区切りでパスワードを読み取る。
func linePrompt(r io.Reader) passwordPrompt {
	reader := bufio.NewReader(r)
	return func(string) (string, error) {
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
