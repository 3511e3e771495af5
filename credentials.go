package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"storagekit/internal/smb"
)

// termCredentials asks for SMB credentials on the terminal. The password
// is read without echo when stdin is a terminal.
type termCredentials struct {
	in  *bufio.Reader
	out io.Writer
}

var _ smb.CredentialsProvider = (*termCredentials)(nil)

func newTermCredentials(in *bufio.Reader, out io.Writer) *termCredentials {
	return &termCredentials{in: in, out: out}
}

func (t *termCredentials) Get(host, share, _ string, hint smb.Credentials) (smb.Credentials, error) {
	fmt.Fprintf(t.out, "SMB login for %s/%s\n", host, share)
	prompt := `username (domain\user): `
	last := accountText(hint)
	if last != "" {
		prompt = fmt.Sprintf(`username (domain\user) [%s]: `, last)
	}
	user, err := t.ask(prompt)
	if err != nil {
		return smb.Credentials{}, err
	}
	if user == "" {
		user = last
	}
	var c smb.Credentials
	c.Domain, c.Username = smb.SplitAccount(user)

	fmt.Fprint(t.out, "password: ")
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return smb.Credentials{}, err
		}
		c.Password = string(b)
	} else if c.Password, err = t.line(); err != nil {
		return smb.Credentials{}, err
	}

	save, err := t.ask("remember in keyring? [y/N] ")
	if err != nil {
		return smb.Credentials{}, err
	}
	c.Persist = strings.EqualFold(save, "y") || strings.EqualFold(save, "yes")
	return c, nil
}

func (t *termCredentials) ask(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	return t.line()
}

func (t *termCredentials) line() (string, error) {
	s, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// accountText renders a hint as domain\user.
func accountText(c smb.Credentials) string {
	if c.Domain == "" {
		return c.Username
	}
	return c.Domain + `\` + c.Username
}
