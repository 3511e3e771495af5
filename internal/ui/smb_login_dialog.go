package ui

import (
	"errors"
	"path"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"storagekit/internal/smb"
)

var errLoginCancelled = errors.New("smb login cancelled")

// SMBCredentialsProvider asks for share credentials in a modal form. Get
// blocks its caller, so it must not run on the fyne goroutine.
type SMBCredentialsProvider struct {
	parent fyne.Window
}

var _ smb.CredentialsProvider = (*SMBCredentialsProvider)(nil)

func NewSMBCredentialsProvider(parent fyne.Window) *SMBCredentialsProvider {
	return &SMBCredentialsProvider{parent: parent}
}

func (p *SMBCredentialsProvider) Get(host, share, relPath string, hint smb.Credentials) (smb.Credentials, error) {
	type answer struct {
		creds smb.Credentials
		err   error
	}
	done := make(chan answer, 1)

	fyne.Do(func() {
		account := widget.NewEntry()
		account.SetPlaceHolder(`user or DOMAIN\user`)
		account.SetText(accountText(hint))
		account.Validator = func(s string) error {
			if _, user := smb.SplitAccount(s); user == "" {
				return errors.New("a user name is required")
			}
			return nil
		}
		password := widget.NewPasswordEntry()
		remember := widget.NewCheck("Remember in keyring", nil)

		form := dialog.NewForm(
			"Connect to "+shareLabel(host, share, relPath),
			"Connect",
			"Cancel",
			[]*widget.FormItem{
				widget.NewFormItem("Account", account),
				widget.NewFormItem("Password", password),
				widget.NewFormItem("", remember),
			},
			func(ok bool) {
				if !ok {
					done <- answer{err: errLoginCancelled}
					return
				}
				var c smb.Credentials
				c.Domain, c.Username = smb.SplitAccount(account.Text)
				c.Password = password.Text
				c.Persist = remember.Checked
				done <- answer{creds: c}
			},
			p.parent,
		)
		form.Resize(fyne.NewSize(420, 220))
		form.Show()
		if account.Text == "" {
			p.parent.Canvas().Focus(account)
		} else {
			p.parent.Canvas().Focus(password)
		}
	})

	a := <-done
	return a.creds, a.err
}

// accountText renders a hint the way the account field accepts it.
func accountText(c smb.Credentials) string {
	if c.Domain == "" {
		return c.Username
	}
	return c.Domain + `\` + c.Username
}

// shareLabel renders host/share[/path] for the dialog title.
func shareLabel(host, share, relPath string) string {
	label := host + "/" + share
	if rel := strings.Trim(path.Clean("/"+relPath), "/"); rel != "" {
		label += "/" + rel
	}
	return label
}
