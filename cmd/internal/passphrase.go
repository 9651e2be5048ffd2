package internal

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/rivo/tview"
	"golang.org/x/term"
)

const PassphraseEnvVar = "CRYPTBLOCK_PASSPHRASE"

var (
	ErrPassphraseMismatch = errors.New("passphrases do not match")
	ErrEmptyPassphrase    = errors.New("passphrase must not be empty")
	ErrNoPassphrase       = errors.New("no passphrase available")
	ErrCancelled          = errors.New("passphrase entry cancelled")
)

// PassphraseSource produces a passphrase, asking for it twice when confirm is set.
type PassphraseSource interface {
	Obtain(confirm bool) ([]byte, error)
}

// EnvSource reads the passphrase from an environment variable.
// Confirmation is skipped, since there's no way to mistype it.
type EnvSource struct {
	Name string
}

func (s EnvSource) Obtain(bool) ([]byte, error) {
	name := s.Name
	if len(name) == 0 {
		name = PassphraseEnvVar
	}
	val := os.Getenv(name)
	if len(val) == 0 {
		return nil, ErrNoPassphrase
	}
	return []byte(val), nil
}

// TermSource prompts on stderr with echo disabled.
// If stdin is piped, the controlling terminal is used instead.
type TermSource struct {
	Prompt        string
	ConfirmPrompt string
}

func (s TermSource) Obtain(confirm bool) ([]byte, error) {
	prompt, confirmPrompt := s.Prompt, s.ConfirmPrompt
	if len(prompt) == 0 {
		prompt = "Passphrase: "
	}
	if len(confirmPrompt) == 0 {
		confirmPrompt = "Confirm passphrase: "
	}
	return obtain(confirm, func(second bool) ([]byte, error) {
		if second {
			return readPassword(confirmPrompt)
		}
		return readPassword(prompt)
	})
}

func readPassword(prompt string) ([]byte, error) {
	_, _ = fmt.Fprint(Output, prompt)
	defer func() {
		_, _ = fmt.Fprintln(Output)
	}()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return term.ReadPassword(int(os.Stdin.Fd()))
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		if runtime.GOOS == "windows" {
			return nil, fmt.Errorf("passphrase must be set with %s when stdin is piped", PassphraseEnvVar)
		}
		return nil, fmt.Errorf("stdin is piped and no terminal is available, set %s instead: %w", PassphraseEnvVar, err)
	}
	defer func() {
		_ = tty.Close()
	}()
	return term.ReadPassword(int(tty.Fd()))
}

// TUISource shows a form to enter the passphrase.
type TUISource struct {
	Title string
}

func (s TUISource) Obtain(confirm bool) ([]byte, error) {
	title := s.Title
	if len(title) == 0 {
		title = "cryptblock"
	}
	var (
		app       = tview.NewApplication()
		form      = tview.NewForm()
		entered   [2]string
		cancelled bool
	)
	form.AddPasswordField("Passphrase", "", 40, '*', func(text string) {
		entered[0] = text
	})
	if confirm {
		form.AddPasswordField("Confirm", "", 40, '*', func(text string) {
			entered[1] = text
		})
	}
	cancel := func() {
		cancelled = true
		app.Stop()
	}
	form.AddButton("OK", app.Stop)
	form.AddButton("Cancel", cancel)
	form.SetCancelFunc(cancel)
	form.SetBorder(true).SetTitle(" " + title + " ")

	if err := app.SetRoot(form, true).Run(); err != nil {
		return nil, fmt.Errorf("failed to run passphrase form: %w", err)
	}
	if cancelled {
		return nil, ErrCancelled
	}
	return obtain(confirm, func(second bool) ([]byte, error) {
		if second {
			return []byte(entered[1]), nil
		}
		return []byte(entered[0]), nil
	})
}

// obtain reads one or two passphrases and checks that they match.
func obtain(confirm bool, read func(second bool) ([]byte, error)) ([]byte, error) {
	pass, err := read(false)
	if err != nil {
		return nil, err
	}
	if len(pass) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if !confirm {
		return pass, nil
	}
	again, err := read(true)
	if err != nil {
		Zero(pass)
		return nil, err
	}
	defer Zero(again)
	if !bytes.Equal(pass, again) {
		Zero(pass)
		return nil, ErrPassphraseMismatch
	}
	return pass, nil
}

type chain []PassphraseSource

func (c chain) Obtain(confirm bool) ([]byte, error) {
	for _, src := range c {
		pass, err := src.Obtain(confirm)
		if errors.Is(err, ErrNoPassphrase) {
			continue
		}
		return pass, err
	}
	return nil, ErrNoPassphrase
}

// ChainSources tries each source in order, moving on only when a source has no passphrase to give.
func ChainSources(sources ...PassphraseSource) PassphraseSource {
	return chain(sources)
}

// Zero overwrites b. Go may have copied the data elsewhere, so this is best effort.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
