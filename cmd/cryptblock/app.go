package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/saylorsolutions/cryptblock/cmd/internal"
	"github.com/saylorsolutions/cryptblock/pkg/blocklock"
	"github.com/saylorsolutions/cryptblock/pkg/envelope"
	"github.com/saylorsolutions/cryptblock/pkg/kdf"
	"github.com/saylorsolutions/cryptblock/pkg/qr"
	"github.com/saylorsolutions/cryptblock/pkg/store"
	"golang.org/x/term"
)

var (
	errUsage       = errors.New("either or both of --input and --output are required")
	errOutputTaken = errors.New("output file already exists, provide a different path")
	errNotBlock    = errors.New("input is not an encrypted block")
)

type config struct {
	input        string
	output       string
	decrypt      bool
	toStdout     bool
	blockVersion string
	qrTerminal   bool
	qrPNG        string
	tui          bool
}

type app struct {
	cfg      config
	store    *store.Store
	source   internal.PassphraseSource
	registry *kdf.Registry
	stdin    io.Reader
	stdout   io.Writer
}

func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	if cfg.toStdout {
		cfg.decrypt = true
	}
	if len(cfg.input) == 0 && len(cfg.output) == 0 {
		return errUsage
	}
	if len(cfg.output) == 0 && !cfg.toStdout {
		cfg.output = internal.DefaultOutputPath(cfg.input, cfg.decrypt)
	}
	if !cfg.toStdout && a.store.Exists(cfg.output) {
		return fmt.Errorf("%w: %s", errOutputTaken, cfg.output)
	}
	if len(cfg.qrPNG) > 0 && a.store.Exists(cfg.qrPNG) {
		return fmt.Errorf("%w: %s", errOutputTaken, cfg.qrPNG)
	}

	locker, err := a.locker(cfg)
	if err != nil {
		return err
	}
	content, err := a.readInput(cfg)
	if err != nil {
		return err
	}

	var result []byte
	if cfg.decrypt {
		if !envelope.IsWellFormed(content) {
			return errNotBlock
		}
		pass, err := a.source.Obtain(false)
		if err != nil {
			return err
		}
		defer internal.Zero(pass)
		result, err = locker.UnlockBytes(ctx, content, pass)
		if err != nil {
			return fmt.Errorf("failed to decrypt block: %w", err)
		}
	} else {
		pass, err := a.source.Obtain(true)
		if err != nil {
			return err
		}
		defer internal.Zero(pass)
		result, err = locker.LockBytes(ctx, content, pass)
		if err != nil {
			return fmt.Errorf("failed to encrypt content: %w", err)
		}
	}

	if cfg.toStdout {
		if _, err := a.stdout.Write(result); err != nil {
			return err
		}
	} else if err := a.store.Write(cfg.output, result); err != nil {
		return err
	}
	if err := a.renderQR(cfg, result); err != nil {
		return err
	}
	if !cfg.toStdout {
		internal.Echo("Completed!")
	}
	return nil
}

func (a *app) locker(cfg config) (*blocklock.Locker, error) {
	opts := []blocklock.LockerOpt{
		blocklock.WithAdvisor(func(adv blocklock.Advisory) {
			internal.Warn("%s", adv)
		}),
	}
	if a.registry != nil {
		opts = append(opts, blocklock.WithRegistry(a.registry))
	}
	if len(cfg.blockVersion) > 0 {
		opts = append(opts, blocklock.WithVersion(kdf.Version(cfg.blockVersion)))
	}
	locker, err := blocklock.NewLocker(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid block version '%s': %w", cfg.blockVersion, err)
	}
	return locker, nil
}

func (a *app) readInput(cfg config) ([]byte, error) {
	if len(cfg.input) > 0 {
		content, err := a.store.Read(cfg.input)
		if err != nil {
			return nil, err
		}
		return content, nil
	}
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		internal.Echo("Enter content and press Ctrl + D when done:")
	}
	content, err := io.ReadAll(a.stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return content, nil
}

func (a *app) renderQR(cfg config, result []byte) error {
	if cfg.qrTerminal {
		code, err := qr.Terminal(string(result))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprint(a.stdout, code); err != nil {
			return err
		}
	}
	if len(cfg.qrPNG) > 0 {
		img, err := qr.PNG(string(result), 0)
		if err != nil {
			return err
		}
		if err := a.store.Write(cfg.qrPNG, img); err != nil {
			return err
		}
	}
	return nil
}
