package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/saylorsolutions/cryptblock/cmd/internal"
	"github.com/saylorsolutions/cryptblock/pkg/store"
	flag "github.com/spf13/pflag"
)

var version = "dev"

func main() {
	var (
		cfg         config
		helpFlag    bool
		versionFlag bool
	)
	flags := flag.NewFlagSet("cryptblock", flag.ContinueOnError)
	flags.StringVarP(&cfg.input, "input", "i", "", "File to read. Content is read from stdin if not specified.")
	flags.StringVarP(&cfg.output, "output", "o", "", "File to write. Defaults to the input path with '.json' added when encrypting, or removed when decrypting.")
	flags.BoolVarP(&cfg.decrypt, "decrypt", "d", false, "Decrypt an encrypted block instead of creating one.")
	flags.BoolVarP(&cfg.toStdout, "stdout", "s", false, "Decrypt to stdout instead of a file. Implies --decrypt.")
	flags.StringVarP(&cfg.blockVersion, "block-version", "V", "", "Block version to use when encrypting. Defaults to the latest version.")
	flags.BoolVarP(&cfg.qrTerminal, "qr", "q", false, "Print a QR code of the output to stdout.")
	flags.StringVar(&cfg.qrPNG, "qr-png", "", "Write a PNG QR code of the output to this file.")
	flags.BoolVar(&cfg.tui, "tui", false, "Enter the passphrase in a form instead of a plain prompt.")
	flags.BoolVarP(&helpFlag, "help", "h", false, "Prints this usage information.")
	flags.BoolVar(&versionFlag, "version", false, "Prints the version of cryptblock.")
	flags.Usage = func() {
		fmt.Printf(`
cryptblock encrypts content into a self-describing block that can be decrypted later with only a passphrase.
Blocks record the version of the key derivation used to create them, so older blocks can always be decrypted.

USAGE:  cryptblock [FLAGS]

At least one of --input or --output is required. Existing files are never overwritten.

FLAGS:
%s
ENVIRONMENT:
    %s may be set to provide the passphrase without prompting.
`, flags.FlagUsages(), internal.PassphraseEnvVar)
	}
	if len(os.Args) == 1 {
		flags.Usage()
		return
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		flags.Usage()
		internal.Fatal("Error parsing flags: %v", err)
	}
	if helpFlag {
		flags.Usage()
		return
	}
	if versionFlag {
		fmt.Println(version)
		return
	}

	fs, err := store.NewOS()
	if err != nil {
		internal.Fatal("Failed to access files: %v", err)
	}
	var prompt internal.PassphraseSource = internal.TermSource{}
	if cfg.tui {
		prompt = internal.TUISource{}
	}
	a := &app{
		cfg:    cfg,
		store:  fs,
		source: internal.ChainSources(internal.EnvSource{}, prompt),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := a.run(ctx); err != nil {
		if errors.Is(err, errUsage) {
			flags.Usage()
		}
		internal.Fatal("%v", err)
	}
}
