// confshell is an interactive shell over the node configuration store.
// It reads and writes settings by name and walks the flush pipeline by
// hand. With a terminal on stdin it runs a prompt with completion;
// otherwise it executes stdin as a script, one command per line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/xtxerr/dmxnode/internal/constants"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/storage/config"
)

func main() {
	cfgPath := flag.String("config", "node.yaml", "config file path")
	backendKind := flag.String("backend", "", "storage backend (overrides config)")
	image := flag.String("image", "", "medium image file (overrides config)")
	commands := flag.String("c", "", "semicolon separated commands to run instead of reading stdin")
	verbose := flag.Bool("v", false, "log store activity")
	flag.Parse()

	os.Exit(run(*cfgPath, *backendKind, *image, *commands, *verbose))
}

func run(cfgPath, backendKind, image, commands string, verbose bool) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		cfg = config.DefaultConfig()
	}
	if backendKind != "" {
		cfg.Backend = backendKind
	}
	if image != "" {
		cfg.Image = image
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// Keep the prompt readable unless asked otherwise.
	level := logging.ParseLevel(constants.LogLevelWarn)
	if verbose {
		level = cfg.Logging.LogLevel()
	}
	logging.Init(level, cfg.Logging.JSON)

	sh, err := newShell(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	failed := 0
	switch {
	case commands != "":
		failed = sh.runScript(strings.NewReader(strings.ReplaceAll(commands, ";", "\n")), true)
	case term.IsTerminal(int(os.Stdin.Fd())):
		sh.runInteractive()
	default:
		failed = sh.runScript(os.Stdin, false)
	}

	if err := sh.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if failed > 0 {
		return 1
	}
	return 0
}
