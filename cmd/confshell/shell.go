package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/olekukonko/tablewriter"

	"github.com/xtxerr/dmxnode/internal/layout"
	"github.com/xtxerr/dmxnode/internal/node"
	"github.com/xtxerr/dmxnode/internal/settings"
	"github.com/xtxerr/dmxnode/internal/storage/backend"
	"github.com/xtxerr/dmxnode/internal/storage/config"
	"github.com/xtxerr/dmxnode/internal/storage/medium"
	"github.com/xtxerr/dmxnode/internal/storage/store"
	"github.com/xtxerr/dmxnode/internal/timer"
)

// stepClock only moves when the shell ticks the loop, so the flush
// pipeline can be walked one quantum at a time.
type stepClock struct {
	ms uint32
}

func (c *stepClock) Millis() uint32 { return c.ms }

type command struct {
	usage string
	help  string
	run   func(sh *shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"get":     {"get <name>", "show the effective value of a setting", (*shell).get},
		"set":     {"set <name> <value>", "change a setting; lists are comma separated", (*shell).set},
		"flag":    {"flag <name> on|off", "set or clear a flag", (*shell).flag},
		"list":    {"list [prefix]", "list settings", (*shell).list},
		"apply":   {"apply <file>", "apply a YAML or JSON settings document", (*shell).apply},
		"dump":    {"dump", "print the stored settings as YAML", (*shell).dump},
		"tick":    {"tick [n]", "run n loop iterations, 1ms each", (*shell).tick},
		"commit":  {"commit [n]", "run n flush quanta directly", (*shell).commit},
		"flush":   {"flush", "persist all pending changes now", (*shell).flush},
		"status":  {"status", "show store state and statistics", (*shell).status},
		"history": {"history", "show recent store state transitions", (*shell).history},
		"layout":  {"layout", "show the record layout and its placement", (*shell).layout},
		"save":    {"save", "write the medium image file", (*shell).save},
		"help":    {"help", "show this list", (*shell).help},
		"exit":    {"exit", "flush, save and leave", (*shell).exit},
	}
}

type shell struct {
	out   io.Writer
	cfg   *config.Config
	med   medium.Medium
	clock *stepClock
	st    *store.Store
	reg   *settings.Registry
	loop  *node.Loop
	quit  bool
}

func newShell(cfg *config.Config, out io.Writer) (*shell, error) {
	med, err := medium.Open(cfg)
	if err != nil {
		return nil, err
	}

	clock := &stepClock{}
	pool := timer.New(cfg.Timer.PoolSize, clock)
	st, err := store.Open(med.Backend, pool, store.Options{
		Debug:      cfg.Store.Debug,
		DebounceMs: cfg.Store.DebounceMs(),
		Sectors:    cfg.Store.Sectors,
	})
	if err != nil {
		med.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	sh := &shell{
		out:   out,
		cfg:   cfg,
		med:   med,
		clock: clock,
		st:    st,
		reg:   settings.New(st),
		loop:  node.New(pool, st, nil),
	}
	sh.loop.AddHook(func() { clock.ms++ })
	return sh, nil
}

// Close drains pending changes, saves the image and releases the store.
func (sh *shell) Close() error {
	var errs []error
	if !sh.st.Drain(sh.cfg.Store.DrainLimit) {
		errs = append(errs, fmt.Errorf("flush incomplete: store %s", sh.st.State()))
	}
	if err := sh.med.Save(); err != nil {
		errs = append(errs, err)
	}
	if err := sh.st.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := sh.med.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close shell: %v", errs)
	}
	return nil
}

// exec runs one command line. Blank lines and # comments are ignored.
func (sh *shell) exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	fields := strings.Fields(line)
	name := fields[0]
	if name == "quit" {
		name = "exit"
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return cmd.run(sh, fields[1:])
}

// =============================================================================
// Commands
// =============================================================================

func (sh *shell) get(args []string) error {
	if len(args) != 1 {
		return usageError("get")
	}
	v, err := sh.reg.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, v)
	return nil
}

func (sh *shell) set(args []string) error {
	if len(args) < 2 {
		return usageError("set")
	}
	changed, err := sh.reg.Set(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	sh.reportChange(changed)
	return nil
}

func (sh *shell) flag(args []string) error {
	if len(args) != 2 {
		return usageError("flag")
	}
	info, ok := sh.reg.Lookup(args[0])
	if ok && info.Kind != settings.KindFlag {
		return fmt.Errorf("%s is not a flag", args[0])
	}
	changed, err := sh.reg.Set(args[0], args[1])
	if err != nil {
		return err
	}
	sh.reportChange(changed)
	return nil
}

func (sh *shell) reportChange(changed bool) {
	if changed {
		fmt.Fprintf(sh.out, "changed (store %s)\n", sh.st.State())
	} else {
		fmt.Fprintln(sh.out, "unchanged")
	}
}

func (sh *shell) list(args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	table := tablewriter.NewWriter(sh.out)
	table.SetHeader([]string{"Name", "Kind", "Value", "Default"})
	table.SetBorder(false)
	for _, name := range sh.reg.Match(prefix) {
		info, _ := sh.reg.Lookup(name)
		v, _ := sh.reg.Get(name)
		table.Append([]string{name, info.Kind.String(), v, info.Default})
	}
	table.Render()
	return nil
}

func (sh *shell) apply(args []string) error {
	if len(args) != 1 {
		return usageError("apply")
	}
	res, err := sh.reg.ApplyFile(args[0])
	fmt.Fprintf(sh.out, "%d changed, %d unchanged, %d failed\n", res.Changed, res.Unchanged, res.Failed)
	return err
}

func (sh *shell) dump([]string) error {
	data, err := sh.reg.Dump()
	if err != nil {
		return err
	}
	_, err = sh.out.Write(data)
	return err
}

func (sh *shell) tick(args []string) error {
	n, err := countArg(args)
	if err != nil {
		return err
	}
	fired := 0
	for i := 0; i < n; i++ {
		if sh.loop.Step() {
			fired++
		}
	}
	fmt.Fprintf(sh.out, "t=%dms fired=%d store=%s\n", sh.clock.ms, fired, sh.st.State())
	return nil
}

func (sh *shell) commit(args []string) error {
	n, err := countArg(args)
	if err != nil {
		return err
	}
	for i := 0; i < n && sh.st.Commit(); i++ {
	}
	fmt.Fprintf(sh.out, "store=%s\n", sh.st.State())
	return nil
}

func (sh *shell) flush([]string) error {
	sh.st.Flush()
	fmt.Fprintf(sh.out, "store=%s\n", sh.st.State())
	return nil
}

func (sh *shell) status([]string) error {
	s := sh.st.Stats()

	table := tablewriter.NewWriter(sh.out)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.AppendBulk([][]string{
		{"state", s.State.String()},
		{"durable", strconv.FormatBool(s.Durable)},
		{"backend", backend.Describe(sh.st.Backend())},
		{"base", fmt.Sprintf("0x%06x", sh.st.Base())},
		{"mutations", strconv.FormatInt(s.Mutations, 10)},
		{"resets", strconv.FormatInt(s.Resets, 10)},
		{"cycles", strconv.FormatInt(s.Cycles, 10)},
		{"requeued", strconv.FormatInt(s.Requeued, 10)},
		{"erase quanta", strconv.FormatInt(s.EraseQuanta, 10)},
		{"write quanta", strconv.FormatInt(s.WriteQuanta, 10)},
		{"io errors", strconv.FormatInt(s.IOErrors, 10)},
		{"cycle ms p50/p99", fmt.Sprintf("%.0f/%.0f", s.CycleMs.P50, s.CycleMs.P99)},
	})
	table.Render()
	return nil
}

func (sh *shell) history([]string) error {
	table := tablewriter.NewWriter(sh.out)
	table.SetHeader([]string{"At", "From", "To"})
	table.SetBorder(false)
	for _, tr := range sh.st.History() {
		table.Append([]string{fmt.Sprintf("%dms", tr.AtMs), tr.From.String(), tr.To.String()})
	}
	table.Render()
	return nil
}

func (sh *shell) layout([]string) error {
	table := tablewriter.NewWriter(sh.out)
	table.SetHeader([]string{"ID", "Sub-record", "Offset", "Size"})
	table.SetBorder(false)
	for _, info := range layout.Layout() {
		table.Append([]string{
			strconv.Itoa(int(info.ID)),
			info.Name,
			strconv.Itoa(info.Offset),
			strconv.Itoa(info.Size),
		})
	}
	table.SetFooter([]string{"", "total", "", strconv.Itoa(layout.Size)})
	table.Render()

	fmt.Fprintln(sh.out)
	fmt.Fprint(sh.out, sh.cfg.CalculateRequirements().String())
	return nil
}

func (sh *shell) save([]string) error {
	if sh.cfg.Image == "" {
		return fmt.Errorf("no image file configured")
	}
	if err := sh.med.Save(); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "saved %s\n", sh.cfg.Image)
	return nil
}

func (sh *shell) help([]string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(sh.out, "  %-22s %s\n", c.usage, c.help)
	}
	return nil
}

func (sh *shell) exit([]string) error {
	sh.quit = true
	return nil
}

func usageError(name string) error {
	return fmt.Errorf("usage: %s", commands[name].usage)
}

func countArg(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("count must be a positive integer")
	}
	return n, nil
}

// =============================================================================
// Completion
// =============================================================================

var nameCommands = map[string]bool{"get": true, "set": true, "flag": true, "list": true}

// suggest completes the text before the cursor: command names first,
// then setting names for commands that take one.
func (sh *shell) suggest(before string) []prompt.Suggest {
	fields := strings.Fields(before)
	trailingSpace := strings.HasSuffix(before, " ")

	if len(fields) == 0 || (len(fields) == 1 && !trailingSpace) {
		word := ""
		if len(fields) == 1 {
			word = fields[0]
		}
		var out []prompt.Suggest
		for name, c := range commands {
			if strings.HasPrefix(name, word) {
				out = append(out, prompt.Suggest{Text: name, Description: c.help})
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
		return out
	}

	if !nameCommands[fields[0]] {
		return nil
	}
	var word string
	switch {
	case len(fields) == 1 && trailingSpace:
	case len(fields) == 2 && !trailingSpace:
		word = fields[1]
	default:
		return nil
	}

	var out []prompt.Suggest
	for _, name := range sh.reg.Match(word) {
		info, _ := sh.reg.Lookup(name)
		if fields[0] == "flag" && info.Kind != settings.KindFlag {
			continue
		}
		out = append(out, prompt.Suggest{Text: name, Description: info.Kind.String()})
	}
	return out
}

func (sh *shell) complete(d prompt.Document) []prompt.Suggest {
	return sh.suggest(d.TextBeforeCursor())
}

func (sh *shell) runInteractive() {
	p := prompt.New(
		func(in string) {
			if err := sh.exec(in); err != nil {
				fmt.Fprintln(sh.out, "error:", err)
			}
		},
		sh.complete,
		prompt.OptionPrefix("dmxnode> "),
		prompt.OptionTitle("dmxnode config shell"),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool { return sh.quit }),
	)
	p.Run()
}

// runScript executes one command per line and stops at exit. It returns
// the number of failed commands.
func (sh *shell) runScript(r io.Reader, echo bool) int {
	failed := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if echo && strings.TrimSpace(line) != "" {
			fmt.Fprintf(sh.out, "> %s\n", strings.TrimSpace(line))
		}
		if err := sh.exec(line); err != nil {
			fmt.Fprintln(sh.out, "error:", err)
			failed++
		}
		if sh.quit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintln(sh.out, "error: read input:", err)
		failed++
	}
	return failed
}
