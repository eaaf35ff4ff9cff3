package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/rules"
)

var (
	checkRulesFile   string
	checkNetlistFile string
	checkAllErrors   bool
)

var checkCmd = &cobra.Command{
	Use:   "check <board_file>",
	Short: "Run design rule checks on a board",
	Long: `Parses a KiCad PCB file and runs the full check sequence:
net class sanity, pad and track clearances, drilled hole spacing,
zones, keepouts, courtyards and connectivity.

The exit status is nonzero when violations are found, so the command
can gate a CI pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkRulesFile, "rules", "", "clearance rule file (overrides the config)")
	checkCmd.Flags().StringVar(&checkNetlistFile, "netlist", "", "netlist file for footprint reconciliation (one 'REF VALUE' per line)")
	checkCmd.Flags().BoolVar(&checkAllErrors, "all-track-errors", false, "report every violation of a track, not only the first")
}

func runCheck(cmd *cobra.Command, args []string) error {
	filename := args[0]

	brd, err := board.ParseFile(filename)
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}
	logger.Debug("board loaded", "file", filename,
		"footprints", len(brd.Footprints), "tracks", len(brd.Tracks),
		"vias", len(brd.Vias), "zones", len(brd.Zones))
	if verbose {
		printBoardInfo(brd, filename)
	}

	cfg, err := loadConfig(configPath, filename)
	if err != nil {
		return err
	}
	cfg.ApplyMinimums(brd)

	opts := cfg.Options()
	if checkAllErrors {
		opts.ReportAllTrackErrors = true
	}

	policy, err := drc.NewSeverityPolicy(cfg.Severity.Ignore)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	runner := &drc.Runner{
		Board:  brd,
		Policy: policy,
	}

	rulesPath := cfg.RulesPath()
	if checkRulesFile != "" {
		rulesPath = checkRulesFile
	}
	if rulesPath != "" {
		loader, err := rules.NewLoader(rulesPath)
		if err != nil {
			return fmt.Errorf("rules: %w", err)
		}
		runner.RuleLoader = loader
		logger.Debug("rule file configured", "path", rulesPath)
	}

	if checkNetlistFile != "" {
		netlist, err := readNetlist(checkNetlistFile)
		if err != nil {
			return fmt.Errorf("netlist: %w", err)
		}
		runner.Netlist = netlist
		opts.TestFootprints = true
	}

	if verbose {
		runner.Progress = &printProgress{}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := runner.RunTests(ctx, opts)
	if err != nil {
		return err
	}
	if runner.RuleError != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (checked with board defaults)\n", runner.RuleError)
	}
	if results.Canceled {
		return fmt.Errorf("check canceled")
	}

	printResults(brd, results)

	if n := len(results.Violations) + len(results.Footprints); n > 0 {
		return fmt.Errorf("%d violation(s) found", n)
	}
	return nil
}

// printProgress writes phase progress on one rewritten terminal line.
type printProgress struct {
	lastPhase string
}

func (p *printProgress) Progress(phase string, done, total int) {
	if phase != p.lastPhase && p.lastPhase != "" {
		fmt.Fprintln(os.Stderr)
	}
	p.lastPhase = phase
	fmt.Fprintf(os.Stderr, "\r%-24s %d/%d", phase, done, total)
}

func (p *printProgress) Canceled() bool { return false }

// readNetlist reads the reference/value pairs used for footprint
// reconciliation. Blank lines and '#' comments are skipped.
func readNetlist(path string) ([]drc.NetlistComponent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []drc.NetlistComponent
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		comp := drc.NetlistComponent{Reference: fields[0]}
		if len(fields) > 1 {
			comp.Value = fields[1]
		}
		out = append(out, comp)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", path, line, err)
	}
	return out, nil
}

func printBoardInfo(b *board.Board, filename string) {
	fmt.Printf("Board: %s\n", filename)
	fmt.Printf("  Version: %d\n", b.Version)
	fmt.Printf("  Generator: %s\n", b.Generator)
	fmt.Printf("  Layers: %d\n", len(b.Layers))
	fmt.Printf("  Nets: %d\n", len(b.Nets))
	fmt.Printf("  Footprints: %d\n", len(b.Footprints))
	fmt.Printf("  Tracks: %d\n", len(b.Tracks))
	fmt.Printf("  Vias: %d\n", len(b.Vias))
	fmt.Printf("  Zones: %d\n", len(b.Zones))
	fmt.Println()
}

func printResults(b *board.Board, results *drc.ResultSet) {
	if verbose {
		fmt.Fprintln(os.Stderr)
	}

	for _, v := range results.Violations {
		fmt.Printf("error: [%s] %s\n", v.Kind, v.Message)
		fmt.Printf("    at %s\n", fmtPoint(v.Location))
		if v.Primary != nil {
			fmt.Printf("    %s\n", v.Primary)
		}
		if v.Secondary != nil {
			fmt.Printf("    %s\n", v.Secondary)
		}
	}

	for _, fi := range results.Footprints {
		fmt.Printf("error: footprint %s\n", fi)
	}

	if len(results.Unconnected) > 0 {
		fmt.Printf("\nUnconnected items (%d):\n", len(results.Unconnected))
		for _, e := range results.Unconnected {
			fmt.Printf("  net %-24s %s to %s\n",
				quoteNet(b.NetName(e.NetCode)), fmtPoint(e.From), fmtPoint(e.To))
		}
	}

	fmt.Printf("\n%d violation(s), %d unconnected item(s)\n",
		len(results.Violations)+len(results.Footprints), len(results.Unconnected))
	printKindSummary(results)
}

// printKindSummary lists violation counts per kind, most frequent first.
func printKindSummary(results *drc.ResultSet) {
	counts := map[drc.ErrorKind]int{}
	for _, v := range results.Violations {
		counts[v.Kind]++
	}
	if len(counts) == 0 {
		return
	}
	kinds := make([]drc.ErrorKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	for _, k := range kinds {
		fmt.Printf("  %6d  %s\n", counts[k], k)
	}
}

func fmtPoint(p geometry.Vec) string {
	return fmt.Sprintf("(%.4f, %.4f) mm", geometry.ToMM(p.X), geometry.ToMM(p.Y))
}

func quoteNet(name string) string {
	if name == "" {
		return "<none>"
	}
	return "'" + name + "'"
}
