package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Clearance rule file operations",
	Long:  `Commands for working with clearance rule files`,
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <rules_file>",
	Short: "Validate a rule file and show its contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesCheck,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	p, err := rules.NewParser()
	if err != nil {
		return err
	}
	rs, err := p.ParseFile(args[0])
	if err != nil {
		var perr *rules.ParseError
		if errors.As(err, &perr) {
			return fmt.Errorf("%s:%d:%d: %s", perr.File, perr.Line, perr.Column, perr.Message)
		}
		return err
	}

	fmt.Printf("Rule file version %d: %d rule(s), %d selector(s)\n\n",
		rs.Version, len(rs.Rules), len(rs.Selectors))

	names := make([]string, 0, len(rs.Rules))
	for name := range rs.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := rs.Rules[name]
		fmt.Printf("rule %q\n", r.Name)
		kinds := make([]string, 0, len(r.Constraints))
		for kind := range r.Constraints {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			value := r.Constraints[rules.ConstraintKind(kind)]
			fmt.Printf("  %-14s %.4f mm\n", kind, geometry.ToMM(value))
		}
		for _, d := range r.Disallow {
			fmt.Printf("  disallow       %s\n", d)
		}
	}

	if len(rs.Selectors) > 0 {
		fmt.Println()
	}
	for _, s := range rs.Selectors {
		fmt.Printf("selector -> rule %q\n", s.RuleName)
		printMatcher := func(name, value string) {
			if value != "" {
				fmt.Printf("  %-14s %s\n", name, value)
			}
		}
		printMatcher("netclass", s.NetClass)
		printMatcher("netname", s.NetName)
		printMatcher("layer", s.Layer)
		printMatcher("type", s.ItemType)
	}
	return nil
}
