package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ask/internal/log"
	"github.com/teslashibe/go-ask/pkg/knowledge"
	"github.com/teslashibe/go-ask/pkg/resolve"
)

func newKBCmd(opts *options) *cobra.Command {
	kb := &cobra.Command{
		Use:   "kb",
		Short: "Knowledge base tools",
	}

	kb.AddCommand(&cobra.Command{
		Use:   "check [FILE]",
		Short: "Load a knowledge base and report problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfg.Resolver.KnowledgePath
			if len(args) == 1 {
				path = args[0]
			}
			base, err := knowledge.Load(path)
			if err != nil {
				return err
			}
			engine := resolve.New(base, opts.cfg.ResolveOptions(log.L())...)
			report := checkKnowledge(engine)
			report.print(cmd.OutOrStdout(), base.Source())
			return nil
		},
	})

	return kb
}

type kbReport struct {
	entries    int
	types      map[resolve.QuestionType]int
	duplicates []string
	// unreachable questions fail the keyword gate and are never retrieved.
	unreachable []string
}

func checkKnowledge(e *resolve.Engine) kbReport {
	r := kbReport{types: make(map[resolve.QuestionType]int)}
	seen := make(map[string]bool)

	for _, entry := range e.Knowledge().Entries() {
		r.entries++
		r.types[resolve.ClassifyQuestion(entry.Question)]++

		key := strings.ToLower(strings.TrimSpace(entry.Question))
		if seen[key] {
			r.duplicates = append(r.duplicates, entry.Question)
		}
		seen[key] = true

		if !e.Admits(entry.Question) {
			r.unreachable = append(r.unreachable, entry.Question)
		}
	}
	return r
}

func (r kbReport) print(w io.Writer, source string) {
	fmt.Fprintf(w, "Knowledge base: %s\n", source)
	fmt.Fprintf(w, "Entries: %d\n", r.entries)
	for _, t := range []resolve.QuestionType{resolve.TypeWhen, resolve.TypeWhere, resolve.TypeWho, resolve.TypeWhat, resolve.TypeNone} {
		fmt.Fprintf(w, "  %-6s %d\n", t, r.types[t])
	}

	if len(r.duplicates) > 0 {
		fmt.Fprintf(w, "⚠️  Duplicate questions (only the first is ever retrieved): %d\n", len(r.duplicates))
		for _, q := range r.duplicates {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}
	if len(r.unreachable) > 0 {
		fmt.Fprintf(w, "⚠️  Questions without a gate keyword: %d\n", len(r.unreachable))
		for _, q := range r.unreachable {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}
	if len(r.duplicates) == 0 && len(r.unreachable) == 0 {
		fmt.Fprintln(w, "✅ No problems found")
	}
}
