// Command hdtgo converts between N-Triples and HDT containers and answers
// triple-pattern queries against them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
	"github.com/aleksaelezovic/hdtgo/pkg/store"
)

var (
	log = logrus.StandardLogger()

	flagConfig   string
	flagSet      []string
	flagVerbose  bool
	flagOrder    string
	flagDict     string
	flagTriples  string
	flagNoHeader bool
	flagBaseURI  string
	flagProgress bool
)

func main() {
	root := &cobra.Command{
		Use:          "hdtgo",
		Short:        "HDT compact RDF storage tool",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML file with spec properties")
	root.PersistentFlags().StringArrayVar(&flagSet, "set", nil, "spec property override (key=value)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&flagProgress, "progress", false, "print progress notifications")

	importCmd := &cobra.Command{
		Use:   "import <in.nt> <out.hdt>",
		Short: "Build an HDT container from an N-Triples file",
		Args:  cobra.ExactArgs(2),
		RunE:  runImport,
	}
	importCmd.Flags().StringVar(&flagOrder, "order", "", "component order (SPO, SOP, PSO, POS, OSP, OPS)")
	importCmd.Flags().StringVar(&flagDict, "dictionary", "", "dictionary type (plain, pfc)")
	importCmd.Flags().StringVar(&flagTriples, "triples", "", "triples type (list, disk, plain, compact, bitmap)")
	importCmd.Flags().BoolVar(&flagNoHeader, "noheader", false, "write an empty header section")
	importCmd.Flags().StringVar(&flagBaseURI, "base-uri", "", "dataset IRI used in the header")

	exportCmd := &cobra.Command{
		Use:   "export <in.hdt> [out.nt]",
		Short: "Serialize an HDT container back to N-Triples",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runExport,
	}

	searchCmd := &cobra.Command{
		Use:   "search <in.hdt> <subject|?> <predicate|?> <object|?>",
		Short: "Answer one triple pattern; ? is a wildcard",
		Args:  cobra.ExactArgs(4),
		RunE:  runSearch,
	}

	infoCmd := &cobra.Command{
		Use:   "info <in.hdt>",
		Short: "Print the header and section summary of a container",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}

	root.AddCommand(importCmd, exportCmd, searchCmd, infoCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildSpec merges the config file, --set overrides and per-command flags.
func buildSpec() (hdt.Spec, error) {
	spec := hdt.NewSpec()

	if flagConfig != "" {
		f, err := os.Open(flagConfig)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		defer f.Close()
		spec, err = hdt.SpecFromYAML(f)
		if err != nil {
			return nil, err
		}
	}

	for _, kv := range flagSet {
		eq := strings.IndexByte(kv, '=')
		if eq < 1 {
			return nil, fmt.Errorf("bad --set value %q, want key=value", kv)
		}
		spec.Set(kv[:eq], kv[eq+1:])
	}

	if flagOrder != "" {
		spec.Set(hdt.SpecTriplesOrder, flagOrder)
	}
	if flagDict != "" {
		spec.Set(hdt.SpecDictionaryType, flagDict)
	}
	if flagTriples != "" {
		spec.Set(hdt.SpecTriplesType, flagTriples)
	}
	if flagNoHeader {
		spec.Set(hdt.SpecNoHeader, "true")
	}
	return spec, nil
}

func listener() hdt.ProgressListener {
	if !flagProgress {
		return nil
	}
	return func(stage string, done, total uint64) bool {
		log.WithFields(logrus.Fields{"done": done, "total": total}).Info(stage)
		return true
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	spec, err := buildSpec()
	if err != nil {
		return err
	}

	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	parser, err := rdf.NewParserFromReader(in)
	if err != nil {
		return err
	}

	h := store.NewHDT(spec)
	defer h.Close()
	if err := h.LoadFromRDF(parser, flagBaseURI, listener()); err != nil {
		return err
	}
	if err := h.SaveFile(args[1], listener()); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"triples": h.Triples().NumberOfElements(),
		"entries": h.Dictionary().NumberOfElements(),
		"out":     args[1],
	}).Info("import finished")
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	spec, err := buildSpec()
	if err != nil {
		return err
	}

	h := store.NewHDT(spec)
	defer h.Close()
	if err := h.MapFile(args[0], listener()); err != nil {
		return err
	}

	out := os.Stdout
	if len(args) == 2 {
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return h.SaveToRDF(out, listener())
}

func runSearch(cmd *cobra.Command, args []string) error {
	spec, err := buildSpec()
	if err != nil {
		return err
	}

	h := store.NewHDT(spec)
	defer h.Close()
	if err := h.MapFile(args[0], listener()); err != nil {
		return err
	}

	pattern := make([]string, 3)
	for i, a := range args[1:4] {
		if a != "?" {
			pattern[i] = a
		}
	}

	var n int
	it := h.Search(pattern[0], pattern[1], pattern[2])
	for it.Next() {
		fmt.Println(it.Triple())
		n++
	}
	log.WithField("results", n).Debug("search finished")
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	spec, err := buildSpec()
	if err != nil {
		return err
	}

	h := store.NewHDT(spec)
	defer h.Close()
	if err := h.MapFile(args[0], listener()); err != nil {
		return err
	}

	fmt.Printf("dictionary: %s\n", h.Dictionary().Type())
	fmt.Printf("  shared=%d subjects=%d predicates=%d objects=%d\n",
		h.Dictionary().NumShared(), h.Dictionary().NumSubjects(),
		h.Dictionary().NumPredicates(), h.Dictionary().NumObjects())
	fmt.Printf("triples: %s\n", h.Triples().Type())
	fmt.Printf("  count=%d order=%s\n", h.Triples().NumberOfElements(), h.Triples().Order())
	fmt.Printf("header: %d statements\n", h.Header().NumberOfElements())
	return nil
}
