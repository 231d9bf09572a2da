package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/clarete/guide"
	"github.com/clarete/guide/ascii"
	"github.com/clarete/guide/envconfig"
	"github.com/clarete/guide/logutil"
	"github.com/clarete/guide/schema"
	"github.com/clarete/guide/tokenizer"
)

// options are the flags shared by every command
type options struct {
	grammarPath string
	schemaPath  string
	start       string
	vocabPath   string
	vocabType   string
	input       string
	compact     bool
	color       bool
	verbose     int
}

func NewCLI() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "guide",
		Short: "Constrain token generation with a grammar",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true

			level := logutil.Level(envconfig.Debug, opts.verbose)
			if envconfig.Trace {
				level = logutil.LevelTrace
			}
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), level))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.grammarPath, "grammar", "g", "", "Path to an EBNF grammar")
	flags.StringVarP(&opts.schemaPath, "schema", "s", "", "Path to a JSON Schema, used instead of --grammar")
	flags.StringVar(&opts.start, "start", "root", "Start production of the EBNF grammar")
	flags.BoolVar(&opts.compact, "compact", false, "Disallow whitespace between the tokens of a JSON Schema document")
	flags.BoolVar(&opts.color, "color", false, "Colorize the output")
	flags.CountVarP(&opts.verbose, "verbose", "v", "Log more details, repeat for tracing")

	cobra.EnableCommandSorting = false

	checkCmd := &cobra.Command{
		Use:   "check INPUT",
		Short: "Tell whether the input is a complete match, a prefix or invalid",
		Long:  "Tell whether the input is a complete match, a prefix or invalid. Use - to read the input from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHandler(cmd, opts, args[0])
		},
	}

	maskCmd := &cobra.Command{
		Use:   "mask",
		Short: "List the tokens allowed after the input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return maskHandler(cmd, opts)
		},
	}
	maskCmd.Flags().StringVar(&opts.vocabPath, "vocab", "", "Path to a tokenizer.json, printable ASCII when empty")
	maskCmd.Flags().StringVar(&opts.vocabType, "vocab-type", "", "Override the detected vocabulary type (raw, byte_fallback, byte_level)")
	maskCmd.Flags().StringVarP(&opts.input, "input", "i", "", "Text already generated")

	jumpCmd := &cobra.Command{
		Use:   "jump",
		Short: "Print the text the grammar forces after the input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return jumpHandler(cmd, opts)
		},
	}
	jumpCmd.Flags().StringVarP(&opts.input, "input", "i", "", "Text already generated")

	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the grammar after lowering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printHandler(cmd, opts)
		},
	}

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "List the environment variables and their values",
		Args:  cobra.NoArgs,
		RunE:  envHandler,
	}

	rootCmd.AddCommand(checkCmd, maskCmd, jumpCmd, printCmd, envCmd)
	return rootCmd
}

func checkHandler(cmd *cobra.Command, opts *options, input string) error {
	if input == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		input = string(data)
	}
	g, err := loadGrammar(opts)
	if err != nil {
		return err
	}
	vocab, err := defaultVocabulary()
	if err != nil {
		return err
	}
	m, err := newMatcher(g, vocab)
	if err != nil {
		return err
	}

	// one byte at a time to point at the first rejected one
	for i := 0; i < len(input); i++ {
		ok, err := m.AcceptString(input[i : i+1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), opts.paint(ascii.DefaultTheme.Error, "invalid"))
			return fmt.Errorf("input rejected at byte %d: %s", i, strconv.Quote(input[i:]))
		}
	}

	if m.State() == guide.Active {
		fmt.Fprintln(cmd.OutOrStdout(), opts.paint(ascii.DefaultTheme.Muted, "prefix"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), opts.paint(ascii.DefaultTheme.Success, "complete"))
	return nil
}

func maskHandler(cmd *cobra.Command, opts *options) error {
	g, err := loadGrammar(opts)
	if err != nil {
		return err
	}
	vocab, err := loadVocabulary(opts)
	if err != nil {
		return err
	}
	m, err := newMatcher(g, vocab)
	if err != nil {
		return err
	}
	if err := acceptInput(m, opts.input); err != nil {
		return err
	}

	bitmask, err := guide.AllocateTokenBitmask(1, vocab.Size(), nil)
	if err != nil {
		return err
	}
	if err := m.FillNextTokenBitmask(bitmask, 0); err != nil {
		return err
	}
	allowed := bitmask.AllowedTokens(0)

	var data [][]string
	for _, id := range allowed {
		var kind string
		switch {
		case vocab.IsStop(id):
			kind = "stop"
		case vocab.IsSpecial(id):
			kind = "special"
		}
		data = append(data, []string{strconv.Itoa(int(id)), strconv.Quote(string(vocab.Token(id))), kind})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ID", "TOKEN", "KIND"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d tokens allowed\n", len(allowed), vocab.Size())
	return nil
}

func jumpHandler(cmd *cobra.Command, opts *options) error {
	g, err := loadGrammar(opts)
	if err != nil {
		return err
	}
	vocab, err := defaultVocabulary()
	if err != nil {
		return err
	}
	m, err := newMatcher(g, vocab)
	if err != nil {
		return err
	}
	if err := acceptInput(m, opts.input); err != nil {
		return err
	}
	forced, err := m.FindJumpForwardString()
	if err != nil {
		return err
	}
	if opts.color {
		fmt.Fprintln(cmd.OutOrStdout(), ascii.Color(ascii.DefaultTheme.Muted, "%s", opts.input)+
			ascii.Color(ascii.DefaultTheme.Accent, "%s", forced))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), forced)
	return nil
}

func printHandler(cmd *cobra.Command, opts *options) error {
	g, err := loadGrammar(opts)
	if err != nil {
		return err
	}
	if opts.color {
		fmt.Fprint(cmd.OutOrStdout(), g.HighlightString())
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), g.String())
	return nil
}

func envHandler(cmd *cobra.Command, args []string) error {
	vars := envconfig.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var data [][]string
	for _, name := range names {
		v := vars[name]
		data = append(data, []string{v.Name, fmt.Sprintf("%v", v.Value), v.Description})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"NAME", "VALUE", "DESCRIPTION"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}

var errNoGrammar = errors.New("one of --grammar or --schema is required")

func loadGrammar(opts *options) (*guide.Grammar, error) {
	switch {
	case opts.grammarPath != "" && opts.schemaPath != "":
		return nil, errors.New("--grammar and --schema can't be used together")

	case opts.grammarPath != "":
		f, err := os.Open(opts.grammarPath)
		if err != nil {
			return nil, fmt.Errorf("can't read grammar file: %w", err)
		}
		defer f.Close()
		return guide.ParseEBNF(opts.grammarPath, f, opts.start)

	case opts.schemaPath != "":
		data, err := os.ReadFile(opts.schemaPath)
		if err != nil {
			return nil, fmt.Errorf("can't read schema file: %w", err)
		}
		return schema.Grammar(string(data), &schema.Options{Compact: opts.compact, Strict: true})
	}
	return nil, errNoGrammar
}

// defaultVocabulary has one token per printable ASCII character and
// the common whitespace, plus `<eos>` as the stop token
func defaultVocabulary() (*guide.Vocabulary, error) {
	tokens := []string{"<eos>", "\t", "\n", "\r"}
	for c := ' '; c <= '~'; c++ {
		tokens = append(tokens, string(c))
	}
	return guide.NewVocabularyFromStrings(tokens)
}

func loadVocabulary(opts *options) (*guide.Vocabulary, error) {
	if opts.vocabPath == "" {
		return defaultVocabulary()
	}
	info, err := tokenizer.LoadHuggingFace(opts.vocabPath)
	if err != nil {
		return nil, err
	}
	if opts.vocabType != "" {
		if info.Type, err = tokenizer.ParseVocabType(opts.vocabType); err != nil {
			return nil, err
		}
	}
	slog.Debug("loaded vocabulary", "path", opts.vocabPath, "tokens", len(info.Tokens), "type", info.Type)
	return info.Vocabulary()
}

func newMatcher(g *guide.Grammar, vocab *guide.Vocabulary) (*guide.GrammarMatcher, error) {
	cg, err := guide.Compile(g, vocab)
	if err != nil {
		return nil, err
	}
	cfg := guide.NewConfig()
	envconfig.ApplyTo(cfg)
	if envconfig.Debug {
		cfg.Debug(os.Stderr)
	}
	return guide.NewGrammarMatcher(cg, cfg)
}

func acceptInput(m *guide.GrammarMatcher, input string) error {
	ok, err := m.AcceptString(input)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("input %s isn't accepted by the grammar", strconv.Quote(input))
	}
	return nil
}

func (o *options) paint(color, text string) string {
	if !o.color {
		return text
	}
	return ascii.Color(color, "%s", text)
}
