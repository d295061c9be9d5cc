package cli

import (
	"github.com/spf13/pflag"

	"github.com/votewise/votewise/internal/config"
)

// PipelineFlags returns the flags that tune the answer pipeline. Unset flags
// leave the environment configuration untouched.
func PipelineFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("pipeline", pflag.ContinueOnError)
	fs.Int("top-k", 0, "Passages retrieved per question (default $VOTEWISE_TOP_K or 5)")
	fs.Int("word-budget", 0, "Approximate words per chunk sent to the model (default $VOTEWISE_WORD_BUDGET or 400)")
	fs.Int("concurrency", 0, "Summarization calls in flight per question (default $VOTEWISE_CONCURRENCY or 4)")
	fs.Bool("allow-partial", false, "Answer from the chunks that succeeded when some fail")
	fs.Bool("strict-combine", false, "Re-chunk combined partials until they fit the word budget")
	return fs
}

// ApplyPipelineFlags copies explicitly set pipeline flags onto cfg and
// re-validates it.
func ApplyPipelineFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "top-k":
			cfg.TopK, err = fs.GetInt(f.Name)
		case "word-budget":
			cfg.WordBudget, err = fs.GetInt(f.Name)
		case "concurrency":
			cfg.Concurrency, err = fs.GetInt(f.Name)
		case "allow-partial":
			cfg.AllowPartial, err = fs.GetBool(f.Name)
		case "strict-combine":
			cfg.StrictCombine, err = fs.GetBool(f.Name)
		}
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}
