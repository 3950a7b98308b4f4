package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/killallgit/llt/pkg/config"
	"github.com/killallgit/llt/pkg/library"
	"github.com/killallgit/llt/pkg/logger"
	_ "github.com/killallgit/llt/pkg/parser" // registers the llt parser
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "llt",
	Short: "Render LLM prompt templates",
	Long: `llt compiles .llt template source into prompt and chat-message
templates and renders them against a caller-supplied context.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .llt.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if err := config.Init(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}

// loadTemplates imports the configured template paths plus any paths given
// on the command line into the shared library.
func loadTemplates(args []string) error {
	lib := library.Shared()
	paths := append(append([]string{}, config.Get().Templates.Paths...), args...)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		if info.IsDir() {
			if _, err := lib.ImportDir(path); err != nil {
				return err
			}
		} else {
			if _, err := lib.ImportFile(path); err != nil {
				return err
			}
		}
	}
	if lib.Len() == 0 {
		return fmt.Errorf("no templates loaded; pass template files or configure templates.paths")
	}
	return nil
}
