package main

import (
	"fmt"
	"os"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/kobzarvs/qcolor/internal/app"
	"github.com/kobzarvs/qcolor/internal/logger"
)

var (
	version = "dev"
	debug   bool
	lang    string
	follow  bool
	color   string
)

var rootCmd = &cobra.Command{
	Use:           "qcolor FILE",
	Short:         "View a file with incremental syntax highlighting",
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logger.Init(debug); err != nil {
			fmt.Fprintln(os.Stderr, "qcolor: logging disabled:", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.New(app.Options{Path: args[0], Lang: lang, Follow: follow}).Run()
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Highlight a file and print it with terminal colors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := colorProfile(color)
		if err != nil {
			return err
		}
		return app.New(app.Options{Path: args[0], Lang: lang}).Dump(cmd.OutOrStdout(), profile)
	},
}

func colorProfile(mode string) (termenv.Profile, error) {
	switch mode {
	case "auto":
		return termenv.NewOutput(os.Stdout).EnvColorProfile(), nil
	case "always":
		return termenv.TrueColor, nil
	case "never":
		return termenv.Ascii, nil
	}
	return termenv.Ascii, fmt.Errorf("invalid --color %q: want auto, always or never", mode)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs")
	rootCmd.PersistentFlags().StringVarP(&lang, "lang", "l", "", "language to highlight as (default: by file name)")
	rootCmd.Flags().BoolVarP(&follow, "follow", "f", false, "reload the file when it changes on disk")
	dumpCmd.Flags().StringVar(&color, "color", "auto", "when to emit colors: auto, always or never")
	rootCmd.AddCommand(dumpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "qcolor:", err)
		os.Exit(1)
	}
}
