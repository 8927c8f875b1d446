package cmd

import (
	"fmt"
	"os"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	output    = termenv.NewOutput(os.Stdout)
)

var rootCmd = &cobra.Command{
	Use:   "slidecraft-cli",
	Short: "A CLI client for the slidecraft deck service",
	Long:  `A command-line interface for submitting deck generation jobs, following their progress and rendering charts and slides.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", output.String("error:").Foreground(output.Color("1")).Bold(), err)
		os.Exit(1)
	}
}

func init() {
	defaultServer := os.Getenv("SLIDECRAFT_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "deck service base URL")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func success(format string, args ...interface{}) {
	fmt.Fprintln(os.Stdout, output.String(fmt.Sprintf(format, args...)).Foreground(output.Color("2")))
}

func hint(format string, args ...interface{}) {
	fmt.Fprintln(os.Stdout, output.String(fmt.Sprintf(format, args...)).Faint())
}
