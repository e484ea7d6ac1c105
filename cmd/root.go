package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ValentinKolb/hzrd/cmd/scenario"
	"github.com/ValentinKolb/hzrd/cmd/stress"
	"github.com/ValentinKolb/hzrd/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "hzrd",
		Short: "hazard pointer reclamation toolkit",
		Long: fmt.Sprintf(`hzrd (v%s)

Lock-free readable cells with hazard-pointer based reclamation of replaced
values. This tool runs stress tests and fixed scenarios against the library.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hzrd",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hzrd v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(stress.StressCmd)
	RootCmd.AddCommand(scenario.ScenarioCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupLogFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
// An interrupt cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
