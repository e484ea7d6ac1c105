package scenario

import (
	"context"
	"fmt"
	"time"

	cmdUtil "github.com/ValentinKolb/hzrd/cmd/util"
	"github.com/ValentinKolb/hzrd/lib/stress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ScenarioCmd = &cobra.Command{
	Use:   "scenario [name...]",
	Short: "Run fixed concurrency scenarios",
	Long: `Run one or more fixed concurrency scenarios. Without arguments the available scenarios are listed.
Use "all" to run every scenario.`,
	PreRunE: processConfig,
	RunE:    run,
}

func init() {
	key := "timeout"
	ScenarioCmd.Flags().Duration(key, 10*time.Second, cmdUtil.WrapString("Maximum time a single scenario may take"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	return cmdUtil.InitLogging()
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, s := range stress.Scenarios() {
			fmt.Printf("%-8s %s\n", s.Name, s.Description)
		}
		return nil
	}

	if len(args) == 1 && args[0] == "all" {
		args = args[:0]
		for _, s := range stress.Scenarios() {
			args = append(args, s.Name)
		}
	}

	failed := 0
	for _, name := range args {
		ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
		err := stress.RunScenario(ctx, name)
		cancel()

		if err != nil {
			fmt.Printf("FAIL %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("ok   %s\n", name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
	}
	return nil
}
