package stress

import (
	"fmt"
	"os"

	cmdUtil "github.com/ValentinKolb/hzrd/cmd/util"
	"github.com/ValentinKolb/hzrd/lib/common"
	"github.com/ValentinKolb/hzrd/lib/stress"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	stressCmdConfig common.StressConfig
	StressCmd       = &cobra.Command{
		Use:   "stress",
		Short: "Run readers and writers against one cell",
		Long: `Run readers and writers against one cell for a fixed duration and verify that no reader ever observes a reclaimed value.
The configuration can be set via command line flags or environment variables. The format of the environment variables is HZRD_<flag> (e.g. HZRD_READERS=8)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cmdUtil.SetupStressFlags(StressCmd)

	key := "metrics"
	StressCmd.Flags().Bool(key, false, cmdUtil.WrapString("Print the domain metrics in Prometheus text format after the run"))

	key = "timers"
	StressCmd.Flags().Bool(key, false, cmdUtil.WrapString("Print the raw read and write timers after the run"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := cmdUtil.InitLogging(); err != nil {
		return err
	}

	conf, err := cmdUtil.GetStressConfig()
	if err != nil {
		return err
	}
	stressCmdConfig = conf
	return nil
}

// run executes the stress run and prints the report
func run(cmd *cobra.Command, _ []string) error {
	fmt.Print(stressCmdConfig.String())

	res, err := stress.Run(cmd.Context(), stressCmdConfig)
	if res != nil {
		fmt.Print(res.String())

		if viper.GetBool("metrics") {
			fmt.Println()
			fmt.Print(res.Prometheus)
		}
		if viper.GetBool("timers") {
			fmt.Println()
			gometrics.WriteOnce(res.Timers, os.Stdout)
		}
	}
	return err
}
