package bench

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/skv/cmd/util"
	"github.com/ValentinKolb/skv/rpc/bench"
	"github.com/ValentinKolb/skv/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strconv"
	"time"
)

var (
	benchCmdConfig = common.DefaultBenchConfig()
	BenchCmd       = &cobra.Command{
		Use:   "bench [pid]",
		Short: "Measure the request latency of an skv server",
		Long: `Measure the request latency of a running skv server.

The benchmark opens --concurrency connections and keeps up to --batch-size PUT
requests in flight on each of them. Every --report-duration milliseconds a line
"time, count, p50, p90, p99" is printed: the nanoseconds since the previous
line, the number of acknowledged requests and the latency quantiles in
nanoseconds. The pid of the server is only used for diagnostics.

The format of the environment variables is SKV_<flag> (e.g. SKV_CONCURRENCY=32)`,
		Args:    cobra.ExactArgs(1),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupTransportFlags(BenchCmd)

	key := "concurrency"
	BenchCmd.PersistentFlags().Int(key, common.DefaultConcurrency, cmdUtil.WrapString("The number of connections"))

	key = "val-size"
	BenchCmd.PersistentFlags().Int(key, common.DefaultValueSize, cmdUtil.WrapString("The size of every value in bytes"))

	key = "batch-size"
	BenchCmd.PersistentFlags().Int(key, common.DefaultBatchSize, cmdUtil.WrapString("The number of requests kept in flight per connection"))

	key = "report-duration"
	BenchCmd.PersistentFlags().Int(key, int(common.DefaultReportInterval/time.Millisecond), cmdUtil.WrapString("The time between two report lines in milliseconds"))

	key = "count"
	BenchCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The number of requests after which the benchmark exits (0 = run until interrupted)"))

	key = "csv"
	BenchCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path to a CSV file the report lines are additionally written to"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the benchmark configuration
func processConfig(cmd *cobra.Command, args []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	pid, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("pid must be a number: %w", err)
	}

	benchCmdConfig.PID = pid
	benchCmdConfig.Transport = cmdUtil.GetTransportConfig()
	benchCmdConfig.Concurrency = viper.GetInt("concurrency")
	benchCmdConfig.ValueSize = viper.GetInt("val-size")
	benchCmdConfig.BatchSize = viper.GetInt("batch-size")
	benchCmdConfig.ReportInterval = time.Duration(viper.GetInt("report-duration")) * time.Millisecond
	benchCmdConfig.Count = viper.GetInt("count")
	benchCmdConfig.CSVPath = viper.GetString("csv")
	benchCmdConfig.LogLevel = viper.GetString("log-level")

	if err := common.InitLoggers(benchCmdConfig.LogLevel); err != nil {
		return err
	}
	return benchCmdConfig.Validate()
}

// run executes the benchmark and prints the summary
func run(_ *cobra.Command, _ []string) error {
	summary, err := bench.New(benchCmdConfig).Run(os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", summary)
	return nil
}
