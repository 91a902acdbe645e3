package bench

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/CyanoKobalamyne/msgstore/cmd/util"
	"github.com/CyanoKobalamyne/msgstore/lib/dispatch"
	"github.com/CyanoKobalamyne/msgstore/lib/logging"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	benchCmdConfig = dispatch.Config{}
	BenchCmd       = &cobra.Command{
		Use:     "bench",
		Short:   "Run the messaging benchmark",
		Long:    `Run the messaging benchmark with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is MSGSTORE_<flag> (e.g. MSGSTORE_REQUESTS=100000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	key := "users"
	BenchCmd.PersistentFlags().IntP(key, "n", 1024, util.WrapString("Number of users"))

	key = "channels"
	BenchCmd.PersistentFlags().IntP(key, "k", 1024, util.WrapString("Number of channels"))

	key = "capacity"
	BenchCmd.PersistentFlags().IntP(key, "m", 4096, util.WrapString("Message slots per channel"))

	key = "requests"
	BenchCmd.PersistentFlags().IntP(key, "t", 120000, util.WrapString("Total number of requests to issue"))

	key = "ratio"
	BenchCmd.PersistentFlags().IntP(key, "r", 9, util.WrapString("Number of fetch requests per post request"))

	key = "workers"
	BenchCmd.PersistentFlags().Int(key, 0, util.WrapString("Number of worker goroutines executing units (0 = number of CPUs)"))

	key = "seed"
	BenchCmd.PersistentFlags().Int64(key, 42, util.WrapString("Seed for the watch assignment and the workload shuffle"))

	key = "log-level"
	BenchCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics-addr"
	BenchCmd.PersistentFlags().String(key, "", util.WrapString("Optional address to expose Prometheus metrics on during the run (e.g. localhost:9100)"))

	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts it to the run configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	benchCmdConfig = dispatch.Config{
		Users:    viper.GetInt("users"),
		Channels: viper.GetInt("channels"),
		Capacity: viper.GetInt("capacity"),
		Requests: viper.GetInt("requests"),
		Ratio:    viper.GetInt("ratio"),
		Workers:  viper.GetInt("workers"),
		Seed:     viper.GetInt64("seed"),
	}

	return logging.Setup(viper.GetString("log-level"))
}

// run executes one benchmark run and prints the report
func run(_ *cobra.Command, _ []string) error {
	d, err := dispatch.New(benchCmdConfig)
	if err != nil {
		// configuration faults terminate with a usage message
		return err
	}
	defer d.Close()

	// optionally expose the run's counters for scraping
	if addr := viper.GetString("metrics-addr"); addr != "" {
		go func() {
			http.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
				metrics.WritePrometheus(w, true)
			})
			if err := http.ListenAndServe(addr, nil); err != nil {
				fmt.Fprintf(os.Stderr, "metrics listener failed: %v\n", err)
			}
		}()
	}

	fmt.Println("Messaging benchmark")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Users: %d, Channels: %d, Capacity: %d\n",
		benchCmdConfig.Users, benchCmdConfig.Channels, benchCmdConfig.Capacity)
	fmt.Printf("Requests: %d, Ratio: %d, Workers: %d, Seed: %d\n",
		benchCmdConfig.Requests, benchCmdConfig.Ratio, benchCmdConfig.Workers, benchCmdConfig.Seed)
	fmt.Println()

	report := d.Run()
	fmt.Println(report.String())

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeReportToCSV(csvPath, report); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// writeReportToCSV writes the run report and its configuration to a CSV file
func writeReportToCSV(csvPath string, report *dispatch.Report) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Users", "Channels", "Capacity", "Requests", "Ratio", "Workers", "Seed",
		"ElapsedNs",
		"PostsIssued", "PostsFailed", "FetchesIssued", "FetchesFailed", "MessagesFetched",
		"PostPrepareAvg", "PostPrepareP99", "PostExecuteAvg", "PostExecuteP99",
		"FetchPrepareAvg", "FetchPrepareP99", "FetchExecuteAvg", "FetchExecuteP99",
		"FillMean", "FillMin", "FillMax", "FillQuality",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	row := []string{
		strconv.Itoa(benchCmdConfig.Users),
		strconv.Itoa(benchCmdConfig.Channels),
		strconv.Itoa(benchCmdConfig.Capacity),
		strconv.Itoa(benchCmdConfig.Requests),
		strconv.Itoa(benchCmdConfig.Ratio),
		strconv.Itoa(benchCmdConfig.Workers),
		strconv.FormatInt(benchCmdConfig.Seed, 10),
		strconv.FormatInt(report.Elapsed.Nanoseconds(), 10),
		strconv.Itoa(report.PostsIssued),
		strconv.Itoa(report.PostsFailed),
		strconv.Itoa(report.FetchesIssued),
		strconv.Itoa(report.FetchesFailed),
		strconv.Itoa(report.MessagesFetched),
		durationField(report.PostPrepareAvg),
		durationField(report.PostPrepareP99),
		durationField(report.PostExecuteAvg),
		durationField(report.PostExecuteP99),
		durationField(report.FetchPrepareAvg),
		durationField(report.FetchPrepareP99),
		durationField(report.FetchExecuteAvg),
		durationField(report.FetchExecuteP99),
		fmt.Sprintf("%.2f", report.ChannelFill.Mean),
		fmt.Sprintf("%.0f", report.ChannelFill.Min),
		fmt.Sprintf("%.0f", report.ChannelFill.Max),
		fmt.Sprintf("%.2f", report.ChannelFill.DistributionQuality),
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %v", err)
	}

	return nil
}

func durationField(d time.Duration) string {
	return strconv.FormatInt(d.Nanoseconds(), 10)
}
