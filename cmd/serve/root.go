package serve

import (
	cmdUtil "github.com/ValentinKolb/skv/cmd/util"
	"github.com/ValentinKolb/skv/lib/store/lstore"
	"github.com/ValentinKolb/skv/rpc/common"
	"github.com/ValentinKolb/skv/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = common.DefaultServerConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the skv server",
		Long:    `Start the skv server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SKV_<flag> (e.g. SKV_MAX_CONNECTIONS=1024)`,
		Args:    cobra.NoArgs,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupTransportFlags(ServeCmd)

	key := "max-connections"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxConnections, cmdUtil.WrapString("The maximum number of simultaneously served clients, further connections are closed right after accepting them"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address of the HTTP listener serving Prometheus metrics at /metrics (e.g. 127.0.0.1:9100, empty = disabled)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Transport = cmdUtil.GetTransportConfig()
	serveCmdConfig.MaxConnections = viper.GetInt("max-connections")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	return serveCmdConfig.Validate()
}

// run starts the skv server
func run(_ *cobra.Command, _ []string) error {
	serv := server.NewServer(
		serveCmdConfig,
		lstore.NewLocalStore(),
		server.NewIStoreServerAdapter(),
	)

	return serv.Serve()
}
