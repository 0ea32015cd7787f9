package kv

import (
	"github.com/ValentinKolb/skv/cmd/util"
	"github.com/ValentinKolb/skv/rpc/client"
	"github.com/ValentinKolb/skv/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"time"
)

var (
	kvClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value operations against a running skv server",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add connection flags to the KV command
	util.SetupTransportFlags(KeyValueCommands)

	key := "timeout"
	KeyValueCommands.PersistentFlags().Int(key, 10, util.WrapString("The timeout in seconds of the client"))

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(rawCmd)
}

// setupKVClient connects the client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	var err error
	kvClient, err = client.Dial(
		util.GetTransportConfig(),
		time.Duration(viper.GetInt("timeout"))*time.Second,
	)
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if kvClient == nil {
		return nil
	}
	return kvClient.Close()
}
