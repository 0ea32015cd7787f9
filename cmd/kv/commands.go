package kv

import (
	"fmt"
	"github.com/spf13/cobra"
	"strings"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvClient.Put(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Gets the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, found, err := kvClient.Get(args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("key not found")
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
	rawCmd = &cobra.Command{
		Use:   "raw [words...]",
		Short: "Sends the words as one request line and prints the response line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := kvClient.Do(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	}
)
