package main

import (
	"fmt"
	"os"

	"github.com/i5heu/cactusdisk/internal/keyValStore"
	"github.com/i5heu/cactusdisk/pkg/cactusDisk"
	"github.com/spf13/cobra"
)

var (
	configPath string
	storePath  string
	storeType  string
	redisAddr  string
	create     bool
	verbose    bool
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "yaml configuration file")
	RootCmd.PersistentFlags().StringVarP(&storePath, "path", "p", "", "directory of a local backend, overrides the configuration")
	RootCmd.PersistentFlags().StringVarP(&storeType, "backend", "b", "", "backend type: badger, leveldb or redis")
	RootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "address of the redis backend")
	RootCmd.PersistentFlags().BoolVar(&create, "create", false, "create the backend, emptying it if it exists")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	RootCmd.AddCommand(UniqueIDCmd)
	RootCmd.AddCommand(AddStringCmd)
	RootCmd.AddCommand(GetStringCmd)
	RootCmd.AddCommand(FlowerCmd)
	RootCmd.AddCommand(MetaSequenceCmd)
	RootCmd.AddCommand(DeleteFlowerCmd)
	RootCmd.AddCommand(UsageCmd)
}

// RootCmd is the main command for the 'cactusDisk' binary.
var RootCmd = &cobra.Command{
	Use:   "cactusDisk",
	Short: "`cactusDisk` inspects and edits a cactus disk",
	Run: func(cmd *cobra.Command, args []string) {
		// nolint:errcheck
		cmd.Usage()
	},
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfiguration() (cactusDisk.Config, error) {
	var config cactusDisk.Config
	if configPath != "" {
		var err error
		config, err = cactusDisk.LoadConfig(configPath)
		if err != nil {
			return config, err
		}
	}

	if storeType != "" {
		config.Store.Type = keyValStore.StoreType(storeType)
	}
	if storePath != "" {
		config.Store.Paths = []string{storePath}
	}
	if redisAddr != "" {
		config.Store.RedisAddr = redisAddr
	}
	if verbose {
		config.LogLevel = "debug"
	}

	if config.Store.Type != keyValStore.RedisStore && len(config.Store.Paths) == 0 {
		return config, fmt.Errorf("no backend path given, use --path or --config")
	}
	return config, nil
}

// withDisk opens the configured disk, runs fn and closes the disk again.
func withDisk(fn func(cd *cactusDisk.CactusDisk) error) error {
	config, err := resolveConfiguration()
	if err != nil {
		return err
	}

	cd, err := cactusDisk.New(config, create)
	if err != nil {
		return err
	}

	err = fn(cd)
	if closeErr := cd.Close(); err == nil {
		err = closeErr
	}
	return err
}
