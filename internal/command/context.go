package command

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/cache"
	"github.com/adamavenir/office/internal/channel"
	"github.com/adamavenir/office/internal/core"
	"github.com/adamavenir/office/internal/types"
)

// CommandContext carries the wired client stack for one invocation.
type CommandContext struct {
	Config  core.Config
	Client  *api.Client
	Manager *channel.Manager
	Cache   *cache.Cache
	Channel string
}

// Close releases sessions and the message cache.
func (c *CommandContext) Close() {
	if c.Manager != nil {
		c.Manager.Shutdown()
	}
	if c.Cache != nil {
		c.Cache.Close()
	}
}

// GetContext builds the client stack from config, env, and flags.
// OnApproval is optional and only used by the interactive UI.
func GetContext(cmd *cobra.Command, onApproval func(types.ApprovalRequest)) (*CommandContext, error) {
	config, err := core.ReadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := api.NewClient(config.ServerURL, config.Token)
	if err != nil {
		return nil, err
	}

	var logger *log.Logger
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger = log.New(os.Stderr, "office: ", log.LstdFlags)
	}

	var messageCache *cache.Cache
	if path, err := config.CacheFile(); err == nil {
		if c, err := cache.Open(path); err == nil {
			messageCache = c
		} else if logger != nil {
			logger.Printf("message cache unavailable: %v", err)
		}
	}

	var cacheIface channel.MessageCache
	if messageCache != nil {
		cacheIface = messageCache
	}
	manager := channel.NewManager(channel.ManagerOptions{
		Client:     client,
		Logger:     logger,
		Cache:      cacheIface,
		OnApproval: onApproval,
	})

	flagChannel, _ := cmd.Flags().GetString("channel")
	return &CommandContext{
		Config:  config,
		Client:  client,
		Manager: manager,
		Cache:   messageCache,
		Channel: config.Channel(flagChannel),
	}, nil
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func jsonMode(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
