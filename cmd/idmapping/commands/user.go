package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/storage"
)

// openStore opens the configured storage backend for an admin command.
// Admin commands bypass the HTTP surface and operate on storage directly.
func openStore() (storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local users",
	Long: `Manage users of the reserved "local" authentication source.

Local users authenticate with a generated bearer token. Tokens are shown
exactly once, when generated; only their hash is stored.`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a local user and print their token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := idmap.NewUsername(args[0])
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		token, err := idmap.NewToken()
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		if err := store.CreateLocalUser(context.Background(), name, token.Hash()); err != nil {
			return err
		}
		fmt.Printf("Created user %s\n", name)
		fmt.Printf("Token: %s\n", string(token))
		return nil
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token <name>",
	Short: "Rotate a local user's token and print the new one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := idmap.NewUsername(args[0])
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		token, err := idmap.NewToken()
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		if err := store.UpdateLocalUserToken(context.Background(), name, token.Hash()); err != nil {
			return err
		}
		fmt.Printf("New token for %s: %s\n", name, string(token))
		return nil
	},
}

var userAdminSet string

var userAdminCmd = &cobra.Command{
	Use:   "admin <name> --set true|false",
	Short: "Set or clear a local user's system admin flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := idmap.NewUsername(args[0])
		if err != nil {
			return err
		}
		var admin bool
		switch userAdminSet {
		case "true":
			admin = true
		case "false":
			admin = false
		default:
			return fmt.Errorf("--set must be true or false, got %q", userAdminSet)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SetLocalUserAsAdmin(context.Background(), name, admin); err != nil {
			return err
		}
		fmt.Printf("User %s admin: %v\n", name, admin)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		users, err := store.GetUsers(context.Background())
		if err != nil {
			return err
		}
		names := make([]idmap.Username, 0, len(users))
		for name := range users {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

		for _, name := range names {
			if users[name] {
				fmt.Printf("%s (admin)\n", name)
			} else {
				fmt.Println(name)
			}
		}
		return nil
	},
}

func init() {
	userAdminCmd.Flags().StringVar(&userAdminSet, "set", "", "true or false (required)")
	_ = userAdminCmd.MarkFlagRequired("set")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userTokenCmd)
	userCmd.AddCommand(userAdminCmd)
	userCmd.AddCommand(userListCmd)
}
