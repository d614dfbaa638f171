package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var namespaceCmd = &cobra.Command{
	Use:   "namespace",
	Short: "Inspect namespaces",
}

var namespaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List namespaces with their mappability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		namespaces, err := store.GetNamespaces(context.Background())
		if err != nil {
			return err
		}
		sort.Slice(namespaces, func(i, j int) bool {
			return namespaces[i].ID < namespaces[j].ID
		})

		for _, ns := range namespaces {
			if ns.PubliclyMappable {
				fmt.Printf("%s (publicly mappable)\n", ns.ID)
			} else {
				fmt.Println(ns.ID)
			}
		}
		return nil
	},
}

func init() {
	namespaceCmd.AddCommand(namespaceListCmd)
}
