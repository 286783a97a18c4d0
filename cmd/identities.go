package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/store"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities [name]",
	Short: "List enrolled identities or inspect one by name",
	Long: `List all enrolled identities, or show one identity with its most
similar enrolled neighbors. Name lookup ignores case and diacritics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)

	identitiesCmd.Flags().Int("limit", 5, "Number of similar identities to show")
}

func runIdentities(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	identities, err := st.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("could not list identities: %w", err)
	}

	if len(args) == 0 {
		if len(identities) == 0 {
			fmt.Println("No identities enrolled yet")
			return nil
		}
		fmt.Printf("%-6s %-30s %s\n", "ID", "NAME", "ENROLLED")
		for _, ident := range identities {
			fmt.Printf("%-6d %-30s %s\n", ident.ID, ident.Name, ident.EnrolledAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("\n%d identities\n", len(identities))
		return nil
	}

	ident, ok := store.FindIdentityByName(identities, args[0])
	if !ok {
		return fmt.Errorf("no identity named %q", args[0])
	}

	fmt.Printf("%s (ID %d), enrolled %s\n", ident.Name, ident.ID, ident.EnrolledAt.Format("2006-01-02 15:04"))

	neighbors := store.NewNeighborIndex()
	neighbors.BuildFromIdentities(identities)

	limit := mustGetInt(cmd, "limit")
	near := neighbors.Nearest(ident.Vector, limit+1)
	shown := 0
	for _, n := range near {
		if n.ID == ident.ID {
			continue
		}
		if shown == 0 {
			fmt.Println("Similar identities:")
		}
		fmt.Printf("  %-6d %-30s distance %.2f\n", n.ID, n.Name, n.Distance)
		shown++
		if shown >= limit {
			break
		}
	}
	return nil
}
