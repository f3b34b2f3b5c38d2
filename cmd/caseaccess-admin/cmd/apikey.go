package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseaccessio/api/pkg/crypto"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage feed API keys",
}

var apikeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a feed API key and its stored hash",
	Long: `Generate a new API key for the court/legal-aid feed. The plaintext key
goes to the feed operator; the hash goes into AUTH_FEED_API_KEY_HASH.
The plaintext is shown only once.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := crypto.GenerateAPIKey("caf_")
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		hash, err := crypto.HashAPIKey(key)
		if err != nil {
			return fmt.Errorf("hash key: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "API key:  %s\n", key)
		fmt.Fprintf(cmd.OutOrStdout(), "Hash:     %s\n", hash)
		fmt.Fprintln(cmd.OutOrStdout(), "\nSet AUTH_FEED_API_KEY_HASH to the hash value above.")
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeyGenerateCmd)
}
