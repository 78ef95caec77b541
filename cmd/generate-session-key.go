package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
)

var generateSessionKeyCmd = &cobra.Command{
	Use:   "generate-session-key",
	Short: "Generate a key for signing session cookies",
	Long: `Generate a random key for signing session cookies.

To rotate keys, put the new key first and keep the old one until all
sessions signed with it have expired.`,
	RunE: generateSessionKey,
}

func init() {
	rootCmd.AddCommand(generateSessionKeyCmd)
}

func generateSessionKey(cmd *cobra.Command, args []string) error {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return fmt.Errorf("failed to generate session key")
	}
	encoded := hex.EncodeToString(key)

	fmt.Println("Generated session key:")
	fmt.Println()
	fmt.Println(encoded)
	fmt.Println()
	fmt.Println("Add it to your configuration file:")
	fmt.Println()
	fmt.Println("session:")
	fmt.Println("  keys:")
	fmt.Printf("    - \"%s\"\n", encoded)
	fmt.Println()
	fmt.Println("or set EVOTING_SESSION_KEYS. Keep the key secret!")

	return nil
}
