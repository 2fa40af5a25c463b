package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vaultledger-cli",
		Short: "VaultLedger CLI tool",
		Long:  `A command line interface for interacting with the VaultLedger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the VaultLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	// Vault commands
	vaultCmd := &cobra.Command{
		Use:   "vault",
		Short: "Vault operations",
	}

	stateCmd := &cobra.Command{
		Use:   "state <vault-id>",
		Short: "Show a vault's derived state",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/vaults/" + args[0] + "/state")
		},
	}

	holdingCmd := &cobra.Command{
		Use:   "holding <vault-id> <user-id>",
		Short: "Show one user's holding in a vault",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/vaults/" + args[0] + "/users/" + args[1] + "/holding")
		},
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile <vault-id>",
		Short: "Reconcile a vault's derived state against its ledger",
		Run: func(cmd *cobra.Command, args []string) {
			reconcile(args[0])
		},
		Args: cobra.ExactArgs(1),
	}

	vaultCmd.AddCommand(stateCmd)
	vaultCmd.AddCommand(holdingCmd)
	vaultCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(vaultCmd)

	// Entry commands
	entryCmd := &cobra.Command{
		Use:   "entry",
		Short: "Ledger entry operations",
	}

	getEntryCmd := &cobra.Command{
		Use:   "get <entry-id>",
		Short: "Show a ledger entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/entries/" + args[0])
		},
	}

	var reverseReason, reverseCreatedBy string
	reverseCmd := &cobra.Command{
		Use:   "reverse <entry-id>",
		Short: "Reverse a committed ledger entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			reverseEntry(args[0], reverseReason, reverseCreatedBy)
		},
	}
	reverseCmd.Flags().StringVar(&reverseReason, "reason", "", "Reason recorded on the reversal entry")
	reverseCmd.Flags().StringVar(&reverseCreatedBy, "created-by", "", "Actor recorded on the reversal entry")

	entryCmd.AddCommand(getEntryCmd)
	entryCmd.AddCommand(reverseCmd)
	rootCmd.AddCommand(entryCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func getJSON(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	printIndented(body)
}

func reverseEntry(entryID, reason, createdBy string) {
	payload, err := json.Marshal(map[string]string{
		"reason":     reason,
		"created_by": createdBy,
	})
	if err != nil {
		fmt.Printf("Error encoding request: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+"/api/v1/entries/"+entryID+"/reverse", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		fmt.Printf("Reversal failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	fmt.Println("Entry reversed")
	printIndented(body)
}

func reconcile(vaultID string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + "/api/v1/vaults/" + vaultID + "/reconciliation")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Reconciliation FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if consistent, ok := result["consistent"].(bool); ok && consistent {
		fmt.Println("Reconciliation PASSED")
	} else {
		fmt.Println("Reconciliation FAILED: derived state diverges from ledger")
	}

	printIndented(body)
}

func printIndented(body []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(buf.String())
}
