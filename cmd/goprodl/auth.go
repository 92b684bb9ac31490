package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"goprodl/pkg/auth"
	"goprodl/pkg/ui"
)

var cookieFile string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored GoPro cookie sets",
	Long: `Manage externally obtained GoPro cookies securely.

Cookie sets are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

This tool never logs into GoPro itself; you export cookies from a browser
session and hand them over here. Never share your cookies or config files!`,
}

// importCmd represents the auth import command
var importCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Store a cookie set securely",
	Long: `Store a named GoPro cookie set in the system keychain or encrypted file.

To export cookies:
1. Log into plus.gopro.com in your browser
2. Use an extension like Cookie-Editor to export all cookies as JSON
3. Save the export to a file and pass it with --file

Without --file you will be prompted for individual cookie values; input is
hidden as you type.`,
	Example: `  # Import an exported cookie file
  goprodl auth import personal --file cookies.json

  # Enter cookie values interactively
  goprodl auth import personal`,
	Args: cobra.ExactArgs(1),
	Run:  runImport,
}

// removeCmd represents the auth remove command
var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a stored cookie set",
	Args:  cobra.ExactArgs(1),
	Run:   runRemove,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored cookie sets",
	Long:  `List all stored GoPro cookie sets with cookie values masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(importCmd)
	authCmd.AddCommand(removeCmd)
	authCmd.AddCommand(listCmd)

	importCmd.Flags().StringVarP(&cookieFile, "file", "f", "", "path to an exported cookies JSON file")
}

func runImport(cmd *cobra.Command, args []string) {
	name := strings.TrimSpace(args[0])
	if name == "" {
		ui.PrintError("Account name is required")
		os.Exit(1)
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	// Check if the account already exists
	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("Account '%s' already exists. Update cookies? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	var cookies []auth.Cookie
	if cookieFile != "" {
		cookies, err = auth.LoadCookieFile(cookieFile)
		if err != nil {
			ui.PrintError("Failed to load cookies file", err.Error())
			os.Exit(1)
		}
	} else {
		cookies, err = promptCookies(reader)
		if err != nil {
			ui.PrintError("Failed to read cookies", err.Error())
			os.Exit(1)
		}
	}

	account := &auth.Account{
		Name:         name,
		Cookies:      cookies,
		LastModified: time.Now(),
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store cookies", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Cookie set saved: %s (%d cookies)", name, len(cookies)))
	fmt.Println("\nDownload your media with:")
	fmt.Printf("  goprodl download --account %s\n", name)
}

// promptCookies reads cookie name/value pairs interactively. Values are
// hidden while typed; an empty name ends the input.
func promptCookies(reader *bufio.Reader) ([]auth.Cookie, error) {
	fmt.Println("Enter cookies one by one; leave the name empty to finish.")
	fmt.Println()

	var cookies []auth.Cookie
	for {
		fmt.Print("cookie name: ")
		nameInput, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		name := strings.TrimSpace(nameInput)
		if name == "" {
			break
		}

		fmt.Printf("value for %s: ", name)
		value, err := readSecret(reader)
		if err != nil {
			return nil, err
		}
		if value == "" {
			fmt.Println("empty value, cookie skipped")
			continue
		}

		cookies = append(cookies, auth.Cookie{Name: name, Value: value})
	}

	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies entered")
	}
	return cookies, nil
}

func runRemove(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	name := args[0]
	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove cookie set", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Cookie set removed: " + name)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list cookie sets", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored cookie sets", "Use 'goprodl auth import' to add one")
		return
	}

	ui.PrintHighlight("Stored Cookie Sets")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Name: %s\n", i+1, sanitized.Name)
		for _, c := range sanitized.Cookies {
			fmt.Printf("   %s = %s\n", c.Name, c.Value)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readSecret reads a value from stdin without echoing
func readSecret(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after hidden input
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	// Fallback to regular input
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
