package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/vaultscribe/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("VaultScribe Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. Vault path
		cfg.VaultPath = prompt(scanner, "Vault path", cfg.VaultPath)
		if cfg.VaultPath == "" {
			return fmt.Errorf("a vault path is required")
		}
		if _, err := os.Stat(cfg.VaultPath); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}

		// 2. Vault name (defaults to the directory name)
		defaultName := cfg.VaultName
		if defaultName == "" {
			defaultName = filepath.Base(filepath.Clean(cfg.VaultPath))
		}
		cfg.VaultName = prompt(scanner, "Vault name", defaultName)

		// 3. Events folder inside the vault
		cfg.EventsFolder = prompt(scanner, "Events folder", cfg.EventsFolder)

		// 4. Period granularity
		period := prompt(scanner, "Log period (daily/monthly)", cfg.Period)
		if period == "daily" || period == "monthly" {
			cfg.Period = period
		}

		// 5. Flush threshold
		thresholdStr := prompt(scanner, "Flush threshold (events)", strconv.Itoa(cfg.FlushThreshold))
		if n, err := strconv.Atoi(thresholdStr); err == nil && n > 0 {
			cfg.FlushThreshold = n
		}

		// 6. Telegram bot token (optional)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		if cfg.Telegram.Token != "" {
			chatStr := prompt(scanner, "Telegram chat ID", strconv.FormatInt(cfg.Telegram.ChatID, 10))
			if id, err := strconv.ParseInt(chatStr, 10, 64); err == nil {
				cfg.Telegram.ChatID = id
			}
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		fmt.Println("Start the daemon with: vaultscribe serve")
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
