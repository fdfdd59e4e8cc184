package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kagebridge/gravitybridge/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure chat tokens and allowed Telegram user IDs",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	store, err := config.NewStore()
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	current := store.Get()

	discordToken := prompt(reader, "Discord bot token", current.Chat.DiscordToken)
	telegramToken := prompt(reader, "Telegram bot token", current.Chat.TelegramToken)
	allowed := prompt(reader, "Allowed Telegram user IDs (comma-separated)", joinInts(current.Chat.AllowedUserIDs))

	return store.Update(func(s *config.Settings) {
		s.Chat.DiscordToken = discordToken
		s.Chat.TelegramToken = telegramToken
		s.Chat.AllowedUserIDs = parseInts(allowed)
	})
}

func prompt(r *bufio.Reader, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

func joinInts(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func parseInts(s string) []int64 {
	if s == "" {
		return nil
	}
	var out []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}
