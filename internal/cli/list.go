package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [conversation]",
	Short: "List recorded conversations or attempts",
	Long: `List the conversations under the request log directory, or the
recorded attempts of one conversation with their event counts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	dir, err := resolveLogDir()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return listConversations(cmd, dir)
	}
	return listAttempts(cmd, filepath.Join(dir, args[0]))
}

func listConversations(cmd *cobra.Command, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read request log directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		cmd.Println(name)
	}
	return nil
}

func listAttempts(cmd *cobra.Command, conversationDir string) error {
	entries, err := os.ReadDir(conversationDir)
	if err != nil {
		return fmt.Errorf("failed to read conversation directory: %w", err)
	}

	var attempts []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "attempt-") && strings.HasSuffix(name, "-request.json") {
			attempts = append(attempts, strings.TrimSuffix(name, "-request.json"))
		}
	}
	sort.Strings(attempts)

	for _, attempt := range attempts {
		count, err := countLines(filepath.Join(conversationDir, attempt+"-response.jsonl"))
		if err != nil {
			cmd.Printf("%s\t(no response stream)\n", attempt)
			continue
		}
		cmd.Printf("%s\t%d events\n", attempt, count)
	}
	return nil
}

func countLines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
