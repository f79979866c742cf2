package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

var showRaw bool

var showCmd = &cobra.Command{
	Use:   "show <conversation> <attempt>",
	Short: "Show one recorded attempt",
	Long: `Print the request record and response stream of one attempt. By
default response events are rendered one per line as "timestamp type summary";
--raw prints the recorded JSON lines verbatim.`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print response lines verbatim")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	dir, err := resolveLogDir()
	if err != nil {
		return err
	}

	attempt, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid attempt number %q: %w", args[1], err)
	}

	attemptID := fmt.Sprintf("attempt-%03d", attempt)
	conversationDir := filepath.Join(dir, args[0])

	request, err := os.ReadFile(filepath.Join(conversationDir, attemptID+"-request.json"))
	if err != nil {
		return fmt.Errorf("failed to read request record: %w", err)
	}
	cmd.Print(string(request))

	file, err := os.Open(filepath.Join(conversationDir, attemptID+"-response.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to open response stream: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if showRaw {
			cmd.Println(scanner.Text())
			continue
		}
		cmd.Println(renderEventLine(scanner.Bytes()))
	}
	return scanner.Err()
}

// renderEventLine formats a response line for reading. Unparseable lines
// (e.g. a torn trailing line after a crash) are surfaced as-is.
func renderEventLine(line []byte) string {
	var event struct {
		Timestamp string  `json:"timestamp"`
		Type      string  `json:"type"`
		Status    int     `json:"status"`
		Event     *string `json:"event"`
		Data      string  `json:"data"`
		Reason    string  `json:"reason"`
		Message   string  `json:"message"`
		Body      string  `json:"body"`
	}
	if err := json.Unmarshal(line, &event); err != nil {
		return fmt.Sprintf("<unparseable line: %s>", string(line))
	}

	switch event.Type {
	case "response_started":
		return fmt.Sprintf("%s  %s  status=%d", event.Timestamp, event.Type, event.Status)
	case "sse_event":
		name := "<unnamed>"
		if event.Event != nil {
			name = *event.Event
		}
		return fmt.Sprintf("%s  %s  event=%s data=%s", event.Timestamp, event.Type, name, event.Data)
	case "sse_closed":
		return fmt.Sprintf("%s  %s  reason=%s", event.Timestamp, event.Type, event.Reason)
	case "error_response":
		return fmt.Sprintf("%s  %s  status=%d body=%s", event.Timestamp, event.Type, event.Status, event.Body)
	case "error", "info":
		return fmt.Sprintf("%s  %s  %s", event.Timestamp, event.Type, event.Message)
	default:
		return fmt.Sprintf("%s  %s", event.Timestamp, event.Type)
	}
}
