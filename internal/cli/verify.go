package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"
)

// eventSchemas holds one JSON Schema per response event variant, keyed by the
// "type" tag of the recorded line.
var eventSchemas = map[string]string{
	"response_started": `{
		"type": "object",
		"required": ["timestamp", "type", "status", "headers"],
		"additionalProperties": false,
		"properties": {
			"timestamp": {"type": "string"},
			"type": {"enum": ["response_started"]},
			"status": {"type": "integer"},
			"headers": {
				"type": "object",
				"additionalProperties": {"type": "array", "items": {"type": "string"}}
			}
		}
	}`,
	"sse_event": `{
		"type": "object",
		"required": ["timestamp", "type", "event", "data"],
		"additionalProperties": false,
		"properties": {
			"timestamp": {"type": "string"},
			"type": {"enum": ["sse_event"]},
			"event": {"type": ["string", "null"]},
			"data": {"type": "string"}
		}
	}`,
	"sse_closed": `{
		"type": "object",
		"required": ["timestamp", "type", "reason"],
		"additionalProperties": false,
		"properties": {
			"timestamp": {"type": "string"},
			"type": {"enum": ["sse_closed"]},
			"reason": {"type": "string"}
		}
	}`,
	"error": `{
		"type": "object",
		"required": ["timestamp", "type", "message"],
		"additionalProperties": false,
		"properties": {
			"timestamp": {"type": "string"},
			"type": {"enum": ["error"]},
			"message": {"type": "string"}
		}
	}`,
	"error_response": `{
		"type": "object",
		"required": ["timestamp", "type", "status", "body"],
		"additionalProperties": false,
		"properties": {
			"timestamp": {"type": "string"},
			"type": {"enum": ["error_response"]},
			"status": {"type": "integer"},
			"body": {"type": "string"}
		}
	}`,
	"info": `{
		"type": "object",
		"required": ["timestamp", "type", "message"],
		"additionalProperties": false,
		"properties": {
			"timestamp": {"type": "string"},
			"type": {"enum": ["info"]},
			"message": {"type": "string"}
		}
	}`,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <conversation> [attempt]",
	Short: "Validate recorded response streams against the event schemas",
	Long: `Check that every line of the named attempt's response stream (or of
all attempts in the conversation) parses as JSON and matches the schema of its
event type. Reports per-type counts and fails when any line is invalid.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir, err := resolveLogDir()
	if err != nil {
		return err
	}
	conversationDir := filepath.Join(dir, args[0])

	var paths []string
	if len(args) == 2 {
		attempt, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid attempt number %q: %w", args[1], err)
		}
		paths = []string{filepath.Join(conversationDir, fmt.Sprintf("attempt-%03d-response.jsonl", attempt))}
	} else {
		entries, err := os.ReadDir(conversationDir)
		if err != nil {
			return fmt.Errorf("failed to read conversation directory: %w", err)
		}
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), "attempt-") && strings.HasSuffix(entry.Name(), "-response.jsonl") {
				paths = append(paths, filepath.Join(conversationDir, entry.Name()))
			}
		}
		sort.Strings(paths)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no response streams found for conversation %s", args[0])
	}

	invalid := 0
	counts := make(map[string]int)
	for _, path := range paths {
		bad, err := verifyStream(cmd, path, counts)
		if err != nil {
			return err
		}
		invalid += bad
	}

	types := make([]string, 0, len(counts))
	for eventType := range counts {
		types = append(types, eventType)
	}
	sort.Strings(types)
	for _, eventType := range types {
		cmd.Printf("%s\t%d\n", eventType, counts[eventType])
	}

	if invalid > 0 {
		return fmt.Errorf("%d invalid line(s)", invalid)
	}
	cmd.Println("ok")
	return nil
}

func verifyStream(cmd *cobra.Command, path string, counts map[string]int) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open response stream: %w", err)
	}
	defer file.Close()

	invalid := 0
	lineNo := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNo++
		if msg := verifyLine(scanner.Bytes(), counts); msg != "" {
			cmd.Printf("%s:%d: %s\n", filepath.Base(path), lineNo, msg)
			invalid++
		}
	}
	return invalid, scanner.Err()
}

func verifyLine(line []byte, counts map[string]int) string {
	var tagged struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &tagged); err != nil {
		return fmt.Sprintf("not valid JSON: %v", err)
	}

	schema, ok := eventSchemas[tagged.Type]
	if !ok {
		return fmt.Sprintf("unknown event type %q", tagged.Type)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(line),
	)
	if err != nil {
		return fmt.Sprintf("schema validation error: %v", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return strings.Join(details, "; ")
	}

	counts[tagged.Type]++
	return ""
}
