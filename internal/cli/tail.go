package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tailFollow bool

var tailCmd = &cobra.Command{
	Use:   "tail <conversation> <attempt>",
	Short: "Print a response stream, optionally following appends",
	Long: `Print the recorded response stream of one attempt. With --follow the
command keeps watching the file and prints new events as the exchange
progresses, until interrupted.`,
	Args: cobra.ExactArgs(2),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().BoolVarP(&tailFollow, "follow", "f", false, "keep watching for appended events")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	dir, err := resolveLogDir()
	if err != nil {
		return err
	}

	attempt, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid attempt number %q: %w", args[1], err)
	}

	path := filepath.Join(dir, args[0], fmt.Sprintf("attempt-%03d-response.jsonl", attempt))
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open response stream: %w", err)
	}
	// Closure, not a bound method value: file is swapped when a re-logged
	// attempt replaces the inode.
	defer func() { file.Close() }()

	var pending []byte
	if err := drainLines(cmd, file, &pending); err != nil {
		return err
	}
	if !tailFollow {
		if len(pending) > 0 {
			cmd.Println(string(pending))
		}
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors and re-logged
	// attempts replace the inode and a file watch would go stale.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch conversation directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// The attempt was re-logged: the path names a new file now
				// and the old handle would read nothing. Follow the
				// replacement from its start.
				reopened, err := os.Open(path)
				if err != nil {
					log.Warn().Err(err).Msg("failed to reopen response stream")
					continue
				}
				file.Close()
				file = reopened
				pending = nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := drainLines(cmd, file, &pending); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error on response stream")
		}
	}
}

// drainLines reads everything appended since the last call and prints each
// complete line; a trailing partial line stays in pending until its
// terminator arrives.
func drainLines(cmd *cobra.Command, file *os.File, pending *[]byte) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read response stream: %w", err)
	}
	*pending = append(*pending, data...)

	for {
		idx := bytes.IndexByte(*pending, '\n')
		if idx < 0 {
			return nil
		}
		cmd.Println(string((*pending)[:idx]))
		*pending = (*pending)[idx+1:]
	}
}
