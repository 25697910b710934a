package site

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/triemux"
)

// loadRedirectsFromFile loads legacy redirects from a JSONL file. Each line
// is a JSON object representing a Redirect; lines that do not parse are
// skipped with a warning.
func loadRedirectsFromFile(filePath string, mux *triemux.Mux, reserved map[string]bool, logger zerolog.Logger) error {
	file, err := os.Open(filePath) //nolint:gosec // filePath is from SITE_REDIRECTS_FILE, controlled by the operator
	if err != nil {
		return fmt.Errorf("failed to open redirects file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redirects file")
		}
	}()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		if len(line) == 0 {
			continue
		}

		redirect := &Redirect{}
		if err := json.Unmarshal(line, redirect); err != nil {
			logger.Warn().
				Int("line", lineNum).
				Bytes("content", line).
				Err(err).
				Msg("failed to parse redirect from file, skipping")
			continue
		}

		addRedirect(mux, redirect, reserved, logger)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading redirects file: %w", err)
	}

	return nil
}
