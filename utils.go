/* utils.go
 * Utility functions used across the application
 * Authors: Zachary Bower
 */

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"ladder-bot/api/store"
	"ladder-bot/config"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"
)

// convertStrToBool converts a string of true or false into a boolean for comparisons
// Preconditions: Receives string containing either true or false (case insensitive)
// Postconditions: Returns boolean value or an error if the string is not true or false
func convertStrToBool(str string) (bool, error) {
	str = strings.TrimSpace(str)
	str = strings.ToLower(str)

	if str == "true" {
		return true, nil
	} else if str == "false" {
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean string")
}

// openStore opens the persistence backend named by the config
func openStore(ctx context.Context, cfg *config.Config, fsys afero.Fs) (store.Interface, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		s, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo store: %w", err)
		}
		return s, nil
	case config.BackendFile, "":
		s, err := store.NewFileStore(fsys, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// logWriter returns stderr, or a rotating log file when LOG_FILE is set
func logWriter(cfg *config.Config) io.Writer {
	if cfg.LogFile == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
}
