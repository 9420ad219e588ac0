package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"oras.land/oras-go/v2/registry/remote/auth"
	remotecredentials "oras.land/oras-go/v2/registry/remote/credentials"
)

// dockerConfigFileName is looked up inside a docker configuration directory.
const dockerConfigFileName = "config.json"

// NewCredentialStore returns the credential store of a docker configuration.
// configPath may point to a docker config directory or directly to a config
// file. An empty path selects the default docker locations and the native
// host credential store.
func NewCredentialStore(ctx context.Context, configPath string) (remotecredentials.Store, error) {
	if configPath == "" {
		slog.DebugContext(ctx, "attempting to load docker config from default locations or native host store")
		store, err := remotecredentials.NewStoreFromDocker(remotecredentials.StoreOptions{
			DetectDefaultNativeStore: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create default docker config store: %w", err)
		}
		return wrapWithLogging(store, slog.Default()), nil
	}

	expandedPath, err := expandConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	if fi, err := os.Stat(expandedPath); err == nil && fi.IsDir() {
		expandedPath = filepath.Join(expandedPath, dockerConfigFileName)
	}
	slog.DebugContext(ctx, "using docker config from file", "file", expandedPath)

	if _, err := os.Stat(expandedPath); err != nil {
		slog.WarnContext(ctx, "failed to find docker config file, thus the config will not offer any credentials", "path", expandedPath)
	}

	// a missing file counts as an empty store
	store, err := remotecredentials.NewStore(expandedPath, remotecredentials.StoreOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create file-based config store: %w", err)
	}
	return wrapWithLogging(store, slog.Default()), nil
}

// expandConfigPath expands a leading ~ to the user's home directory.
func expandConfigPath(path string) (string, error) {
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		dirname, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return dirname + rest, nil
	}
	return path, nil
}

func wrapWithLogging(store remotecredentials.Store, base *slog.Logger) remotecredentials.Store {
	return &loggingStore{store, base}
}

type loggingStore struct {
	remotecredentials.Store
	base *slog.Logger
}

func (l *loggingStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	logger := l.base.With("serverAddress", serverAddress)
	logger.DebugContext(ctx, "getting credentials")
	credential, err := l.Store.Get(ctx, serverAddress)

	switch {
	case err != nil:
		logger.ErrorContext(ctx, "failed to get credential", "error", err)
	case credential != auth.EmptyCredential:
		logger.DebugContext(ctx, "got credential", "username", credential.Username)
	default:
		logger.DebugContext(ctx, "got no credential")
	}

	return credential, err
}
