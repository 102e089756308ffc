package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/redis/go-redis/v9"

	redisadapter "github.com/glosswerks/glosswerks-api/internal/adapters/redis"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

func snapshotStore(cmdCtx *commandContext, client redis.UniversalClient) *redisadapter.SnapshotStore {
	return redisadapter.NewSnapshotStore(client, redisadapter.SnapshotStoreOptions{
		Prefix: cmdCtx.Config.Redis.SnapshotPrefix,
		TTL:    cmdCtx.Config.Resolution.SnapshotTTL,
	})
}

func clientIDArg(args []string, usage string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New(usage)
	}
	return strings.TrimSpace(args[0]), nil
}

func runSessionShow(cmdCtx *commandContext, args []string) error {
	clientID, err := clientIDArg(args, "usage: session-show <client_id>")
	if err != nil {
		return err
	}
	return withRedis(cmdCtx, defaultCommandTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		return printSnapshot(ctx, snapshotStore(cmdCtx, client), cmdCtx.Out, clientID)
	})
}

func runSessionClear(cmdCtx *commandContext, args []string) error {
	clientID, err := clientIDArg(args, "usage: session-clear <client_id>")
	if err != nil {
		return err
	}
	return withRedis(cmdCtx, defaultCommandTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		return clearSnapshot(ctx, snapshotStore(cmdCtx, client), cmdCtx.Out, clientID)
	})
}

// clearSnapshot drops the persisted snapshot. A running server keeps its
// in-memory session until the client signs out or goes idle.
func clearSnapshot(ctx context.Context, store ports.SnapshotStore, w io.Writer, clientID string) error {
	if err := store.Delete(ctx, clientID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return writef(w, "Deleted snapshot for client %s\n", clientID)
}

func printSnapshot(ctx context.Context, store ports.SnapshotStore, w io.Writer, clientID string) error {
	sess, err := store.Load(ctx, clientID)
	if apperrors.IsNotFound(err) {
		return writef(w, "No snapshot for client %s\n", clientID)
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	out, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return writeln(w, string(out))
}
