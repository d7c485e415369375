package cli

import (
	"context"
	"net"
	"sort"

	"recording-relay/internal/failurelog"
	"recording-relay/pkg/utils"

	"github.com/spf13/cobra"
)

func newFailuresCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Inspect the durable failure log",
	}
	cmd.AddCommand(newFailuresListCommand(root))
	return cmd
}

func newFailuresListCommand(root *RootOptions) *cobra.Command {
	var addr, password string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings waiting for a retry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb, err := utils.OpenRedis(cmd.Context(), utils.RedisConfig{Addr: addr, Password: password})
			if err != nil {
				return err
			}
			defer rdb.Close()
			return listFailures(cmd.Context(), root, failurelog.NewRedisStore(rdb), cmd)
		},
	}

	defaultAddr := net.JoinHostPort(envOr("REDIS_HOST", "localhost"), envOr("REDIS_PORT", "6379"))
	cmd.Flags().StringVar(&addr, "redis-addr", defaultAddr, "redis address (default $REDIS_HOST:$REDIS_PORT)")
	cmd.Flags().StringVar(&password, "redis-password", envOr("REDIS_PASSWORD", ""), "redis password")
	return cmd
}

func listFailures(ctx context.Context, root *RootOptions, store failurelog.Store, cmd *cobra.Command) error {
	all, err := store.All(ctx)
	if err != nil {
		return err
	}
	handles := make([]string, 0, len(all))
	for k := range all {
		handles = append(handles, k)
	}
	sort.Strings(handles)

	p := printer{format: root.Format, w: cmd.OutOrStdout()}
	if p.isJSON() {
		return p.json(map[string]any{"count": len(handles), "handles": handles})
	}
	if len(handles) == 0 {
		p.linef("no failed uploads")
		return nil
	}
	for _, h := range handles {
		p.linef("%s", h)
	}
	return nil
}
