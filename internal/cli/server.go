package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/wordsync/internal/server"
)

var errNoSecret = errors.New("server.jwt_secret is not configured")

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "server",
		Short:   "Run the reference sync server",
		Long: `Run an in-memory sync server that keeps the latest upload of every user.
Requests need a bearer token minted with "wordsync token".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Server.JWTSecret == "" {
				return errNoSecret
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := server.New(server.NewAuth(a.cfg.Server.JWTSecret), server.NewSnapshotStore(), a.log)
			return srv.Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func newTokenCommand(a *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:     "token <userId>",
		GroupID: "server",
		Short:   "Mint a token for the reference sync server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Server.JWTSecret == "" {
				return errNoSecret
			}
			token, err := server.NewAuth(a.cfg.Server.JWTSecret).GenerateToken(args[0], ttl)
			if err != nil {
				return err
			}
			a.printf("%s\n", token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", server.DefaultTokenTTL, "token lifetime")
	return cmd
}
