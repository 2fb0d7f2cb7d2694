package main

import (
	"errors"
	"fmt"

	"foodguide/internal/auth"
	"foodguide/internal/config"

	"github.com/spf13/cobra"
)

var (
	tokenUID   string
	tokenName  string
	tokenPhoto string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development identity token",
	Long: `Signs a bearer token for the given identity with JWT_SECRET. The token is
accepted by /me, /library and PUT /sessions/{sid}/identity.

Example:
  foodguide token --uid u1 --name "Ann"`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUID, "uid", "", "user id (required)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name")
	tokenCmd.Flags().StringVar(&tokenPhoto, "photo", "", "avatar URL")
	_ = tokenCmd.MarkFlagRequired("uid")
}

func runToken(cmd *cobra.Command, args []string) error {
	// only the secret matters here, a missing DATABASE_URL does not
	cfg, err := config.Load(cfgPath)
	if cfg.JWTSecret == "" {
		return errors.Join(config.ErrMissingJWTSecret, err)
	}

	tok, err := auth.NewJWT(cfg.JWTSecret).Sign(auth.Identity{
		UID:         tokenUID,
		DisplayName: tokenName,
		PhotoURL:    tokenPhoto,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
