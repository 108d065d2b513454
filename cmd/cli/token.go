package main

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/zfogg/hushmap/internal/auth"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Development bearer tokens",
}

var tokenSignCmd = &cobra.Command{
	Use:   "sign [user-id]",
	Short: "Sign a bearer token with JWT_SECRET (a new user id when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProduction() {
			return errors.New("refusing to mint tokens in production")
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}

		userID := uuid.NewString()
		if len(args) == 1 {
			if _, err := uuid.Parse(args[0]); err != nil {
				return errors.New("user id must be a uuid")
			}
			userID = args[0]
		}

		token, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Sign(userID, tokenTTL)
		if err != nil {
			return err
		}
		return printResult(map[string]interface{}{"user_id": userID, "token": token}, func() {
			bold.Print("User:  ")
			info.Println(userID)
			bold.Print("Token: ")
			info.Println(token)
		})
	},
}

func init() {
	tokenSignCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.AddCommand(tokenSignCmd)
}
