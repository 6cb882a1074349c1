package cmd

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/access"
	"github.com/spigell/self-interview/internal/logger"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an invitation link, or decode an existing expire_at token",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup(logger.Stderr)

		secret, err := resolveSecret(config)
		if err != nil {
			logger.Fatal("loading access secret", zap.Error(err))
		}

		if raw, _ := cmd.Flags().GetString("decode"); raw != "" {
			decodeToken(cmd, logger, raw, secret)
			return
		}

		expiry, err := tokenExpiry(cmd, time.Now())
		if err != nil {
			logger.Fatal("resolving expiry", zap.Error(err))
		}

		token, err := access.MintToken(expiry, secret)
		if err != nil {
			logger.Fatal("minting token", zap.Error(err))
		}

		baseURL, _ := cmd.Flags().GetString("base-url")
		code, _ := cmd.Flags().GetString("code")

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "expires:   %s\n", expiry.UTC().Format(time.RFC3339))
		fmt.Fprintf(out, "expire_at: %s\n", token)
		fmt.Fprintf(out, "link:      %s\n", invitationLink(baseURL, token, code))
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().Duration("expires-in", 72*time.Hour, "how long the link stays valid")
	tokenCmd.Flags().String("expires-at", "", "absolute expiry (RFC 3339), overrides --expires-in")
	tokenCmd.Flags().String("code", "", "applicant code forwarded with the submission")
	tokenCmd.Flags().String("base-url", "http://localhost:8080", "public address of the interview server")
	tokenCmd.Flags().String("decode", "", "decrypt an expire_at value instead of minting one")
}

func tokenExpiry(cmd *cobra.Command, now time.Time) (time.Time, error) {
	if at, _ := cmd.Flags().GetString("expires-at"); at != "" {
		return access.ParseExpiry(at)
	}

	in, _ := cmd.Flags().GetDuration("expires-in")
	if in <= 0 {
		return time.Time{}, fmt.Errorf("--expires-in must be positive, got %s", in)
	}

	return now.Add(in), nil
}

func invitationLink(baseURL, token, code string) string {
	q := url.Values{}
	q.Set(access.ParamExpireAt, token)
	if code != "" {
		q.Set(access.ParamCode, code)
	}

	return strings.TrimRight(baseURL, "/") + "/interview?" + q.Encode()
}

func decodeToken(cmd *cobra.Command, logger *zap.Logger, raw, secret string) {
	expiry, err := access.DecodeExpiry(access.NormalizeParam(raw), secret)
	if err != nil {
		logger.Fatal("decoding token", zap.Error(err))
	}

	status := "valid"
	if !expiry.After(time.Now()) {
		status = "expired"
	}

	fmt.Fprintf(cmd.OutOrStdout(), "expires: %s (%s)\n", expiry.UTC().Format(time.RFC3339), status)
}
