package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

func newSheetsAuthCmd() *cobra.Command {
	var (
		port    string
		outFile string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize the activity export to Google Sheets and save the OAuth token",
		Long: `Runs the OAuth consent flow for the spreadsheet export used by
ecotrack-worker. Client credentials come from GOOGLE_OAUTH_CLIENT_JSON or
GOOGLE_OAUTH_CLIENT_FILE. The redirect URI http://localhost:<port>/callback
must be registered on the OAuth client.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := clientCredentials()
			if err != nil {
				return err
			}
			cfg, err := google.ConfigFromJSON(b, sheets.SpreadsheetsScope)
			if err != nil {
				return fmt.Errorf("oauth config: %w", err)
			}
			cfg.RedirectURL = "http://localhost:" + port + "/callback"

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			code, err := awaitCode(ctx, cmd, cfg, port)
			if err != nil {
				return err
			}
			tok, err := cfg.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("token exchange: %w", err)
			}
			if err := saveToken(outFile, tok); err != nil {
				return err
			}
			printf(cmd, "Saved token to %s\n", outFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", envOr("OAUTH_REDIRECT_PORT", "8085"), "local port for the OAuth redirect")
	cmd.Flags().StringVar(&outFile, "token-file", envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json"), "where to write the token")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for authorization")
	return cmd
}

func clientCredentials() ([]byte, error) {
	if s := os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"); s != "" {
		return []byte(s), nil
	}
	if path := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
}

// awaitCode serves the redirect endpoint until the consent screen calls back
// with a code or ctx expires.
func awaitCode(ctx context.Context, cmd *cobra.Command, cfg *oauth2.Config, port string) (string, error) {
	type result struct {
		code string
		err  error
	}
	resc := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		var res result
		if e := r.URL.Query().Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			res.err = fmt.Errorf("authorization denied: %s", e)
		} else {
			res.code = r.URL.Query().Get("code")
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case resc <- res:
		default:
		}
	})
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			resc <- result{err: fmt.Errorf("callback server: %w", err)}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	printf(cmd, "Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	select {
	case res := <-resc:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
