package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/webmproject/presubmit/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that runs the presubmit gates on posted diffs.

Endpoints:
  GET  /health          Health check
  POST /api/on-upload   Run the upload gate on a diff
  POST /api/on-commit   Run the commit gate on a diff
  POST /api/parse       Show how a diff's files are classified
  GET  /api/ws          WebSocket streaming one message per finished check

Requests may carry repo_dir to check modified files against a local checkout.
The server reads client-named directories only with --allow-repo-dir.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "127.0.0.1", "address to listen on")
	serveCmd.Flags().IntP("port", "p", 6142, "port to listen on")
	serveCmd.Flags().String("config", "", "path to a .presubmit.yaml file")
	serveCmd.Flags().Bool("allow-repo-dir", false, "honor repo_dir in requests (reads any directory the server can)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	port, _ := cmd.Flags().GetInt("port")
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := loadConfig(cmd.Context(), cfgPath, "")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	listen := fmt.Sprintf("%s:%d", addr, port)
	srv := api.New(listen, cfg, slog.Default())
	srv.AllowRepoDir, _ = cmd.Flags().GetBool("allow-repo-dir")
	return srv.ListenAndServe()
}
