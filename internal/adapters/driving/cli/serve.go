package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfchat/internal/adapters/driving/rest"
)

var (
	serveAddr string
	tokenUser string
	tokenTTL  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API",
	Long: `Serve the HTTP API for web and mobile clients.

Every /v1 route needs an "Authorization: Bearer <token>" header holding an
HS256 token signed with identity.jwt_secret. The token's subject is the
user whose documents and conversations are used.

Documents registered over the API must use an https or s3 URL on a public
host; local paths are only accepted from the command line.

Routes:
  POST /v1/documents                     register a document
  GET  /v1/documents                     list documents
  GET  /v1/documents/:id                 show a document
  POST /v1/documents/:id/index           index a document
  POST /v1/documents/:id/questions       ask a question
  GET  /v1/documents/:id/messages        conversation history`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a REST API token",
	Long:  `Sign a bearer token for the REST API with the configured secret.`,
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id to put in the token (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if tokens == nil {
		return errors.New("identity.jwt_secret must be set to serve the REST API")
	}
	if remoteDocuments == nil {
		return errNotConfigured
	}

	server, err := rest.NewServer(&rest.Ports{
		Chat:     chatService,
		Document: remoteDocuments,
		Indexing: indexingService,
	}, tokens)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "REST API listening on %s\n", serveAddr)
	return server.Run(commandContext(cmd), serveAddr)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if tokens == nil {
		return errors.New("identity.jwt_secret must be set to issue tokens")
	}
	if tokenUser == "" {
		return errors.New("--user is required")
	}

	token, err := tokens.Issue(tokenUser, tokenTTL)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	cmd.Println(token)
	return nil
}
