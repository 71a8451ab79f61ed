package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"thirdcoast.systems/gifmoments/internal/application"
	"thirdcoast.systems/gifmoments/internal/config"
	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/internal/pipeline"
	"thirdcoast.systems/gifmoments/internal/telemetry"
	"thirdcoast.systems/gifmoments/pkg/utils/passwords"
)

// setup loads configuration and installs the logger on stderr so stdout stays
// machine readable.
func setup(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	conf, err := config.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = conf.LogLevel
	}
	slog.SetDefault(telemetry.NewLogger(cmd.ErrOrStderr(), "text", level))
	return conf, nil
}

// sourceReference turns the positional argument into a reference: anything
// with a scheme is remote, everything else is a local file.
func sourceReference(arg string) (media.Reference, error) {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "://") {
		return media.RemoteReference(arg), nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return media.Reference{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		return media.Reference{}, fmt.Errorf("video file: %w", err)
	}
	return media.UploadReference(abs), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <video-file|url>",
		Short: "Generate three GIFs and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conf, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			if out, _ := cmd.Flags().GetString("out"); out != "" {
				conf.ArtifactDir = out
				conf.ArtifactBackend = "disk"
			}
			ref, err := sourceReference(args[0])
			if err != nil {
				return err
			}
			prompt, _ := cmd.Flags().GetString("prompt")

			// The CLI keeps metadata in memory; the database is only for the server.
			services, err := application.NewServices(ctx, *conf, nil)
			if err != nil {
				return err
			}
			defer services.Close()

			res, err := services.Coordinator.Run(ctx, pipeline.Request{Reference: ref, Prompt: prompt})
			if err != nil {
				_ = writeJSON(cmd.OutOrStdout(), pipeline.NewFailureResponse(err))
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pipeline.NewSuccessResponse(res, func(id uuid.UUID) string {
				if p, ok := services.Artifacts.LocalPath(id); ok {
					return p
				}
				return "/api/gifs/" + id.String()
			}))
		},
	}
	cmd.Flags().StringP("prompt", "p", "", "What kind of moments to look for")
	cmd.Flags().StringP("out", "o", "", "Directory for the GIFs (overrides ARTIFACT_DIR)")
	cmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newProbeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Look a remote video up without downloading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conf, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			services, err := application.NewServices(ctx, *conf, nil)
			if err != nil {
				return err
			}
			defer services.Close()

			meta, err := services.Prober.Probe(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), meta)
		},
	}
	cmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

func newHashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token",
		Short: "Read an admin token from stdin and print its ADMIN_TOKEN_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
			if err != nil {
				return err
			}
			token := strings.TrimSpace(string(raw))
			if token == "" {
				return errors.New("no token on stdin")
			}
			hash, err := passwords.Hash(token)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
