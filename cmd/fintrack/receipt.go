package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/log"
	"fintrack/internal/receipt"
)

func receiptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <file>",
		Short: "Print the total of a receipt from a text file or an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appConfig(cmd)
			if err != nil {
				return err
			}
			logger := appLogger(cmd).WithComponent(log.ComponentReceipt)
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read receipt: %w", err)
			}

			var rec receipt.Recognizer
			if cfg.GeminiAPIKey != "" {
				g, err := receipt.NewGeminiRecognizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
				if err != nil {
					return err
				}
				rec = g
			}
			scanner := receipt.NewScanner(rec)

			var res receipt.Result
			mimeType := http.DetectContentType(data)
			if strings.HasPrefix(mimeType, "image/") {
				res, err = scanner.FromImage(ctx, data, mimeType)
				if err != nil {
					return err
				}
			} else {
				res = scanner.FromText(string(data))
			}

			logger.DebugContext(ctx, "Receipt scanned", "file", args[0], "mime", mimeType, "found", res.Found)
			if !res.Found {
				fmt.Fprintln(cmd.OutOrStdout(), "no total found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Total)
			return nil
		},
	}
}
