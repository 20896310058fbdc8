package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-rag/internal/core/answer"
)

// AskAction は質問応答を実行するコマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	documentIDs, err := parseDocumentIDs(cmd.StringSlice("document"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	service, err := appCtx.newAnswerService()
	if err != nil {
		return err
	}

	result, err := service.Ask(ctx, answer.Params{
		Query:         cmd.String("query"),
		DocumentIDs:   documentIDs,
		IncludeImages: cmd.Bool("include-images"),
		MaxResults:    cmd.Int("max-results"),
	})
	if err != nil {
		return fmt.Errorf("回答生成に失敗: %w", err)
	}

	if cmd.Bool("json") {
		return printJSON(result)
	}

	fmt.Println(result.Answer)
	if len(result.Citations) > 0 {
		fmt.Println()
		fmt.Println("Citations:")
		for i, c := range result.Citations {
			line := fmt.Sprintf("  [%d] %s", i+1, c.DocumentName)
			if c.PageNumber != nil {
				line += fmt.Sprintf(" (Page %d)", *c.PageNumber)
			}
			line += fmt.Sprintf(" confidence=%.2f", c.Confidence)
			fmt.Println(line)
		}
	}
	fmt.Printf("\nprocessing time: %.2fs\n", result.ProcessingTime.Seconds())

	return nil
}
