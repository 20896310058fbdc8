package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-rag/internal/core/retrieval"
)

// QueryAction は検索クエリを実行するコマンドのアクション
func QueryAction(ctx context.Context, cmd *cli.Command) error {
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

	results, err := appCtx.newRetrievalService().Search(ctx, retrieval.Params{
		Query:         cmd.String("query"),
		DocumentIDs:   documentIDs,
		IncludeImages: cmd.Bool("include-images"),
		MaxResults:    cmd.Int("max-results"),
	})
	if err != nil {
		return fmt.Errorf("検索に失敗: %w", err)
	}

	return printJSON(results)
}

// parseDocumentIDs は文字列のドキュメントID指定をUUIDのスライスに変換する
func parseDocumentIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("ドキュメントIDの形式が不正です: %s", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
