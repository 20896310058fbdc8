package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-rag/internal/core/ingestion"
)

// IngestAddAction はドキュメントを登録してインデックス化するコマンドのアクション
func IngestAddAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("取り込むファイルを1つ以上指定してください")
	}

	metadata, err := parseMetadata(cmd.StringSlice("metadata"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	service := appCtx.newIngestionService()
	queue := ingestion.NewQueue(ctx, service,
		ingestion.WithQueueWorkers(appCtx.Config.Ingest.Workers),
		ingestion.WithQueueLogger(slog.Default()),
	)

	registered := 0
	for _, file := range files {
		doc, err := service.Register(ctx, file, metadata)
		if err != nil {
			slog.Error("ドキュメント登録に失敗しました", "file", file, "error", err)
			continue
		}

		if !queue.Enqueue(ingestion.Job{Document: doc, FilePath: file}) {
			slog.Warn("キューへの投入をスキップしました", "file", file, "documentID", doc.ID)
			continue
		}

		fmt.Printf("registered: %s (%s)\n", doc.ID, doc.Filename)
		registered++
	}

	// 投入済みジョブの完了を待つ
	queue.Close()

	if registered == 0 {
		return fmt.Errorf("取り込みに成功したドキュメントがありません")
	}

	slog.Info("ドキュメント取り込みが完了しました", "registered", registered)
	return nil
}

// parseMetadata は key=value 形式のメタデータ指定をマップに変換する
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("メタデータの形式が不正です（key=value 形式で指定してください）: %s", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}
