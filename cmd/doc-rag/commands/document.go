package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// DocumentListAction はドキュメント一覧を表示するコマンドのアクション
func DocumentListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	docs, err := appCtx.Repository.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("ドキュメント一覧の取得に失敗: %w", err)
	}

	return printJSON(docs)
}

// DocumentShowAction はドキュメント詳細を表示するコマンドのアクション
func DocumentShowAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("ドキュメントIDの形式が不正です: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	opt, err := appCtx.Repository.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("ドキュメントの取得に失敗: %w", err)
	}

	doc, ok := opt.Get()
	if !ok {
		return fmt.Errorf("ドキュメントが見つかりません: %s", id)
	}

	return printJSON(doc)
}

// DocumentDeleteAction はドキュメントと関連データを削除するコマンドのアクション
func DocumentDeleteAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("ドキュメントIDの形式が不正です: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.newIngestionService().Delete(ctx, id); err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗: %w", err)
	}

	slog.Info("ドキュメントを削除しました", "documentID", id)
	return nil
}

// printJSON は結果をインデント付きJSONで標準出力に書き出す
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
