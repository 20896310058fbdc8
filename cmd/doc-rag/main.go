package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-rag/cmd/doc-rag/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "doc-rag",
		Usage: "マルチモーダルドキュメント向け RAG パイプライン",
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "ドキュメント取り込みコマンド",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "ドキュメントを登録してインデックス化",
						ArgsUsage: "<file> [<file>...]",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringSliceFlag{
								Name:  "metadata",
								Usage: "ドキュメントメタデータ (key=value 形式、複数指定可)",
							},
						},
						Action: commands.IngestAddAction,
					},
				},
			},
			{
				Name:  "document",
				Usage: "ドキュメント管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "ドキュメント一覧を表示",
						Flags:  []cli.Flag{envFlag},
						Action: commands.DocumentListAction,
					},
					{
						Name:  "show",
						Usage: "ドキュメント詳細を表示",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "id",
								Usage:    "ドキュメントID",
								Required: true,
							},
						},
						Action: commands.DocumentShowAction,
					},
					{
						Name:  "delete",
						Usage: "ドキュメントと関連チャンクを削除",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "id",
								Usage:    "ドキュメントID",
								Required: true,
							},
						},
						Action: commands.DocumentDeleteAction,
					},
				},
			},
			{
				Name:  "query",
				Usage: "ベクトル検索を実行",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "検索クエリ",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "document",
						Usage: "検索対象のドキュメントID（複数指定可、省略時は全体）",
					},
					&cli.BoolFlag{
						Name:  "include-images",
						Usage: "画像チャンクを検索対象に含める",
					},
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "取得する検索結果の最大数",
						Value: 5,
					},
				},
				Action: commands.QueryAction,
			},
			{
				Name:  "ask",
				Usage: "質問応答を実行",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "質問文",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "document",
						Usage: "回答に使用するドキュメントID（複数指定可、省略時は全体）",
					},
					&cli.BoolFlag{
						Name:  "include-images",
						Usage: "画像チャンクをコンテキストに含める",
					},
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "コンテキストに使用する検索結果の最大数",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "結果をJSON形式で出力",
					},
				},
				Action: commands.AskAction,
			},
			{
				Name:  "db",
				Usage: "データベース管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "migrate",
						Usage:  "スキーマを適用",
						Flags:  []cli.Flag{envFlag},
						Action: commands.DBMigrateAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
