package cmd

import (
	"context"
	"fmt"
	"os"

	"vtt-fusion/app/config"
	"vtt-fusion/app/database"
	"vtt-fusion/app/logger"
	"vtt-fusion/app/service"
	"vtt-fusion/app/storage"
	"vtt-fusion/app/transcriber"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "执行一次批量转写",
	Long:  "扫描对象存储中时间窗口内的媒体文件，生成 VTT 字幕并上传，完成后退出",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		log := logger.New(cfg.Log)
		defer log.Sync()

		if err := database.Init(cfg, log); err != nil {
			log.Fatalf("数据库初始化失败: %v", err)
		}
		defer database.Close()

		ctx := context.Background()

		gateway, err := storage.NewS3Storage(ctx, cfg.Storage, log)
		if err != nil {
			log.Fatalf("创建存储网关失败: %v", err)
		}
		tr, err := transcriber.NewFromConfig(cfg, log)
		if err != nil {
			log.Fatalf("创建转写后端失败: %v", err)
		}

		svc := service.NewBatchService(cfg, log, gateway, tr)

		summary, err := svc.Run(ctx)
		if summary != nil {
			fmt.Printf("运行标识: %s\n", summary.RunID)
			fmt.Printf("成功: %d  校验拒绝: %d  转写失败: %d  存储失败: %d  跳过: %d\n",
				summary.Succeeded, summary.ValidationRejected,
				summary.TranscriptionFailed, summary.StorageFailed, summary.Skipped)
		}
		if err != nil {
			log.Errorf("批量转写失败: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
