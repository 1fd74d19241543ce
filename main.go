// Package main 是台股法人連買分析程式的入口：抓取 Goodinfo 類股表、
// 清洗合併後篩選，逐檔計算技術指標，偏多個股交由 LLM 解讀並推播 LINE。
// 支援單次運行或 cron 調度常駐模式。
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"twstockai/internal/analyzer"
	"twstockai/internal/config"
	"twstockai/internal/fetch"
	"twstockai/internal/logging"
	"twstockai/internal/narrative"
	"twstockai/internal/notify"
	"twstockai/internal/screen"
)

const runTimeout = 30 * time.Minute

var (
	flagStockID        string
	flagNoNotification bool
	flagLogLevel       string
	flagSchedule       string
	flagConfigPath     string
)

func main() {
	root := &cobra.Command{
		Use:          "twstockai",
		Short:        "台股法人連買選股與個股技術面 AI 分析",
		SilenceUsage: true,
		RunE:         run,
	}
	root.Flags().StringVar(&flagStockID, "stock-id", "", "只分析指定個股（略過選股清單）")
	root.Flags().BoolVar(&flagNoNotification, "no-notification", false, "不推播 LINE，分析結果僅輸出日誌")
	root.Flags().StringVar(&flagLogLevel, "log-level", "INFO", "日誌等級 (DEBUG/INFO/WARNING/ERROR)")
	root.Flags().StringVar(&flagSchedule, "schedule", "", "cron 表達式，設定後常駐依排程執行（如 \"30 8 * * 1-5\"）")
	root.Flags().StringVar(&flagConfigPath, "config", "", "設定檔路徑（預設 config.json）")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	logging.Setup(flagLogLevel)

	cfg := config.Load(flagConfigPath)
	if err := cfg.Validate(!flagNoNotification); err != nil {
		log.Error().Err(err).Msg("設定驗證失敗")
		return err
	}

	a := buildAnalyzer(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagSchedule != "" {
		return runScheduler(ctx, a)
	}
	if err := runOnce(ctx, a); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("收到中斷訊號，結束")
			return nil
		}
		return err
	}
	return nil
}

func buildAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	a := &analyzer.Analyzer{
		Fetcher:        fetch.NewClient("", cfg.GoodinfoCookie),
		Narrator:       narrative.NewAnalyst(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel),
		Conditions:     screen.DefaultConditions(),
		RevenueColumns: cfg.ExpectedRevenueColumns(time.Now()),
	}
	if !flagNoNotification {
		a.Notifier = notify.NewNotifier(notify.NewLineClient(cfg.LineAccessToken), cfg.LineUserID)
	}
	return a
}

func runOnce(ctx context.Context, a *analyzer.Analyzer) error {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	res, err := a.RunDailyAnalysis(runCtx, flagStockID)
	if res != nil {
		fmt.Print(res.Summary())
	}
	if err != nil {
		log.Error().Err(err).Msg("本輪分析失敗")
		return err
	}
	return nil
}

// runScheduler 以 cron 表達式常駐排程，收到中斷訊號後結束；單輪失敗只記錄。
func runScheduler(ctx context.Context, a *analyzer.Analyzer) error {
	c := cron.New()
	_, err := c.AddFunc(flagSchedule, func() {
		if err := runOnce(ctx, a); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("排程輪次失敗，等待下一輪")
		}
	})
	if err != nil {
		return fmt.Errorf("無效的 cron 表達式 %q: %w", flagSchedule, err)
	}
	c.Start()
	log.Info().Str("cron", flagSchedule).Msg("調度模式啟動")

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	log.Info().Msg("收到中斷訊號，調度結束")
	return nil
}
