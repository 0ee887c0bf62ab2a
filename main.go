package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papermesh/config"
	"papermesh/engine"
	"papermesh/logger"
	"papermesh/metrics"
	"papermesh/notify"
	"papermesh/quote"
	"papermesh/storage"
	"papermesh/utils"
	"papermesh/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("❌ 加载配置失败: %v", err)
	}

	logger.SetLevel(logger.ParseLogLevel(cfg.System.LogLevel))
	logger.SetLocation(utils.CNLocation)
	defer logger.Close()

	logger.Info("========================================")
	logger.Info("  PaperMesh A股模拟交易引擎")
	logger.Info("========================================")

	store, err := storage.NewStore(cfg.Paper.DBPath)
	if err != nil {
		logger.Fatal("❌ 打开数据库失败: %v", err)
	}
	defer store.Close()

	// 初始资金只在账户为空时注入一次
	if err := store.SetInitialCashIfEmpty(cfg.Paper.InitialCash); err != nil {
		logger.Fatal("❌ 初始化账户失败: %v", err)
	}

	gateway := quote.NewTencentGateway(time.Duration(cfg.Quote.TimeoutSeconds) * time.Second)
	quoteService := quote.NewService(gateway, cfg.Quote.CacheSeconds, cfg.Quote.RatePerSecond)

	notifier := notify.NewNotifier(cfg)
	eng := engine.NewEngine(store, quoteService, cfg, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng.Start(ctx)

	if cfg.Metrics.Enabled {
		metrics.NewSystemCollector(cfg.Metrics.CollectInterval).Start(ctx)
	}

	var server *web.Server
	if cfg.Web.Enabled {
		server = web.NewServer(cfg, eng, store)
		if err := server.Start(ctx); err != nil {
			logger.Fatal("❌ 启动 Web 服务失败: %v", err)
		}
	}

	// 配置热更新：风控阈值和通知规则即时生效
	watcher, err := config.NewWatcher(*configPath, func(newCfg *config.Config) {
		eng.UpdateConfig(newCfg)
	})
	if err != nil {
		logger.Warn("⚠️ 配置监听启动失败: %v", err)
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("⚠️ 配置监听启动失败: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	if enabled, err := eng.GetKillSwitch(); err == nil && enabled {
		logger.Warn("🛑 熔断开关处于开启状态，新订单将被拒绝")
	}
	logger.Info("✅ 引擎已就绪")

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("收到信号 %v，开始优雅关闭...", sig)

	cancel()
	if server != nil {
		if err := server.Stop(); err != nil {
			logger.Warn("⚠️ Web 服务关闭异常: %v", err)
		}
	}
	logger.Info("✅ 已退出")
}
