package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/cache"
	"github.com/any-hub/any-cache/internal/config"
	"github.com/any-hub/any-cache/internal/logging"
	"github.com/any-hub/any-cache/internal/metrics"
	"github.com/any-hub/any-cache/internal/proxy"
	"github.com/any-hub/any-cache/internal/server"
	"github.com/any-hub/any-cache/internal/storage"
	"github.com/any-hub/any-cache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["remotes"] = len(cfg.Remotes)
		fields["storage"] = cfg.Storage.Type
		fields["credentials"] = config.CredentialModes(cfg.Remotes)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	registry, err := server.NewRemoteRegistry(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "构建 Remote 注册表失败: %v\n", err)
		return 1
	}

	// 启动顺序：配置 → RemoteRegistry → 存储后端 → 缓存编排 → Fiber server，
	// 所有请求共享同一个存储与缓存实例。
	store, err := server.NewStorage(context.Background(), cfg.Storage, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化存储失败: %v\n", err)
		return 1
	}
	defer func() {
		if err := storage.Close(store); err != nil {
			logger.WithError(err).Warn("storage_close_failed")
		}
	}()

	var recorder *metrics.Recorder
	cacheOpts := []cache.Option{cache.WithLogger(logger)}
	if cfg.Global.MetricsEnabled {
		recorder = metrics.NewRecorder()
		cacheOpts = append(cacheOpts, cache.WithObserver(recorder))
	}

	var requests proxy.RequestRecorder
	if recorder != nil {
		requests = recorder
	}
	proxyHandler := proxy.NewHandler(logger, cache.NewFromRemote(store, cacheOpts...), requests)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["remotes"] = len(cfg.Remotes)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["storage"] = cfg.Storage.Type
	fields["credentials"] = config.CredentialModes(cfg.Remotes)
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, registry, proxyHandler, recorder, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("any-cache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 ANY_CACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("ANY_CACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, registry *server.RemoteRegistry, proxyHandler server.ProxyHandler, recorder *metrics.Recorder, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	appOpts := server.AppOptions{
		Logger:     logger,
		Registry:   registry,
		Proxy:      proxyHandler,
		ListenPort: port,
	}
	if recorder != nil {
		appOpts.Metrics = recorder.Handler()
	}
	app, err := server.NewApp(appOpts)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
