package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lk2023060901/persistence-go/internal/persistence/prefs"
	"github.com/lk2023060901/persistence-go/internal/persistence/settings"
	zlog "github.com/lk2023060901/persistence-go/pkg/log"
	"github.com/lk2023060901/persistence-go/pkg/metrics"
	"github.com/lk2023060901/persistence-go/pkg/util/merr"
	zviper "github.com/lk2023060901/persistence-go/pkg/util/viper"
)

const (
	defaultConfigPath = "./config.yaml"
	envConfigPath     = "PERSISTENCE_CONFIG_FILE_PATH"
	envLogPrefix      = "PERSISTENCE_LOG_"
	preferencesFile   = "preferences.db"
)

// MetricsConfig 对应配置文件中的 metrics 段。
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable" json:"enable" yaml:"enable"`
	Listen string `mapstructure:"listen" json:"listen" yaml:"listen"`
}

// Config 应用的完整配置。
type Config struct {
	Persistence settings.Config         `mapstructure:"persistence" json:"persistence" yaml:"persistence"`
	Logging     map[string]zlog.Config `mapstructure:"logging" json:"logging,omitempty" yaml:"logging,omitempty"`
	Metrics     MetricsConfig           `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}

// Option 定制 Application。
type Option func(*Application)

// WithConfigPath 指定配置文件路径，优先级高于环境变量。
func WithConfigPath(path string) Option {
	return func(a *Application) { a.configPath = path }
}

// WithDataPath 覆盖 persistence.data_path。
func WithDataPath(path string) Option {
	return WithOverride("persistence.data_path", path)
}

// WithOverride 以最高优先级覆盖任意配置 key，一般来自命令行参数。
func WithOverride(key string, value any) Option {
	return func(a *Application) {
		if a.overrides == nil {
			a.overrides = make(map[string]any)
		}
		a.overrides[key] = value
	}
}

// WithSettingsOptions 透传给 settings.New 的选项。
func WithSettingsOptions(opts ...settings.Option) Option {
	return func(a *Application) { a.settingsOpts = append(a.settingsOpts, opts...) }
}

// Application 存档服务的运行时容器，负责加载配置、初始化日志与指标并构造 Settings。
type Application struct {
	configPath   string
	overrides    map[string]any
	settingsOpts []settings.Option

	cfg      *zviper.Config
	conf     Config
	loggers  map[string]*zlog.MLogger
	settings *settings.Settings
	server   *http.Server
}

// New creates a new Application instance.
func New(opts ...Option) *Application {
	a := &Application{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run 按顺序完成 .env 加载、配置解析、日志初始化、指标注册和 Settings 构造。
//
// 配置文件路径的优先级从高到低：
//  1. WithConfigPath 或命令行 --config <path> / --config=<path>
//  2. 环境变量 PERSISTENCE_CONFIG_FILE_PATH
//  3. ./config.yaml，不存在时使用默认配置
func (a *Application) Run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.cfg.Unmarshal(&a.conf); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	a.resolvePersistence()

	if err := a.initLogging(); err != nil {
		return err
	}
	if err := a.initMetrics(); err != nil {
		return err
	}

	st, err := settings.New(a.conf.Persistence, a.settingsOpts...)
	if err != nil {
		return fmt.Errorf("init settings: %w", err)
	}
	a.settings = st

	zlog.Ctx(ctx).Info("application started",
		zap.String("config", a.cfg.ConfigFile()),
		zap.String("version", Version),
		zap.Bool("development", a.conf.Persistence.Development))
	return nil
}

// Close 停止指标服务并关闭 Settings。
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	if a.settings != nil {
		errs = append(errs, a.settings.Close())
	}
	_ = zlog.Sync()
	return merr.Combine(errs...)
}

// Settings 返回构造好的存档门面，Run 成功之前为 nil。
func (a *Application) Settings() *settings.Settings {
	return a.settings
}

// Config 返回解析后的配置。
func (a *Application) Config() Config {
	return a.conf
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return zlog.With(zlog.FieldModule(name))
}

// loadConfig 解析配置文件路径并通过 viper 加载，默认路径的文件可以不存在。
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath, explicit, err := a.resolveConfigPath(os.Args[1:])
	if err != nil {
		return nil, err
	}

	cfg := zviper.New()
	cfg.BindEnv("")
	setDefaults(cfg)

	if err := cfg.LoadFile(configPath); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
		}
	}
	for key, value := range a.overrides {
		cfg.Set(key, value)
	}
	return cfg, nil
}

func (a *Application) resolveConfigPath(args []string) (path string, explicit bool, err error) {
	if a.configPath != "" {
		return a.configPath, true, nil
	}
	path, err = configPathFromArgs(args)
	if err != nil || path != "" {
		return path, path != "", err
	}
	if envPath := strings.TrimSpace(os.Getenv(envConfigPath)); envPath != "" {
		return envPath, true, nil
	}
	return defaultConfigPath, false, nil
}

func configPathFromArgs(args []string) (string, error) {
	configPath := ""
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return "", fmt.Errorf("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if val, ok := strings.CutPrefix(arg, "--config="); ok && val != "" {
			configPath = val
		}
	}
	return configPath, nil
}

// setDefaults 为全部已知 key 设置默认值，环境变量覆盖依赖这些 key。
func setDefaults(cfg *zviper.Config) {
	def := settings.DefaultConfig()
	cfg.SetDefault("persistence.serializer", def.Serializer)
	cfg.SetDefault("persistence.compressor", def.Compressor)
	cfg.SetDefault("persistence.cryptographer", def.Cryptographer)
	cfg.SetDefault("persistence.cryptographer_key", def.CryptographerKey)
	cfg.SetDefault("persistence.slot_name", def.SlotName)
	cfg.SetDefault("persistence.last_slot_key", def.LastSlotKey)
	cfg.SetDefault("persistence.save_raw_file", def.SaveRawFile)
	cfg.SetDefault("persistence.data_path", def.DataPath)
	cfg.SetDefault("persistence.pool_size", def.PoolSize)
	cfg.SetDefault("persistence.pool_pre_alloc", def.PoolPreAlloc)
	cfg.SetDefault("persistence.pool_expiry", def.PoolExpiry)
	cfg.SetDefault("persistence.preferences.driver", def.Preferences.Driver)
	cfg.SetDefault("metrics.enable", false)
	cfg.SetDefault("metrics.listen", ":9090")
}

// resolvePersistence 补全依赖其他字段的默认值。
func (a *Application) resolvePersistence() {
	p := &a.conf.Persistence
	if a.cfg.IsSet("persistence.development") {
		p.Development = a.cfg.GetBool("persistence.development")
	} else {
		p.Development = IsDevelopment()
	}
	if p.Preferences.Path == "" && p.Preferences.Driver != prefs.DriverMemory {
		p.Preferences.Path = filepath.Join(p.DataPath, preferencesFile)
	}
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggersFromConfig()
}

// initGlobalLoggerFromEnv configures the process-wide logger based on PERSISTENCE_LOG_* env vars.
//
//   - PERSISTENCE_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - PERSISTENCE_LOG_LEVEL: log level (default "info").
//   - PERSISTENCE_LOG_STDOUT: whether to log to stdout (default false).
//   - PERSISTENCE_LOG_FILE_DIR: log directory.
//   - PERSISTENCE_LOG_FILE: log file name (empty means no file).
//   - PERSISTENCE_LOG_FORMAT: log format ("text" or "json", default "text").
func initGlobalLoggerFromEnv() error {
	cfg := &zlog.Config{
		Level:               getenvDefault(envLogPrefix+"LEVEL", "info"),
		Format:              getenvDefault(envLogPrefix+"FORMAT", "text"),
		Stdout:              getenvBool(envLogPrefix+"STDOUT", false),
		DisableErrorVerbose: true,
		File: zlog.FileLogConfig{
			RootPath: getenvDefault(envLogPrefix+"FILE_DIR", ""),
			Filename: getenvDefault(envLogPrefix+"FILE", ""),
		},
	}
	if !getenvBool(envLogPrefix+"ENABLE", false) {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig creates named loggers from the "logging" section.
//
//	logging:
//	  storage:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: storage.log
func (a *Application) initModuleLoggersFromConfig() error {
	if len(a.conf.Logging) == 0 {
		return nil
	}
	a.loggers = make(map[string]*zlog.MLogger, len(a.conf.Logging))
	for name, lc := range a.conf.Logging {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}
	if lg, ok := a.loggers["settings"]; ok {
		a.settingsOpts = append([]settings.Option{settings.WithLogger(lg)}, a.settingsOpts...)
	}
	return nil
}

// initMetrics 注册指标，开启时在 listen 地址上暴露 /metrics。
func (a *Application) initMetrics() error {
	metrics.Register(prometheus.DefaultRegisterer)
	if !a.conf.Metrics.Enable {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.server = &http.Server{
		Addr:              a.conf.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Warn("metrics server stopped", zap.String("listen", a.conf.Metrics.Listen), zap.Error(err))
		}
	}()
	zlog.Info("metrics server listening", zap.String("listen", a.conf.Metrics.Listen))
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
