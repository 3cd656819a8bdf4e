package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	ginjwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
	srvv1 "github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/audit"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/auth/keys"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server/producer"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

const (
	// 业务缓存的 redis 前缀，认证相关键使用 keys.GenericPrefix
	cacheKeyPrefix = "obs:"

	revokedSweepInterval = time.Minute
	dbStatsInterval      = 15 * time.Second
)

type GenericAPIServer struct {
	insecureServer *http.Server
	*gin.Engine
	options *options.Options

	store interfaces.Factory
	db    *gorm.DB

	// redis 认证相关：登录失败计数、限流、令牌吊销
	redis      *storage.RedisCluster
	cacheRedis *storage.RedisCluster

	producer *CommandProducer
	consumer *InvalidationConsumer

	service     *srvv1.ServiceSrv
	audit       *audit.Manager
	jwt         *ginjwt.GinJWTMiddleware
	credentials *credentialCache
	revoked     *revokedTokens
	loginLimit  *loginLimit

	// bgCancel 结束 redis 连接、监控、消费者等后台任务
	bgCancel context.CancelFunc
}

func NewGenericAPIServer(opts *options.Options) (*GenericAPIServer, error) {
	log.Infof("正在初始化GenericAPIServer服务器，环境: %s", opts.ServerRunOptions.Env)

	g := &GenericAPIServer{
		Engine:  gin.New(),
		options: opts,
		loginLimit: &loginLimit{
			limit:  opts.ServerRunOptions.LoginRateLimit,
			window: opts.ServerRunOptions.LoginWindow,
		},
	}
	g.configureGin()

	bgCtx, cancel := context.WithCancel(context.Background())
	g.bgCancel = cancel
	ok := false
	defer func() {
		if !ok {
			g.cleanup()
		}
	}()

	storeIns, dbIns, err := store.GetMySQLFactoryOr(opts.MysqlOptions)
	if err != nil {
		log.Errorf("数据库初始化失败: %v", err)
		return nil, err
	}
	interfaces.SetClient(storeIns)
	g.store, g.db = storeIns, dbIns
	log.Infof("数据库初始化成功: driver=%s", opts.MysqlOptions.Driver)
	go g.monitorDBStats(bgCtx)

	g.initRedis(bgCtx)

	if g.audit, err = audit.NewManager(audit.ConfigFromOptions(opts.AuditOptions)); err != nil {
		return nil, err
	}

	var p producer.MessageProducer
	if opts.KafkaOptions.Enabled {
		if err := g.initKafka(bgCtx); err != nil {
			return nil, err
		}
		p = g.producer
	} else {
		log.Warn("kafka 未启用，命令事件不会广播给其他实例")
	}

	if g.service, err = srvv1.NewService(g.store, g.cacheRedis, opts, p, g.audit); err != nil {
		return nil, err
	}
	g.service.Names.Start(bgCtx)

	if opts.KafkaOptions.Enabled {
		workers := opts.KafkaOptions.WorkerCount
		if workers <= 0 {
			workers = defaultConsumerWorkers
		}
		g.consumer = NewInvalidationConsumer(opts.KafkaOptions, g.service)
		go g.consumer.StartConsuming(bgCtx, workers)
	}

	g.credentials = newCredentialCache(opts.ServerRunOptions.LoginCredentialCacheTTL,
		opts.ServerRunOptions.LoginCredentialCacheSize)
	g.revoked = newRevokedTokens(g.redis, opts.JwtOptions.RevokedKeyPrefix)
	go g.revoked.run(bgCtx, revokedSweepInterval)

	if g.jwt, err = g.newJWTAuth(); err != nil {
		return nil, err
	}

	middleware.InstallMiddlewares(g.Engine, opts)
	log.Info("中间件安装成功")
	g.installRoutes()

	ok = true
	return g, nil
}

func (g *GenericAPIServer) configureGin() {
	gin.SetMode(g.options.ServerRunOptions.Mode)
	if g.options.ServerRunOptions.Mode == gin.DebugMode {
		gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
			log.Debugf("📍 %-6s %-50s → %s (%d middleware)",
				httpMethod, absolutePath, filepath.Base(handlerName), nuHandlers)
		}
		return
	}
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}
}

// initRedis 后台连接 redis，未连上时缓存与吊销降级到本地.
func (g *GenericAPIServer) initRedis(ctx context.Context) {
	if !g.options.RedisOptions.Enabled {
		storage.DisableRedis(true)
		log.Warn("redis 未启用，缓存直连数据库，令牌吊销仅在本实例生效")
		return
	}
	g.redis = &storage.RedisCluster{KeyPrefix: keys.GenericPrefix}
	g.cacheRedis = &storage.RedisCluster{KeyPrefix: cacheKeyPrefix}

	go storage.ConnectToRedis(ctx, g.options.RedisOptions.ToStorageConfig())
	go metrics.NewRedisMonitor(storage.Connected, storage.Client, 0).Start(ctx)

	if g.options.ServerRunOptions.FastDebugStartup {
		return
	}
	deadline := time.Now().Add(10 * time.Second)
	for !storage.Connected() && time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
	}
	if storage.Connected() {
		log.Info("redis 连接成功")
	} else {
		log.Warn("redis 暂不可用，后台继续重连")
	}
}

func (g *GenericAPIServer) initKafka(ctx context.Context) error {
	opts := g.options.KafkaOptions
	if g.options.ServerRunOptions.FastDebugStartup {
		log.Debug("跳过 kafka 连通性检查")
	} else {
		if err := CheckKafkaConnection(ctx, opts); err != nil {
			return err
		}
		if err := EnsureCommandTopic(ctx, opts); err != nil {
			log.Warnf("检查命令主题失败: %v", err)
		}
	}
	p, err := NewCommandProducer(opts)
	if err != nil {
		return errors.WithCode(code.ErrKafkaFailed, "创建命令生产者失败: %v", err)
	}
	g.producer = p
	log.Infof("kafka 初始化成功: brokers=%v topic=%s", opts.Brokers, opts.Topic)
	return nil
}

func (g *GenericAPIServer) monitorDBStats(ctx context.Context) {
	sqlDB, err := g.db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()
	for {
		metrics.RecordDBStats(sqlDB.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Run 阻塞直到收到退出信号或服务出错，随后优雅关闭.
func (g *GenericAPIServer) Run() error {
	address := g.options.InsecureServingOptions.Address()
	g.insecureServer = &http.Server{
		Addr:              address,
		Handler:           g,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("创建监听器失败: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Infof("正在 %s 启动 GenericAPIServer 服务", address)
		if err := g.insecureServer.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("GenericAPIServer服务器运行失败: %w", err)
		}
		log.Info("GenericAPIServer服务器已停止接收请求")
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		return g.Shutdown()
	})

	if g.options.ServerRunOptions.Healthz {
		checkCtx, cancel := context.WithTimeout(egCtx, 30*time.Second)
		err := g.waitForPortReady(checkCtx, address, portReadyTimeout)
		if err == nil {
			err = g.ping(checkCtx, address)
		}
		cancel()
		if err != nil {
			stop()
			_ = eg.Wait()
			return err
		}
	}
	return eg.Wait()
}

// Shutdown 先停止 HTTP 与审计，再释放消费者、生产者和存储.
func (g *GenericAPIServer) Shutdown() error {
	log.Info("开始关闭 GenericAPIServer")
	ctx, cancel := context.WithTimeout(context.Background(), g.options.ServerRunOptions.ShutdownTimeout)
	defer cancel()

	var err error
	if g.insecureServer != nil {
		if e := g.insecureServer.Shutdown(ctx); e != nil {
			log.Errorf("HTTP 服务关闭失败: %v", e)
			err = e
		}
	}
	if e := g.audit.Shutdown(ctx); e != nil {
		log.Warnf("审计管理器关闭失败: %v", e)
	}
	g.cleanup()
	log.Info("GenericAPIServer 已关闭")
	return err
}

func (g *GenericAPIServer) cleanup() {
	if g.bgCancel != nil {
		g.bgCancel()
	}
	if g.consumer != nil {
		if err := g.consumer.Close(); err != nil {
			log.Warnf("关闭缓存失效消费者失败: %v", err)
		}
	}
	if g.producer != nil {
		if err := g.producer.Close(); err != nil {
			log.Warnf("关闭命令生产者失败: %v", err)
		}
	}
	if g.service != nil {
		g.service.Names.Stop()
	}
	if g.redis != nil {
		if err := storage.Close(); err != nil {
			log.Debugf("关闭 redis 失败: %v", err)
		}
	}
	if ds, ok := g.store.(*store.Datastore); ok {
		if err := ds.Close(); err != nil {
			log.Warnf("关闭数据库失败: %v", err)
		}
	}
}

// waitForPortReady 等待端口就绪
func (g *GenericAPIServer) waitForPortReady(ctx context.Context, address string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		if time.Now().After(deadline) {
			return fmt.Errorf("端口就绪检测超时")
		}
		conn, err := net.DialTimeout("tcp", localAddress(address), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			log.Debugf("端口 %s 就绪，尝试次数: %d", address, attempt)
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("端口就绪检测被取消: %w", ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (g *GenericAPIServer) ping(ctx context.Context, address string) error {
	url := fmt.Sprintf("http://%s/healthz", localAddress(address))
	start := time.Now()
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("创建请求失败: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				log.Infof("健康检查成功! 尝试 %d 次, 耗时 %v", attempt, time.Since(start))
				return nil
			}
			log.Infof("健康检查尝试 %d: 状态码 %d", attempt, resp.StatusCode)
		} else if attempt%3 == 0 {
			log.Infof("健康检查尝试 %d 失败: %v", attempt, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("健康检查超时: %w", ctx.Err())
		case <-time.After(time.Second):
		}
	}
}

// localAddress 监听在全部地址时用回环地址自检.
func localAddress(address string) string {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
