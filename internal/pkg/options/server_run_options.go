// ServerRunOptions 服务运行参数：运行模式、健康检查、中间件、登录限流等.
package options

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/component-base/util/sets"
	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"
)

type ServerRunOptions struct {
	Mode        string   `json:"mode"        mapstructure:"mode"`
	Healthz     bool     `json:"healthz"     mapstructure:"healthz"`
	Middlewares []string `json:"middlewares" mapstructure:"middlewares"`
	// 调试模式下跳过 redis/kafka 的等待
	FastDebugStartup bool          `json:"fastDebugStartup" mapstructure:"fastDebugStartup"`
	CtxTimeout       time.Duration `json:"ctxtimeout"    mapstructure:"ctxtimeout"`
	Env              string        `json:"env"    mapstructure:"env"`
	ShutdownTimeout  time.Duration `json:"shutdownTimeout" mapstructure:"shutdownTimeout"`
	// 登录限流：每个客户端IP在 LoginWindow 内最多 LoginRateLimit 次
	LoginRateLimit   int           `json:"loginlimit"   mapstructure:"loginlimit"`
	LoginWindow      time.Duration `json:"loginwindow"   mapstructure:"loginwindow"`
	MaxLoginFailures int           `json:"maxLoginFailures" mapstructure:"maxLoginFailures"`
	LoginFailReset   time.Duration `json:"loginFailReset"   mapstructure:"loginFailReset"`
	// 登录密码比较结果本地缓存
	LoginCredentialCacheTTL  time.Duration `json:"loginCredentialCacheTTL" mapstructure:"loginCredentialCacheTTL"`
	LoginCredentialCacheSize int           `json:"loginCredentialCacheSize" mapstructure:"loginCredentialCacheSize"`
	// CacheTTL 机构、代码值、地址等字典数据的缓存时间，0表示不缓存
	CacheTTL time.Duration `json:"cacheTTL" mapstructure:"cacheTTL"`
	// AdminToken: 管理API访问令牌（如果为空，只允许本地或 debug 访问）
	AdminToken string `json:"adminToken" mapstructure:"adminToken"`
}

func NewServerRunOptions() *ServerRunOptions {
	return &ServerRunOptions{
		Mode:                     gin.ReleaseMode,
		Healthz:                  true,
		Middlewares:              []string{},
		FastDebugStartup:         false,
		CtxTimeout:               30 * time.Second,
		Env:                      "development",
		ShutdownTimeout:          10 * time.Second,
		LoginRateLimit:           60,
		LoginWindow:              time.Minute,
		MaxLoginFailures:         5,
		LoginFailReset:           15 * time.Minute,
		LoginCredentialCacheTTL:  30 * time.Second, //凭证缓存有效期
		LoginCredentialCacheSize: 1024,             //凭证缓存最大条目数
		CacheTTL:                 5 * time.Minute,
		AdminToken:               "",
	}
}

func (s *ServerRunOptions) Complete() {
	if s.Mode == "" {
		s.Mode = gin.ReleaseMode
	}
	if s.Middlewares == nil {
		s.Middlewares = []string{}
	}
	if s.CtxTimeout <= 0 {
		s.CtxTimeout = 30 * time.Second
	}
	if s.Env == "" {
		s.Env = "development"
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = 10 * time.Second
	}
	if s.LoginRateLimit == 0 {
		s.LoginRateLimit = 60
	}
	if s.LoginWindow == 0 {
		s.LoginWindow = time.Minute
	}
	if s.MaxLoginFailures <= 0 {
		s.MaxLoginFailures = 5
	}
	if s.LoginFailReset <= 0 {
		s.LoginFailReset = 15 * time.Minute
	}
	if s.LoginCredentialCacheTTL <= 0 {
		s.LoginCredentialCacheTTL = 30 * time.Second
	}
	if s.LoginCredentialCacheSize <= 0 {
		s.LoginCredentialCacheSize = 1024
	}
	if s.CacheTTL < 0 {
		s.CacheTTL = 0
	}
}

func (s *ServerRunOptions) Validate() []error {
	var errs = field.ErrorList{}
	var path = field.NewPath("server")

	if s.Mode != "" {
		set := sets.NewString(gin.DebugMode, gin.ReleaseMode, gin.TestMode)
		if !set.Has(s.Mode) {
			errs = append(errs, field.Invalid(path.Child("mode"), s.Mode, "无效的mode模式"))
		}
	}
	if s.Env != "" {
		set := sets.NewString("development", "release", "test")
		if !set.Has(s.Env) {
			errs = append(errs, field.Invalid(path.Child("env"), s.Env, "无效的env模式"))
		}
	}
	if s.LoginRateLimit < 0 {
		errs = append(errs, field.Invalid(path.Child("loginRateLimit"), s.LoginRateLimit, "限流数不能小于0"))
	}
	if s.LoginWindow < time.Second {
		errs = append(errs, field.Invalid(path.Child("loginWindow"), s.LoginWindow, "限流窗口不能小于1秒"))
	}
	if s.MaxLoginFailures <= 0 {
		errs = append(errs, field.Invalid(path.Child("maxLoginFailures"), s.MaxLoginFailures, "最大登录失败次数必须大于0"))
	}
	if s.LoginFailReset <= 0 {
		errs = append(errs, field.Invalid(path.Child("loginFailReset"), s.LoginFailReset, "登录失败计数失效时间必须大于0"))
	}

	agg := errs.ToAggregate()
	if agg == nil {
		return nil
	}
	return agg.Errors()
}

func (s *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&s.Mode, "server.mode", "M", s.Mode, ""+
		"指定服务器运行模式。支持的服务器模式：debug(调试)、test(测试)、release(发布)。")

	fs.BoolVarP(&s.Healthz, "server.healthz", "z", s.Healthz, ""+
		"启用健康检查并安装 /healthz 路由。")

	fs.StringSliceVarP(&s.Middlewares, "server.middlewares", "w", s.Middlewares, ""+
		"服务器允许的中间件列表，逗号分隔。如果列表为空，将使用默认中间件。")
	fs.StringVar(&s.Env, "server.env", s.Env, ""+
		"环境模式包括:development,release,test")
	fs.DurationVar(&s.CtxTimeout, "server.ctx-timeout", s.CtxTimeout, ""+
		"单个请求的处理超时时间")
	fs.DurationVar(&s.ShutdownTimeout, "server.shutdown-timeout", s.ShutdownTimeout, ""+
		"优雅退出时等待在途请求完成的时间")
	fs.DurationVar(&s.CacheTTL, "server.cache-ttl", s.CacheTTL, ""+
		"机构、代码值、地址等字典数据的缓存时间，0表示不缓存")

	fs.IntVar(&s.LoginRateLimit, "server.loginlimit", s.LoginRateLimit, ""+
		"每个客户端IP在限流窗口内允许的登录次数")
	fs.DurationVar(&s.LoginWindow, "server.loginwindow", s.LoginWindow, ""+
		"指定限流时间")
	fs.IntVar(&s.MaxLoginFailures, "server.login-max-attempts", s.MaxLoginFailures, ""+
		"同一用户在计数窗口内允许的最大登录失败次数")
	fs.DurationVar(&s.LoginFailReset, "server.login-fail-reset", s.LoginFailReset, ""+
		"登录失败计数的自动重置时间窗口")
	fs.DurationVar(&s.LoginCredentialCacheTTL, "server.login-credential-cache-ttl", s.LoginCredentialCacheTTL, ""+
		"登录凭证比较结果在本地缓存的有效期")
	fs.IntVar(&s.LoginCredentialCacheSize, "server.login-credential-cache-size", s.LoginCredentialCacheSize, ""+
		"登录凭证比较结果本地缓存的最大条目数")
	fs.StringVar(&s.AdminToken, "server.admin-token", s.AdminToken,
		"管理API的简单访问令牌（默认为空，仅允许本地访问）")
	fs.BoolVar(&s.FastDebugStartup, "server.fast-debug-startup", s.FastDebugStartup, "调试模式下是否跳过耗时的依赖等待，加速本地调试启动")
}
