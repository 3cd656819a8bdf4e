/*
JwtOptions JWT 认证配置：
Realm: 显示给用户的领域名称
Key: 用于签署 JWT 令牌的私钥
Timeout: JWT token 超时时间
MaxRefresh: 令牌可刷新的最长窗口期
RevokedKeyPrefix: 登出后被吊销的 jti 在 redis 中的键前缀
NewJwtOptions()（默认值）→ 命令行 / 配置文件覆盖 → Complete()（补全缺失的 Key 等）→ Validate()
*/

package options

import (
	"os"
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/util/idutil"
	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"
)

type JwtOptions struct {
	Realm            string        `json:"realm"       mapstructure:"realm"`
	Key              string        `json:"key"         mapstructure:"key"`
	Timeout          time.Duration `json:"timeout"     mapstructure:"timeout"`
	MaxRefresh       time.Duration `json:"max-refresh" mapstructure:"max-refresh"`
	RevokedKeyPrefix string        `json:"revoked-key-prefix" mapstructure:"revoked-key-prefix"`
}

func NewJwtOptions() *JwtOptions {
	return &JwtOptions{
		Realm:            "obs jwt",
		Key:              "",
		Timeout:          2 * time.Hour,
		MaxRefresh:       24 * time.Hour,
		RevokedKeyPrefix: "auth:revoked:",
	}
}

func (j *JwtOptions) Complete() {
	if j.Realm == "" {
		j.Realm = "obs jwt"
	}
	if j.Timeout == 0 {
		j.Timeout = 2 * time.Hour
	}
	if j.MaxRefresh == 0 {
		j.MaxRefresh = 24 * time.Hour
	}
	if j.RevokedKeyPrefix == "" {
		j.RevokedKeyPrefix = "auth:revoked:"
	}
	if j.Key == "" {
		j.ensureKey()
	}

}

func (j *JwtOptions) Validate() []error {
	errs := field.ErrorList{}
	path := field.NewPath("jwt")
	if j.Realm == "" {
		errs = append(errs, field.Required(path.Child("realm"), "必须输入realm"))
	} else if len(j.Realm) > 255 {
		errs = append(errs, field.TooLong(path.Child("realm"), j.Realm, 255))
	}

	if j.Timeout <= 0 {
		errs = append(errs, field.Invalid(path.Child("timeout"), j.Timeout, "timeout必须大于0"))
	}

	if j.MaxRefresh < 0 {
		errs = append(errs, field.Invalid(path.Child("max-refresh"), j.MaxRefresh, "max-refresh必须大于0"))
	}
	if j.Key == "" {
		errs = append(errs, field.Required(path.Child("key"), "必须配置jwt.key或环境变量JWT_SECRET_KEY"))
	} else if len(j.Key) < 6 || len(j.Key) > 64 {
		errs = append(errs, field.Invalid(path.Child("key"), "******", "key长度必须在6-64之间"))
	}
	if j.Timeout > 0 && j.MaxRefresh > 0 && j.Timeout >= j.MaxRefresh {
		errs = append(errs, field.Invalid(path.Child("timeout"), j.Timeout, "timeout必须小于maxrefresh"))
	}
	agg := errs.ToAggregate()
	if agg == nil {
		return nil // 无错误时返回空切片，而非nil
	}
	return agg.Errors()
}

func (j *JwtOptions) ensureKey() {
	// 优先从环境变量获取
	if envKey := os.Getenv("JWT_SECRET_KEY"); envKey != "" {
		j.Key = envKey
		return
	}

	// 开发环境：生成临时密钥
	if os.Getenv("GO_ENV") == "development" {
		j.Key = idutil.NewSecretKey()
		return
	}
	// 生产环境：必须配置密钥，由 Validate 报错
}

func (s *JwtOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&s.Realm, "jwt.realm", "r", s.Realm, "向用户显示的Realm名称。")

	fs.StringVarP(&s.Key, "jwt.key", "k", s.Key, "用于签名JWT令牌的私钥。")

	fs.DurationVarP(&s.Timeout, "jwt.timeout", "t", s.Timeout, "JWT令牌超时时间。")

	fs.DurationVarP(&s.MaxRefresh, "jwt.max-refresh", "m", s.MaxRefresh, ""+
		"此字段允许客户端在MaxRefresh时间过去之前刷新其令牌。")

	fs.StringVar(&s.RevokedKeyPrefix, "jwt.revoked-key-prefix", s.RevokedKeyPrefix, "已吊销令牌在redis中的键前缀。")
}
