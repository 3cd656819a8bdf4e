// options包整合 obs-apiserver 运行所需的全部配置：网络服务、数据库、缓存、消息队列、认证、日志以及业务开关，
// 并提供命令行参数分组、默认值补全与校验.
package options

import (
	jsoniter "github.com/json-iterator/go"
	cliflag "github.com/maxiaolu1981/cretem/nexuscore/component-base/cli/flag"

	genericoptions "github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// Options 整合了 API 服务器运行所需的所有配置选项
type Options struct {
	ServerRunOptions       *genericoptions.ServerRunOptions       `json:"server"           mapstructure:"server"`
	InsecureServingOptions *genericoptions.InsecureServingOptions `json:"insecure"         mapstructure:"insecure"`
	MysqlOptions           *genericoptions.MySQLOptions           `json:"mysql"            mapstructure:"mysql"`
	RedisOptions           *genericoptions.RedisOptions           `json:"redis"            mapstructure:"redis"`
	KafkaOptions           *genericoptions.KafkaOptions           `json:"kafka"            mapstructure:"kafka"`
	JwtOptions             *genericoptions.JwtOptions             `json:"jwt"              mapstructure:"jwt"`
	Log                    *log.Options                           `json:"log"              mapstructure:"log"`
	FeatureOptions         *genericoptions.FeatureOptions         `json:"feature"          mapstructure:"feature"`
	AuditOptions           *genericoptions.AuditOptions           `json:"audit"            mapstructure:"audit"`
	MetaOptions            *genericoptions.MetaOptions            `json:"meta"             mapstructure:"meta"`
	BloomFilterOptions     *genericoptions.BloomFilterOptions     `json:"bloom-filter"     mapstructure:"bloom-filter"`
	DistributedLock        *genericoptions.DistributedLockOptions `json:"distributed-lock" mapstructure:"distributed-lock"`
	DatatableOptions       *genericoptions.DatatableOptions       `json:"datatable"        mapstructure:"datatable"`
	CommandOptions         *genericoptions.CommandOptions         `json:"command"          mapstructure:"command"`
}

// NewOptions 创建一个带有默认参数的 Options 实例
func NewOptions() *Options {
	return &Options{
		ServerRunOptions:       genericoptions.NewServerRunOptions(),
		InsecureServingOptions: genericoptions.NewInsecureServingOptions(),
		MysqlOptions:           genericoptions.NewMySQLOptions(),
		RedisOptions:           genericoptions.NewRedisOptions(),
		KafkaOptions:           genericoptions.NewKafkaOptions(),
		JwtOptions:             genericoptions.NewJwtOptions(),
		Log:                    log.NewOptions(),
		FeatureOptions:         genericoptions.NewFeatureOptions(),
		AuditOptions:           genericoptions.NewAuditOptions(),
		MetaOptions:            genericoptions.NewMetaOptions(),
		BloomFilterOptions:     genericoptions.NewBloomFilterOptions(),
		DistributedLock:        genericoptions.NewDistributedLockOptions(),
		DatatableOptions:       genericoptions.NewDatatableOptions(),
		CommandOptions:         genericoptions.NewCommandOptions(),
	}
}

// Flags 按分组生成命令行参数集合
func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.ServerRunOptions.AddFlags(fss.FlagSet("generic"))
	o.InsecureServingOptions.AddFlags(fss.FlagSet("insecure serving"))
	o.MysqlOptions.AddFlags(fss.FlagSet("mysql"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.KafkaOptions.AddFlags(fss.FlagSet("kafka"))
	o.JwtOptions.AddFlags(fss.FlagSet("jwt"))
	o.Log.AddFlags(fss.FlagSet("logs"))
	o.FeatureOptions.AddFlags(fss.FlagSet("features"))
	o.AuditOptions.AddFlags(fss.FlagSet("audit"))
	o.MetaOptions.AddFlags(fss.FlagSet("meta"))
	o.BloomFilterOptions.AddFlags(fss.FlagSet("bloom filter"))
	o.DistributedLock.AddFlags(fss.FlagSet("distributed lock"))
	o.DatatableOptions.AddFlags(fss.FlagSet("datatable"))
	o.CommandOptions.AddFlags(fss.FlagSet("command"))
	return fss
}

// Validate 汇总各分组的校验错误
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.ServerRunOptions.Validate()...)
	errs = append(errs, o.InsecureServingOptions.Validate()...)
	errs = append(errs, o.MysqlOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.KafkaOptions.Validate()...)
	errs = append(errs, o.JwtOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.FeatureOptions.Validate()...)
	errs = append(errs, o.AuditOptions.Validate()...)
	errs = append(errs, o.MetaOptions.Validate()...)
	errs = append(errs, o.BloomFilterOptions.Validate()...)
	errs = append(errs, o.DistributedLock.Validate()...)
	errs = append(errs, o.DatatableOptions.Validate()...)
	errs = append(errs, o.CommandOptions.Validate()...)
	return errs
}

// Complete 补全配置默认值，确保关键参数不为空
func (o *Options) Complete() error {
	o.ServerRunOptions.Complete()
	o.RedisOptions.Complete()
	o.KafkaOptions.Complete()
	o.JwtOptions.Complete()
	o.AuditOptions.Complete()
	o.MetaOptions.Complete()
	o.BloomFilterOptions.Complete()
	o.DistributedLock.Complete()
	// 数据表结构锁跟随数据表配置
	if b, ok := o.DistributedLock.Business[genericoptions.LockDatatableDDL]; ok && b != nil {
		b.Timeout = o.DatatableOptions.DDLLockTTL
	}
	// 没有 redis 时分布式锁只能退化
	if !o.RedisOptions.Enabled {
		o.DistributedLock.Enabled = false
	}
	return nil
}

// String 将配置序列化为 JSON 字符串，用于调试输出
func (o *Options) String() string {
	data, _ := jsoniter.Marshal(o)
	return string(data)
}
