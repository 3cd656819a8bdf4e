package options

import (
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/db"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type MySQLOptions struct {
	Driver                string        `json:"driver"                             mapstructure:"driver"`
	Host                  string        `json:"host,omitempty"                     mapstructure:"host"`
	Username              string        `json:"username,omitempty"                 mapstructure:"username"`
	Password              string        `json:"-"                                  mapstructure:"password"`
	Database              string        `json:"database"                           mapstructure:"database"`
	MaxIdleConnections    int           `json:"max-idle-connections,omitempty"     mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections,omitempty"     mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time,omitempty" mapstructure:"max-connection-life-time"`
	LogLevel              int           `json:"log-level"                          mapstructure:"log-level"`
	TablePrefix           string        `json:"table-prefix"                       mapstructure:"table-prefix"`
	Timeout               time.Duration `json:"timeout"                            mapstructure:"timeout"`
	SlowQueryThreshold    time.Duration `json:"slow-query-threshold"               mapstructure:"slow-query-threshold"`
	// SQLitePath driver=sqlite 时的数据库文件，本地演示用
	SQLitePath string `json:"sqlite-path" mapstructure:"sqlite-path"`
	// AutoMigrate 启动时迁移核心表并写入初始数据
	AutoMigrate    bool   `json:"auto-migrate"     mapstructure:"auto-migrate"`
	HeadOfficeName string `json:"head-office-name" mapstructure:"head-office-name"`
	AdminUsername  string `json:"admin-username"   mapstructure:"admin-username"`
	AdminPassword  string `json:"-"                mapstructure:"admin-password"`
}

func NewMySQLOptions() *MySQLOptions {
	return &MySQLOptions{
		Driver:                DriverMySQL,
		Host:                  "127.0.0.1:3306",
		Username:              "root",
		Password:              "",
		Database:              "obs",
		MaxIdleConnections:    100,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: time.Duration(10) * time.Second,
		LogLevel:              1, // gorm 静默
		Timeout:               10 * time.Second,
		SlowQueryThreshold:    200 * time.Millisecond,
		SQLitePath:            "obs.db",
		AutoMigrate:           true,
		HeadOfficeName:        "Head Office",
		AdminUsername:         "mifos",
		AdminPassword:         "password",
	}
}

// Validate 校验参数是否正确
func (o *MySQLOptions) Validate() []error {
	errs := field.ErrorList{}
	path := field.NewPath("mysql")
	switch o.Driver {
	case DriverMySQL:
		if o.Host == "" {
			errs = append(errs, field.Required(path.Child("host"), "必须指定mysql地址"))
		}
		if o.Database == "" {
			errs = append(errs, field.Required(path.Child("database"), "必须指定数据库名"))
		}
	case DriverSQLite:
		if o.SQLitePath == "" {
			errs = append(errs, field.Required(path.Child("sqlite-path"), "sqlite模式必须指定数据库文件"))
		}
	default:
		errs = append(errs, field.NotSupported(path.Child("driver"), o.Driver, []string{DriverMySQL, DriverSQLite}))
	}
	if o.MaxOpenConnections < 0 || o.MaxIdleConnections < 0 {
		errs = append(errs, field.Invalid(path.Child("max-open-connections"), o.MaxOpenConnections, "连接数不能为负数"))
	}
	if o.MaxIdleConnections > o.MaxOpenConnections && o.MaxOpenConnections > 0 {
		errs = append(errs, field.Invalid(path.Child("max-idle-connections"), o.MaxIdleConnections, "空闲连接数不能超过最大连接数"))
	}
	if o.AutoMigrate && o.AdminUsername != "" && o.AdminPassword == "" {
		errs = append(errs, field.Required(path.Child("admin-password"), "初始化管理员时必须指定密码"))
	}
	agg := errs.ToAggregate()
	if agg == nil {
		return nil
	}
	return agg.Errors()
}

// DBOptions 转换为 pkg/db 的连接参数.
func (o *MySQLOptions) DBOptions() *db.Options {
	return &db.Options{
		Host:                  o.Host,
		Username:              o.Username,
		Password:              o.Password,
		Database:              o.Database,
		MaxIdleConnections:    o.MaxIdleConnections,
		MaxOpenConnections:    o.MaxOpenConnections,
		MaxConnectionLifeTime: o.MaxConnectionLifeTime,
		LogLevel:              o.LogLevel,
		TablePrefix:           o.TablePrefix,
		Timeout:               o.Timeout,
		SlowQueryThreshold:    o.SlowQueryThreshold,
	}
}

// NewClient 按驱动打开数据库.
func (o *MySQLOptions) NewClient() (*gorm.DB, error) {
	if o.Driver == DriverSQLite {
		return db.NewSQLite(o.SQLitePath, o.DBOptions())
	}
	return db.New(o.DBOptions())
}

// AddFlags 添加flag标志
func (o *MySQLOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Driver, "mysql.driver", o.Driver, ""+
		"Database driver, one of mysql or sqlite. sqlite is meant for local demos.")

	fs.StringVar(&o.Host, "mysql.host", o.Host, ""+
		"MySQL service host address. If left blank, the following related mysql options will be ignored.")

	fs.StringVar(&o.Username, "mysql.username", o.Username, ""+
		"Username for access to mysql service.")

	fs.StringVar(&o.Password, "mysql.password", o.Password, ""+
		"Password for access to mysql, should be used pair with password.")

	fs.StringVar(&o.Database, "mysql.database", o.Database, ""+
		"Database name for the server to use.")

	fs.IntVar(&o.MaxIdleConnections, "mysql.max-idle-connections", o.MaxIdleConnections, ""+
		"Maximum idle connections allowed to connect to mysql.")

	fs.IntVar(&o.MaxOpenConnections, "mysql.max-open-connections", o.MaxOpenConnections, ""+
		"Maximum open connections allowed to connect to mysql.")

	fs.DurationVar(&o.MaxConnectionLifeTime, "mysql.max-connection-life-time", o.MaxConnectionLifeTime, ""+
		"Maximum connection life time allowed to connect to mysql.")

	fs.IntVar(&o.LogLevel, "mysql.log-mode", o.LogLevel, ""+
		"Specify gorm log level.")

	fs.StringVar(&o.TablePrefix, "mysql.table-prefix", o.TablePrefix, "表名前缀")
	fs.DurationVar(&o.Timeout, "mysql.timeout", o.Timeout, "单条语句超时时间")
	fs.DurationVar(&o.SlowQueryThreshold, "mysql.slow-query-threshold", o.SlowQueryThreshold, "慢查询阈值")
	fs.StringVar(&o.SQLitePath, "mysql.sqlite-path", o.SQLitePath, "driver=sqlite 时使用的数据库文件")
	fs.BoolVar(&o.AutoMigrate, "mysql.auto-migrate", o.AutoMigrate, "启动时迁移核心表并写入初始数据")
	fs.StringVar(&o.HeadOfficeName, "mysql.head-office-name", o.HeadOfficeName, "初始化时总部机构名称")
	fs.StringVar(&o.AdminUsername, "mysql.admin-username", o.AdminUsername, "初始化的超级管理员账号，留空不创建")
	fs.StringVar(&o.AdminPassword, "mysql.admin-password", o.AdminPassword, "初始化的超级管理员密码")
}
