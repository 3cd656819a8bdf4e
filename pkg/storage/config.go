package storage

import "strconv"

// Config redis 连接参数，由 options.RedisOptions 转换而来.
type Config struct {
	Host                  string
	Port                  int
	Addrs                 []string
	MasterName            string
	Username              string
	Password              string
	Database              int
	MaxIdle               int
	MaxActive             int
	Timeout               int
	EnableCluster         bool
	UseSSL                bool
	SSLInsecureSkipVerify bool
}

func (c *Config) addrs() []string {
	if len(c.Addrs) != 0 {
		return c.Addrs
	}
	if c.Port != 0 {
		return []string{c.Host + ":" + strconv.Itoa(c.Port)}
	}
	return nil
}
