package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFlagName = "config"

var cfgFile string

// nolint: gochecknoinits
func init() {
	pflag.StringVarP(&cfgFile, configFlagName, "c", cfgFile, "从指定文件读取配置，支持 JSON、TOML、YAML、HCL 或 Java properties 格式.")
}

// addConfigFlag adds flags for a specific server to the specified FlagSet
// object.
func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.AddFlag(pflag.Lookup(configFlagName))

	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix(basename))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath(".")
			if names := strings.Split(basename, "-"); len(names) > 1 {
				if home, err := os.UserHomeDir(); err == nil {
					viper.AddConfigPath(filepath.Join(home, "."+names[0]))
				}
				viper.AddConfigPath(filepath.Join("/etc", names[0]))
			}
			viper.SetConfigName(basename)
		}

		if err := viper.ReadInConfig(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "错误: 读取配置文件失败(%s): %v\n", cfgFile, err)
			os.Exit(1)
		}
	})
}

// envPrefix obs-apiserver -> OBS.
func envPrefix(basename string) string {
	name := strings.Split(basename, "-")[0]
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func printConfig() {
	if keys := viper.AllKeys(); len(keys) > 0 {
		fmt.Printf("%v 配置项:\n", progressMessage)
		table := uitable.New()
		table.Separator = " "
		table.MaxColWidth = 80
		table.RightAlign(0)
		for _, k := range keys {
			table.AddRow(fmt.Sprintf("%s:", k), viper.Get(k))
		}
		fmt.Printf("%v", table)
	}
}
