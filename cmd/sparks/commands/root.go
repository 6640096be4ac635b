package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bbq191/sparks-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version 程序版本
const Version = "0.1.0"

var (
	cfgFile    string
	verbose    bool
	hostFlags  []string
	rootLogger *logrus.Logger
)

// rootCmd 是应用的根命令
var rootCmd = &cobra.Command{
	Use:   "sparks",
	Short: "远程主机软件包管理工具",
	Long: `在本地或通过 SSH 在远程主机上统一管理软件包。

自动探测主机平台（LSB Linux / OSX / FreeBSD），
并选择合适的包管理后端：

  • apt      Debian / Ubuntu
  • brew     OSX
  • ports    FreeBSD（通过 sparks backend ports 调用）
  • pacman   Arch Linux（通过 sparks backend pacman 调用）
  • pip / npm / gem`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局参数
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	flags.BoolVarP(&verbose, "verbose", "v", false, "详细输出")
	flags.StringSliceVarP(&hostFlags, "hosts", "H", nil, "目标主机，逗号分隔，支持 user@host 与 @组名")
	flags.IntP("parallel", "P", config.DefaultParallel, "同时操作的主机数")
	flags.BoolP("quiet", "q", false, "静默模式，不回显命令输出和进度条")
	flags.Bool("silent", false, "不显示主机信息摘要")
	flags.Bool("no-sudo", false, "不使用 sudo 执行命令")

	// 绑定到 viper
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("parallel", flags.Lookup("parallel"))
	viper.BindPFlag("quiet", flags.Lookup("quiet"))
	viper.BindPFlag("silent", flags.Lookup("silent"))
	viper.BindPFlag("sudo.disabled", flags.Lookup("no-sudo"))
}

// initConfig 初始化配置
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// 使用指定的配置文件
		viper.SetConfigFile(cfgFile)
	} else {
		// 搜索默认配置文件位置
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}

		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath(filepath.Join(configHome, "sparks"))
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("sparks")
	}

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// initLogger 初始化日志系统
func initLogger() {
	rootLogger = logrus.New()

	// 设置日志级别
	if verbose || viper.GetBool("verbose") {
		rootLogger.SetLevel(logrus.DebugLevel)
	} else {
		rootLogger.SetLevel(logrus.InfoLevel)
	}

	// 设置日志格式
	rootLogger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05",
	})

	rootLogger.Debug("日志系统初始化完成")
}

// GetLogger 获取日志实例
func GetLogger() *logrus.Logger {
	return rootLogger
}

// loadConfig 从全局 viper 加载配置
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper(), GetLogger())
}
