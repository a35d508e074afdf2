package config

const (
	defaultConfigPath   = "~/.config/docshell/config.toml"
	defaultDataDir      = "~/.local/share/docshell"
	defaultDownloadDir  = "~/Downloads"
	defaultLogDir       = "~/.local/share/docshell/logs"
	defaultAPIBind      = "127.0.0.1:7490"
	defaultBackend      = BackendProcess
	defaultBinary       = "x2t"
	defaultUserID       = "uid"
	defaultUserName     = "Me"
	defaultBuildVersion = "9.3.0"
	defaultBuildNumber  = 9
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultLogRetention = 14
)

// Converter backends.
const (
	BackendProcess = "process"
	BackendWasm    = "wasm"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Converter: Converter{
			Backend:  defaultBackend,
			Binary:   defaultBinary,
			CacheDir: defaultCacheDir(),
		},
		Editor: Editor{
			UserID:       defaultUserID,
			UserName:     defaultUserName,
			BuildVersion: defaultBuildVersion,
			BuildNumber:  defaultBuildNumber,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
