package config

const (
	defaultConfigPath   = "~/.config/vidsub/config.toml"
	projectConfigName   = "vidsub.toml"
	defaultWorkDir      = "~/.local/share/vidsub/work"
	defaultLogDir       = "~/.local/share/vidsub/logs"
	defaultPackageDB    = "~/.local/share/vidsub/packages.db"
	defaultModel        = "large-v2"
	defaultDevice       = "cuda"
	defaultComputeType  = "float16"
	defaultVADMethod    = "silero"
	defaultBatchSize    = 8
	defaultHub          = "en"
	defaultLibreURL     = "http://127.0.0.1:5000"
	defaultLibreRPS     = 5
	defaultLibreTimeout = 30
	defaultOutputSuffix = "_with_subtitles.mkv"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultLogMaxSize   = 10
	defaultLogMaxFiles  = 5
)

// Backend and tool identifiers.
const (
	BackendArgos          = "argos"
	BackendLibreTranslate = "libretranslate"
	MuxToolFFmpeg         = "ffmpeg"
	MuxToolMkvmerge       = "mkvmerge"
)

// External command names.
const (
	FFmpegBinary         = "ffmpeg"
	FFprobeBinary        = "ffprobe"
	UVXBinary            = "uvx"
	MkvmergeBinary       = "mkvmerge"
	ArgospmBinary        = "argospm"
	ArgosTranslateBinary = "argos-translate"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			PackageDB: defaultPackageDB,
		},
		Transcription: Transcription{
			Model:       defaultModel,
			Device:      defaultDevice,
			ComputeType: defaultComputeType,
			VADMethod:   defaultVADMethod,
			BatchSize:   defaultBatchSize,
		},
		Translation: Translation{
			Backend:     BackendArgos,
			Hub:         defaultHub,
			Concurrency: 1,
		},
		LibreTranslate: LibreTranslate{
			URL:               defaultLibreURL,
			RequestsPerSecond: defaultLibreRPS,
			TimeoutSeconds:    defaultLibreTimeout,
		},
		Mux: Mux{
			Tool:         MuxToolFFmpeg,
			OutputSuffix: defaultOutputSuffix,
		},
		Logging: Logging{
			Format:    defaultLogFormat,
			Level:     defaultLogLevel,
			MaxSizeMB: defaultLogMaxSize,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}
