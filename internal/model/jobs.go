package model

// CLIOptions holds user-configurable runtime options for the local commands.
type CLIOptions struct {
	OutDir       string
	Container    Container
	Quality      string // explicit rendition ID; empty selects the default
	AudioQuality string // explicit audio rendition ID; empty selects the default
	DLBinary     string // Optional explicit path to yt-dlp/youtube-dl
	FFmpegBinary string // Optional explicit path to ffmpeg
	TempDir      string
	Verbose      bool

	NoUI bool // Disable TUI when true
	Jobs int  // Max concurrent jobs for TUI
}

