package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// GetLibraryLocation returns the library directory, checking the user
// settings file first, then the environment, then an OS-appropriate default.
func GetLibraryLocation() string {
	if settings, err := LoadSettings(); err == nil && settings.LibraryLocation != "" {
		return settings.LibraryLocation
	}

	if customPath := os.Getenv("CROSSPLAY_LIBRARY"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "library")
	}

	return filepath.Join(homeDir, "Music", "CrossPlay")
}

// GetFetchTool returns the path of the external fetch tool binary.
func GetFetchTool() string {
	if p := os.Getenv("YTDLP_PATH"); p != "" {
		return p
	}
	return "yt-dlp"
}

// GetTranscodeTool returns the path of the external transcode tool binary.
func GetTranscodeTool() string {
	if p := os.Getenv("FFMPEG_PATH"); p != "" {
		return p
	}
	return "ffmpeg"
}

// Settings represents the user's personal settings.
type Settings struct {
	LibraryLocation string `json:"libraryLocation"`
}

// SettingsFilePath returns the path to the settings file.
func SettingsFilePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".crossplay-settings.json")
}

// LoadSettings loads settings from the settings file. A missing file yields
// zero-value settings, not an error.
func LoadSettings() (*Settings, error) {
	settingsPath := SettingsFilePath()

	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return &Settings{}, nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// SaveSettings saves settings to the settings file.
func SaveSettings(settings *Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(SettingsFilePath(), data, 0644)
}
