package theme

import (
	"image/color"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"go.uber.org/zap"

	"storagekit/internal/config"
	"storagekit/internal/logging"
)

// CustomTheme implements fyne.Theme with configurable font settings
type CustomTheme struct {
	config     config.ThemeConfig
	customFont fyne.Resource
	logger     *zap.Logger
}

// NewCustomTheme creates a new custom theme with the given configuration
func NewCustomTheme(cfg config.ThemeConfig, logger *zap.Logger) *CustomTheme {
	t := &CustomTheme{config: cfg, logger: logging.OrNop(logger)}
	if cfg.FontPath != "" {
		t.loadCustomFont()
	}
	return t
}

// loadCustomFont reads the configured font. A missing or unreadable file
// leaves the default font in place.
func (t *CustomTheme) loadCustomFont() {
	fontPath := t.config.FontPath
	fontData, err := os.ReadFile(fontPath)
	if err != nil {
		t.logger.Warn("custom font unavailable", zap.String("path", fontPath), zap.Error(err))
		return
	}
	t.customFont = fyne.NewStaticResource(filepath.Base(fontPath), fontData)
	t.logger.Debug("loaded custom font", zap.String("path", fontPath))
}

func (t *CustomTheme) base() fyne.Theme {
	if t.config.Dark {
		return theme.DarkTheme()
	}
	return theme.LightTheme()
}

func (t *CustomTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	return t.base().Color(name, variant)
}

func (t *CustomTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base().Icon(name)
}

// Font returns the custom font for every style when one is loaded.
func (t *CustomTheme) Font(style fyne.TextStyle) fyne.Resource {
	if t.customFont != nil {
		return t.customFont
	}
	return t.base().Font(style)
}

func (t *CustomTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText && t.config.FontSize > 0 {
		return t.config.FontSize
	}
	return t.base().Size(name)
}
