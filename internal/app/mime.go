package app

import (
	"log/slog"
	"mime"
)

// assetTypes are registered when the host MIME table lacks them.
var assetTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".pdf":  "application/pdf",
	".html": "text/html; charset=utf-8",
	".json": "application/json",
}

func init() {
	registerAssetTypes(slog.Default())
}

func registerAssetTypes(logger *slog.Logger) {
	for ext, typ := range assetTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			logger.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}
