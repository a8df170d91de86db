package static

import (
	"path/filepath"
	"strings"
)

// DefaultContentType is served for files whose extension is not in the table.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".html":  "text/html",
	".htm":   "text/html",
	".js":    "text/javascript",
	".mjs":   "text/javascript",
	".css":   "text/css",
	".json":  "application/json",
	".txt":   "text/plain",
	".png":   "image/png",
	".jpg":   "image/jpg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".webp":  "image/webp",
	".wav":   "audio/wav",
	".mp4":   "video/mp4",
	".woff":  "application/font-woff",
	".woff2": "font/woff2",
	".ttf":   "application/font-ttf",
	".eot":   "application/vnd.ms-fontobject",
	".otf":   "application/font-otf",
	".wasm":  "application/wasm",
}

// ContentType returns the MIME type registered for the extension of name.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return DefaultContentType
}
