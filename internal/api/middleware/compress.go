package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// DefaultCompressMinSize leaves small responses uncompressed.
const DefaultCompressMinSize = 1024

// Compress gzip-encodes responses of at least minSize bytes for clients that
// accept it. Route geometries and heatmaps compress well.
func Compress(minSize int) (func(http.Handler) http.Handler, error) {
	if minSize <= 0 {
		minSize = DefaultCompressMinSize
	}
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(minSize))
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}
