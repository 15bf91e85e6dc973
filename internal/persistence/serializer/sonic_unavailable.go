//go:build !amd64 && !arm64

package serializer

const sonicAvailable = false
