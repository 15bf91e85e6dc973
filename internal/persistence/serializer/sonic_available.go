//go:build amd64 || arm64

package serializer

// sonic 的 JIT 只在 amd64/arm64 上启用。
const sonicAvailable = true
