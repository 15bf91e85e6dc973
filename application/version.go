package application

import (
	"github.com/blang/semver/v4"
)

// Version 构建版本，发布构建通过 -ldflags "-X .../application.Version=1.2.3" 注入。
var Version = "0.1.0-dev"

// BuildVersion 解析 Version，前缀 v 可有可无。
func BuildVersion() (semver.Version, error) {
	return semver.ParseTolerant(Version)
}

// IsDevelopment 版本带预发布标记（如 -dev、-rc.1）或无法解析时视为开发构建。
func IsDevelopment() bool {
	v, err := BuildVersion()
	if err != nil {
		return true
	}
	return len(v.Pre) > 0
}
