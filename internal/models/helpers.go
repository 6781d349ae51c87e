package models

import (
	"net/url"

	"github.com/google/uuid"
)

// IsWebURL 结果链接只保留带主机名的绝对 http(s) 地址
func IsWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func NewSessionID() string {
	return uuid.New().String()
}
