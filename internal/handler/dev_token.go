package handler

import (
	"resc/internal/configs"
	"resc/internal/pkg/auth/jwt"
	"resc/internal/pkg/logx"
)

// DevelopmentToken issues an operator token bound to cfg's node. It returns an empty
// token outside development.
func DevelopmentToken(cfg *configs.AppConfig) (string, error) {
	if !cfg.IsDevelopment() {
		return "", nil
	}
	return jwt.OperatorToken("dev", cfg.NodeName, cfg.JWTSecret, jwt.OperatorTokenExpiration)
}

// LogDevelopmentToken prints a development operator token so the admin API can be tried locally.
func LogDevelopmentToken(cfg *configs.AppConfig) {
	token, err := DevelopmentToken(cfg)
	if err != nil {
		logx.Error(err, "Failed to issue development operator token")
		return
	}
	if token != "" {
		logx.Info("Development operator token issued", "token", token)
	}
}
