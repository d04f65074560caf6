package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "hellwatch/pkg/logx"
)

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "redis":
		s, err := openRedis(cfg)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		log.Debug("redis cache connected", logx.String("addr", cfg.Addr))
		return s, nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown cache driver: " + driver)
	}
}
